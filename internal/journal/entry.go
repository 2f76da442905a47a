package journal

import (
	"time"

	"github.com/zjrosen/nsresolve/internal/namespace"
	"github.com/zjrosen/nsresolve/internal/pubsub"
)

// Entry is one journaled resolver event.
type Entry struct {
	ID         string        `json:"id" yaml:"id"`
	ResolverID string        `json:"resolver_id" yaml:"resolver_id"`
	Kind       string        `json:"kind" yaml:"kind"`
	Location   string        `json:"location" yaml:"location"`
	Key        string        `json:"key,omitempty" yaml:"key,omitempty"`
	TypeName   string        `json:"type,omitempty" yaml:"type,omitempty"`
	Error      string        `json:"error,omitempty" yaml:"error,omitempty"`
	Count      int           `json:"count,omitempty" yaml:"count,omitempty"`
	Duration   time.Duration `json:"duration" yaml:"duration"`
	CreatedAt  time.Time     `json:"created_at" yaml:"created_at"`
}

// EntryFrom converts a published resolver event.
func EntryFrom(ev pubsub.Event[namespace.Event]) Entry {
	p := ev.Payload
	e := Entry{
		ResolverID: p.ResolverID,
		Kind:       string(ev.Type),
		Location:   p.Location,
		Key:        p.Key,
		TypeName:   p.TypeName,
		Count:      p.Count,
		Duration:   p.Duration,
		CreatedAt:  ev.Timestamp,
	}
	if p.Err != nil {
		e.Error = p.Err.Error()
	}
	return e
}

// entryModel is the row shape of the events table.
// Times are Unix milliseconds; empty strings are stored as NULL.
type entryModel struct {
	ID         string
	ResolverID string
	Kind       string
	Location   string
	Key        *string // nullable
	TypeName   *string // nullable
	Error      *string // nullable
	Count      int
	DurationMs float64
	CreatedAt  int64
}

func toModel(e Entry) entryModel {
	return entryModel{
		ID:         e.ID,
		ResolverID: e.ResolverID,
		Kind:       e.Kind,
		Location:   e.Location,
		Key:        nullable(e.Key),
		TypeName:   nullable(e.TypeName),
		Error:      nullable(e.Error),
		Count:      e.Count,
		DurationMs: float64(e.Duration) / float64(time.Millisecond),
		CreatedAt:  e.CreatedAt.UnixMilli(),
	}
}

func (m entryModel) toEntry() Entry {
	return Entry{
		ID:         m.ID,
		ResolverID: m.ResolverID,
		Kind:       m.Kind,
		Location:   m.Location,
		Key:        deref(m.Key),
		TypeName:   deref(m.TypeName),
		Error:      deref(m.Error),
		Count:      m.Count,
		Duration:   time.Duration(m.DurationMs * float64(time.Millisecond)),
		CreatedAt:  time.UnixMilli(m.CreatedAt),
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
