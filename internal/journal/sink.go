package journal

import (
	"context"

	"github.com/zjrosen/nsresolve/internal/log"
	"github.com/zjrosen/nsresolve/internal/namespace"
	"github.com/zjrosen/nsresolve/internal/pubsub"
)

// Sink writes resolver events from a subscription into a Store.
type Sink struct {
	store *Store
}

// NewSink creates a sink writing to store.
func NewSink(store *Store) *Sink {
	return &Sink{store: store}
}

// Run records events from sub until ctx is done or the subscription closes.
// Insert failures are logged and do not stop the sink.
func (s *Sink) Run(ctx context.Context, sub pubsub.Subscriber[namespace.Event]) {
	ch := sub.Subscribe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			entry, err := s.store.Record(ctx, EntryFrom(ev))
			if err != nil {
				log.ErrorErr(log.CatJournal, "Failed to journal event", err, "kind", ev.Type, "key", ev.Payload.Key)
				continue
			}
			log.Debug(log.CatJournal, "Journaled event", "id", entry.ID, "kind", entry.Kind)
		}
	}
}
