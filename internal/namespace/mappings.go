package namespace

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
)

// entry is one key of the table. It holds the declared type name until the
// handler is constructed, then the handler. Once set, handler never changes.
type entry[H any] struct {
	typeName string
	handler  atomic.Pointer[H]
}

func (e *entry[H]) resolved() (H, bool) {
	if p := e.handler.Load(); p != nil {
		return *p, true
	}
	var zero H
	return zero, false
}

// table is the merged mapping table. The map itself is never written after
// publication; only entries change state.
type table[H any] struct {
	entries map[string]*entry[H]
}

func newTable[H any](raw map[string]string) *table[H] {
	t := &table[H]{entries: make(map[string]*entry[H], len(raw))}
	for key, typeName := range raw {
		t.entries[key] = &entry[H]{typeName: typeName}
	}
	return t
}

func (t *table[H]) snapshot() []Mapping {
	mappings := make([]Mapping, 0, len(t.entries))
	for key, e := range t.entries {
		_, ok := e.resolved()
		mappings = append(mappings, Mapping{Key: key, TypeName: e.typeName, Resolved: ok})
	}
	sort.Slice(mappings, func(i, j int) bool { return mappings[i].Key < mappings[j].Key })
	return mappings
}

// mappingCache loads the table at most once and publishes it atomically.
// Readers that observe the published table take no lock.
type mappingCache[H any] struct {
	load func(ctx context.Context) (*table[H], error)

	mu    sync.Mutex
	err   error // sticky load failure, guarded by mu
	table atomic.Pointer[table[H]]
}

func newMappingCache[H any](load func(ctx context.Context) (*table[H], error)) *mappingCache[H] {
	return &mappingCache[H]{load: load}
}

func (c *mappingCache[H]) get(ctx context.Context) (*table[H], error) {
	if t := c.table.Load(); t != nil {
		return t, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Re-check: another caller may have finished the load while we waited.
	if t := c.table.Load(); t != nil {
		return t, nil
	}
	if c.err != nil {
		return nil, c.err
	}

	t, err := c.load(ctx)
	if err != nil {
		c.err = err
		return nil, err
	}
	c.table.Store(t)
	return t, nil
}

// peek returns the table if it has been published, without loading it.
func (c *mappingCache[H]) peek() *table[H] {
	return c.table.Load()
}
