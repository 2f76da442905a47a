package namespace

import (
	"context"
	"errors"
	"io/fs"
	"sync"
	"sync/atomic"
	"testing"
	"testing/fstest"

	"github.com/zjrosen/nsresolve/internal/pubsub"
)

// greeter is the contract used throughout these tests.
type greeter interface {
	Handler
	Greet() string
}

type helloHandler struct {
	inits atomic.Int32
}

func (h *helloHandler) Init() error   { h.inits.Add(1); return nil }
func (h *helloHandler) Greet() string { return "hello" }

type byeHandler struct{}

func (h *byeHandler) Init() error   { return nil }
func (h *byeHandler) Greet() string { return "bye" }

// notAGreeter implements Handler but not greeter.
type notAGreeter struct{}

func (notAGreeter) Init() error { return nil }

type failingInit struct{}

func (*failingInit) Init() error   { return errors.New("missing element registry") }
func (*failingInit) Greet() string { return "" }

type panickingInit struct{}

func (*panickingInit) Init() error   { panic("boom") }
func (*panickingInit) Greet() string { return "" }

type testCatalog struct {
	*Catalog
	hello, bye, notGreeter, failing, panicking string
}

func newTestCatalog() testCatalog {
	c := NewCatalog()
	return testCatalog{
		Catalog:    c,
		hello:      RegisterType[helloHandler](c),
		bye:        RegisterType[byeHandler](c),
		notGreeter: RegisterType[notAGreeter](c),
		failing:    RegisterType[failingInit](c),
		panicking:  RegisterType[panickingInit](c),
	}
}

func mapRoot(name string, files map[string]string) Root {
	fsys := fstest.MapFS{}
	for path, content := range files {
		fsys[path] = &fstest.MapFile{Data: []byte(content)}
	}
	return Root{Name: name, FS: fsys}
}

func handlersRoot(name, content string) Root {
	return mapRoot(name, map[string]string{DefaultResourcePath: content})
}

// escapeKey escapes the colons of a namespace URI for a properties file.
func escapeKey(key string) string {
	out := make([]byte, 0, len(key)+4)
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			out = append(out, '\\')
		}
		out = append(out, key[i])
	}
	return string(out)
}

func line(key, typeName string) string {
	return escapeKey(key) + "=" + typeName + "\n"
}

// brokenFS fails every open with a permission error.
type brokenFS struct{}

func (brokenFS) Open(name string) (fs.File, error) {
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrPermission}
}

// countingScope counts Locate calls and can be told to fail.
type countingScope struct {
	Scope
	locates atomic.Int32
	gate    chan struct{}
}

func (s *countingScope) Locate(path string) ([]Resource, error) {
	s.locates.Add(1)
	if s.gate != nil {
		<-s.gate
	}
	return s.Scope.Locate(path)
}

// recordingPublisher collects published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []pubsub.Event[Event]
}

func (p *recordingPublisher) Publish(kind pubsub.EventType, payload Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, pubsub.Event[Event]{Type: kind, Payload: payload})
}

func (p *recordingPublisher) ofType(kind pubsub.EventType) []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []Event
	for _, e := range p.events {
		if e.Type == kind {
			out = append(out, e.Payload)
		}
	}
	return out
}

func mustResolve(t *testing.T, r *Resolver[greeter], key string) greeter {
	t.Helper()
	h, ok, err := r.Resolve(context.Background(), key)
	if err != nil {
		t.Fatalf("resolve %q: %v", key, err)
	}
	if !ok {
		t.Fatalf("resolve %q: not found", key)
	}
	return h
}
