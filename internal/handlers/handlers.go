// Package handlers provides the built-in namespace handlers and the embedded
// mapping resource that declares them.
package handlers

import (
	"context"
	"embed"
	"fmt"
	"sort"

	"github.com/zjrosen/nsresolve/internal/namespace"
)

// Namespace URIs of the built-in handlers.
const (
	UtilNamespace    = "https://nsresolve.dev/schema/util"
	ContextNamespace = "https://nsresolve.dev/schema/context"
	CacheNamespace   = "https://nsresolve.dev/schema/cache"
)

//go:embed META-INF
var resources embed.FS

// Root returns the search root holding the built-in mapping resource.
func Root() namespace.Root {
	return namespace.Root{Name: "builtin", FS: resources}
}

// ElementHandler is the handler contract of nsresolve: a handler for one
// namespace that parses a fixed set of elements.
type ElementHandler interface {
	namespace.Handler
	// Namespace returns the namespace URI the handler serves.
	Namespace() string
	// Elements returns the element names registered during Init, sorted.
	Elements() []string
	// Parse returns a one-line description of how element would be handled.
	Parse(ctx context.Context, element string) (string, error)
}

// Resolver resolves namespace URIs to element handlers.
type Resolver = namespace.Resolver[ElementHandler]

// NewResolver creates a resolver for ElementHandler over scope.
func NewResolver(scope namespace.Scope, opts ...namespace.Option) *Resolver {
	return namespace.NewResolver[ElementHandler](scope, opts...)
}

func init() {
	namespace.RegisterType[UtilHandler](namespace.DefaultCatalog)
	namespace.RegisterType[ContextHandler](namespace.DefaultCatalog)
	namespace.RegisterType[CacheHandler](namespace.DefaultCatalog)
}

// elementParser handles one element.
type elementParser func(ctx context.Context) string

// base is the element registry shared by the built-in handlers.
type base struct {
	namespace string
	parsers   map[string]elementParser
}

func (b *base) register(element string, p elementParser) {
	if b.parsers == nil {
		b.parsers = make(map[string]elementParser)
	}
	b.parsers[element] = p
}

func (b *base) Namespace() string { return b.namespace }

func (b *base) Elements() []string {
	names := make([]string, 0, len(b.parsers))
	for name := range b.parsers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (b *base) Parse(ctx context.Context, element string) (string, error) {
	p, ok := b.parsers[element]
	if !ok {
		return "", fmt.Errorf("no parser for element [%s] in namespace [%s]", element, b.namespace)
	}
	return p(ctx), nil
}

func describe(kind string) elementParser {
	return func(context.Context) string { return kind }
}

// UtilHandler handles the util namespace.
type UtilHandler struct{ base }

// Init registers the util elements.
func (h *UtilHandler) Init() error {
	h.namespace = UtilNamespace
	h.register("constant", describe("exposes a constant field value"))
	h.register("property-path", describe("references a property of another component"))
	h.register("list", describe("defines a list collection"))
	h.register("set", describe("defines a set collection"))
	h.register("map", describe("defines a map collection"))
	h.register("properties", describe("loads a properties file"))
	return nil
}

// ContextHandler handles the context namespace.
type ContextHandler struct{ base }

// Init registers the context elements.
func (h *ContextHandler) Init() error {
	h.namespace = ContextNamespace
	h.register("property-placeholder", describe("resolves ${...} placeholders"))
	h.register("property-override", describe("overrides component properties"))
	h.register("annotation-config", describe("enables annotation processing"))
	h.register("component-scan", describe("scans packages for components"))
	return nil
}

// CacheHandler handles the cache namespace.
type CacheHandler struct{ base }

// Init registers the cache elements.
func (h *CacheHandler) Init() error {
	h.namespace = CacheNamespace
	h.register("annotation-driven", describe("enables cache annotations"))
	h.register("advice", describe("defines cache advice"))
	return nil
}
