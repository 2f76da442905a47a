// Package scopes builds handler resolvers from configured search scopes and
// keeps one resolver per scope for the life of a process.
package scopes

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/zjrosen/nsresolve/internal/cachemanager"
	"github.com/zjrosen/nsresolve/internal/config"
	"github.com/zjrosen/nsresolve/internal/handlers"
	"github.com/zjrosen/nsresolve/internal/log"
	"github.com/zjrosen/nsresolve/internal/namespace"
)

// Roots expands the scope's root patterns, prefixed with the built-in root
// when the scope includes it.
func Roots(sc config.ScopeConfig) ([]namespace.Root, error) {
	var roots []namespace.Root
	if sc.IncludesBuiltin() {
		roots = append(roots, handlers.Root())
	}
	dirs, err := namespace.GlobRoots(sc.Roots...)
	if err != nil {
		return nil, fmt.Errorf("scope %s: %w", sc.Name, err)
	}
	return append(roots, dirs...), nil
}

// Build creates a fresh resolver for sc. The resolver has not read any
// mapping resource yet.
func Build(sc config.ScopeConfig, opts ...namespace.Option) (*handlers.Resolver, error) {
	roots, err := Roots(sc)
	if err != nil {
		return nil, err
	}
	opts = append([]namespace.Option{namespace.WithResourcePath(sc.ResourcePath)}, opts...)
	r := handlers.NewResolver(namespace.NewScope(nil, roots...), opts...)
	log.Debug(log.CatRegistry, "Built resolver", "scope", sc.Name, "roots", len(roots), "resolver", r.ID())
	return r, nil
}

// Pool hands out one resolver per scope name, building each on first use.
// Safe for concurrent use.
type Pool struct {
	cfg   config.Config
	opts  []namespace.Option
	cache *cachemanager.InMemoryCacheManager[string, *handlers.Resolver]
	rtc   *cachemanager.ReadThroughCache[string, *handlers.Resolver, string]
}

// NewPool creates a pool over the scopes of cfg. opts are applied to every
// resolver the pool builds.
func NewPool(cfg config.Config, opts ...namespace.Option) *Pool {
	p := &Pool{
		cfg:   cfg,
		opts:  opts,
		cache: cachemanager.NewInMemoryCacheManager[string, *handlers.Resolver]("resolvers", cachemanager.NoExpiration, cachemanager.DefaultCleanupInterval),
	}
	p.rtc = cachemanager.NewReadThroughCache[string, *handlers.Resolver, string](p.cache, p.build)
	return p
}

func (p *Pool) build(_ context.Context, name string) (*handlers.Resolver, error) {
	sc, err := p.cfg.Scope(name)
	if err != nil {
		return nil, err
	}
	opts := append([]namespace.Option{namespace.WithID(name + "-" + uuid.NewString()[:8])}, p.opts...)
	return Build(sc, opts...)
}

// Get returns the resolver for the named scope. An empty name means the
// default scope.
func (p *Pool) Get(ctx context.Context, name string) (*handlers.Resolver, error) {
	if name == "" {
		name = config.DefaultScope
	}
	return p.rtc.Get(ctx, name, name, cachemanager.NoExpiration)
}

// Names returns every configured scope name.
func (p *Pool) Names() []string {
	return p.cfg.ScopeNames()
}

// Evict drops the resolvers of the named scopes. The next Get builds a fresh
// resolver that reloads the mapping resources.
func (p *Pool) Evict(ctx context.Context, names ...string) error {
	if err := p.cache.Delete(ctx, names...); err != nil {
		return fmt.Errorf("evicting scopes %v: %w", names, err)
	}
	log.Info(log.CatRegistry, "Evicted scope resolvers", "scopes", names)
	return nil
}

// Reset drops every resolver.
func (p *Pool) Reset(ctx context.Context) error {
	if err := p.cache.Flush(ctx); err != nil {
		return fmt.Errorf("resetting resolver pool: %w", err)
	}
	log.Info(log.CatRegistry, "Reset resolver pool")
	return nil
}

// Built returns the names of scopes whose resolver has been created.
func (p *Pool) Built(ctx context.Context) []string {
	return p.cache.Keys(ctx)
}
