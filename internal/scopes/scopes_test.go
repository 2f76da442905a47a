package scopes

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/nsresolve/internal/config"
	"github.com/zjrosen/nsresolve/internal/handlers"
	"github.com/zjrosen/nsresolve/internal/namespace"
)

func boolPtr(b bool) *bool { return &b }

func writeHandlers(t *testing.T, dir, content string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(namespace.DefaultResourcePath))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestRoots_BuiltinFirst(t *testing.T) {
	dir := t.TempDir()

	roots, err := Roots(config.ScopeConfig{Name: "s", Roots: []string{dir}, Builtin: boolPtr(true)})
	require.NoError(t, err)
	require.Len(t, roots, 2)
	require.Equal(t, "builtin", roots[0].Name)
	require.Equal(t, dir, roots[1].Name)

	roots, err = Roots(config.ScopeConfig{Name: "s", Roots: []string{dir}})
	require.NoError(t, err)
	require.Len(t, roots, 1)
}

func TestBuild_UserRootOverridesBuiltin(t *testing.T) {
	dir := t.TempDir()
	writeHandlers(t, dir,
		`https\://nsresolve.dev/schema/util=github.com/zjrosen/nsresolve/internal/handlers.CacheHandler`+"\n")

	r, err := Build(config.ScopeConfig{
		Name: "s", Roots: []string{dir}, Builtin: boolPtr(true), ResourcePath: namespace.DefaultResourcePath,
	})
	require.NoError(t, err)

	h, ok, err := r.Resolve(context.Background(), handlers.UtilNamespace)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, handlers.CacheNamespace, h.Namespace())
}

func TestBuild_CustomResourcePath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "handlers.properties"),
		[]byte(`https\://nsresolve.dev/schema/context=github.com/zjrosen/nsresolve/internal/handlers.ContextHandler`), 0o644))

	r, err := Build(config.ScopeConfig{Name: "s", Roots: []string{dir}, ResourcePath: "handlers.properties"})
	require.NoError(t, err)

	mappings, err := r.Mappings(context.Background())
	require.NoError(t, err)
	require.Len(t, mappings, 1)
	require.Equal(t, handlers.ContextNamespace, mappings[0].Key)
}

func TestBuild_BadPattern(t *testing.T) {
	_, err := Build(config.ScopeConfig{Name: "s", Roots: []string{"["}})
	require.ErrorContains(t, err, "scope s")
}

func TestPool_OneResolverPerScope(t *testing.T) {
	cfg := config.Config{
		Builtin: true,
		Scopes:  []config.ScopeConfig{{Name: "bare", Builtin: boolPtr(false)}},
	}
	pool := NewPool(cfg)
	ctx := context.Background()

	var wg sync.WaitGroup
	got := make([]*handlers.Resolver, 16)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := pool.Get(ctx, "")
			require.NoError(t, err)
			got[i] = r
		}(i)
	}
	wg.Wait()
	for _, r := range got {
		require.Same(t, got[0], r)
	}
	require.True(t, strings.HasPrefix(got[0].ID(), "default-"))

	bare, err := pool.Get(ctx, "bare")
	require.NoError(t, err)
	require.NotSame(t, got[0], bare)
	mappings, err := bare.Mappings(ctx)
	require.NoError(t, err)
	require.Empty(t, mappings)

	require.Equal(t, []string{"bare", "default"}, pool.Built(ctx))
	require.Equal(t, []string{"default", "bare"}, pool.Names())
}

func TestPool_UnknownScope(t *testing.T) {
	pool := NewPool(config.Defaults())

	_, err := pool.Get(context.Background(), "nope")

	require.ErrorContains(t, err, "unknown scope")
	require.Empty(t, pool.Built(context.Background()))
}

func TestPool_EvictAndReset(t *testing.T) {
	pool := NewPool(config.Config{
		Builtin: true,
		Scopes:  []config.ScopeConfig{{Name: "bare", Builtin: boolPtr(false)}},
	})
	ctx := context.Background()

	first, err := pool.Get(ctx, "")
	require.NoError(t, err)
	_, err = pool.Get(ctx, "bare")
	require.NoError(t, err)

	require.NoError(t, pool.Evict(ctx, "default"))
	require.Equal(t, []string{"bare"}, pool.Built(ctx))

	rebuilt, err := pool.Get(ctx, "")
	require.NoError(t, err)
	require.NotSame(t, first, rebuilt)
	require.NotEqual(t, first.ID(), rebuilt.ID())

	require.NoError(t, pool.Reset(ctx))
	require.Empty(t, pool.Built(ctx))
}
