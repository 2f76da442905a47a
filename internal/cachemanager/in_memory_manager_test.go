package cachemanager

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type scopeName string

type ExampleStruct struct {
	ID   int
	Name string
}

func TestNewInMemoryCacheManager(t *testing.T) {
	require.NotPanics(t, func() {
		NewInMemoryCacheManager[string, string]("test", NoExpiration, DefaultCleanupInterval)
	})
}

func TestInMemoryCacheManager_GetExistingValue_StructType(t *testing.T) {
	cache := NewInMemoryCacheManager[string, ExampleStruct]("examples", NoExpiration, DefaultCleanupInterval)
	example := ExampleStruct{Name: "apple"}
	cache.Set(context.Background(), "ex:1", example, NoExpiration)

	got, ok := cache.Get(context.Background(), "ex:1")
	require.True(t, ok)
	require.Equal(t, example, got)
}

func TestInMemoryCacheManager_NamedKeyType(t *testing.T) {
	cache := NewInMemoryCacheManager[scopeName, int]("scopes", NoExpiration, DefaultCleanupInterval)
	cache.Set(context.Background(), scopeName("default"), 1, NoExpiration)

	got, ok := cache.Get(context.Background(), "default")
	require.True(t, ok)
	require.Equal(t, 1, got)
}

func TestInMemoryCacheManager_GetWithNoExistingValue(t *testing.T) {
	cache := NewInMemoryCacheManager[string, string]("food-cache", NoExpiration, DefaultCleanupInterval)

	got, ok := cache.Get(context.Background(), "food")
	require.False(t, ok)
	require.Empty(t, got)
}

func TestInMemoryCacheManager_GetWithExistingInvalidValueType(t *testing.T) {
	cache := NewInMemoryCacheManager[string, string]("food-cache", NoExpiration, DefaultCleanupInterval)

	cache.cache.Set("food", 123, NoExpiration)

	got, ok := cache.Get(context.Background(), "food")
	require.False(t, ok)
	require.Empty(t, got)
}

func TestInMemoryCacheManager_Expiration(t *testing.T) {
	cache := NewInMemoryCacheManager[string, string]("ttl", NoExpiration, DefaultCleanupInterval)
	cache.Set(context.Background(), "short", "v", 10*time.Millisecond)
	cache.Set(context.Background(), "forever", "v", NoExpiration)

	require.Eventually(t, func() bool {
		_, ok := cache.Get(context.Background(), "short")
		return !ok
	}, time.Second, 5*time.Millisecond)

	_, ok := cache.Get(context.Background(), "forever")
	require.True(t, ok)
}

func TestInMemoryCacheManager_DeleteKeysFlush(t *testing.T) {
	ctx := context.Background()
	cache := NewInMemoryCacheManager[string, string]("keys", NoExpiration, DefaultCleanupInterval)
	cache.Set(ctx, "b", "2", NoExpiration)
	cache.Set(ctx, "a", "1", NoExpiration)
	cache.Set(ctx, "c", "3", NoExpiration)

	require.Equal(t, []string{"a", "b", "c"}, cache.Keys(ctx))

	require.NoError(t, cache.Delete(ctx, "b", "missing"))
	require.NoError(t, cache.Delete(ctx))
	require.Equal(t, []string{"a", "c"}, cache.Keys(ctx))

	require.NoError(t, cache.Flush(ctx))
	require.Empty(t, cache.Keys(ctx))
}
