package cachemanager

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCacheManager[K ~string, V any] struct {
	mock.Mock
}

func (m *mockCacheManager[K, V]) Get(ctx context.Context, key K) (V, bool) {
	args := m.Called(ctx, key)
	return args.Get(0).(V), args.Bool(1)
}

func (m *mockCacheManager[K, V]) Set(ctx context.Context, key K, value V, ttl time.Duration) {
	m.Called(ctx, key, value, ttl)
}

func (m *mockCacheManager[K, V]) Delete(ctx context.Context, keys ...K) error {
	return m.Called(ctx, keys).Error(0)
}

func (m *mockCacheManager[K, V]) Keys(ctx context.Context) []K {
	return m.Called(ctx).Get(0).([]K)
}

func (m *mockCacheManager[K, V]) Flush(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type wrappedInput struct {
	ID int
}

func buildExamples(ctx context.Context, input wrappedInput) ([]*ExampleStruct, error) {
	return []*ExampleStruct{{ID: input.ID}}, nil
}

func TestReadThroughCache_Get_WithValueInCache(t *testing.T) {
	managerMock := &mockCacheManager[string, []*ExampleStruct]{}
	managerMock.On("Get", mock.Anything, "key").Return([]*ExampleStruct{{ID: 1, Name: "Example"}}, true)

	rtc := NewReadThroughCache[string, []*ExampleStruct, wrappedInput](managerMock,
		func(ctx context.Context, input wrappedInput) ([]*ExampleStruct, error) {
			t.Fatal("fn must not be called on a hit")
			return nil, nil
		})

	examples, err := rtc.Get(context.Background(), "key", wrappedInput{ID: 1}, time.Minute)
	require.NoError(t, err)
	require.Equal(t, []*ExampleStruct{{ID: 1, Name: "Example"}}, examples)
	managerMock.AssertExpectations(t)
}

func TestReadThroughCache_Get_MissSetsValue(t *testing.T) {
	managerMock := &mockCacheManager[string, []*ExampleStruct]{}
	managerMock.On("Get", mock.Anything, "key").Return([]*ExampleStruct(nil), false)
	managerMock.On("Set", mock.Anything, "key", []*ExampleStruct{{ID: 3}}, time.Minute).Return()

	rtc := NewReadThroughCache[string, []*ExampleStruct, wrappedInput](managerMock, buildExamples)

	examples, err := rtc.Get(context.Background(), "key", wrappedInput{ID: 3}, time.Minute)
	require.NoError(t, err)
	require.Equal(t, []*ExampleStruct{{ID: 3}}, examples)
	managerMock.AssertExpectations(t)
}

func TestReadThroughCache_ErrorIsNotCached(t *testing.T) {
	cache := NewInMemoryCacheManager[string, int]("errors", NoExpiration, DefaultCleanupInterval)
	calls := 0
	rtc := NewReadThroughCache[string, int, string](cache, func(ctx context.Context, input string) (int, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})

	_, err := rtc.Get(context.Background(), "k", "in", time.Minute)
	require.EqualError(t, err, "transient")

	v, err := rtc.Get(context.Background(), "k", "in", time.Minute)
	require.NoError(t, err)
	require.Equal(t, 42, v)
	require.Equal(t, 2, calls)
}

func TestReadThroughCache_ConcurrentMissesBuildOnce(t *testing.T) {
	cache := NewInMemoryCacheManager[string, *ExampleStruct]("pool", NoExpiration, DefaultCleanupInterval)
	var builds atomic.Int32
	rtc := NewReadThroughCache[string, *ExampleStruct, int](cache, func(ctx context.Context, id int) (*ExampleStruct, error) {
		builds.Add(1)
		time.Sleep(10 * time.Millisecond)
		return &ExampleStruct{ID: id}, nil
	})

	const callers = 32
	results := make([]*ExampleStruct, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := rtc.Get(context.Background(), "default", 7, NoExpiration)
			require.NoError(t, err)
			results[i] = v
		}(i)
	}
	wg.Wait()

	require.EqualValues(t, 1, builds.Load())
	for _, r := range results {
		require.Same(t, results[0], r)
	}
}
