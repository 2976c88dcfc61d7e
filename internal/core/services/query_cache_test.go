package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestCache() *QueryCache {
	return NewQueryCache(64, time.Minute, nil)
}

func TestQueryCache_FetchCaches(t *testing.T) {
	cache := newTestCache()
	ctx := context.Background()
	var calls int

	load := func(ctx context.Context) (string, error) {
		calls++
		return "dragon", nil
	}

	for i := 0; i < 3; i++ {
		v, err := Fetch(ctx, cache, ProjectKey("p1"), load)
		require.NoError(t, err)
		require.Equal(t, "dragon", v)
	}
	require.Equal(t, 1, calls)
}

func TestQueryCache_ErrorsAreNotCached(t *testing.T) {
	cache := newTestCache()
	ctx := context.Background()
	var calls int

	load := func(ctx context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("boom")
		}
		return 42, nil
	}

	_, err := Fetch(ctx, cache, TagsKey(), load)
	require.Error(t, err)

	v, err := Fetch(ctx, cache, TagsKey(), load)
	require.NoError(t, err)
	require.Equal(t, 42, v)
	require.Equal(t, 2, calls)
}

func TestQueryCache_InvalidateForcesReload(t *testing.T) {
	cache := newTestCache()
	ctx := context.Background()
	version := 0

	load := func(ctx context.Context) (int, error) {
		version++
		return version, nil
	}

	v, _ := Fetch(ctx, cache, ProjectKey("p1"), load)
	require.Equal(t, 1, v)

	cache.Invalidate(ProjectKey("p1"))

	v, _ = Fetch(ctx, cache, ProjectKey("p1"), load)
	require.Equal(t, 2, v)
}

func TestQueryCache_InvalidateKindDropsEveryPage(t *testing.T) {
	cache := newTestCache()
	ctx := context.Background()
	cursor := "p50"

	keys := []QueryKey{
		ProjectsKey(50, "", nil),
		ProjectsKey(50, "", &cursor),
		ProjectsKey(50, "dragon", nil),
	}
	for _, key := range keys {
		_, err := Fetch(ctx, cache, key, func(ctx context.Context) (string, error) { return "page", nil })
		require.NoError(t, err)
	}
	_, _ = Fetch(ctx, cache, ProjectKey("p1"), func(ctx context.Context) (string, error) { return "detail", nil })

	cache.InvalidateKind(KindProjects)

	for _, key := range keys {
		_, ok := cache.Get(key)
		require.False(t, ok, "expected %s to be invalidated", key)
	}
	_, ok := cache.Get(ProjectKey("p1"))
	require.True(t, ok, "detail should survive a list invalidation")
}

func TestQueryCache_StaleLoadIsNotStored(t *testing.T) {
	cache := newTestCache()
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan string)

	go func() {
		v, _ := Fetch(ctx, cache, ProjectKey("p1"), func(ctx context.Context) (string, error) {
			close(started)
			<-release
			return "before-delete", nil
		})
		done <- v
	}()

	<-started
	cache.Invalidate(ProjectKey("p1"))
	close(release)

	// The in-flight caller still gets its answer...
	require.Equal(t, "before-delete", <-done)

	// ...but it must not be served to later readers.
	_, ok := cache.Get(ProjectKey("p1"))
	require.False(t, ok)

	v, err := Fetch(ctx, cache, ProjectKey("p1"), func(ctx context.Context) (string, error) {
		return "after-delete", nil
	})
	require.NoError(t, err)
	require.Equal(t, "after-delete", v)
}

func TestQueryCache_StaleKindLoadIsNotStored(t *testing.T) {
	cache := newTestCache()
	ctx := context.Background()
	key := ProjectsKey(50, "", nil)

	_, err := Fetch(ctx, cache, key, func(ctx context.Context) (string, error) {
		cache.InvalidateKind(KindProjects)
		return "old list", nil
	})
	require.NoError(t, err)

	_, ok := cache.Get(key)
	require.False(t, ok)
}

func TestQueryCache_ConcurrentFetchSharesLoad(t *testing.T) {
	cache := newTestCache()
	ctx := context.Background()
	var calls atomic.Int32

	load := func(ctx context.Context) (string, error) {
		calls.Add(1)
		time.Sleep(50 * time.Millisecond)
		return "shared", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := Fetch(ctx, cache, ProjectKey("p1"), load)
			require.NoError(t, err)
			require.Equal(t, "shared", v)
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), calls.Load())
}

func TestQueryKey_String(t *testing.T) {
	cursor := "c1"
	require.Equal(t, "project/p1", ProjectKey("p1").String())
	require.Equal(t, "tags", TagsKey().String())
	require.Equal(t, "projects?cursor=c1&limit=50&query=x", ProjectsKey(50, "x", &cursor).String())

	// A query that looks like a cursor must not share a page with one
	tricky := "x"
	require.NotEqual(t, ProjectsKey(50, "a&cursor=x", nil), ProjectsKey(50, "a", &tricky))
	require.NotEqual(t, ProjectsKey(50, "a=b", nil), ProjectsKey(50, "a", nil))
}

func TestQueryCache_SharedLoadOutlivesFirstCaller(t *testing.T) {
	cache := newTestCache()
	started := make(chan struct{})
	release := make(chan struct{})
	var loadErr atomic.Value
	var once sync.Once

	load := func(ctx context.Context) (string, error) {
		once.Do(func() { close(started) })
		<-release
		if err := ctx.Err(); err != nil {
			loadErr.Store(err)
		}
		return "page", nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := Fetch(ctx, cache, TagsKey(), load)
		done <- err
	}()

	<-started
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	close(release)
	require.Eventually(t, func() bool {
		_, ok := cache.Get(TagsKey())
		return ok
	}, 2*time.Second, 5*time.Millisecond)
	require.Nil(t, loadErr.Load(), "load saw the first caller's cancellation")

	v, err := Fetch(context.Background(), cache, TagsKey(), load)
	require.NoError(t, err)
	require.Equal(t, "page", v)
}
