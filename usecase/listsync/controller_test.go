package listsync

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type shape string

func (s shape) Key() string { return string(s) }

func countingFetch(calls *atomic.Int32, items []string) Fetch[string] {
	return func(ctx context.Context, q Query, search string, page, pageSize int) ([]string, error) {
		calls.Add(1)
		return items, nil
	}
}

func TestSyncServesFreshFromCache(t *testing.T) {
	var calls atomic.Int32
	c := New[string](context.Background(), Config{Name: "leads", TTL: time.Minute}, countingFetch(&calls, []string{"a", "b"}))

	require.NoError(t, c.SetQuery(context.Background(), shape("stage=all")))
	require.NoError(t, c.Sync(context.Background()))
	require.NoError(t, c.Sync(context.Background()))

	assert.Equal(t, int32(1), calls.Load(), "fresh entries must not hit the remote")
	assert.Equal(t, []string{"a", "b"}, c.Snapshot().Items)
}

func TestSyncRevalidatesStaleEntry(t *testing.T) {
	var calls atomic.Int32
	c := New[string](context.Background(), Config{Name: "leads", TTL: 30 * time.Second}, countingFetch(&calls, []string{"a"}))

	now := time.Now()
	c.ledger.WithClock(func() time.Time { return now })

	require.NoError(t, c.SetQuery(context.Background(), shape("stage=all")))
	require.Equal(t, int32(1), calls.Load())

	now = now.Add(31 * time.Second)
	require.NoError(t, c.Sync(context.Background()))
	assert.Equal(t, int32(2), calls.Load(), "stale entries must revalidate")

	// The stale payload is still served while revalidating.
	assert.Equal(t, []string{"a"}, c.Snapshot().Items)
}

func TestRefreshBypassesFreshness(t *testing.T) {
	var calls atomic.Int32
	c := New[string](context.Background(), Config{Name: "tasks", TTL: time.Minute}, countingFetch(&calls, []string{"a"}))

	require.NoError(t, c.SetQuery(context.Background(), shape("status=open")))
	require.NoError(t, c.Refresh(context.Background()))

	assert.Equal(t, int32(2), calls.Load())
}

func TestSyncLatestWins(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	fetch := func(ctx context.Context, q Query, search string, page, pageSize int) ([]string, error) {
		if q.Key() == "old" {
			close(started)
			<-release
			return []string{"old"}, nil
		}
		return []string{"new"}, nil
	}
	c := New[string](context.Background(), Config{Name: "leads", TTL: time.Minute}, fetch)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.SetQuery(context.Background(), shape("old"))
	}()
	<-started

	require.NoError(t, c.SetQuery(context.Background(), shape("new")))
	close(release)
	<-done

	assert.Equal(t, []string{"new"}, c.Snapshot().Items, "superseded response must be discarded")
}

func TestLoadMoreAccumulatesPages(t *testing.T) {
	pages := map[int][]string{
		0: {"a", "b"},
		1: {"c", "d"},
		2: {"e"},
	}
	var calls atomic.Int32
	fetch := func(ctx context.Context, q Query, search string, page, pageSize int) ([]string, error) {
		calls.Add(1)
		return pages[page], nil
	}
	c := New[string](context.Background(), Config{Name: "credits", TTL: time.Minute, PageSize: 2}, fetch)

	require.NoError(t, c.SetQuery(context.Background(), shape("status=active")))
	require.True(t, c.Snapshot().HasMore)

	require.NoError(t, c.LoadMore(context.Background()))
	view := c.Snapshot()
	assert.Equal(t, []string{"a", "b", "c", "d"}, view.Items)
	assert.True(t, view.HasMore, "a full page means more may follow")

	require.NoError(t, c.LoadMore(context.Background()))
	view = c.Snapshot()
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, view.Items)
	assert.False(t, view.HasMore, "a short page ends pagination")

	require.NoError(t, c.LoadMore(context.Background()))
	assert.Equal(t, int32(3), calls.Load(), "LoadMore past the end must not fetch")
}

func TestConcurrentRefreshesShareOneFlight(t *testing.T) {
	var calls atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})
	fetch := func(ctx context.Context, q Query, search string, page, pageSize int) ([]string, error) {
		calls.Add(1)
		close(entered)
		<-release
		return []string{"a"}, nil
	}
	c := New[string](context.Background(), Config{Name: "leads", TTL: time.Minute}, fetch)
	c.mu.Lock()
	c.query = shape("stage=all")
	c.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = c.Refresh(context.Background())
	}()
	<-entered

	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = c.Refresh(context.Background())
	}()
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load(), "concurrent identical fetches must collapse")
	assert.Equal(t, []string{"a"}, c.Snapshot().Items)
}

func TestSetSearchDebounces(t *testing.T) {
	var mu sync.Mutex
	var terms []string
	fetch := func(ctx context.Context, q Query, search string, page, pageSize int) ([]string, error) {
		mu.Lock()
		terms = append(terms, search)
		mu.Unlock()
		return []string{search}, nil
	}
	c := New[string](context.Background(), Config{Name: "leads", TTL: time.Minute, Debounce: 30 * time.Millisecond}, fetch)

	require.NoError(t, c.SetQuery(context.Background(), shape("stage=all")))

	c.SetSearch("g")
	c.SetSearch("go")
	c.SetSearch("gol")
	assert.True(t, c.Snapshot().Searching)

	require.Eventually(t, func() bool {
		view := c.Snapshot()
		return !view.Searching && len(view.Items) == 1 && view.Items[0] == "gol"
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"", "gol"}, terms, "intermediate keystrokes must never fetch")
}

func TestFetchErrorKeepsDisplayedItems(t *testing.T) {
	boom := errors.New("connection reset")
	var fail atomic.Bool
	fetch := func(ctx context.Context, q Query, search string, page, pageSize int) ([]string, error) {
		if fail.Load() {
			return nil, boom
		}
		return []string{"a"}, nil
	}
	c := New[string](context.Background(), Config{Name: "leads", TTL: time.Minute}, fetch)

	require.NoError(t, c.SetQuery(context.Background(), shape("stage=all")))
	fail.Store(true)

	err := c.Refresh(context.Background())
	require.ErrorIs(t, err, boom)

	view := c.Snapshot()
	assert.Equal(t, []string{"a"}, view.Items, "transport errors must not wipe the last known good list")
	assert.ErrorIs(t, view.Err, boom)
	assert.False(t, view.Loading)
}

func TestResetClearsStateAndCache(t *testing.T) {
	var calls atomic.Int32
	c := New[string](context.Background(), Config{Name: "leads", TTL: time.Minute}, countingFetch(&calls, []string{"a"}))

	require.NoError(t, c.SetQuery(context.Background(), shape("stage=all")))
	require.Equal(t, 1, c.ledger.Len())

	c.Reset()

	view := c.Snapshot()
	assert.Empty(t, view.Items)
	assert.Zero(t, c.ledger.Len())
	assert.False(t, view.Loading)
}

func TestInvalidateForcesRevalidation(t *testing.T) {
	var calls atomic.Int32
	c := New[string](context.Background(), Config{Name: "credits", TTL: time.Minute}, countingFetch(&calls, []string{"a"}))

	require.NoError(t, c.SetQuery(context.Background(), shape("status=active")))
	c.Invalidate()
	require.NoError(t, c.Sync(context.Background()))

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, []string{"a"}, c.Snapshot().Items, "items stay visible across invalidation")
}
