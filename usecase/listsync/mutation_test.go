package listsync

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutateAppliesOptimisticallyAndWritesThrough(t *testing.T) {
	var calls atomic.Int32
	c := New[string](context.Background(), Config{Name: "tasks", TTL: time.Minute}, countingFetch(&calls, []string{"a", "b"}))
	require.NoError(t, c.SetQuery(context.Background(), shape("status=open")))

	err := c.Mutate(context.Background(), Mutation[string]{
		Name: "complete",
		Apply: func(items []string) []string {
			out := items[:0]
			for _, it := range items {
				if it != "a" {
					out = append(out, it)
				}
			}
			return out
		},
		Call: func(ctx context.Context) error { return nil },
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, c.Snapshot().Items)

	// The confirmed state is cached, so a fresh sync serves it without a fetch.
	require.NoError(t, c.Sync(context.Background()))
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, []string{"b"}, c.Snapshot().Items)
}

func TestMutateRollsBackOnRemoteFailure(t *testing.T) {
	var calls atomic.Int32
	c := New[string](context.Background(), Config{Name: "tasks", TTL: time.Minute}, countingFetch(&calls, []string{"a", "b"}))
	require.NoError(t, c.SetQuery(context.Background(), shape("status=open")))

	boom := errors.New("update rejected")
	applied := false
	err := c.Mutate(context.Background(), Mutation[string]{
		Name: "complete",
		Apply: func(items []string) []string {
			applied = true
			return items[:1]
		},
		Call: func(ctx context.Context) error { return boom },
	})
	require.ErrorIs(t, err, boom)
	require.True(t, applied)

	view := c.Snapshot()
	assert.Equal(t, []string{"a", "b"}, view.Items, "failed mutation must restore the prior list")
	assert.ErrorIs(t, view.Err, boom)
}

func TestMutateDoesNotTouchCacheUntilConfirmed(t *testing.T) {
	var calls atomic.Int32
	c := New[string](context.Background(), Config{Name: "tasks", TTL: time.Minute}, countingFetch(&calls, []string{"a", "b"}))
	require.NoError(t, c.SetQuery(context.Background(), shape("status=open")))

	boom := errors.New("update rejected")
	_ = c.Mutate(context.Background(), Mutation[string]{
		Name:  "complete",
		Apply: func(items []string) []string { return nil },
		Call:  func(ctx context.Context) error { return boom },
	})

	entry, ok := c.ledger.Get(c.cacheKey(shape("status=open"), ""))
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, entry.Payload.Items)
}
