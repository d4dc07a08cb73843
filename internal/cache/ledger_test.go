package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerGetSet(t *testing.T) {
	l := NewLedger[[]string]()

	_, ok := l.Get("k")
	assert.False(t, ok)

	l.Set("k", []string{"a", "b"})
	e, ok := l.Get("k")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, e.Payload)
	assert.False(t, e.WrittenAt.IsZero())
}

func TestLedgerFreshness(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewLedger[int]().WithClock(func() time.Time { return now })

	l.Set("k", 7)
	e, _ := l.Get("k")
	assert.True(t, l.Fresh(e, 30*time.Second))

	now = now.Add(29 * time.Second)
	assert.True(t, l.Fresh(e, 30*time.Second))

	now = now.Add(2 * time.Second)
	assert.False(t, l.Fresh(e, 30*time.Second), "entry older than ttl must be stale")

	// Stale entries stay servable: staleness never evicts.
	got, ok := l.Get("k")
	require.True(t, ok)
	assert.Equal(t, 7, got.Payload)
}

func TestLedgerDeletePrefix(t *testing.T) {
	l := NewLedger[int]()
	l.Set("u1|leads", 1)
	l.Set("u1|tasks", 2)
	l.Set("u2|leads", 3)

	l.DeletePrefix("u1|")

	assert.Equal(t, 1, l.Len())
	_, ok := l.Get("u2|leads")
	assert.True(t, ok)
}

func TestLedgerReset(t *testing.T) {
	l := NewLedger[int]()
	l.Set("a", 1)
	l.Set("b", 2)
	l.Reset()
	assert.Zero(t, l.Len())
}
