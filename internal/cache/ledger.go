package cache

import (
	"strings"
	"sync"
	"time"
)

// Entry is a timestamped "last known good" payload.
type Entry[T any] struct {
	WrittenAt time.Time
	Payload   T
}

// Ledger is a keyed, process-wide store of last known good query results.
// Entries never expire on their own: a stale entry is still servable for
// instant display, callers just must treat it as stale via Fresh and refresh
// in the background. The ledger is cleared only on explicit sign-out.
type Ledger[T any] struct {
	mu      sync.RWMutex
	entries map[string]Entry[T]
	now     func() time.Time
}

// NewLedger builds an empty ledger.
func NewLedger[T any]() *Ledger[T] {
	return &Ledger[T]{
		entries: make(map[string]Entry[T]),
		now:     time.Now,
	}
}

// Get returns the entry for key, if any.
func (l *Ledger[T]) Get(key string) (Entry[T], bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.entries[key]
	return e, ok
}

// Set stores payload under key, stamping it with the current time.
func (l *Ledger[T]) Set(key string, payload T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[key] = Entry[T]{WrittenAt: l.now(), Payload: payload}
}

// Fresh reports whether the entry is younger than ttl.
func (l *Ledger[T]) Fresh(e Entry[T], ttl time.Duration) bool {
	if e.WrittenAt.IsZero() {
		return false
	}
	return l.now().Sub(e.WrittenAt) < ttl
}

// Delete removes a single key.
func (l *Ledger[T]) Delete(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
}

// DeletePrefix removes every key with the given prefix. Used to drop all
// query shapes belonging to one user on sign-out.
func (l *Ledger[T]) DeletePrefix(prefix string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for k := range l.entries {
		if strings.HasPrefix(k, prefix) {
			delete(l.entries, k)
		}
	}
}

// Reset drops every entry.
func (l *Ledger[T]) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make(map[string]Entry[T])
}

// Len returns the number of stored entries.
func (l *Ledger[T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// WithClock overrides the time source. Test hook.
func (l *Ledger[T]) WithClock(now func() time.Time) *Ledger[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
	return l
}

// Flusher is anything that can drop its cached state. The identity resolver
// flushes every registered cache on sign-out.
type Flusher interface {
	Reset()
}
