package identity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealerdesk/backend/domain"
)

type profileStore struct {
	mu       sync.Mutex
	calls    int
	profiles map[string]*domain.Profile
	err      error
	block    chan struct{}
}

func newProfileStore(profiles ...*domain.Profile) *profileStore {
	s := &profileStore{profiles: make(map[string]*domain.Profile)}
	for _, p := range profiles {
		s.profiles[p.UserID] = p
	}
	return s
}

func (s *profileStore) GetByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	s.mu.Lock()
	s.calls++
	block, err, profile := s.block, s.err, s.profiles[userID]
	s.mu.Unlock()

	if block != nil {
		<-block
	}
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, domain.ErrProfileNotFound
	}
	return profile, nil
}

func (s *profileStore) Upsert(ctx context.Context, profile *domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.UserID] = profile
	return nil
}

func (s *profileStore) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *profileStore) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
	deleted  []string
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]*domain.Session)}
}

func (s *sessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

func (s *sessionStore) Save(ctx context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	return nil
}

func (s *sessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *sessionStore) Extend(ctx context.Context, id string, ttlSeconds int) error { return nil }

type fakeFlusher struct{ resets int }

func (f *fakeFlusher) Reset() { f.resets++ }

func sellerProfile(userID string) *domain.Profile {
	return &domain.Profile{
		UserID:       userID,
		Role:         domain.RoleSeller,
		DealershipID: "d-1",
		FullName:     "Ana Torres",
	}
}

func TestResolveCachesIdentity(t *testing.T) {
	profiles := newProfileStore(sellerProfile("u-1"))
	r := NewResolver(context.Background(), Config{TTL: time.Minute}, profiles, newSessionStore())

	ident, err := r.Resolve(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleSeller, ident.Role)
	assert.Equal(t, "d-1", ident.DealershipID)

	_, err = r.Resolve(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, 1, profiles.callCount(), "fresh identity must not hit the profile store")
}

func TestResolveDeduplicatesConcurrentLookups(t *testing.T) {
	profiles := newProfileStore(sellerProfile("u-1"))
	profiles.block = make(chan struct{})
	r := NewResolver(context.Background(), Config{TTL: time.Minute}, profiles, newSessionStore())

	const n = 8
	var wg sync.WaitGroup
	results := make([]domain.Identity, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ident, err := r.Resolve(context.Background(), "u-1")
			assert.NoError(t, err)
			results[i] = ident
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(profiles.block)
	wg.Wait()

	assert.Equal(t, 1, profiles.callCount(), "concurrent resolves for one user must collapse")
	for _, ident := range results {
		assert.Equal(t, "u-1", ident.UserID)
	}
}

func TestResolveMissingProfileIsCachedEmptyRole(t *testing.T) {
	profiles := newProfileStore()
	r := NewResolver(context.Background(), Config{TTL: time.Minute}, profiles, newSessionStore())

	ident, err := r.Resolve(context.Background(), "u-ghost")
	require.NoError(t, err)
	assert.Equal(t, "u-ghost", ident.UserID)
	assert.Empty(t, ident.Role)
	assert.False(t, ident.Role.Privileged())

	_, err = r.Resolve(context.Background(), "u-ghost")
	require.NoError(t, err)
	assert.Equal(t, 1, profiles.callCount(), "no-profile is a cacheable answer, not an error")
}

func TestResolveTransportErrorKeepsPriorIdentity(t *testing.T) {
	profiles := newProfileStore(sellerProfile("u-1"))
	r := NewResolver(context.Background(), Config{TTL: 30 * time.Second}, profiles, newSessionStore())

	now := time.Now()
	r.ledger.WithClock(func() time.Time { return now })

	_, err := r.Resolve(context.Background(), "u-1")
	require.NoError(t, err)

	now = now.Add(time.Minute)
	boom := errors.New("connection refused")
	profiles.setErr(boom)

	ident, err := r.Resolve(context.Background(), "u-1")
	require.ErrorIs(t, err, boom)
	assert.Equal(t, "u-1", ident.UserID, "transport failure must not clear the resolved identity")
	assert.Equal(t, domain.RoleSeller, r.Current().Role)
}

func TestHydrateServesCachedAndReconciles(t *testing.T) {
	profiles := newProfileStore(sellerProfile("u-1"))
	r := NewResolver(context.Background(), Config{TTL: 30 * time.Second}, profiles, newSessionStore())

	now := time.Now()
	r.ledger.WithClock(func() time.Time { return now })

	_, err := r.Resolve(context.Background(), "u-1")
	require.NoError(t, err)

	// Promote the user remotely, then let the cached entry go stale.
	promoted := sellerProfile("u-1")
	promoted.Role = domain.RoleAdmin
	require.NoError(t, profiles.Upsert(context.Background(), promoted))
	now = now.Add(time.Minute)

	ident := r.Hydrate("u-1")
	assert.Equal(t, domain.RoleSeller, ident.Role, "hydrate serves the cached identity without waiting")

	require.Eventually(t, func() bool {
		return r.Current().Role == domain.RoleAdmin
	}, time.Second, 5*time.Millisecond, "background reconcile must apply the remote role")
}

func TestOnResolvedFiresOnChangeOnly(t *testing.T) {
	profiles := newProfileStore(sellerProfile("u-1"))
	r := NewResolver(context.Background(), Config{TTL: time.Minute}, profiles, newSessionStore())

	var mu sync.Mutex
	var seen []domain.Role
	r.OnResolved(func(ident domain.Identity) {
		mu.Lock()
		seen = append(seen, ident.Role)
		mu.Unlock()
	})

	_, err := r.Resolve(context.Background(), "u-1")
	require.NoError(t, err)
	_, err = r.Resolve(context.Background(), "u-1")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []domain.Role{domain.RoleSeller}, seen)
}

func TestSignInCreatesSessionAndResolves(t *testing.T) {
	profiles := newProfileStore(sellerProfile("u-1"))
	sessions := newSessionStore()
	r := NewResolver(context.Background(), Config{TTL: time.Minute}, profiles, sessions)

	session, ident, err := r.SignIn(context.Background(), "u-1", time.Hour)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "u-1", session.UserID)
	assert.Equal(t, domain.RoleSeller, ident.Role)

	got, err := r.Session(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
}

func TestSessionExpiredIsNotFound(t *testing.T) {
	sessions := newSessionStore()
	require.NoError(t, sessions.Save(context.Background(), &domain.Session{
		ID:        "s-old",
		UserID:    "u-1",
		CreatedAt: time.Now().Add(-2 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Hour),
	}))
	r := NewResolver(context.Background(), Config{}, newProfileStore(), sessions)

	_, err := r.Session(context.Background(), "s-old")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSignOutWipesEverything(t *testing.T) {
	profiles := newProfileStore(sellerProfile("u-1"))
	sessions := newSessionStore()
	r := NewResolver(context.Background(), Config{TTL: time.Minute}, profiles, sessions)

	flusher := &fakeFlusher{}
	r.RegisterFlusher(flusher)

	session, _, err := r.SignIn(context.Background(), "u-1", time.Hour)
	require.NoError(t, err)
	require.False(t, r.Current().IsZero())

	require.NoError(t, r.SignOut(context.Background(), session.ID))

	assert.True(t, r.Current().IsZero())
	assert.Zero(t, r.ledger.Len())
	assert.Equal(t, 1, flusher.resets)
	assert.Equal(t, []string{session.ID}, sessions.deleted)

	_, err = r.Session(context.Background(), session.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}
