package identity

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/dealerdesk/backend/domain"
	"github.com/dealerdesk/backend/internal/cache"
	"github.com/dealerdesk/backend/repository"
)

// Resolver turns a session's user id into the caller identity every other
// component consumes. It serves the cached identity instantly, reconciles
// against the profile store in the background, collapses concurrent lookups
// for the same user, and wipes all per-user caches on sign-out.
type Resolver struct {
	profiles repository.ProfileRepository
	sessions repository.SessionRepository
	ledger   *cache.Ledger[domain.Identity]
	ttl      time.Duration
	log      *zap.Logger
	baseCtx  context.Context

	group   singleflight.Group
	lastReq atomic.Uint64

	mu        sync.Mutex
	current   domain.Identity
	flushers  []cache.Flusher
	listeners []func(domain.Identity)
}

// Config tunes the resolver.
type Config struct {
	TTL    time.Duration
	Logger *zap.Logger
}

// NewResolver builds a resolver. baseCtx bounds background reconciles.
func NewResolver(baseCtx context.Context, cfg Config, profiles repository.ProfileRepository, sessions repository.SessionRepository) *Resolver {
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Resolver{
		profiles: profiles,
		sessions: sessions,
		ledger:   cache.NewLedger[domain.Identity](),
		ttl:      cfg.TTL,
		log:      cfg.Logger,
		baseCtx:  baseCtx,
	}
}

// RegisterFlusher adds a cache to wipe on sign-out.
func (r *Resolver) RegisterFlusher(f cache.Flusher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushers = append(r.flushers, f)
}

// OnResolved registers a callback invoked whenever a new identity is applied.
// Callbacks run synchronously on the resolving goroutine; keep them cheap.
func (r *Resolver) OnResolved(fn func(domain.Identity)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// Current returns the last applied identity, which may be zero before the
// first resolve.
func (r *Resolver) Current() domain.Identity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Resolve returns the identity for userID, hitting the profile store only when
// the cached entry is missing or older than the TTL. A missing profile row is
// a valid answer: the user exists but has no role yet, and that empty-role
// identity is cached like any other. Transport failures keep the prior
// identity and surface the error.
func (r *Resolver) Resolve(ctx context.Context, userID string) (domain.Identity, error) {
	if userID == "" {
		return domain.Identity{}, domain.ErrUnauthorized
	}

	req := r.lastReq.Add(1)

	if entry, ok := r.ledger.Get(userID); ok && r.ledger.Fresh(entry, r.ttl) {
		r.applyIdentity(req, entry.Payload, false)
		return entry.Payload, nil
	}

	return r.reconcile(ctx, req, userID)
}

// Hydrate serves whatever identity is cached for userID immediately and kicks
// a background reconcile, so startup never blocks on the profile store.
func (r *Resolver) Hydrate(userID string) domain.Identity {
	if userID == "" {
		return domain.Identity{}
	}

	req := r.lastReq.Add(1)

	var hydrated domain.Identity
	if entry, ok := r.ledger.Get(userID); ok {
		hydrated = entry.Payload
		r.applyIdentity(req, hydrated, false)
		if r.ledger.Fresh(entry, r.ttl) {
			return hydrated
		}
	}

	go func() {
		if _, err := r.reconcile(r.baseCtx, req, userID); err != nil {
			r.log.Warn("identity reconcile failed", zap.String("user_id", userID), zap.Error(err))
		}
	}()
	return hydrated
}

// reconcile fetches the profile row, deduplicating concurrent lookups for the
// same user, and applies the result unless a newer request superseded req.
func (r *Resolver) reconcile(ctx context.Context, req uint64, userID string) (domain.Identity, error) {
	v, err, _ := r.group.Do(userID, func() (interface{}, error) {
		profile, err := r.profiles.GetByUserID(ctx, userID)
		if err != nil {
			if errors.Is(err, domain.ErrProfileNotFound) {
				return domain.Identity{UserID: userID}, nil
			}
			return domain.Identity{}, err
		}
		return domain.IdentityFromProfile(profile), nil
	})
	if err != nil {
		return r.Current(), err
	}

	ident := v.(domain.Identity)
	r.ledger.Set(userID, ident)
	r.applyIdentity(req, ident, true)
	return ident, nil
}

// applyIdentity installs ident as current unless superseded. notify controls
// whether OnResolved listeners fire; cache replays stay silent.
func (r *Resolver) applyIdentity(req uint64, ident domain.Identity, notify bool) {
	if req != r.lastReq.Load() {
		return
	}

	r.mu.Lock()
	changed := r.current != ident
	r.current = ident
	listeners := r.listeners
	r.mu.Unlock()

	if notify && changed {
		for _, fn := range listeners {
			fn(ident)
		}
	}
}

// SignIn creates a session for userID and resolves its identity.
func (r *Resolver) SignIn(ctx context.Context, userID string, ttl time.Duration) (*domain.Session, domain.Identity, error) {
	if userID == "" {
		return nil, domain.Identity{}, domain.ErrUnauthorized
	}
	now := time.Now()
	session := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := r.sessions.Save(ctx, session); err != nil {
		return nil, domain.Identity{}, err
	}

	ident, err := r.Resolve(ctx, userID)
	if err != nil {
		return nil, domain.Identity{}, err
	}
	return session, ident, nil
}

// Session loads and validates a session by id.
func (r *Resolver) Session(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := r.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.IsExpired(time.Now()) {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// ExtendSession pushes a session's expiry forward.
func (r *Resolver) ExtendSession(ctx context.Context, sessionID string, ttlSeconds int) error {
	if sessionID == "" {
		return domain.ErrInvalidPayload
	}
	return r.sessions.Extend(ctx, sessionID, ttlSeconds)
}

// SignOut revokes the session and wipes every per-user cache: the identity
// ledger, the current identity, and all registered flushers. In-flight
// resolves are orphaned so late responses cannot resurrect the old identity.
func (r *Resolver) SignOut(ctx context.Context, sessionID string) error {
	var err error
	if sessionID != "" {
		err = r.sessions.Delete(ctx, sessionID)
	}

	r.lastReq.Add(1)
	r.ledger.Reset()

	r.mu.Lock()
	r.current = domain.Identity{}
	flushers := r.flushers
	listeners := r.listeners
	r.mu.Unlock()

	for _, f := range flushers {
		f.Reset()
	}
	for _, fn := range listeners {
		fn(domain.Identity{})
	}
	return err
}
