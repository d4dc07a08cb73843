package dealership

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/dealerdesk/backend/domain"
	"github.com/dealerdesk/backend/internal/cache"
	"github.com/dealerdesk/backend/repository"
	"github.com/dealerdesk/backend/usecase/identity"
)

// Auditor records a best-effort timeline event after a confirmed mutation.
type Auditor interface {
	Record(ctx context.Context, event domain.Event)
}

// Service exposes the dealership settings of the current viewer. Reads go
// through a small TTL'd cache since settings change rarely; updates are
// restricted to privileged roles and write through.
type Service struct {
	repo     repository.DealershipRepository
	resolver *identity.Resolver
	ledger   *cache.Ledger[domain.Dealership]
	ttl      time.Duration
	audit    Auditor
	log      *zap.Logger
}

func NewService(repo repository.DealershipRepository, resolver *identity.Resolver, ttl time.Duration, audit Auditor, log *zap.Logger) *Service {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		repo:     repo,
		resolver: resolver,
		ledger:   cache.NewLedger[domain.Dealership](),
		ttl:      ttl,
		audit:    audit,
		log:      log,
	}
	resolver.RegisterFlusher(s.ledger)
	return s
}

// Current returns the viewer's dealership, serving the cached row while fresh.
func (s *Service) Current(ctx context.Context) (*domain.Dealership, error) {
	ident := s.resolver.Current()
	if ident.IsZero() || ident.DealershipID == "" {
		return nil, domain.ErrUnauthorized
	}

	if entry, ok := s.ledger.Get(ident.DealershipID); ok && s.ledger.Fresh(entry, s.ttl) {
		d := entry.Payload
		return &d, nil
	}

	d, err := s.repo.GetByID(ctx, ident.DealershipID)
	if err != nil {
		return nil, err
	}
	s.ledger.Set(d.ID, *d)
	return d, nil
}

// Update patches the viewer's dealership settings. Only privileged roles may
// change them.
func (s *Service) Update(ctx context.Context, patch domain.DealershipUpdate) (*domain.Dealership, error) {
	ident := s.resolver.Current()
	if ident.IsZero() || ident.DealershipID == "" {
		return nil, domain.ErrUnauthorized
	}
	if !ident.Role.Privileged() {
		return nil, domain.ErrForbidden
	}

	d, err := s.repo.Update(ctx, ident.DealershipID, patch)
	if err != nil {
		return nil, err
	}
	s.ledger.Set(d.ID, *d)

	if s.audit != nil {
		raw, _ := json.Marshal(patch)
		s.audit.Record(ctx, domain.Event{
			DealershipID: d.ID,
			EntityType:   domain.EntityDealership,
			EntityID:     d.ID,
			Type:         "dealership_updated",
			Payload:      raw,
			CreatedBy:    ident.UserID,
			CreatedAt:    time.Now(),
		})
	}
	return d, nil
}
