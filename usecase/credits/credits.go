package credits

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dealerdesk/backend/domain"
	"github.com/dealerdesk/backend/repository"
	"github.com/dealerdesk/backend/usecase/identity"
	"github.com/dealerdesk/backend/usecase/listsync"
)

// Auditor records a best-effort timeline event after a confirmed mutation.
type Auditor interface {
	Record(ctx context.Context, event domain.Event)
}

// Notifier is poked after mutations so alert counters recompute.
type Notifier interface {
	Invalidate()
}

// Filter is the caller-visible query shape for the credits list.
type Filter struct {
	Status domain.CreditStatus // empty or "all" means every status
}

type query struct {
	Filter
	viewer string
}

func (q query) Key() string {
	return strings.Join([]string{
		"viewer=" + q.viewer,
		"status=" + string(q.Status),
	}, "&")
}

// Row is a credit decorated with its schedule projection. The projection is
// computed on read and never stored.
type Row struct {
	domain.Credit
	Schedule *domain.CreditSchedule `json:"schedule,omitempty"`
	Urgency  domain.Urgency         `json:"urgency"`
}

// Service keeps the credits list synchronized, projects installment schedules
// over it and applies plan mutations optimistically.
type Service struct {
	repo     repository.CreditRepository
	resolver *identity.Resolver
	ctrl     *listsync.Controller[domain.Credit]
	audit    Auditor
	alerts   Notifier
	dueDay   int
	log      *zap.Logger
	now      func() time.Time
}

func NewService(ctx context.Context, cfg listsync.Config, dueDay int, repo repository.CreditRepository, resolver *identity.Resolver, audit Auditor, alerts Notifier) *Service {
	cfg.Name = "credits"
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if dueDay <= 0 {
		dueDay = domain.DefaultDueDay
	}
	s := &Service{
		repo:     repo,
		resolver: resolver,
		audit:    audit,
		alerts:   alerts,
		dueDay:   dueDay,
		log:      cfg.Logger,
		now:      time.Now,
	}
	s.ctrl = listsync.New[domain.Credit](ctx, cfg, s.fetch)
	resolver.RegisterFlusher(s.ctrl)
	return s
}

func (s *Service) fetch(ctx context.Context, q listsync.Query, search string, page, pageSize int) ([]domain.Credit, error) {
	shape, ok := q.(query)
	if !ok {
		return nil, domain.ErrInvalidPayload
	}
	ident := s.resolver.Current()
	if ident.IsZero() || ident.DealershipID == "" {
		return nil, domain.ErrUnauthorized
	}
	return s.repo.List(ctx, repository.CreditFilter{
		DealershipID: ident.DealershipID,
		Status:       string(shape.Status),
		Search:       search,
		Limit:        pageSize,
		Offset:       page * pageSize,
	})
}

// SetFilter binds the filter to the current viewer and synchronizes.
func (s *Service) SetFilter(ctx context.Context, f Filter) error {
	ident := s.resolver.Current()
	return s.ctrl.SetQuery(ctx, query{Filter: f, viewer: ident.UserID})
}

// View applies filter and search in one step and returns the resulting list.
// Used by request-scoped callers that cannot wait out the debounce.
func (s *Service) View(ctx context.Context, f Filter, search string) (listsync.View[domain.Credit], error) {
	ident := s.resolver.Current()
	err := s.ctrl.Apply(ctx, query{Filter: f, viewer: ident.UserID}, search)
	return s.ctrl.Snapshot(), err
}

// Search schedules a debounced search over the current filter.
func (s *Service) Search(term string) { s.ctrl.SetSearch(term) }

func (s *Service) Sync(ctx context.Context) error     { return s.ctrl.Sync(ctx) }
func (s *Service) Refresh(ctx context.Context) error  { return s.ctrl.Refresh(ctx) }
func (s *Service) LoadMore(ctx context.Context) error { return s.ctrl.LoadMore(ctx) }

// Snapshot returns the raw list view without schedule decoration.
func (s *Service) Snapshot() listsync.View[domain.Credit] { return s.ctrl.Snapshot() }

// Rows projects schedules over the synchronized items and sorts them by
// urgency: see SortRows.
func (s *Service) Rows() []Row {
	return SortRowsWithDueDay(s.ctrl.Snapshot().Items, s.now(), s.dueDay)
}

// SortRows decorates and orders credits for display using the default due day.
func SortRows(items []domain.Credit, now time.Time) []Row {
	return SortRowsWithDueDay(items, now, domain.DefaultDueDay)
}

// SortRowsWithDueDay decorates and orders credits for display: active plans
// before closed ones; among active plans, finished terms first (they need
// closing out), then fewest remaining installments, then earliest end date,
// then newest created.
func SortRowsWithDueDay(items []domain.Credit, now time.Time, dueDay int) []Row {
	rows := make([]Row, 0, len(items))
	for _, c := range items {
		credit := c
		schedule := domain.ComputeScheduleWithDueDay(credit.StartDate, credit.InstallmentCount, credit.Status, now, dueDay)
		rows = append(rows, Row{
			Credit:   credit,
			Schedule: schedule,
			Urgency:  schedule.Urgency(),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if (a.Status == domain.CreditActive) != (b.Status == domain.CreditActive) {
			return a.Status == domain.CreditActive
		}
		ra, rb := sortRemaining(a.Schedule), sortRemaining(b.Schedule)
		if ra != rb {
			return ra < rb
		}
		la, lb := sortLastDue(a.Schedule), sortLastDue(b.Schedule)
		if !la.Equal(lb) {
			return la.Before(lb)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return rows
}

// sortRemaining maps a finished term to -1 so elapsed plans surface first.
func sortRemaining(s *domain.CreditSchedule) int {
	if s == nil {
		return int(^uint(0) >> 1)
	}
	if s.Remaining == 0 {
		return -1
	}
	return s.Remaining
}

func sortLastDue(s *domain.CreditSchedule) time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.LastDue
}

// Get loads one credit directly, enforcing dealership ownership.
func (s *Service) Get(ctx context.Context, id string) (*domain.Credit, error) {
	ident := s.resolver.Current()
	if ident.IsZero() {
		return nil, domain.ErrUnauthorized
	}
	credit, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if credit.DealershipID != ident.DealershipID {
		return nil, domain.ErrForbidden
	}
	return credit, nil
}

// Create inserts a credit and prepends it to the displayed list optimistically.
func (s *Service) Create(ctx context.Context, credit *domain.Credit) (*domain.Credit, error) {
	ident := s.resolver.Current()
	if ident.IsZero() || ident.DealershipID == "" {
		return nil, domain.ErrUnauthorized
	}
	if credit == nil || credit.ClientName == "" || credit.InstallmentCount <= 0 {
		return nil, domain.ErrInvalidPayload
	}
	credit.ID = uuid.NewString()
	credit.DealershipID = ident.DealershipID
	if credit.Status == "" {
		credit.Status = domain.CreditActive
	}
	now := s.now()
	credit.CreatedAt = now
	credit.UpdatedAt = now

	err := s.mutate(ctx, "credit_created", credit.ID, credit, listsync.Mutation[domain.Credit]{
		Name: "create",
		Apply: func(items []domain.Credit) []domain.Credit {
			return append([]domain.Credit{*credit}, items...)
		},
		Call: func(ctx context.Context) error {
			_, err := s.repo.Create(ctx, credit)
			return err
		},
	})
	if err != nil {
		return nil, err
	}
	return credit, nil
}

// Update replaces the editable fields of a credit.
func (s *Service) Update(ctx context.Context, credit *domain.Credit) error {
	if credit == nil || credit.ID == "" {
		return domain.ErrInvalidPayload
	}
	return s.mutate(ctx, "credit_updated", credit.ID, credit, listsync.Mutation[domain.Credit]{
		Name: "update",
		Apply: patch(credit.ID, func(c *domain.Credit) {
			*c = *credit
		}),
		Call: func(ctx context.Context) error {
			return s.repo.Update(ctx, credit)
		},
	})
}

// Close marks a plan closed, stamping the close time.
func (s *Service) Close(ctx context.Context, id string) error {
	at := s.now()
	return s.mutate(ctx, "credit_closed", id, nil, listsync.Mutation[domain.Credit]{
		Name: "close",
		Apply: patch(id, func(c *domain.Credit) {
			c.Status = domain.CreditClosed
			c.ClosedAt = &at
		}),
		Call: func(ctx context.Context) error {
			return s.repo.SetStatus(ctx, id, domain.CreditClosed, &at)
		},
	})
}

// Reopen returns a closed plan to the active state.
func (s *Service) Reopen(ctx context.Context, id string) error {
	return s.mutate(ctx, "credit_reopened", id, nil, listsync.Mutation[domain.Credit]{
		Name: "reopen",
		Apply: patch(id, func(c *domain.Credit) {
			c.Status = domain.CreditActive
			c.ClosedAt = nil
		}),
		Call: func(ctx context.Context) error {
			return s.repo.SetStatus(ctx, id, domain.CreditActive, nil)
		},
	})
}

// Reminder renders the WhatsApp payment reminder for a credit, returning the
// message text and the normalized destination phone. Closed plans have no
// schedule and render no reminder.
func (s *Service) Reminder(credit *domain.Credit) (message, phone string) {
	if credit == nil {
		return "", ""
	}
	schedule := domain.ComputeScheduleWithDueDay(credit.StartDate, credit.InstallmentCount, credit.Status, s.now(), s.dueDay)
	if schedule == nil {
		return "", ""
	}
	return domain.BuildReminderMessage(credit, schedule), domain.NormalizePhoneWhatsApp(credit.ClientPhone)
}

func (s *Service) mutate(ctx context.Context, eventType, creditID string, payload interface{}, m listsync.Mutation[domain.Credit]) error {
	if err := s.ctrl.Mutate(ctx, m); err != nil {
		return err
	}
	s.record(ctx, eventType, creditID, payload)
	if s.alerts != nil {
		s.alerts.Invalidate()
	}
	return nil
}

func (s *Service) record(ctx context.Context, eventType, creditID string, payload interface{}) {
	if s.audit == nil {
		return
	}
	var raw json.RawMessage
	if payload != nil {
		raw, _ = json.Marshal(payload)
	}
	ident := s.resolver.Current()
	s.audit.Record(ctx, domain.Event{
		DealershipID: ident.DealershipID,
		EntityType:   domain.EntityCredit,
		EntityID:     creditID,
		Type:         eventType,
		Payload:      raw,
		CreatedBy:    ident.UserID,
		CreatedAt:    s.now(),
	})
}

func patch(id string, edit func(*domain.Credit)) func([]domain.Credit) []domain.Credit {
	return func(items []domain.Credit) []domain.Credit {
		for i := range items {
			if items[i].ID == id {
				edit(&items[i])
				items[i].UpdatedAt = time.Now()
			}
		}
		return items
	}
}
