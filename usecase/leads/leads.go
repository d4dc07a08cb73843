package leads

import (
	"context"
	"encoding/json"
	"strconv"
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

// Filter is the caller-visible query shape for the leads list.
type Filter struct {
	Stage      domain.LeadStage
	AssignedTo string // repository.AssignedAll, AssignedUnassigned or a user id
	Mine       bool
	Overdue    bool
}

// query is the filter bound to the viewer that issued it. Sellers are always
// narrowed to their own leads, and the viewer is part of the cache key so one
// user's pages can never be served to another.
type query struct {
	Filter
	viewer     string
	privileged bool
}

func (q query) Key() string {
	mine := q.Mine || !q.privileged
	return strings.Join([]string{
		"viewer=" + q.viewer,
		"stage=" + string(q.Stage),
		"assigned=" + q.AssignedTo,
		"mine=" + strconv.FormatBool(mine),
		"overdue=" + strconv.FormatBool(q.Overdue),
	}, "&")
}

// Service keeps the leads list synchronized and applies pipeline mutations
// optimistically.
type Service struct {
	repo     repository.LeadRepository
	resolver *identity.Resolver
	ctrl     *listsync.Controller[domain.Lead]
	audit    Auditor
	alerts   Notifier
	log      *zap.Logger
}

func NewService(ctx context.Context, cfg listsync.Config, repo repository.LeadRepository, resolver *identity.Resolver, audit Auditor, alerts Notifier) *Service {
	cfg.Name = "leads"
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	s := &Service{
		repo:     repo,
		resolver: resolver,
		audit:    audit,
		alerts:   alerts,
		log:      cfg.Logger,
	}
	s.ctrl = listsync.New[domain.Lead](ctx, cfg, s.fetch)
	resolver.RegisterFlusher(s.ctrl)
	return s
}

func (s *Service) fetch(ctx context.Context, q listsync.Query, search string, page, pageSize int) ([]domain.Lead, error) {
	shape, ok := q.(query)
	if !ok {
		return nil, domain.ErrInvalidPayload
	}
	ident := s.resolver.Current()
	if ident.IsZero() || ident.DealershipID == "" {
		return nil, domain.ErrUnauthorized
	}

	stage := string(shape.Stage)
	if stage == "all" {
		stage = ""
	}
	f := repository.LeadFilter{
		DealershipID: ident.DealershipID,
		Stage:        stage,
		UserID:       ident.UserID,
		Overdue:      shape.Overdue,
		Search:       search,
		Limit:        pageSize,
		Offset:       page * pageSize,
	}
	if shape.Mine || !shape.privileged {
		f.Mine = true
	} else {
		f.AssignedTo = shape.AssignedTo
	}
	return s.repo.List(ctx, f)
}

// SetFilter binds the filter to the current viewer and synchronizes.
func (s *Service) SetFilter(ctx context.Context, f Filter) error {
	ident := s.resolver.Current()
	return s.ctrl.SetQuery(ctx, query{
		Filter:     f,
		viewer:     ident.UserID,
		privileged: ident.Role.Privileged(),
	})
}

// View applies filter and search in one step and returns the resulting list.
// Used by request-scoped callers that cannot wait out the debounce.
func (s *Service) View(ctx context.Context, f Filter, search string) (listsync.View[domain.Lead], error) {
	ident := s.resolver.Current()
	err := s.ctrl.Apply(ctx, query{
		Filter:     f,
		viewer:     ident.UserID,
		privileged: ident.Role.Privileged(),
	}, search)
	return s.ctrl.Snapshot(), err
}

// Search schedules a debounced search over the current filter.
func (s *Service) Search(term string) { s.ctrl.SetSearch(term) }

func (s *Service) Sync(ctx context.Context) error     { return s.ctrl.Sync(ctx) }
func (s *Service) Refresh(ctx context.Context) error  { return s.ctrl.Refresh(ctx) }
func (s *Service) LoadMore(ctx context.Context) error { return s.ctrl.LoadMore(ctx) }

// Snapshot returns the current list view.
func (s *Service) Snapshot() listsync.View[domain.Lead] { return s.ctrl.Snapshot() }

// Get loads one lead directly, enforcing dealership ownership.
func (s *Service) Get(ctx context.Context, id string) (*domain.Lead, error) {
	ident := s.resolver.Current()
	if ident.IsZero() {
		return nil, domain.ErrUnauthorized
	}
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if lead.DealershipID != ident.DealershipID {
		return nil, domain.ErrForbidden
	}
	return lead, nil
}

// Create inserts a lead and prepends it to the displayed list optimistically.
func (s *Service) Create(ctx context.Context, lead *domain.Lead) (*domain.Lead, error) {
	ident := s.resolver.Current()
	if ident.IsZero() || ident.DealershipID == "" {
		return nil, domain.ErrUnauthorized
	}
	if lead == nil || lead.Name == "" {
		return nil, domain.ErrInvalidPayload
	}
	lead.ID = uuid.NewString()
	lead.DealershipID = ident.DealershipID
	if lead.Stage == "" {
		lead.Stage = domain.StageNew
	}
	if !ident.Role.Privileged() && lead.AssignedTo == "" {
		lead.AssignedTo = ident.UserID
	}
	now := time.Now()
	lead.CreatedAt = now
	lead.UpdatedAt = now

	err := s.mutate(ctx, "lead_created", lead.ID, lead, listsync.Mutation[domain.Lead]{
		Name: "create",
		Apply: func(items []domain.Lead) []domain.Lead {
			return append([]domain.Lead{*lead}, items...)
		},
		Call: func(ctx context.Context) error {
			_, err := s.repo.Create(ctx, lead)
			return err
		},
	})
	if err != nil {
		return nil, err
	}
	return lead, nil
}

// UpdateStage moves a lead through the pipeline.
func (s *Service) UpdateStage(ctx context.Context, id string, stage domain.LeadStage, lostReason string) error {
	if stage != domain.StageLost {
		lostReason = ""
	}
	return s.mutate(ctx, "lead_stage_changed", id, map[string]string{"stage": string(stage)}, listsync.Mutation[domain.Lead]{
		Name: "update_stage",
		Apply: patch(id, func(l *domain.Lead) {
			l.Stage = stage
			l.LostReason = lostReason
		}),
		Call: func(ctx context.Context) error {
			return s.repo.UpdateStage(ctx, id, stage, lostReason)
		},
	})
}

// Assign hands a lead to a user; empty userID unassigns it.
func (s *Service) Assign(ctx context.Context, id, userID string) error {
	return s.mutate(ctx, "lead_assigned", id, map[string]string{"assigned_to": userID}, listsync.Mutation[domain.Lead]{
		Name: "assign",
		Apply: patch(id, func(l *domain.Lead) {
			l.AssignedTo = userID
		}),
		Call: func(ctx context.Context) error {
			return s.repo.Assign(ctx, id, userID)
		},
	})
}

// MarkContacted stamps the last contact time.
func (s *Service) MarkContacted(ctx context.Context, id string) error {
	now := time.Now()
	return s.mutate(ctx, "lead_contacted", id, nil, listsync.Mutation[domain.Lead]{
		Name: "mark_contacted",
		Apply: patch(id, func(l *domain.Lead) {
			l.LastContactAt = &now
		}),
		Call: func(ctx context.Context) error {
			return s.repo.MarkContacted(ctx, id, now)
		},
	})
}

// SetFollowUp schedules or clears the next follow-up.
func (s *Service) SetFollowUp(ctx context.Context, id string, at *time.Time) error {
	return s.mutate(ctx, "lead_follow_up_set", id, at, listsync.Mutation[domain.Lead]{
		Name: "set_follow_up",
		Apply: patch(id, func(l *domain.Lead) {
			l.NextFollowUpAt = at
		}),
		Call: func(ctx context.Context) error {
			return s.repo.SetFollowUp(ctx, id, at)
		},
	})
}

// Update replaces the editable fields of a lead.
func (s *Service) Update(ctx context.Context, lead *domain.Lead) error {
	if lead == nil || lead.ID == "" {
		return domain.ErrInvalidPayload
	}
	return s.mutate(ctx, "lead_updated", lead.ID, lead, listsync.Mutation[domain.Lead]{
		Name: "update",
		Apply: patch(lead.ID, func(l *domain.Lead) {
			*l = *lead
		}),
		Call: func(ctx context.Context) error {
			return s.repo.Update(ctx, lead)
		},
	})
}

func (s *Service) mutate(ctx context.Context, eventType, leadID string, payload interface{}, m listsync.Mutation[domain.Lead]) error {
	if err := s.ctrl.Mutate(ctx, m); err != nil {
		return err
	}
	s.record(ctx, eventType, leadID, payload)
	if s.alerts != nil {
		s.alerts.Invalidate()
	}
	return nil
}

func (s *Service) record(ctx context.Context, eventType, leadID string, payload interface{}) {
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
		EntityType:   domain.EntityLead,
		EntityID:     leadID,
		Type:         eventType,
		Payload:      raw,
		CreatedBy:    ident.UserID,
		CreatedAt:    time.Now(),
	})
}

// patch edits the lead with the given id in place, leaving the rest untouched.
func patch(id string, edit func(*domain.Lead)) func([]domain.Lead) []domain.Lead {
	return func(items []domain.Lead) []domain.Lead {
		for i := range items {
			if items[i].ID == id {
				edit(&items[i])
				items[i].UpdatedAt = time.Now()
			}
		}
		return items
	}
}
