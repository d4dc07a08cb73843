package tasks

import (
	"context"
	"encoding/json"
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

// Filter is the caller-visible query shape for the tasks list.
type Filter struct {
	Status     domain.TaskStatus
	AssignedTo string // repository.AssignedAll, AssignedTeam, AssignedUnassigned or a user id
}

type query struct {
	Filter
	viewer     string
	privileged bool
}

func (q query) Key() string {
	assigned := q.AssignedTo
	if !q.privileged {
		// Sellers only ever see their own and team tasks.
		if assigned != repository.AssignedTeam {
			assigned = q.viewer
		}
	}
	return strings.Join([]string{
		"viewer=" + q.viewer,
		"status=" + string(q.Status),
		"assigned=" + assigned,
	}, "&")
}

// Buckets is the client-side partition of the synchronized list used by the
// agenda view. A task lands in exactly one bucket.
type Buckets struct {
	Overdue  []domain.Task
	Today    []domain.Task
	ThisWeek []domain.Task
	Later    []domain.Task
	Done     []domain.Task
}

// Service keeps the tasks list synchronized and applies lifecycle mutations
// optimistically.
type Service struct {
	repo     repository.TaskRepository
	resolver *identity.Resolver
	ctrl     *listsync.Controller[domain.Task]
	audit    Auditor
	alerts   Notifier
	log      *zap.Logger
	now      func() time.Time
}

func NewService(ctx context.Context, cfg listsync.Config, repo repository.TaskRepository, resolver *identity.Resolver, audit Auditor, alerts Notifier) *Service {
	cfg.Name = "tasks"
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	s := &Service{
		repo:     repo,
		resolver: resolver,
		audit:    audit,
		alerts:   alerts,
		log:      cfg.Logger,
		now:      time.Now,
	}
	s.ctrl = listsync.New[domain.Task](ctx, cfg, s.fetch)
	resolver.RegisterFlusher(s.ctrl)
	return s
}

func (s *Service) fetch(ctx context.Context, q listsync.Query, search string, page, pageSize int) ([]domain.Task, error) {
	shape, ok := q.(query)
	if !ok {
		return nil, domain.ErrInvalidPayload
	}
	ident := s.resolver.Current()
	if ident.IsZero() || ident.DealershipID == "" {
		return nil, domain.ErrUnauthorized
	}

	assigned := shape.AssignedTo
	if !shape.privileged && assigned != repository.AssignedTeam {
		assigned = ident.UserID
	}
	return s.repo.List(ctx, repository.TaskFilter{
		DealershipID: ident.DealershipID,
		Status:       string(shape.Status),
		AssignedTo:   assigned,
		Search:       search,
		Limit:        pageSize,
		Offset:       page * pageSize,
	})
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
func (s *Service) View(ctx context.Context, f Filter, search string) (listsync.View[domain.Task], error) {
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
func (s *Service) Snapshot() listsync.View[domain.Task] { return s.ctrl.Snapshot() }

// Agenda partitions the synchronized items into agenda buckets relative to now.
func (s *Service) Agenda() Buckets {
	return Partition(s.ctrl.Snapshot().Items, s.now())
}

// Partition groups tasks into agenda buckets: overdue, due today, due within
// the next 7 days, later (or undated), and finished.
func Partition(items []domain.Task, now time.Time) Buckets {
	var b Buckets
	for _, t := range items {
		task := t
		switch {
		case task.Status != domain.TaskOpen:
			b.Done = append(b.Done, task)
		case task.IsOverdue(now):
			b.Overdue = append(b.Overdue, task)
		case task.IsDueToday(now):
			b.Today = append(b.Today, task)
		case task.IsDueWithinDays(now, 7):
			b.ThisWeek = append(b.ThisWeek, task)
		default:
			b.Later = append(b.Later, task)
		}
	}
	return b
}

// Get loads one task directly, enforcing dealership ownership.
func (s *Service) Get(ctx context.Context, id string) (*domain.Task, error) {
	ident := s.resolver.Current()
	if ident.IsZero() {
		return nil, domain.ErrUnauthorized
	}
	task, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.DealershipID != ident.DealershipID {
		return nil, domain.ErrForbidden
	}
	return task, nil
}

// Create inserts a task and prepends it to the displayed list optimistically.
func (s *Service) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	ident := s.resolver.Current()
	if ident.IsZero() || ident.DealershipID == "" {
		return nil, domain.ErrUnauthorized
	}
	if task == nil || task.Title == "" {
		return nil, domain.ErrInvalidPayload
	}
	task.ID = uuid.NewString()
	task.DealershipID = ident.DealershipID
	task.CreatedBy = ident.UserID
	if task.Status == "" {
		task.Status = domain.TaskOpen
	}
	if task.Audience == "" {
		task.Audience = domain.AudiencePersonal
	}
	if task.Audience == domain.AudiencePersonal && task.AssignedTo == "" {
		task.AssignedTo = ident.UserID
	}
	now := s.now()
	task.CreatedAt = now
	task.UpdatedAt = now

	err := s.mutate(ctx, "task_created", task.ID, task, listsync.Mutation[domain.Task]{
		Name: "create",
		Apply: func(items []domain.Task) []domain.Task {
			return append([]domain.Task{*task}, items...)
		},
		Call: func(ctx context.Context) error {
			_, err := s.repo.Create(ctx, task)
			return err
		},
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// Complete marks a task done.
func (s *Service) Complete(ctx context.Context, id string) error {
	return s.setStatus(ctx, id, domain.TaskDone, "task_completed")
}

// Reopen returns a finished task to the open state.
func (s *Service) Reopen(ctx context.Context, id string) error {
	return s.setStatus(ctx, id, domain.TaskOpen, "task_reopened")
}

// Cancel marks a task canceled.
func (s *Service) Cancel(ctx context.Context, id string) error {
	return s.setStatus(ctx, id, domain.TaskCanceled, "task_canceled")
}

func (s *Service) setStatus(ctx context.Context, id string, status domain.TaskStatus, eventType string) error {
	at := s.now()
	return s.mutate(ctx, eventType, id, map[string]string{"status": string(status)}, listsync.Mutation[domain.Task]{
		Name: "set_status",
		Apply: patch(id, func(t *domain.Task) {
			t.Status = status
			t.DoneAt = nil
			t.CanceledAt = nil
			switch status {
			case domain.TaskDone:
				t.DoneAt = &at
			case domain.TaskCanceled:
				t.CanceledAt = &at
			}
		}),
		Call: func(ctx context.Context) error {
			return s.repo.SetStatus(ctx, id, status, at)
		},
	})
}

// Update replaces the editable fields of a task.
func (s *Service) Update(ctx context.Context, task *domain.Task) error {
	if task == nil || task.ID == "" {
		return domain.ErrInvalidPayload
	}
	return s.mutate(ctx, "task_updated", task.ID, task, listsync.Mutation[domain.Task]{
		Name: "update",
		Apply: patch(task.ID, func(t *domain.Task) {
			*t = *task
		}),
		Call: func(ctx context.Context) error {
			return s.repo.Update(ctx, task)
		},
	})
}

// Delete removes a task from the remote and the displayed list.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.mutate(ctx, "task_deleted", id, nil, listsync.Mutation[domain.Task]{
		Name: "delete",
		Apply: func(items []domain.Task) []domain.Task {
			out := items[:0]
			for _, t := range items {
				if t.ID != id {
					out = append(out, t)
				}
			}
			return out
		},
		Call: func(ctx context.Context) error {
			return s.repo.Delete(ctx, id)
		},
	})
}

func (s *Service) mutate(ctx context.Context, eventType, taskID string, payload interface{}, m listsync.Mutation[domain.Task]) error {
	if err := s.ctrl.Mutate(ctx, m); err != nil {
		return err
	}
	s.record(ctx, eventType, taskID, payload)
	if s.alerts != nil {
		s.alerts.Invalidate()
	}
	return nil
}

func (s *Service) record(ctx context.Context, eventType, taskID string, payload interface{}) {
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
		EntityType:   domain.EntityTask,
		EntityID:     taskID,
		Type:         eventType,
		Payload:      raw,
		CreatedBy:    ident.UserID,
		CreatedAt:    s.now(),
	})
}

func patch(id string, edit func(*domain.Task)) func([]domain.Task) []domain.Task {
	return func(items []domain.Task) []domain.Task {
		for i := range items {
			if items[i].ID == id {
				edit(&items[i])
				items[i].UpdatedAt = time.Now()
			}
		}
		return items
	}
}
