package repository

import (
	"context"
	"time"

	"github.com/dealerdesk/backend/domain"
)

type TaskFilter struct {
	DealershipID string
	Status       string // empty or "all" means every status
	AssignedTo   string // AssignedAll, AssignedTeam, AssignedUnassigned or a user id
	Search       string
	Limit        int
	Offset       int
}

type TaskRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	List(ctx context.Context, filter TaskFilter) ([]domain.Task, error)
	Create(ctx context.Context, task *domain.Task) (*domain.Task, error)
	Update(ctx context.Context, task *domain.Task) error
	SetStatus(ctx context.Context, id string, status domain.TaskStatus, at time.Time) error
	Delete(ctx context.Context, id string) error
	CountOverdue(ctx context.Context, dealershipID string, now time.Time) (int, error)
	CountDueToday(ctx context.Context, dealershipID string, now time.Time) (int, error)
}
