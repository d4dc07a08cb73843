package repository

import (
	"context"
	"time"

	"github.com/dealerdesk/backend/domain"
)

// AssignedAll / AssignedUnassigned are the sentinel values of the assignment
// filter; any other non-empty value is a user id.
const (
	AssignedAll        = "all"
	AssignedUnassigned = "unassigned"
	AssignedTeam       = "team"
)

type LeadFilter struct {
	DealershipID string
	Stage        string // empty or "all" means every stage
	AssignedTo   string // AssignedAll, AssignedUnassigned or a user id
	Mine         bool   // force assigned_to = UserID regardless of AssignedTo
	UserID       string
	Overdue      bool // next_follow_up_at < now
	Search       string
	Limit        int
	Offset       int
}

type LeadRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Lead, error)
	List(ctx context.Context, filter LeadFilter) ([]domain.Lead, error)
	Create(ctx context.Context, lead *domain.Lead) (*domain.Lead, error)
	Update(ctx context.Context, lead *domain.Lead) error
	UpdateStage(ctx context.Context, id string, stage domain.LeadStage, lostReason string) error
	Assign(ctx context.Context, id, userID string) error
	MarkContacted(ctx context.Context, id string, at time.Time) error
	SetFollowUp(ctx context.Context, id string, at *time.Time) error
	CountOverdue(ctx context.Context, dealershipID, assignedTo string, now time.Time) (int, error)
	CountStale(ctx context.Context, dealershipID, assignedTo string, since time.Time) (int, error)
}
