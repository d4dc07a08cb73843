package repository

import (
	"context"
	"time"

	"github.com/dealerdesk/backend/domain"
)

type CreditFilter struct {
	DealershipID string
	Status       string // empty or "all" means every status
	Search       string
	Limit        int
	Offset       int
}

type CreditRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Credit, error)
	List(ctx context.Context, filter CreditFilter) ([]domain.Credit, error)
	ListActive(ctx context.Context, dealershipID string, limit int) ([]domain.Credit, error)
	Create(ctx context.Context, credit *domain.Credit) (*domain.Credit, error)
	Update(ctx context.Context, credit *domain.Credit) error
	SetStatus(ctx context.Context, id string, status domain.CreditStatus, closedAt *time.Time) error
}
