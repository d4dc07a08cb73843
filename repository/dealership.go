package repository

import (
	"context"

	"github.com/dealerdesk/backend/domain"
)

type DealershipRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Dealership, error)
	Update(ctx context.Context, id string, patch domain.DealershipUpdate) (*domain.Dealership, error)
}
