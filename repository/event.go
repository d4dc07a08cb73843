package repository

import (
	"context"

	"github.com/dealerdesk/backend/domain"
)

type EventRepository interface {
	Append(ctx context.Context, event domain.Event) error
	ListByEntity(ctx context.Context, entityType domain.EntityType, entityID string, limit int) ([]domain.Event, error)
}
