package repository

import (
	"context"
	"time"

	"github.com/dealerdesk/backend/domain"
)

type VehicleRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Vehicle, error)
	// CountPending counts vehicles in the draft/incoming/preparing states.
	// createdBy narrows to one seller's vehicles when non-empty.
	CountPending(ctx context.Context, dealershipID, createdBy string) (int, error)
	// CountReservedStale counts vehicles reserved before the given cutoff.
	CountReservedStale(ctx context.Context, dealershipID, createdBy string, before time.Time) (int, error)
}
