package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dealerdesk/backend/domain"
	"github.com/dealerdesk/backend/repository"
)

type vehicleRepository struct {
	pool *pgxpool.Pool
}

// NewVehicleRepository returns a Postgres-backed implementation of VehicleRepository.
func NewVehicleRepository(pool *pgxpool.Pool) repository.VehicleRepository {
	return &vehicleRepository{pool: pool}
}

func (r *vehicleRepository) GetByID(ctx context.Context, id string) (*domain.Vehicle, error) {
	const query = `
	SELECT id, dealership_id, created_by, status, model, COALESCE(version, ''),
		COALESCE(year, 0), COALESCE(kms, 0), COALESCE(price_ars, 0), created_at, updated_at
	FROM vehicles
	WHERE id = $1
	`
	var v domain.Vehicle
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&v.ID,
		&v.DealershipID,
		&v.CreatedBy,
		&v.Status,
		&v.Model,
		&v.Version,
		&v.Year,
		&v.Kms,
		&v.PriceArs,
		&v.CreatedAt,
		&v.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrVehicleNotFound
		}
		return nil, err
	}
	return &v, nil
}

func (r *vehicleRepository) CountPending(ctx context.Context, dealershipID, createdBy string) (int, error) {
	const query = `
	SELECT COUNT(id)
	FROM vehicles
	WHERE dealership_id = $1
	  AND status IN ('draft', 'incoming', 'preparing')
	  AND ($2 = '' OR created_by::text = $2)
	`
	var count int
	err := r.pool.QueryRow(ctx, query, dealershipID, createdBy).Scan(&count)
	return count, err
}

func (r *vehicleRepository) CountReservedStale(ctx context.Context, dealershipID, createdBy string, before time.Time) (int, error) {
	const query = `
	SELECT COUNT(id)
	FROM vehicles
	WHERE dealership_id = $1
	  AND status = 'reserved'
	  AND updated_at < $3
	  AND ($2 = '' OR created_by::text = $2)
	`
	var count int
	err := r.pool.QueryRow(ctx, query, dealershipID, createdBy, before).Scan(&count)
	return count, err
}
