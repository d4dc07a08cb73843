package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dealerdesk/backend/domain"
	"github.com/dealerdesk/backend/repository"
)

type dealershipRepository struct {
	pool *pgxpool.Pool
}

// NewDealershipRepository returns a Postgres-backed implementation of DealershipRepository.
func NewDealershipRepository(pool *pgxpool.Pool) repository.DealershipRepository {
	return &dealershipRepository{pool: pool}
}

const dealershipColumns = `id, name, COALESCE(phone, ''), COALESCE(address, ''), COALESCE(logo, ''), created_at, updated_at`

func (r *dealershipRepository) GetByID(ctx context.Context, id string) (*domain.Dealership, error) {
	query := `SELECT ` + dealershipColumns + ` FROM dealerships WHERE id = $1`
	return scanDealership(r.pool.QueryRow(ctx, query, id))
}

func (r *dealershipRepository) Update(ctx context.Context, id string, patch domain.DealershipUpdate) (*domain.Dealership, error) {
	const query = `
	UPDATE dealerships
	SET name = COALESCE($2, name),
		phone = COALESCE($3, phone),
		address = COALESCE($4, address),
		logo = COALESCE($5, logo),
		updated_at = NOW()
	WHERE id = $1
	RETURNING ` + dealershipColumns
	return scanDealership(r.pool.QueryRow(ctx, query, id, patch.Name, patch.Phone, patch.Address, patch.Logo))
}

func scanDealership(row interface {
	Scan(dest ...interface{}) error
}) (*domain.Dealership, error) {
	var d domain.Dealership
	if err := row.Scan(&d.ID, &d.Name, &d.Phone, &d.Address, &d.Logo, &d.CreatedAt, &d.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDealershipNotFound
		}
		return nil, err
	}
	return &d, nil
}
