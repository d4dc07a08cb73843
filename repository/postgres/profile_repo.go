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

type profileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository instantiates a Postgres-backed profile repository.
func NewProfileRepository(pool *pgxpool.Pool) repository.ProfileRepository {
	return &profileRepository{pool: pool}
}

func (r *profileRepository) GetByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	const query = `
	SELECT user_id, role, dealership_id, COALESCE(full_name, ''), created_at, updated_at
	FROM profiles
	WHERE user_id = $1
	`
	row := r.pool.QueryRow(ctx, query, userID)

	var p domain.Profile
	var role, dealership *string

	if err := row.Scan(&p.UserID, &role, &dealership, &p.FullName, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, err
	}

	if role != nil {
		p.Role = domain.Role(*role)
	}
	if dealership != nil {
		p.DealershipID = *dealership
	}
	return &p, nil
}

func (r *profileRepository) Upsert(ctx context.Context, profile *domain.Profile) error {
	if profile == nil || profile.UserID == "" {
		return domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO profiles (user_id, role, dealership_id, full_name, created_at, updated_at)
	VALUES ($1, $2, $3, $4, COALESCE($5, NOW()), NOW())
	ON CONFLICT (user_id) DO UPDATE
	SET role = EXCLUDED.role,
		dealership_id = EXCLUDED.dealership_id,
		full_name = EXCLUDED.full_name,
		updated_at = NOW()
	RETURNING created_at, updated_at
	`

	var createdAt, updatedAt time.Time
	if err := r.pool.QueryRow(ctx, query,
		profile.UserID,
		nullString(string(profile.Role)),
		nullString(profile.DealershipID),
		profile.FullName,
		nullTime(profile.CreatedAt),
	).Scan(&createdAt, &updatedAt); err != nil {
		return err
	}

	profile.CreatedAt = createdAt
	profile.UpdatedAt = updatedAt
	return nil
}
