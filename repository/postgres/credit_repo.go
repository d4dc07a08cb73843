package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dealerdesk/backend/domain"
	"github.com/dealerdesk/backend/repository"
)

type creditRepository struct {
	pool *pgxpool.Pool
}

// NewCreditRepository returns a Postgres-backed implementation of CreditRepository.
func NewCreditRepository(pool *pgxpool.Pool) repository.CreditRepository {
	return &creditRepository{pool: pool}
}

const creditColumns = `id, dealership_id, status, closed_at, client_name, COALESCE(client_phone, ''),
	COALESCE(vehicle_model, ''), COALESCE(vehicle_version, ''), COALESCE(vehicle_year, 0),
	COALESCE(vehicle_kms, 0), installment_amount, installment_count, start_date, created_at, updated_at`

func (r *creditRepository) GetByID(ctx context.Context, id string) (*domain.Credit, error) {
	query := `SELECT ` + creditColumns + ` FROM credits WHERE id = $1`
	return scanCredit(r.pool.QueryRow(ctx, query, id))
}

func (r *creditRepository) List(ctx context.Context, filter repository.CreditFilter) ([]domain.Credit, error) {
	status := filter.Status
	if status == "all" {
		status = ""
	}

	query := `
	SELECT ` + creditColumns + `
	FROM credits
	WHERE dealership_id = $1
	  AND ($2 = '' OR status = $2)
	  AND ($3 = '' OR client_name ILIKE $3 OR client_phone ILIKE $3 OR vehicle_model ILIKE $3)
	ORDER BY created_at DESC
	LIMIT $4 OFFSET $5
	`
	rows, err := r.pool.Query(ctx, query,
		filter.DealershipID,
		status,
		searchPattern(filter.Search),
		clampLimit(filter.Limit),
		filter.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectCredits(rows)
}

func (r *creditRepository) ListActive(ctx context.Context, dealershipID string, limit int) ([]domain.Credit, error) {
	if limit <= 0 {
		limit = 500
	}
	query := `
	SELECT ` + creditColumns + `
	FROM credits
	WHERE dealership_id = $1 AND status = 'active'
	ORDER BY start_date ASC
	LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, dealershipID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectCredits(rows)
}

func (r *creditRepository) Create(ctx context.Context, credit *domain.Credit) (*domain.Credit, error) {
	if credit == nil || credit.DealershipID == "" || credit.ClientName == "" {
		return nil, domain.ErrInvalidPayload
	}
	if credit.ID == "" {
		credit.ID = uuid.NewString()
	}
	if credit.Status == "" {
		credit.Status = domain.CreditActive
	}

	const query = `
	INSERT INTO credits (id, dealership_id, status, closed_at, client_name, client_phone,
		vehicle_model, vehicle_version, vehicle_year, vehicle_kms,
		installment_amount, installment_count, start_date)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	RETURNING created_at, updated_at
	`
	if err := r.pool.QueryRow(ctx, query,
		credit.ID,
		credit.DealershipID,
		credit.Status,
		nullTimePtr(credit.ClosedAt),
		credit.ClientName,
		nullString(credit.ClientPhone),
		nullString(credit.VehicleModel),
		nullString(credit.VehicleVersion),
		credit.VehicleYear,
		credit.VehicleKms,
		credit.InstallmentAmt,
		credit.InstallmentCount,
		credit.StartDate,
	).Scan(&credit.CreatedAt, &credit.UpdatedAt); err != nil {
		return nil, err
	}
	return credit, nil
}

func (r *creditRepository) Update(ctx context.Context, credit *domain.Credit) error {
	if credit == nil || credit.ID == "" {
		return domain.ErrInvalidPayload
	}

	const query = `
	UPDATE credits
	SET status = $2,
		closed_at = $3,
		client_name = $4,
		client_phone = $5,
		vehicle_model = $6,
		vehicle_version = $7,
		vehicle_year = $8,
		vehicle_kms = $9,
		installment_amount = $10,
		installment_count = $11,
		start_date = $12,
		updated_at = NOW()
	WHERE id = $1
	RETURNING updated_at
	`
	if err := r.pool.QueryRow(ctx, query,
		credit.ID,
		credit.Status,
		nullTimePtr(credit.ClosedAt),
		credit.ClientName,
		nullString(credit.ClientPhone),
		nullString(credit.VehicleModel),
		nullString(credit.VehicleVersion),
		credit.VehicleYear,
		credit.VehicleKms,
		credit.InstallmentAmt,
		credit.InstallmentCount,
		credit.StartDate,
	).Scan(&credit.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrCreditNotFound
		}
		return err
	}
	return nil
}

func (r *creditRepository) SetStatus(ctx context.Context, id string, status domain.CreditStatus, closedAt *time.Time) error {
	const query = `
	UPDATE credits
	SET status = $2, closed_at = $3, updated_at = NOW()
	WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, id, status, nullTimePtr(closedAt))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCreditNotFound
	}
	return nil
}

func collectCredits(rows pgx.Rows) ([]domain.Credit, error) {
	var credits []domain.Credit
	for rows.Next() {
		credit, err := scanCredit(rows)
		if err != nil {
			return nil, err
		}
		credits = append(credits, *credit)
	}
	return credits, rows.Err()
}

func scanCredit(row interface {
	Scan(dest ...interface{}) error
}) (*domain.Credit, error) {
	var credit domain.Credit
	var closedAt *time.Time

	if err := row.Scan(
		&credit.ID,
		&credit.DealershipID,
		&credit.Status,
		&closedAt,
		&credit.ClientName,
		&credit.ClientPhone,
		&credit.VehicleModel,
		&credit.VehicleVersion,
		&credit.VehicleYear,
		&credit.VehicleKms,
		&credit.InstallmentAmt,
		&credit.InstallmentCount,
		&credit.StartDate,
		&credit.CreatedAt,
		&credit.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCreditNotFound
		}
		return nil, err
	}

	credit.ClosedAt = closedAt
	return &credit, nil
}
