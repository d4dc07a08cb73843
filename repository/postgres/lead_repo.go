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

type leadRepository struct {
	pool *pgxpool.Pool
}

// NewLeadRepository returns a Postgres-backed implementation of LeadRepository.
func NewLeadRepository(pool *pgxpool.Pool) repository.LeadRepository {
	return &leadRepository{pool: pool}
}

const leadColumns = `id, dealership_id, name, COALESCE(phone, ''), COALESCE(interest, ''), stage,
	COALESCE(notes, ''), COALESCE(assigned_to::text, ''), COALESCE(vehicle_id::text, ''),
	last_contact_at, next_follow_up_at, COALESCE(lost_reason, ''), created_at, updated_at`

func (r *leadRepository) GetByID(ctx context.Context, id string) (*domain.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`
	return scanLead(r.pool.QueryRow(ctx, query, id))
}

func (r *leadRepository) List(ctx context.Context, filter repository.LeadFilter) ([]domain.Lead, error) {
	// Assignment narrowing resolves to a single target here so the SQL stays static.
	assignee := ""
	unassigned := false
	if filter.Mine && filter.UserID != "" {
		assignee = filter.UserID
	} else {
		switch filter.AssignedTo {
		case "", repository.AssignedAll:
		case repository.AssignedUnassigned:
			unassigned = true
		default:
			assignee = filter.AssignedTo
		}
	}

	stage := filter.Stage
	if stage == "all" {
		stage = ""
	}

	query := `
	SELECT ` + leadColumns + `
	FROM leads
	WHERE dealership_id = $1
	  AND ($2 = '' OR stage = $2)
	  AND ($3 = '' OR assigned_to::text = $3)
	  AND (NOT $4 OR assigned_to IS NULL)
	  AND (NOT $5 OR (next_follow_up_at IS NOT NULL AND next_follow_up_at < NOW()))
	  AND ($6 = '' OR name ILIKE $6 OR phone ILIKE $6 OR interest ILIKE $6)
	ORDER BY created_at DESC
	LIMIT $7 OFFSET $8
	`
	rows, err := r.pool.Query(ctx, query,
		filter.DealershipID,
		stage,
		assignee,
		unassigned,
		filter.Overdue,
		searchPattern(filter.Search),
		clampLimit(filter.Limit),
		filter.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leads []domain.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, *lead)
	}
	return leads, rows.Err()
}

func (r *leadRepository) Create(ctx context.Context, lead *domain.Lead) (*domain.Lead, error) {
	if lead == nil || lead.DealershipID == "" {
		return nil, domain.ErrInvalidPayload
	}
	if lead.ID == "" {
		lead.ID = uuid.NewString()
	}
	if lead.Stage == "" {
		lead.Stage = domain.StageNew
	}

	const query = `
	INSERT INTO leads (id, dealership_id, name, phone, interest, stage, notes, assigned_to, vehicle_id,
		last_contact_at, next_follow_up_at, lost_reason)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	RETURNING created_at, updated_at
	`
	if err := r.pool.QueryRow(ctx, query,
		lead.ID,
		lead.DealershipID,
		lead.Name,
		nullString(lead.Phone),
		nullString(lead.Interest),
		lead.Stage,
		nullString(lead.Notes),
		nullString(lead.AssignedTo),
		nullString(lead.VehicleID),
		nullTimePtr(lead.LastContactAt),
		nullTimePtr(lead.NextFollowUpAt),
		nullString(lead.LostReason),
	).Scan(&lead.CreatedAt, &lead.UpdatedAt); err != nil {
		return nil, err
	}
	return lead, nil
}

func (r *leadRepository) Update(ctx context.Context, lead *domain.Lead) error {
	if lead == nil || lead.ID == "" {
		return domain.ErrInvalidPayload
	}

	const query = `
	UPDATE leads
	SET name = $2,
		phone = $3,
		interest = $4,
		stage = $5,
		notes = $6,
		assigned_to = $7,
		vehicle_id = $8,
		last_contact_at = $9,
		next_follow_up_at = $10,
		lost_reason = $11,
		updated_at = NOW()
	WHERE id = $1
	RETURNING updated_at
	`
	if err := r.pool.QueryRow(ctx, query,
		lead.ID,
		lead.Name,
		nullString(lead.Phone),
		nullString(lead.Interest),
		lead.Stage,
		nullString(lead.Notes),
		nullString(lead.AssignedTo),
		nullString(lead.VehicleID),
		nullTimePtr(lead.LastContactAt),
		nullTimePtr(lead.NextFollowUpAt),
		nullString(lead.LostReason),
	).Scan(&lead.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrLeadNotFound
		}
		return err
	}
	return nil
}

func (r *leadRepository) UpdateStage(ctx context.Context, id string, stage domain.LeadStage, lostReason string) error {
	const query = `
	UPDATE leads
	SET stage = $2, lost_reason = $3, updated_at = NOW()
	WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, id, stage, nullString(lostReason))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLeadNotFound
	}
	return nil
}

func (r *leadRepository) Assign(ctx context.Context, id, userID string) error {
	const query = `UPDATE leads SET assigned_to = $2, updated_at = NOW() WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, nullString(userID))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLeadNotFound
	}
	return nil
}

func (r *leadRepository) MarkContacted(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE leads SET last_contact_at = $2, updated_at = NOW() WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLeadNotFound
	}
	return nil
}

func (r *leadRepository) SetFollowUp(ctx context.Context, id string, at *time.Time) error {
	const query = `UPDATE leads SET next_follow_up_at = $2, updated_at = NOW() WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, nullTimePtr(at))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLeadNotFound
	}
	return nil
}

func (r *leadRepository) CountOverdue(ctx context.Context, dealershipID, assignedTo string, now time.Time) (int, error) {
	const query = `
	SELECT COUNT(id)
	FROM leads
	WHERE dealership_id = $1
	  AND ($2 = '' OR assigned_to::text = $2)
	  AND next_follow_up_at IS NOT NULL
	  AND next_follow_up_at < $3
	`
	var count int
	err := r.pool.QueryRow(ctx, query, dealershipID, assignedTo, now).Scan(&count)
	return count, err
}

func (r *leadRepository) CountStale(ctx context.Context, dealershipID, assignedTo string, since time.Time) (int, error) {
	const query = `
	SELECT COUNT(id)
	FROM leads
	WHERE dealership_id = $1
	  AND ($2 = '' OR assigned_to::text = $2)
	  AND stage NOT IN ('won', 'lost')
	  AND (last_contact_at IS NULL OR last_contact_at < $3)
	`
	var count int
	err := r.pool.QueryRow(ctx, query, dealershipID, assignedTo, since).Scan(&count)
	return count, err
}

func scanLead(row interface {
	Scan(dest ...interface{}) error
}) (*domain.Lead, error) {
	var lead domain.Lead
	var lastContact, nextFollowUp *time.Time

	if err := row.Scan(
		&lead.ID,
		&lead.DealershipID,
		&lead.Name,
		&lead.Phone,
		&lead.Interest,
		&lead.Stage,
		&lead.Notes,
		&lead.AssignedTo,
		&lead.VehicleID,
		&lastContact,
		&nextFollowUp,
		&lead.LostReason,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLeadNotFound
		}
		return nil, err
	}

	lead.LastContactAt = lastContact
	lead.NextFollowUpAt = nextFollowUp
	return &lead, nil
}
