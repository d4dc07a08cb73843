package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dealerdesk/backend/domain"
	"github.com/dealerdesk/backend/repository"
)

type eventRepository struct {
	pool *pgxpool.Pool
}

// NewEventRepository returns a Postgres-backed implementation of EventRepository.
func NewEventRepository(pool *pgxpool.Pool) repository.EventRepository {
	return &eventRepository{pool: pool}
}

func (r *eventRepository) Append(ctx context.Context, event domain.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	const query = `
	INSERT INTO crm_events (id, dealership_id, entity_type, entity_id, type, payload, created_by, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, NOW()))
	`
	_, err := r.pool.Exec(ctx, query,
		event.ID,
		nullString(event.DealershipID),
		event.EntityType,
		event.EntityID,
		event.Type,
		[]byte(event.Payload),
		nullString(event.CreatedBy),
		nullTime(event.CreatedAt),
	)
	return err
}

func (r *eventRepository) ListByEntity(ctx context.Context, entityType domain.EntityType, entityID string, limit int) ([]domain.Event, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	const query = `
	SELECT id, COALESCE(dealership_id::text, ''), entity_type, entity_id, type, payload,
		COALESCE(created_by::text, ''), created_at
	FROM crm_events
	WHERE entity_type = $1 AND entity_id = $2
	ORDER BY created_at DESC
	LIMIT $3
	`
	rows, err := r.pool.Query(ctx, query, entityType, entityID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var e domain.Event
		var payload []byte
		if err := rows.Scan(&e.ID, &e.DealershipID, &e.EntityType, &e.EntityID, &e.Type, &payload, &e.CreatedBy, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Payload = append([]byte(nil), payload...)
		events = append(events, e)
	}
	return events, rows.Err()
}
