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

type taskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository returns a Postgres-backed implementation of TaskRepository.
func NewTaskRepository(pool *pgxpool.Pool) repository.TaskRepository {
	return &taskRepository{pool: pool}
}

const taskColumns = `id, dealership_id, created_by, COALESCE(assigned_to::text, ''), audience, title,
	COALESCE(description, ''), priority, status, due_at, done_at, canceled_at,
	COALESCE(entity_type, ''), COALESCE(entity_id::text, ''), created_at, updated_at`

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	return scanTask(r.pool.QueryRow(ctx, query, id))
}

func (r *taskRepository) List(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	assignee := ""
	unassigned := false
	team := false
	switch filter.AssignedTo {
	case "", repository.AssignedAll:
	case repository.AssignedTeam:
		team = true
	case repository.AssignedUnassigned:
		unassigned = true
	default:
		assignee = filter.AssignedTo
	}

	status := filter.Status
	if status == "all" {
		status = ""
	}

	// Open tasks first (enum order), then soonest due date with the undated
	// ones last, then newest created.
	query := `
	SELECT ` + taskColumns + `
	FROM tasks
	WHERE dealership_id = $1
	  AND ($2 = '' OR status = $2)
	  AND ($3 = '' OR assigned_to::text = $3)
	  AND (NOT $4 OR audience = 'team')
	  AND (NOT $5 OR assigned_to IS NULL)
	  AND ($6 = '' OR title ILIKE $6 OR description ILIKE $6)
	ORDER BY status ASC, due_at ASC NULLS LAST, created_at DESC
	LIMIT $7 OFFSET $8
	`
	rows, err := r.pool.Query(ctx, query,
		filter.DealershipID,
		status,
		assignee,
		team,
		unassigned,
		searchPattern(filter.Search),
		clampLimit(filter.Limit),
		filter.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil || task.DealershipID == "" {
		return nil, domain.ErrInvalidPayload
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.Status == "" {
		task.Status = domain.TaskOpen
	}
	if task.Audience == "" {
		task.Audience = domain.AudiencePersonal
	}

	const query = `
	INSERT INTO tasks (id, dealership_id, created_by, assigned_to, audience, title, description,
		priority, status, due_at, entity_type, entity_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	RETURNING created_at, updated_at
	`
	if err := r.pool.QueryRow(ctx, query,
		task.ID,
		task.DealershipID,
		task.CreatedBy,
		nullString(task.AssignedTo),
		task.Audience,
		task.Title,
		nullString(task.Description),
		task.Priority,
		task.Status,
		nullTimePtr(task.DueAt),
		nullString(task.EntityType),
		nullString(task.EntityID),
	).Scan(&task.CreatedAt, &task.UpdatedAt); err != nil {
		return nil, err
	}
	return task, nil
}

func (r *taskRepository) Update(ctx context.Context, task *domain.Task) error {
	if task == nil || task.ID == "" {
		return domain.ErrInvalidPayload
	}

	const query = `
	UPDATE tasks
	SET assigned_to = $2,
		audience = $3,
		title = $4,
		description = $5,
		priority = $6,
		status = $7,
		due_at = $8,
		done_at = $9,
		canceled_at = $10,
		updated_at = NOW()
	WHERE id = $1
	RETURNING updated_at
	`
	if err := r.pool.QueryRow(ctx, query,
		task.ID,
		nullString(task.AssignedTo),
		task.Audience,
		task.Title,
		nullString(task.Description),
		task.Priority,
		task.Status,
		nullTimePtr(task.DueAt),
		nullTimePtr(task.DoneAt),
		nullTimePtr(task.CanceledAt),
	).Scan(&task.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrTaskNotFound
		}
		return err
	}
	return nil
}

// SetStatus flips a task's lifecycle state, stamping done_at/canceled_at to
// match: done sets done_at, canceled sets canceled_at, open clears both.
func (r *taskRepository) SetStatus(ctx context.Context, id string, status domain.TaskStatus, at time.Time) error {
	const query = `
	UPDATE tasks
	SET status = $2,
		done_at = CASE WHEN $2 = 'done' THEN $3 ELSE NULL END,
		canceled_at = CASE WHEN $2 = 'canceled' THEN $3 ELSE NULL END,
		updated_at = NOW()
	WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, id, status, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func (r *taskRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM tasks WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func (r *taskRepository) CountOverdue(ctx context.Context, dealershipID string, now time.Time) (int, error) {
	const query = `
	SELECT COUNT(id)
	FROM tasks
	WHERE dealership_id = $1
	  AND status = 'open'
	  AND due_at IS NOT NULL
	  AND due_at < $2
	`
	var count int
	err := r.pool.QueryRow(ctx, query, dealershipID, now).Scan(&count)
	return count, err
}

func (r *taskRepository) CountDueToday(ctx context.Context, dealershipID string, now time.Time) (int, error) {
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 0, 1)

	const query = `
	SELECT COUNT(id)
	FROM tasks
	WHERE dealership_id = $1
	  AND status = 'open'
	  AND due_at IS NOT NULL
	  AND due_at >= $2
	  AND due_at < $3
	`
	var count int
	err := r.pool.QueryRow(ctx, query, dealershipID, start, end).Scan(&count)
	return count, err
}

func scanTask(row interface {
	Scan(dest ...interface{}) error
}) (*domain.Task, error) {
	var task domain.Task
	var due, done, canceled *time.Time

	if err := row.Scan(
		&task.ID,
		&task.DealershipID,
		&task.CreatedBy,
		&task.AssignedTo,
		&task.Audience,
		&task.Title,
		&task.Description,
		&task.Priority,
		&task.Status,
		&due,
		&done,
		&canceled,
		&task.EntityType,
		&task.EntityID,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}

	task.DueAt = due
	task.DoneAt = done
	task.CanceledAt = canceled
	return &task, nil
}
