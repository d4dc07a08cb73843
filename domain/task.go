package domain

import "time"

// TaskStatus mirrors the tasks table enum. Open sorts first.
type TaskStatus string

const (
	TaskOpen     TaskStatus = "open"
	TaskDone     TaskStatus = "done"
	TaskCanceled TaskStatus = "canceled"
)

// TaskAudience controls whether a task targets one user or the whole team.
type TaskAudience string

const (
	AudiencePersonal TaskAudience = "personal"
	AudienceTeam     TaskAudience = "team"
)

// Task represents a dealership activity item.
type Task struct {
	ID           string       `json:"id"`
	DealershipID string       `json:"dealership_id"`
	CreatedBy    string       `json:"created_by"`
	AssignedTo   string       `json:"assigned_to,omitempty"`
	Audience     TaskAudience `json:"audience"`
	Title        string       `json:"title"`
	Description  string       `json:"description,omitempty"`
	Priority     int          `json:"priority"`
	Status       TaskStatus   `json:"status"`
	DueAt        *time.Time   `json:"due_at,omitempty"`
	DoneAt       *time.Time   `json:"done_at,omitempty"`
	CanceledAt   *time.Time   `json:"canceled_at,omitempty"`
	EntityType   string       `json:"entity_type,omitempty"`
	EntityID     string       `json:"entity_id,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

func (t *Task) IsDone() bool {
	return t != nil && t.Status == TaskDone
}

// IsOverdue reports whether an open task's due date is before today's midnight.
func (t *Task) IsOverdue(now time.Time) bool {
	if t == nil || t.Status != TaskOpen || t.DueAt == nil {
		return false
	}
	return startOfDay(*t.DueAt).Before(startOfDay(now))
}

// IsDueToday reports whether the task is due on the calendar day of now.
func (t *Task) IsDueToday(now time.Time) bool {
	if t == nil || t.DueAt == nil {
		return false
	}
	return startOfDay(*t.DueAt).Equal(startOfDay(now))
}

// IsDueWithinDays reports whether the task is due between today and now+days.
func (t *Task) IsDueWithinDays(now time.Time, days int) bool {
	if t == nil || t.DueAt == nil {
		return false
	}
	diff := int(startOfDay(*t.DueAt).Sub(startOfDay(now)).Hours() / 24)
	return diff >= 0 && diff <= days
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
