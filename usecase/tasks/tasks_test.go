package tasks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dealerdesk/backend/domain"
	"github.com/dealerdesk/backend/repository"
)

func taskDue(id string, status domain.TaskStatus, due time.Time) domain.Task {
	t := domain.Task{ID: id, Status: status, Title: id}
	if !due.IsZero() {
		t.DueAt = &due
	}
	return t
}

func TestPartition(t *testing.T) {
	now := time.Date(2024, time.March, 15, 14, 30, 0, 0, time.UTC)

	items := []domain.Task{
		taskDue("overdue", domain.TaskOpen, now.AddDate(0, 0, -2)),
		taskDue("today_morning", domain.TaskOpen, time.Date(2024, time.March, 15, 8, 0, 0, 0, time.UTC)),
		taskDue("today_late", domain.TaskOpen, time.Date(2024, time.March, 15, 23, 0, 0, 0, time.UTC)),
		taskDue("this_week", domain.TaskOpen, now.AddDate(0, 0, 5)),
		taskDue("week_edge", domain.TaskOpen, now.AddDate(0, 0, 7)),
		taskDue("later", domain.TaskOpen, now.AddDate(0, 0, 8)),
		taskDue("undated", domain.TaskOpen, time.Time{}),
		taskDue("done", domain.TaskDone, now.AddDate(0, 0, -5)),
		taskDue("canceled", domain.TaskCanceled, now),
	}

	b := Partition(items, now)

	ids := func(tasks []domain.Task) []string {
		out := make([]string, 0, len(tasks))
		for _, task := range tasks {
			out = append(out, task.ID)
		}
		return out
	}

	assert.Equal(t, []string{"overdue"}, ids(b.Overdue))
	assert.Equal(t, []string{"today_morning", "today_late"}, ids(b.Today))
	assert.Equal(t, []string{"this_week", "week_edge"}, ids(b.ThisWeek))
	assert.Equal(t, []string{"later", "undated"}, ids(b.Later))
	assert.Equal(t, []string{"done", "canceled"}, ids(b.Done))
}

func TestPartitionEmpty(t *testing.T) {
	b := Partition(nil, time.Now())
	assert.Empty(t, b.Overdue)
	assert.Empty(t, b.Today)
	assert.Empty(t, b.ThisWeek)
	assert.Empty(t, b.Later)
	assert.Empty(t, b.Done)
}

func TestQueryKeyNarrowsSellers(t *testing.T) {
	privileged := query{
		Filter:     Filter{Status: domain.TaskOpen, AssignedTo: "u-2"},
		viewer:     "u-1",
		privileged: true,
	}
	assert.Contains(t, privileged.Key(), "assigned=u-2")

	seller := query{
		Filter:     Filter{Status: domain.TaskOpen, AssignedTo: "u-2"},
		viewer:     "u-1",
		privileged: false,
	}
	assert.Contains(t, seller.Key(), "assigned=u-1")

	team := query{
		Filter:     Filter{AssignedTo: repository.AssignedTeam},
		viewer:     "u-1",
		privileged: false,
	}
	assert.Contains(t, team.Key(), "assigned="+repository.AssignedTeam)
}
