package credits

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealerdesk/backend/domain"
)

func credit(id string, status domain.CreditStatus, start time.Time, count int, created time.Time) domain.Credit {
	return domain.Credit{
		ID:               id,
		Status:           status,
		StartDate:        start,
		InstallmentCount: count,
		CreatedAt:        created,
	}
}

func TestSortRowsOrdering(t *testing.T) {
	now := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	created := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

	items := []domain.Credit{
		// 11 installments left, ends 2025-01-10.
		credit("long", domain.CreditActive, time.Date(2024, time.February, 15, 0, 0, 0, 0, time.UTC), 11, created),
		// Closed plans sort last regardless of dates.
		credit("closed", domain.CreditClosed, time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC), 6, created),
		// Term elapsed: needs closing out, surfaces first.
		credit("elapsed", domain.CreditActive, time.Date(2023, time.January, 15, 0, 0, 0, 0, time.UTC), 3, created),
		// 5 installments left, ends 2024-07-10.
		credit("mid", domain.CreditActive, time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC), 6, created),
	}

	rows := SortRows(items, now)
	require.Len(t, rows, 4)

	order := make([]string, 0, len(rows))
	for _, r := range rows {
		order = append(order, r.ID)
	}
	assert.Equal(t, []string{"elapsed", "mid", "long", "closed"}, order)

	assert.Equal(t, domain.UrgencyOverdue, rows[0].Urgency)
	assert.Nil(t, rows[3].Schedule)
	assert.Equal(t, domain.UrgencyClosed, rows[3].Urgency)
}

func TestSortRowsTiesBreakOnLastDueThenNewest(t *testing.T) {
	now := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

	// Same remaining count (5), different end dates: the later plan has not
	// started paying yet, so its next due is its first due.
	earlyEnd := credit("early_end", domain.CreditActive, time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC), 6, now)
	lateEnd := credit("late_end", domain.CreditActive, time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC), 5, now)

	rows := SortRows([]domain.Credit{lateEnd, earlyEnd}, now)
	require.Len(t, rows, 2)
	assert.Equal(t, "early_end", rows[0].ID)

	// Identical schedules: newest created first.
	older := credit("older", domain.CreditActive, time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC), 6,
		time.Date(2024, time.January, 20, 0, 0, 0, 0, time.UTC))
	newer := credit("newer", domain.CreditActive, time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC), 6,
		time.Date(2024, time.February, 20, 0, 0, 0, 0, time.UTC))

	rows = SortRows([]domain.Credit{older, newer}, now)
	require.Len(t, rows, 2)
	assert.Equal(t, "newer", rows[0].ID)
}

func TestSortRowsEmpty(t *testing.T) {
	assert.Empty(t, SortRows(nil, time.Now()))
}
