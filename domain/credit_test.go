package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestComputeScheduleMidTerm(t *testing.T) {
	start := date(2024, time.January, 15)
	now := date(2024, time.March, 1)

	s := ComputeSchedule(start, 6, CreditActive, now)
	require.NotNil(t, s)

	assert.Equal(t, date(2024, time.February, 10), s.FirstDue)
	assert.Equal(t, date(2024, time.July, 10), s.LastDue)
	assert.Equal(t, date(2024, time.March, 10), s.NextDue)
	assert.Equal(t, 5, s.Remaining)
	assert.Equal(t, 9, s.DaysToNext)
	assert.Equal(t, 131, s.DaysToEnd)
}

func TestComputeScheduleTermElapsed(t *testing.T) {
	start := date(2024, time.January, 15)
	now := date(2024, time.August, 1)

	s := ComputeSchedule(start, 6, CreditActive, now)
	require.NotNil(t, s)

	assert.Equal(t, 0, s.Remaining)
	assert.Equal(t, date(2024, time.August, 10), s.NextDue)
	assert.Equal(t, date(2024, time.July, 10), s.LastDue)
	assert.Negative(t, s.DaysToEnd)
}

func TestComputeScheduleStartOnOrBeforeDueDay(t *testing.T) {
	// Plan starting on or before the due day owes its first installment the
	// same month.
	s := ComputeSchedule(date(2024, time.January, 10), 3, CreditActive, date(2024, time.January, 5))
	require.NotNil(t, s)
	assert.Equal(t, date(2024, time.January, 10), s.FirstDue)

	s = ComputeSchedule(date(2024, time.January, 3), 3, CreditActive, date(2024, time.January, 5))
	require.NotNil(t, s)
	assert.Equal(t, date(2024, time.January, 10), s.FirstDue)
}

func TestComputeScheduleNextDueNeverBeforeFirst(t *testing.T) {
	// Looking at a plan before its first installment is due.
	s := ComputeSchedule(date(2024, time.June, 20), 4, CreditActive, date(2024, time.May, 1))
	require.NotNil(t, s)
	assert.Equal(t, date(2024, time.July, 10), s.FirstDue)
	assert.Equal(t, s.FirstDue, s.NextDue)
	assert.Equal(t, 4, s.Remaining)
}

func TestComputeScheduleYearRollover(t *testing.T) {
	s := ComputeSchedule(date(2024, time.November, 20), 4, CreditActive, date(2024, time.December, 15))
	require.NotNil(t, s)
	assert.Equal(t, date(2024, time.December, 10), s.FirstDue)
	assert.Equal(t, date(2025, time.March, 10), s.LastDue)
	assert.Equal(t, date(2025, time.January, 10), s.NextDue)
	assert.Equal(t, 3, s.Remaining)
}

func TestComputeScheduleDegenerateInputs(t *testing.T) {
	now := date(2024, time.March, 1)
	start := date(2024, time.January, 15)

	assert.Nil(t, ComputeSchedule(start, 6, CreditClosed, now))
	assert.Nil(t, ComputeSchedule(start, 0, CreditActive, now))
	assert.Nil(t, ComputeSchedule(start, -2, CreditActive, now))
	assert.Nil(t, ComputeSchedule(time.Time{}, 6, CreditActive, now))
}

func TestComputeScheduleCustomDueDay(t *testing.T) {
	s := ComputeScheduleWithDueDay(date(2024, time.January, 3), 2, CreditActive, date(2024, time.January, 1), 5)
	require.NotNil(t, s)
	assert.Equal(t, date(2024, time.January, 5), s.FirstDue)
	assert.Equal(t, date(2024, time.February, 5), s.LastDue)
}

func TestScheduleUrgency(t *testing.T) {
	var nilSchedule *CreditSchedule
	assert.Equal(t, UrgencyClosed, nilSchedule.Urgency())

	assert.Equal(t, UrgencyOverdue, (&CreditSchedule{Remaining: 0, DaysToEnd: 10}).Urgency())
	assert.Equal(t, UrgencyOverdue, (&CreditSchedule{Remaining: 2, DaysToEnd: -1}).Urgency())
	assert.Equal(t, UrgencyCritical, (&CreditSchedule{Remaining: 1, DaysToEnd: 30}).Urgency())
	assert.Equal(t, UrgencyWarning, (&CreditSchedule{Remaining: 3, DaysToEnd: 90}).Urgency())
	assert.Equal(t, UrgencyOK, (&CreditSchedule{Remaining: 6, DaysToEnd: 91}).Urgency())
}

func TestCreditEndsWithin(t *testing.T) {
	now := date(2024, time.March, 1)

	ending := &Credit{
		Status:           CreditActive,
		StartDate:        date(2023, time.October, 15),
		InstallmentCount: 6, // last due 2024-04-10
	}
	assert.True(t, ending.EndsWithin(now, 2))  // limit 2024-05-01
	assert.False(t, ending.EndsWithin(now, 1)) // limit 2024-04-01

	far := &Credit{
		Status:           CreditActive,
		StartDate:        date(2024, time.January, 15),
		InstallmentCount: 12,
	}
	assert.False(t, far.EndsWithin(now, 2))

	closed := &Credit{
		Status:           CreditClosed,
		StartDate:        date(2024, time.January, 15),
		InstallmentCount: 6,
	}
	assert.False(t, closed.EndsWithin(now, 2))
}

func TestCreditEndsWithinExcludesElapsed(t *testing.T) {
	elapsed := &Credit{
		Status:           CreditActive,
		StartDate:        date(2023, time.January, 15),
		InstallmentCount: 3,
	}
	assert.False(t, elapsed.EndsWithin(date(2024, time.March, 1), 2))
}
