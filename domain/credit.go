package domain

import (
	"math"
	"time"
)

// CreditStatus mirrors the credits table enum.
type CreditStatus string

const (
	CreditActive CreditStatus = "active"
	CreditClosed CreditStatus = "closed"
)

// DefaultDueDay is the dealership policy day-of-month on which installments
// fall due. It is a product rule, not a derived value, so it stays configurable.
const DefaultDueDay = 10

// Credit represents a financed vehicle sale with a monthly installment plan.
// The plan fields (StartDate, InstallmentCount, Status) are immutable inputs
// to the schedule projection and are never mutated by it.
type Credit struct {
	ID               string       `json:"id"`
	DealershipID     string       `json:"dealership_id"`
	Status           CreditStatus `json:"status"`
	ClosedAt         *time.Time   `json:"closed_at,omitempty"`
	ClientName       string       `json:"client_name"`
	ClientPhone      string       `json:"client_phone,omitempty"`
	VehicleModel     string       `json:"vehicle_model,omitempty"`
	VehicleVersion   string       `json:"vehicle_version,omitempty"`
	VehicleYear      int          `json:"vehicle_year,omitempty"`
	VehicleKms       int          `json:"vehicle_kms,omitempty"`
	InstallmentAmt   float64      `json:"installment_amount"`
	InstallmentCount int          `json:"installment_count"`
	StartDate        time.Time    `json:"start_date"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// Urgency is the coarse classification derived from a schedule's distance to
// its end date. It drives badge coloring and alert counts; it is never stored.
type Urgency string

const (
	UrgencyOK       Urgency = "ok"
	UrgencyWarning  Urgency = "warning"
	UrgencyCritical Urgency = "critical"
	UrgencyOverdue  Urgency = "overdue"
	UrgencyClosed   Urgency = "closed"
)

// CreditSchedule is a pure projection of an installment plan against "now".
// It is recomputed on every read and never cached.
type CreditSchedule struct {
	FirstDue   time.Time `json:"first_due"`
	LastDue    time.Time `json:"last_due"`
	NextDue    time.Time `json:"next_due"`
	Remaining  int       `json:"remaining"`
	DaysToEnd  int       `json:"days_to_end"`
	DaysToNext int       `json:"days_to_next"`
}

// ComputeSchedule projects a plan's due dates and remaining installment count
// using the default due day. Returns nil for closed plans, non-positive
// installment counts or a zero start date; those are not errors.
func ComputeSchedule(start time.Time, installments int, status CreditStatus, now time.Time) *CreditSchedule {
	return ComputeScheduleWithDueDay(start, installments, status, now, DefaultDueDay)
}

// ComputeScheduleWithDueDay is ComputeSchedule with an explicit policy due day.
// Deterministic and side-effect free so it can run inside sort comparators and
// the alert poll alike.
func ComputeScheduleWithDueDay(start time.Time, installments int, status CreditStatus, now time.Time, dueDay int) *CreditSchedule {
	if status != CreditActive || installments <= 0 || start.IsZero() {
		return nil
	}
	if dueDay <= 0 {
		dueDay = DefaultDueDay
	}

	// All arithmetic happens at midnight in now's location.
	loc := now.Location()
	startDay := dateOnly(start.In(loc))
	today := dateOnly(now)

	// First installment: the due day of the start month, pushed one month out
	// when the plan starts after that day.
	firstDue := dueDate(startDay.Year(), startDay.Month(), dueDay, loc)
	if startDay.Day() > dueDay {
		firstDue = addMonthsDue(firstDue, 1, dueDay)
	}

	lastDue := addMonthsDue(firstDue, installments-1, dueDay)

	// Next global due date: this month's due day, or next month's if passed.
	nextGlobal := dueDate(today.Year(), today.Month(), dueDay, loc)
	if today.After(nextGlobal) {
		nextGlobal = addMonthsDue(nextGlobal, 1, dueDay)
	}

	nextDue := nextGlobal
	if nextDue.Before(firstDue) {
		nextDue = firstDue
	}

	remaining := 0
	if !lastDue.Before(nextDue) {
		remaining = monthsBetween(nextDue, lastDue) + 1
	} else {
		// Term elapsed: keep nextDue one month past lastDue so finished plans
		// order sensibly in schedule-driven sorts.
		nextDue = addMonthsDue(lastDue, 1, dueDay)
	}

	return &CreditSchedule{
		FirstDue:   firstDue,
		LastDue:    lastDue,
		NextDue:    nextDue,
		Remaining:  remaining,
		DaysToEnd:  daysBetween(today, lastDue),
		DaysToNext: daysBetween(today, nextDue),
	}
}

// Urgency classifies a schedule. A nil schedule means the plan is closed or
// malformed and classifies as closed.
func (s *CreditSchedule) Urgency() Urgency {
	if s == nil {
		return UrgencyClosed
	}
	switch {
	case s.Remaining == 0 || s.DaysToEnd < 0:
		return UrgencyOverdue
	case s.DaysToEnd <= 30:
		return UrgencyCritical
	case s.DaysToEnd <= 90:
		return UrgencyWarning
	default:
		return UrgencyOK
	}
}

// Schedule projects the credit against now.
func (c *Credit) Schedule(now time.Time) *CreditSchedule {
	if c == nil {
		return nil
	}
	return ComputeSchedule(c.StartDate, c.InstallmentCount, c.Status, now)
}

// EndsWithin reports whether an active plan finishes between today and
// today+months (month-boundary arithmetic, matching the schedule semantics).
func (c *Credit) EndsWithin(now time.Time, months int) bool {
	s := c.Schedule(now)
	if s == nil {
		return false
	}
	limit := dateOnly(now).AddDate(0, months, 0)
	return s.DaysToEnd >= 0 && !s.LastDue.After(limit)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func dueDate(year int, month time.Month, day int, loc *time.Location) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

// addMonthsDue advances a due date by whole months keeping the policy day.
// time.Date normalizes month overflow, and the due day is always a valid
// day-of-month, so no clamping is needed.
func addMonthsDue(due time.Time, months int, day int) time.Time {
	return time.Date(due.Year(), due.Month()+time.Month(months), day, 0, 0, 0, 0, due.Location())
}

func monthsBetween(from, to time.Time) int {
	return (to.Year()-from.Year())*12 + int(to.Month()-from.Month())
}

func daysBetween(from, to time.Time) int {
	return int(math.Round(to.Sub(from).Hours() / 24))
}
