package domain

// AlertCounts is the notification summary shown in the top bar. All values
// are re-derived from the remote dataset plus the installment schedule and
// are never persisted.
type AlertCounts struct {
	VehiclesPending     int `json:"vehicles_pending"`
	VehiclesReservedOld int `json:"vehicles_reserved_stale"`
	LeadsOverdue        int `json:"leads_overdue"`
	LeadsStale          int `json:"leads_stale"`
	TasksOverdue        int `json:"tasks_overdue"`
	TasksDueToday       int `json:"tasks_due_today"`
	CreditsEndingSoon   int `json:"credits_ending_soon"`
}

// Total is the badge number: the headline categories only, so the badge does
// not double-count the softer "stale" reminders.
func (c AlertCounts) Total() int {
	return c.VehiclesPending + c.LeadsOverdue + c.TasksOverdue + c.CreditsEndingSoon
}
