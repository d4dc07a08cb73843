package domain

import "time"

// LeadStage mirrors the sales pipeline enum on the leads table.
type LeadStage string

const (
	StageNew         LeadStage = "new"
	StageContacted   LeadStage = "contacted"
	StageInterested  LeadStage = "interested"
	StageNegotiation LeadStage = "negotiation"
	StageWon         LeadStage = "won"
	StageLost        LeadStage = "lost"
)

// Stages lists every pipeline stage in display order.
var Stages = []LeadStage{StageNew, StageContacted, StageInterested, StageNegotiation, StageWon, StageLost}

// Lead represents a sales prospect.
type Lead struct {
	ID             string     `json:"id"`
	DealershipID   string     `json:"dealership_id"`
	Name           string     `json:"name"`
	Phone          string     `json:"phone,omitempty"`
	Interest       string     `json:"interest,omitempty"`
	Stage          LeadStage  `json:"stage"`
	Notes          string     `json:"notes,omitempty"`
	AssignedTo     string     `json:"assigned_to,omitempty"`
	VehicleID      string     `json:"vehicle_id,omitempty"`
	LastContactAt  *time.Time `json:"last_contact_at,omitempty"`
	NextFollowUpAt *time.Time `json:"next_follow_up_at,omitempty"`
	LostReason     string     `json:"lost_reason,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (l *Lead) IsClosed() bool {
	return l != nil && (l.Stage == StageWon || l.Stage == StageLost)
}

// IsOverdue reports whether the follow-up date has passed for an open lead.
func (l *Lead) IsOverdue(now time.Time) bool {
	if l == nil || l.IsClosed() || l.NextFollowUpAt == nil {
		return false
	}
	return l.NextFollowUpAt.Before(now)
}
