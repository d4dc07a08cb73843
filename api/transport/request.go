package transport

import "time"

type LoginRequest struct {
	UserID string `json:"user_id"`
	TTL    int    `json:"ttl_seconds"`
}

type RefreshRequest struct {
	SessionID string `json:"session_id"`
	TTL       int    `json:"ttl_seconds"`
}

type LogoutRequest struct {
	SessionID string `json:"session_id"`
}

type LeadRequest struct {
	Name           string     `json:"name"`
	Phone          string     `json:"phone"`
	Interest       string     `json:"interest"`
	Stage          string     `json:"stage"`
	Notes          string     `json:"notes"`
	AssignedTo     string     `json:"assigned_to"`
	VehicleID      string     `json:"vehicle_id"`
	NextFollowUpAt *time.Time `json:"next_follow_up_at"`
}

type LeadStageRequest struct {
	Stage      string `json:"stage"`
	LostReason string `json:"lost_reason"`
}

type AssignRequest struct {
	UserID string `json:"user_id"`
}

type FollowUpRequest struct {
	At *time.Time `json:"at"`
}

type TaskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    int        `json:"priority"`
	Audience    string     `json:"audience"`
	AssignedTo  string     `json:"assigned_to"`
	DueAt       *time.Time `json:"due_at"`
	EntityType  string     `json:"entity_type"`
	EntityID    string     `json:"entity_id"`
}

type CreditRequest struct {
	ClientName       string    `json:"client_name"`
	ClientPhone      string    `json:"client_phone"`
	VehicleModel     string    `json:"vehicle_model"`
	VehicleVersion   string    `json:"vehicle_version"`
	VehicleYear      int       `json:"vehicle_year"`
	VehicleKms       int       `json:"vehicle_kms"`
	InstallmentAmt   float64   `json:"installment_amount"`
	InstallmentCount int       `json:"installment_count"`
	StartDate        time.Time `json:"start_date"`
}

type DealershipUpdateRequest struct {
	Name    *string `json:"name"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
	Logo    *string `json:"logo"`
}
