package domain

import "time"

// VehicleStatus mirrors the vehicles table enum.
type VehicleStatus string

const (
	VehicleDraft     VehicleStatus = "draft"
	VehicleIncoming  VehicleStatus = "incoming"
	VehiclePreparing VehicleStatus = "preparing"
	VehiclePublished VehicleStatus = "published"
	VehicleReserved  VehicleStatus = "reserved"
	VehicleSold      VehicleStatus = "sold"
)

// PendingVehicleStatuses are the states counted as "pending" in alerts.
var PendingVehicleStatuses = []VehicleStatus{VehicleDraft, VehicleIncoming, VehiclePreparing}

// Vehicle represents a unit in the dealership inventory.
type Vehicle struct {
	ID           string        `json:"id"`
	DealershipID string        `json:"dealership_id"`
	CreatedBy    string        `json:"created_by"`
	Status       VehicleStatus `json:"status"`
	Model        string        `json:"model"`
	Version      string        `json:"version,omitempty"`
	Year         int           `json:"year,omitempty"`
	Kms          int           `json:"kms,omitempty"`
	PriceArs     float64       `json:"price_ars,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}
