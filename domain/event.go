package domain

import (
	"encoding/json"
	"time"
)

// EntityType names the entity families that produce timeline events.
type EntityType string

const (
	EntityLead    EntityType = "lead"
	EntityVehicle EntityType = "vehicle"
	EntityCredit  EntityType = "credit"
	EntityTask    EntityType = "task"
	EntityClient  EntityType = "client"

	EntityDealership EntityType = "dealership"
)

// Event is a best-effort audit record emitted after successful mutations.
// Writing one must never fail the mutation that produced it.
type Event struct {
	ID           string          `json:"id"`
	DealershipID string          `json:"dealership_id,omitempty"`
	EntityType   EntityType      `json:"entity_type"`
	EntityID     string          `json:"entity_id"`
	Type         string          `json:"type"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	CreatedBy    string          `json:"created_by,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}
