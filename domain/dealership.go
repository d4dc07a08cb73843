package domain

import "time"

// Dealership is the tenant settings row. One row per tenant; every entity in
// the dataset is scoped to a dealership id.
type Dealership struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	Logo      string    `json:"logo,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DealershipUpdate carries the editable subset of the settings row.
type DealershipUpdate struct {
	Name    *string `json:"name,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Address *string `json:"address,omitempty"`
	Logo    *string `json:"logo,omitempty"`
}
