package domain

import "time"

// Role is the application role stored on a profile row.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleSeller Role = "seller"
)

// Privileged reports whether the role may see data beyond its own assignments.
func (r Role) Privileged() bool {
	return r == RoleAdmin
}

// Profile represents the remote profile row keyed by user id.
type Profile struct {
	UserID       string    `json:"user_id"`
	Role         Role      `json:"role"`
	DealershipID string    `json:"dealership_id"`
	FullName     string    `json:"full_name"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Identity is the resolved caller context fed to every other component.
type Identity struct {
	UserID       string `json:"user_id"`
	Role         Role   `json:"role"`
	DealershipID string `json:"dealership_id"`
	DisplayName  string `json:"display_name"`
}

func (i Identity) IsZero() bool {
	return i.UserID == ""
}

// IdentityFromProfile projects a profile row onto the caller identity.
func IdentityFromProfile(p *Profile) Identity {
	if p == nil {
		return Identity{}
	}
	return Identity{
		UserID:       p.UserID,
		Role:         p.Role,
		DealershipID: p.DealershipID,
		DisplayName:  p.FullName,
	}
}
