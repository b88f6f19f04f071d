package domain

import "time"

type Role string

const (
	RoleSuperAdmin  Role = "super_admin"
	RoleAdmin       Role = "admin"
	RoleAgent       Role = "agent"
	RoleParticipant Role = "participant"
)

func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleAgent, RoleParticipant:
		return true
	}
	return false
}

// IsAdmin reports whether the role has back-office privileges.
func (r Role) IsAdmin() bool {
	return r == RoleSuperAdmin || r == RoleAdmin
}

type User struct {
	ID           int32      `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FullName     string     `json:"fullName"`
	Role         Role       `json:"role"`
	AgencyID     *int32     `json:"agencyId"`
	IsActive     bool       `json:"isActive"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`

	Agency *Agency `json:"agency,omitempty"`
}

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID   int32
	Role     Role
	AgencyID *int32
}

// ScopeAgency returns the agency an actor is restricted to, nil for admins.
func (a Actor) ScopeAgency() *int32 {
	if a.Role.IsAdmin() {
		return nil
	}
	return a.AgencyID
}
