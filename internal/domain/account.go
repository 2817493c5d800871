package domain

import "time"

// Role enumerates the access levels an account can hold.
type Role string

const (
	RoleCitizen Role = "citizen"
	RoleStaff   Role = "staff"
	RoleAdmin   Role = "admin"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleCitizen, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

// Account is the domain model for anyone who touches the system: citizens
// reporting issues, staff working them, and admins managing both. Email is
// the stable identifier; citizens are upserted on first authenticated
// contact, staff accounts are created by an admin.
type Account struct {
	ID           string
	Email        string
	Name         string
	PhotoURL     string
	Role         Role
	PasswordHash *string
	IsBlocked    bool
	IsPremium    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
