package models

import "time"

// Roles assignable to platform accounts.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID                string
	Email             string
	PasswordHash      string
	Name              string
	Role              string // "user", "admin"
	Status            string // "active", "suspended", "disabled"
	PasswordChangedAt *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsAdmin reports whether the account carries the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
