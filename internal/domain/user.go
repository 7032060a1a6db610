package domain

import "time"

// UserRole separates regular requesters from administrators.
type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// ValidRole reports whether the value is a known role.
func ValidRole(role UserRole) bool {
	return role == RoleUser || role == RoleAdmin
}

// User is the domain model for anyone who can log in: requesters and admins.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Role         UserRole
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin is derived from the role, never persisted.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// FullName joins first and last name, the form used by admin ticket search.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}
