// Package model defines the data structures used throughout the application.
package model

import "time"

// Role is the coarse authorization level carried in access tokens.
type Role string

const (
	RoleUser  Role = "User"
	RoleAdmin Role = "Admin"
)

// User is a registered account. Users are never hard-deleted.
//
// The password is stored as a PBKDF2 derived key plus the random salt used
// to derive it. Neither is ever serialised to JSON.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"` // unique, case-sensitive
	Nickname     string    `json:"nickname"`
	Email        string    `json:"email"`
	PasswordHash []byte    `json:"-"`
	PasswordSalt []byte    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// IsAdmin reports whether the user holds the Admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
