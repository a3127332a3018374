// Package models holds the persisted entities of the auth subsystem.
package models

import "time"

// Roles form a closed set. RoleUser is the default for new accounts.
const (
	RoleSuperadmin = "superadmin"
	RoleAdmin      = "admin"
	RoleUser       = "user"
)

// User is the identity record. Password is empty for Google-only accounts;
// GoogleID is empty for password accounts.
type User struct {
	ID         string
	Username   string
	GoogleID   string
	Email      string
	Password   string // bcrypt hash, never the plaintext
	Name       string
	Role       string
	Avatar     string
	IsVerified bool
	CreatedAt  time.Time
}

// PublicUser is the projection safe to return to clients.
type PublicUser struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar,omitempty"`
	Role   string `json:"role"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:     u.ID,
		Name:   u.Name,
		Email:  u.Email,
		Avatar: u.Avatar,
		Role:   u.Role,
	}
}
