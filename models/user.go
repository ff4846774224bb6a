package models

import "time"

type UserRole string

const (
	RoleTeam  UserRole = "team"
	RoleAdmin UserRole = "admin"
)

// User mirrors a row in user_profiles. PasswordHash is empty for
// accounts created through Google sign-in.
type User struct {
	ID                     string     `json:"user_id"`
	Email                  string     `json:"email"`
	Name                   string     `json:"name"`
	Phone                  string     `json:"phone,omitempty"`
	CollegeName            string     `json:"college_name,omitempty"`
	Role                   UserRole   `json:"role"`
	PasswordHash           string     `json:"-"`
	PasswordResetToken     *string    `json:"-"`
	PasswordResetExpiresAt *time.Time `json:"-"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}
