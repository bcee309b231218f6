// internal/models/user.go
package models

import "time"

type Role string

const (
	RoleUser     Role = "user"
	RoleProvider Role = "provider"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleProvider, RoleAdmin:
		return true
	}
	return false
}

type VerificationStatus string

const (
	VerificationUnverified VerificationStatus = "unverified"
	VerificationPending    VerificationStatus = "pending"
	VerificationVerified   VerificationStatus = "verified"
)

type User struct {
	ID                 string             `json:"id" db:"id"`
	Name               string             `json:"name" db:"name"`
	Email              string             `json:"email" db:"email"`
	Phone              string             `json:"phone,omitempty" db:"phone"`
	Role               Role               `json:"role" db:"role"`
	VerificationStatus VerificationStatus `json:"verificationStatus" db:"verification_status"`
	CreatedAt          time.Time          `json:"createdAt" db:"created_at"`
	UpdatedAt          time.Time          `json:"updatedAt" db:"updated_at"`
}

// Contact is the subset of a user the notification worker needs.
type Contact struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
}
