package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is the kind of account a user holds.
type Role string

const (
	RoleStudent Role = "student"
	RoleVendor  Role = "vendor"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleVendor, RoleAdmin:
		return true
	}
	return false
}

// User represents a registered user account.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// Email is the user's email address (unique, stored lower-cased).
	Email string

	// PasswordHash is the bcrypt hash of the user's password.
	// It never leaves the service layer.
	PasswordHash string

	FirstName string
	LastName  string

	// Role defaults to RoleStudent.
	Role Role

	// Points and Level back the gamification bar; they start at 0 and 1.
	Points int
	Level  int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUser creates a new student user with a generated ID and timestamps.
func NewUser(email, firstName, lastName, passwordHash string) *User {
	now := time.Now().UTC()
	return &User{
		ID:           uuid.New().String(),
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
		Role:         RoleStudent,
		Points:       0,
		Level:        1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Summary returns the display-safe projection of the user.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
	}
}

// UserSummary is the only user shape embedded in group and contribution
// responses. It carries no credentials.
type UserSummary struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
