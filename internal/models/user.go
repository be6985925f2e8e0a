package models

import (
	"time"
)

// User is an account held by the auth backend.
type User struct {
	ID                 string
	Email              string
	PasswordHash       string
	Name               string
	UserType           string // e.g., "customer", "provider", "admin"
	Status             string // see Status* constants
	SubscriptionStatus string // "" when the user type carries no subscription
	MFAEnabled         bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IsActive reports whether the account may complete a login.
func (u *User) IsActive() bool {
	return u.Status == StatusActive
}
