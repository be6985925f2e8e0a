package models

import (
	"time"
)

// MFAChallengeContext correlates the OTP step with the login that started it.
// It is treated as immutable once created.
type MFAChallengeContext struct {
	Email      string `json:"email"`
	LoginToken string `json:"login_token"`
	UserID     string `json:"user_id"`
	SessionID  string `json:"session_id"`
}

// Valid reports whether every correlation field is present.
func (c *MFAChallengeContext) Valid() bool {
	return c != nil && c.Email != "" && c.LoginToken != "" && c.UserID != "" && c.SessionID != ""
}

// OTPChallenge is a server-side one-time passcode issued after a successful password check.
type OTPChallenge struct {
	ID         string
	UserID     string
	SessionID  string
	Email      string
	CodeHash   string // sha256 of the code, hex encoded
	Attempts   int
	ExpiresAt  time.Time
	LastSentAt time.Time
	ConsumedAt *time.Time
	CreatedAt  time.Time
}

// IsExpired checks the challenge against now.
func (c *OTPChallenge) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// IsConsumed reports whether the challenge was already used to log in.
func (c *OTPChallenge) IsConsumed() bool {
	return c.ConsumedAt != nil
}

// TrustedDevice records a device the user opted to trust after verifying an OTP.
type TrustedDevice struct {
	ID          string
	UserID      string
	DeviceID    string
	DeviceName  string
	Fingerprint string
	ExpiresAt   time.Time
	LastSeenAt  time.Time
	CreatedAt   time.Time
}

// IsExpired checks the trust window against now.
func (d *TrustedDevice) IsExpired(now time.Time) bool {
	return !now.Before(d.ExpiresAt)
}
