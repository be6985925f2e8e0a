package services

import (
	"context"
	"time"

	"github.com/BradenHooton/haulgate/internal/models"
)

// UserRepository defines the user lookups the auth flow needs
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
}

// OTPChallengeRepository stores issued login codes
type OTPChallengeRepository interface {
	Create(ctx context.Context, c *models.OTPChallenge) error
	GetBySession(ctx context.Context, userID, sessionID string) (*models.OTPChallenge, error)
	GetLatestPending(ctx context.Context, email string) (*models.OTPChallenge, error)
	Update(ctx context.Context, c *models.OTPChallenge) error
}

// TrustedDeviceRepository stores devices that may skip the OTP step
type TrustedDeviceRepository interface {
	Upsert(ctx context.Context, d *models.TrustedDevice) error
	Get(ctx context.Context, userID, deviceID string) (*models.TrustedDevice, error)
	Touch(ctx context.Context, id string, seenAt time.Time) error
}

// ResendRepository records resends for per-email limiting
type ResendRepository interface {
	RecordResend(ctx context.Context, email string, at time.Time) error
	CountResends(ctx context.Context, email string, since time.Time) (int, error)
}
