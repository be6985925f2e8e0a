package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/haulgate/internal/auth"
	"github.com/BradenHooton/haulgate/internal/models"
)

func newTestOTPService(repo *MockOTPChallengeRepository, email *MockEmailService, resends *MockResendRepository) *OTPService {
	logger := discardLogger()
	limiter := NewRateLimitService(resends, RateLimitConfig{MaxResendsPerEmail: 2, ResendWindow: time.Hour}, logger)
	return NewOTPService(repo, auth.NewOTPGenerator(), email, limiter, logger, nil, OTPConfig{TTL: 10 * time.Minute, MaxAttempts: 3})
}

func TestOTPService_Issue(t *testing.T) {
	repo := NewMockOTPChallengeRepository()
	email := &MockEmailService{}
	svc := newTestOTPService(repo, email, NewMockResendRepository())

	sessionID, err := svc.Issue(context.Background(), &models.User{ID: "u1", Email: "a@example.com"})
	require.NoError(t, err)

	c := repo.get(sessionID)
	require.NotNil(t, c)
	assert.Equal(t, "u1", c.UserID)
	assert.Equal(t, auth.HashCode(email.lastCode()), c.CodeHash)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), c.ExpiresAt, 5*time.Second)
}

func TestOTPService_Issue_StoreFailure(t *testing.T) {
	repo := NewMockOTPChallengeRepository()
	repo.CreateFunc = func(context.Context, *models.OTPChallenge) error { return errors.New("boom") }
	email := &MockEmailService{}
	svc := newTestOTPService(repo, email, NewMockResendRepository())

	_, err := svc.Issue(context.Background(), &models.User{ID: "u1", Email: "a@example.com"})

	assert.ErrorIs(t, err, models.ErrInternalServer)
	assert.Empty(t, email.Codes)
}

func TestOTPService_Verify_LocksAfterMaxAttempts(t *testing.T) {
	repo := NewMockOTPChallengeRepository()
	email := &MockEmailService{}
	svc := newTestOTPService(repo, email, NewMockResendRepository())
	sessionID, err := svc.Issue(context.Background(), &models.User{ID: "u1", Email: "a@example.com"})
	require.NoError(t, err)
	code := email.lastCode()
	wrong := "999999"
	if code == wrong {
		wrong = "888888"
	}

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, svc.Verify(context.Background(), "u1", sessionID, "a@example.com", wrong), models.ErrInvalidOTP)
	}

	// The right code no longer helps once the cap is reached
	assert.ErrorIs(t, svc.Verify(context.Background(), "u1", sessionID, "a@example.com", code), models.ErrOTPAttemptsLocked)
}

func TestOTPService_Verify_Expired(t *testing.T) {
	repo := NewMockOTPChallengeRepository()
	email := &MockEmailService{}
	svc := newTestOTPService(repo, email, NewMockResendRepository())
	sessionID, err := svc.Issue(context.Background(), &models.User{ID: "u1", Email: "a@example.com"})
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(11 * time.Minute) }

	assert.ErrorIs(t, svc.Verify(context.Background(), "u1", sessionID, "a@example.com", email.lastCode()), models.ErrInvalidOTP)
}

func TestOTPService_Verify_EmailMismatch(t *testing.T) {
	repo := NewMockOTPChallengeRepository()
	email := &MockEmailService{}
	svc := newTestOTPService(repo, email, NewMockResendRepository())
	sessionID, err := svc.Issue(context.Background(), &models.User{ID: "u1", Email: "a@example.com"})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Verify(context.Background(), "u1", sessionID, "b@example.com", email.lastCode()), models.ErrInvalidOTP)
}

func TestOTPService_Verify_SingleUse(t *testing.T) {
	repo := NewMockOTPChallengeRepository()
	email := &MockEmailService{}
	svc := newTestOTPService(repo, email, NewMockResendRepository())
	sessionID, err := svc.Issue(context.Background(), &models.User{ID: "u1", Email: "a@example.com"})
	require.NoError(t, err)
	code := email.lastCode()

	require.NoError(t, svc.Verify(context.Background(), "u1", sessionID, "a@example.com", code))
	assert.ErrorIs(t, svc.Verify(context.Background(), "u1", sessionID, "a@example.com", code), models.ErrInvalidOTP)
}

func TestOTPService_Resend_UnknownEmailIsSilent(t *testing.T) {
	email := &MockEmailService{}
	svc := newTestOTPService(NewMockOTPChallengeRepository(), email, NewMockResendRepository())

	assert.NoError(t, svc.Resend(context.Background(), "nobody@example.com"))
	assert.Empty(t, email.Codes)
}

func TestOTPService_Resend_ResetsAttempts(t *testing.T) {
	repo := NewMockOTPChallengeRepository()
	email := &MockEmailService{}
	svc := newTestOTPService(repo, email, NewMockResendRepository())
	sessionID, err := svc.Issue(context.Background(), &models.User{ID: "u1", Email: "a@example.com"})
	require.NoError(t, err)
	_ = svc.Verify(context.Background(), "u1", sessionID, "a@example.com", "abcdef")

	require.NoError(t, svc.Resend(context.Background(), " A@example.com "))

	c := repo.get(sessionID)
	assert.Equal(t, 0, c.Attempts)
	assert.Equal(t, auth.HashCode(email.lastCode()), c.CodeHash)
}

func TestOTPService_Resend_RateLimited(t *testing.T) {
	repo := NewMockOTPChallengeRepository()
	email := &MockEmailService{}
	svc := newTestOTPService(repo, email, NewMockResendRepository())
	_, err := svc.Issue(context.Background(), &models.User{ID: "u1", Email: "a@example.com"})
	require.NoError(t, err)

	require.NoError(t, svc.Resend(context.Background(), "a@example.com"))
	require.NoError(t, svc.Resend(context.Background(), "a@example.com"))

	assert.ErrorIs(t, svc.Resend(context.Background(), "a@example.com"), models.ErrRateLimitExceeded)
	assert.Len(t, email.Codes, 3)
}
