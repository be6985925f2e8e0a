package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/BradenHooton/haulgate/internal/auth"
	"github.com/BradenHooton/haulgate/internal/metrics"
	"github.com/BradenHooton/haulgate/internal/models"
	"github.com/BradenHooton/haulgate/pkg/logger"
)

// OTPConfig holds OTP configuration
type OTPConfig struct {
	TTL         time.Duration
	MaxAttempts int
}

// OTPService issues, verifies and resends login codes
type OTPService struct {
	repo      OTPChallengeRepository
	generator *auth.OTPGenerator
	email     EmailService
	limiter   *RateLimitService
	logger    *slog.Logger
	metrics   *metrics.Metrics
	config    OTPConfig
	now       func() time.Time
}

func NewOTPService(
	repo OTPChallengeRepository,
	generator *auth.OTPGenerator,
	email EmailService,
	limiter *RateLimitService,
	logger *slog.Logger,
	m *metrics.Metrics,
	config OTPConfig,
) *OTPService {
	if config.TTL <= 0 {
		config.TTL = 10 * time.Minute
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 5
	}
	return &OTPService{
		repo:      repo,
		generator: generator,
		email:     email,
		limiter:   limiter,
		logger:    logger,
		metrics:   m,
		config:    config,
		now:       time.Now,
	}
}

// Issue creates a challenge for user, emails the code and returns the session id.
func (s *OTPService) Issue(ctx context.Context, user *models.User) (string, error) {
	code, hash, err := s.generator.Generate()
	if err != nil {
		s.logger.Error("failed to generate otp", slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	now := s.now()
	challenge := &models.OTPChallenge{
		ID:         uuid.New().String(),
		UserID:     user.ID,
		SessionID:  uuid.New().String(),
		Email:      user.Email,
		CodeHash:   hash,
		ExpiresAt:  now.Add(s.config.TTL),
		LastSentAt: now,
		CreatedAt:  now,
	}
	if err := s.repo.Create(ctx, challenge); err != nil {
		s.logger.Error("failed to store otp challenge", slog.String("user_id", user.ID), slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	if err := s.email.SendLoginCode(ctx, user.Email, code, challenge.ExpiresAt); err != nil {
		return "", fmt.Errorf("%w: deliver code: %w", models.ErrInternalServer, err)
	}

	s.metrics.OTPIssuedInc()
	s.logger.Info("otp challenge issued",
		slog.String("user_id", user.ID),
		slog.String("session_id", challenge.SessionID))
	return challenge.SessionID, nil
}

// Verify consumes the challenge when code matches. Wrong codes count
// towards the attempt cap; a locked challenge can only be replaced by a resend.
func (s *OTPService) Verify(ctx context.Context, userID, sessionID, email, code string) error {
	challenge, err := s.repo.GetBySession(ctx, userID, sessionID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.metrics.OTPVerification("not_found")
			return models.ErrChallengeNotFound
		}
		s.logger.Error("failed to load otp challenge", slog.Any("error", err))
		return models.ErrInternalServer
	}

	now := s.now()
	switch {
	case !strings.EqualFold(challenge.Email, strings.TrimSpace(email)):
		s.metrics.OTPVerification("mismatch")
		return models.ErrInvalidOTP
	case challenge.IsConsumed():
		s.metrics.OTPVerification("consumed")
		return models.ErrInvalidOTP
	case challenge.Attempts >= s.config.MaxAttempts:
		s.metrics.OTPVerification("locked")
		return models.ErrOTPAttemptsLocked
	case challenge.IsExpired(now):
		s.metrics.OTPVerification("expired")
		return models.ErrInvalidOTP
	}

	if !auth.VerifyCode(code, challenge.CodeHash) {
		challenge.Attempts++
		if err := s.repo.Update(ctx, challenge); err != nil {
			s.logger.Error("failed to record otp attempt", slog.Any("error", err))
			return models.ErrInternalServer
		}
		s.metrics.OTPVerification("invalid")
		s.logger.Info("invalid otp submitted",
			slog.String("user_id", userID),
			slog.Int("attempts", challenge.Attempts))
		return models.ErrInvalidOTP
	}

	challenge.ConsumedAt = &now
	if err := s.repo.Update(ctx, challenge); err != nil {
		s.logger.Error("failed to consume otp challenge", slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.metrics.OTPVerification("success")
	return nil
}

// Resend replaces the code of the newest pending challenge for email.
// An unknown email succeeds silently.
func (s *OTPService) Resend(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	if err := s.limiter.CheckResend(ctx, email); err != nil {
		s.metrics.ResendRequest("rate_limited")
		return err
	}

	challenge, err := s.repo.GetLatestPending(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.metrics.ResendRequest("no_challenge")
			s.logger.Info("resend without pending challenge", logger.EmailAttr(email))
			return nil
		}
		s.logger.Error("failed to load otp challenge for resend", slog.Any("error", err))
		return models.ErrInternalServer
	}

	code, hash, err := s.generator.Generate()
	if err != nil {
		s.logger.Error("failed to generate otp", slog.Any("error", err))
		return models.ErrInternalServer
	}

	now := s.now()
	challenge.CodeHash = hash
	challenge.Attempts = 0
	challenge.ExpiresAt = now.Add(s.config.TTL)
	challenge.LastSentAt = now
	if err := s.repo.Update(ctx, challenge); err != nil {
		s.logger.Error("failed to update otp challenge", slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.limiter.RecordResend(ctx, email)

	if err := s.email.SendLoginCode(ctx, email, code, challenge.ExpiresAt); err != nil {
		return fmt.Errorf("%w: deliver code: %w", models.ErrInternalServer, err)
	}

	s.metrics.OTPIssuedInc()
	s.metrics.ResendRequest("sent")
	return nil
}
