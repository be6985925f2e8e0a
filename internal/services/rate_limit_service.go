package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/BradenHooton/haulgate/internal/models"
	"github.com/BradenHooton/haulgate/pkg/logger"
)

// RateLimitConfig holds configuration for per-email resend limiting
type RateLimitConfig struct {
	MaxResendsPerEmail int
	ResendWindow       time.Duration
}

// RateLimitService limits how often a code can be resent to one address.
// Per-IP limits on login and verify live in the HTTP middleware.
type RateLimitService struct {
	repo   ResendRepository
	config RateLimitConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewRateLimitService creates a new RateLimitService
func NewRateLimitService(repo ResendRepository, config RateLimitConfig, logger *slog.Logger) *RateLimitService {
	if config.MaxResendsPerEmail <= 0 {
		config.MaxResendsPerEmail = 3
	}
	if config.ResendWindow <= 0 {
		config.ResendWindow = 15 * time.Minute
	}
	return &RateLimitService{
		repo:   repo,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// CheckResend returns models.ErrRateLimitExceeded once email used up its window.
func (s *RateLimitService) CheckResend(ctx context.Context, email string) error {
	since := s.now().Add(-s.config.ResendWindow)
	count, err := s.repo.CountResends(ctx, email, since)
	if err != nil {
		// Fail open: storage errors must not lock users out
		s.logger.Error("failed to check resend rate limit", slog.Any("error", err))
		return nil
	}

	if count >= s.config.MaxResendsPerEmail {
		s.logger.Warn("resend rate limited",
			logger.EmailAttr(email),
			slog.Int("resends", count))
		return models.ErrRateLimitExceeded
	}
	return nil
}

// RecordResend counts one resend against email.
func (s *RateLimitService) RecordResend(ctx context.Context, email string) {
	if err := s.repo.RecordResend(ctx, email, s.now()); err != nil {
		s.logger.Error("failed to record resend", slog.Any("error", err))
	}
}
