package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/haulgate/internal/auth"
	"github.com/BradenHooton/haulgate/internal/metrics"
	"github.com/BradenHooton/haulgate/internal/models"
	pkgauth "github.com/BradenHooton/haulgate/pkg/auth"
	pkglogger "github.com/BradenHooton/haulgate/pkg/logger"
)

// RequestMeta carries transport details used for auditing
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// AuthService handles the password and OTP steps of a login
type AuthService struct {
	repo        UserRepository
	hasher      *pkgauth.PasswordHasher
	tm          *auth.TokenManager
	otp         *OTPService
	trusted     *TrustedDeviceService
	timing      *auth.TimingDelay
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	metrics     *metrics.Metrics
}

// NewAuthService creates a new AuthService
func NewAuthService(
	repo UserRepository,
	hasher *pkgauth.PasswordHasher,
	tm *auth.TokenManager,
	otp *OTPService,
	trusted *TrustedDeviceService,
	timing *auth.TimingDelay,
	logger *slog.Logger,
	m *metrics.Metrics,
) *AuthService {
	return &AuthService{
		repo:        repo,
		hasher:      hasher,
		tm:          tm,
		otp:         otp,
		trusted:     trusted,
		timing:      timing,
		logger:      logger,
		auditLogger: pkglogger.NewAuditLogger(logger),
		metrics:     m,
	}
}

// Login checks the password and either issues tokens (MFA off or trusted
// device) or starts an OTP challenge.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest, meta RequestMeta) (*models.LoginResponse, error) {
	start := time.Now()
	email := strings.ToLower(strings.TrimSpace(req.Email))

	event := pkglogger.AuditEvent{
		EventType: pkglogger.EventLoginSubmitted,
		Email:     email,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		DeviceID:  req.DeviceID,
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.hasher.CompareDummy(req.Password)
			s.timing.WaitFrom(start, false)
			event.FailureReason = "invalid_credentials"
			s.auditLogger.LogAuthAttempt(ctx, event)
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	event.UserID = user.ID

	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		s.timing.WaitFrom(start, false)
		event.FailureReason = "invalid_credentials"
		s.auditLogger.LogAuthAttempt(ctx, event)
		return nil, models.ErrUnauthorized
	}
	if s.hasher.NeedsRehash(user.PasswordHash) {
		s.logger.Debug("password hash uses a different bcrypt cost", slog.String("user_id", user.ID))
	}

	if err := validateAccountState(user); err != nil {
		s.logger.Info("login blocked due to account state",
			slog.String("user_id", user.ID),
			slog.String("status", user.Status),
			slog.Any("error", err))
		event.FailureReason = "account_state"
		s.auditLogger.LogAuthAttempt(ctx, event)
		return nil, err
	}

	event.Success = true
	s.auditLogger.LogAuthAttempt(ctx, event)

	if !user.MFAEnabled || s.trusted.IsTrusted(ctx, user.ID, req.DeviceID, req.Fingerprint) {
		if user.MFAEnabled {
			s.metrics.TrustedDeviceLoginInc()
		}
		access, refresh, err := s.issueTokens(user)
		if err != nil {
			return nil, err
		}
		s.logger.Info("user logged in without otp", slog.String("user_id", user.ID))
		return &models.LoginResponse{
			Success:      true,
			UserID:       user.ID,
			UserType:     user.UserType,
			AccessToken:  access,
			RefreshToken: refresh,
		}, nil
	}

	sessionID, err := s.otp.Issue(ctx, user)
	if err != nil {
		return nil, err
	}
	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventChallengeIssued,
		UserID:    user.ID,
		Email:     email,
		Success:   true,
	})

	return &models.LoginResponse{
		Success:     true,
		RequiresOTP: true,
		UserID:      user.ID,
		SessionID:   sessionID,
	}, nil
}

// VerifyMFA completes an OTP challenge and issues the session tokens.
func (s *AuthService) VerifyMFA(ctx context.Context, req models.VerifyMFARequest, meta RequestMeta) (*models.VerifyMFAResponse, error) {
	event := pkglogger.AuditEvent{
		EventType: pkglogger.EventOTPVerified,
		UserID:    req.UserID,
		Email:     req.Email,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		DeviceID:  req.DeviceID,
	}

	if err := s.otp.Verify(ctx, req.UserID, req.SessionID, req.Email, req.OTPCode); err != nil {
		event.FailureReason = err.Error()
		s.auditLogger.LogAuthAttempt(ctx, event)
		return nil, err
	}

	user, err := s.repo.GetByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to get user by id", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if err := validateAccountState(user); err != nil {
		return nil, err
	}

	access, refresh, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}

	event.Success = true
	s.auditLogger.LogAuthAttempt(ctx, event)

	resp := &models.VerifyMFAResponse{
		Success:      true,
		UserID:       user.ID,
		UserType:     user.UserType,
		AccessToken:  access,
		RefreshToken: refresh,
	}

	if req.TrustDevice && req.DeviceID != "" {
		token, expiresAt, err := s.trusted.Trust(ctx, user.ID, req.DeviceID, req.DeviceName, req.Fingerprint)
		if err != nil {
			// The login itself succeeded; trust is best effort.
			s.logger.Warn("device trust not recorded", slog.String("user_id", user.ID), slog.Any("error", err))
		} else {
			resp.DeviceTrustToken = token
			resp.TrustExpiresAt = &expiresAt
			s.auditLogger.LogDeviceTrust(ctx, user.ID, req.DeviceID, expiresAt)
		}
	}

	return resp, nil
}

// ResendOTP sends a fresh code for the pending challenge of email.
func (s *AuthService) ResendOTP(ctx context.Context, req models.ResendOTPRequest) error {
	err := s.otp.Resend(ctx, req.Email)
	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventOTPResent,
		Email:     req.Email,
		Success:   err == nil,
	})
	return err
}

func (s *AuthService) issueTokens(user *models.User) (string, string, error) {
	access, err := s.tm.GenerateAccessToken(user)
	if err != nil {
		s.logger.Error("failed to generate access token", slog.String("user_id", user.ID), slog.Any("error", err))
		return "", "", models.ErrInternalServer
	}
	refresh, err := s.tm.GenerateRefreshToken(user)
	if err != nil {
		s.logger.Error("failed to generate refresh token", slog.String("user_id", user.ID), slog.Any("error", err))
		return "", "", models.ErrInternalServer
	}
	return access, refresh, nil
}

// validateAccountState checks whether the account may sign in
func validateAccountState(user *models.User) error {
	switch user.Status {
	case models.StatusActive:
	case models.StatusNotActivated:
		return models.ErrEmailNotVerified
	case models.StatusPending:
		return models.ErrAccountPending
	case models.StatusDisabled:
		return models.ErrAccountDisabled
	case models.StatusInactive:
		return models.ErrAccountInactive
	case models.StatusSuspended:
		return models.ErrAccountSuspended
	case models.StatusBanned:
		return models.ErrAccountBanned
	case models.StatusDeleted:
		return models.ErrAccountDeleted
	case models.StatusExpired:
		return models.ErrAccountExpired
	default:
		return models.ErrAccountUnknownStatus
	}

	if user.SubscriptionStatus == models.SubscriptionLapsed {
		return models.ErrSubscriptionRequired
	}
	return nil
}
