package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/BradenHooton/haulgate/internal/auth"
	"github.com/BradenHooton/haulgate/internal/models"
)

// TrustedDeviceService lets a verified device skip the OTP step for a while
type TrustedDeviceService struct {
	repo   TrustedDeviceRepository
	tm     *auth.TokenManager
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

func NewTrustedDeviceService(repo TrustedDeviceRepository, tm *auth.TokenManager, ttl time.Duration, logger *slog.Logger) *TrustedDeviceService {
	return &TrustedDeviceService{repo: repo, tm: tm, ttl: ttl, logger: logger, now: time.Now}
}

// Trust records the device and returns a device-trust token.
func (s *TrustedDeviceService) Trust(ctx context.Context, userID, deviceID, deviceName, fingerprint string) (string, time.Time, error) {
	token, expiresAt, err := s.tm.GenerateDeviceTrustToken(userID, deviceID)
	if err != nil {
		s.logger.Error("failed to generate device trust token", slog.Any("error", err))
		return "", time.Time{}, models.ErrInternalServer
	}

	device := &models.TrustedDevice{
		UserID:      userID,
		DeviceID:    deviceID,
		DeviceName:  deviceName,
		Fingerprint: fingerprint,
		ExpiresAt:   expiresAt,
		LastSeenAt:  s.now(),
	}
	if err := s.repo.Upsert(ctx, device); err != nil {
		s.logger.Error("failed to store trusted device", slog.String("user_id", userID), slog.Any("error", err))
		return "", time.Time{}, models.ErrInternalServer
	}

	return token, expiresAt, nil
}

// IsTrusted reports whether the device holds an unexpired trust whose
// fingerprint still matches.
func (s *TrustedDeviceService) IsTrusted(ctx context.Context, userID, deviceID, fingerprint string) bool {
	if deviceID == "" {
		return false
	}

	device, err := s.repo.Get(ctx, userID, deviceID)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Error("failed to look up trusted device", slog.Any("error", err))
		}
		return false
	}

	now := s.now()
	if device.IsExpired(now) {
		return false
	}
	if device.Fingerprint != "" && device.Fingerprint != fingerprint {
		s.logger.Info("trusted device fingerprint changed",
			slog.String("user_id", userID),
			slog.String("device_id", deviceID))
		return false
	}

	if err := s.repo.Touch(ctx, device.ID, now); err != nil {
		s.logger.Warn("failed to update trusted device last seen", slog.Any("error", err))
	}
	return true
}
