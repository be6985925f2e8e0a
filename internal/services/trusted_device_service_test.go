package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/haulgate/internal/auth"
	"github.com/BradenHooton/haulgate/internal/models"
)

func newTestTrustedDeviceService(repo *MockTrustedDeviceRepository) *TrustedDeviceService {
	tm := auth.NewTokenManager(testSecret, time.Minute, time.Hour, 24*time.Hour)
	return NewTrustedDeviceService(repo, tm, 24*time.Hour, discardLogger())
}

func TestTrustedDeviceService_Trust(t *testing.T) {
	repo := &MockTrustedDeviceRepository{}
	svc := newTestTrustedDeviceService(repo)

	token, expiresAt, err := svc.Trust(context.Background(), "u1", "d1", "Firefox on Linux", "fp")

	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), expiresAt, 5*time.Second)
	require.Len(t, repo.Upserted, 1)
	assert.Equal(t, "Firefox on Linux", repo.Upserted[0].DeviceName)
}

func TestTrustedDeviceService_IsTrusted(t *testing.T) {
	future := time.Now().Add(time.Hour)
	past := time.Now().Add(-time.Hour)

	tests := []struct {
		name        string
		deviceID    string
		stored      *models.TrustedDevice
		fingerprint string
		want        bool
	}{
		{"no device id", "", nil, "fp", false},
		{"unknown device", "d1", nil, "fp", false},
		{"valid", "d1", &models.TrustedDevice{ID: "t1", Fingerprint: "fp", ExpiresAt: future}, "fp", true},
		{"expired", "d1", &models.TrustedDevice{ID: "t1", Fingerprint: "fp", ExpiresAt: past}, "fp", false},
		{"fingerprint changed", "d1", &models.TrustedDevice{ID: "t1", Fingerprint: "fp", ExpiresAt: future}, "other", false},
		{"no stored fingerprint", "d1", &models.TrustedDevice{ID: "t1", ExpiresAt: future}, "anything", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &MockTrustedDeviceRepository{
				GetFunc: func(context.Context, string, string) (*models.TrustedDevice, error) {
					if tt.stored == nil {
						return nil, models.ErrNotFound
					}
					return tt.stored, nil
				},
			}
			svc := newTestTrustedDeviceService(repo)

			assert.Equal(t, tt.want, svc.IsTrusted(context.Background(), "u1", tt.deviceID, tt.fingerprint))
			if tt.want {
				assert.Equal(t, 1, repo.Touched)
			}
		})
	}
}
