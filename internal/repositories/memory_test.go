package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/haulgate/internal/models"
)

func TestMemoryUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUserRepository()

	created, err := repo.Create(ctx, &models.User{Email: " Jane@Example.com ", PasswordHash: "h"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "jane@example.com", created.Email)
	assert.Equal(t, models.UserTypeCustomer, created.UserType)
	assert.Equal(t, models.StatusActive, created.Status)

	got, err := repo.GetByEmail(ctx, "JANE@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = repo.Create(ctx, &models.User{Email: "jane@example.com"})
	assert.ErrorIs(t, err, models.ErrConflict)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMemoryOTPChallengeRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryOTPChallengeRepository()
	now := time.Now()

	older := &models.OTPChallenge{UserID: "u1", SessionID: "s0", Email: "jane@example.com", ExpiresAt: now.Add(-time.Minute), CreatedAt: now.Add(-time.Hour)}
	newer := &models.OTPChallenge{UserID: "u1", SessionID: "s1", Email: "jane@example.com", ExpiresAt: now.Add(10 * time.Minute), CreatedAt: now}
	require.NoError(t, repo.Create(ctx, older))
	require.NoError(t, repo.Create(ctx, newer))
	assert.ErrorIs(t, repo.Create(ctx, &models.OTPChallenge{SessionID: "s1"}), models.ErrConflict)

	latest, err := repo.GetLatestPending(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, "s1", latest.SessionID)

	latest.Attempts = 2
	consumed := now
	latest.ConsumedAt = &consumed
	require.NoError(t, repo.Update(ctx, latest))

	got, err := repo.GetBySession(ctx, "u1", "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Attempts)
	assert.True(t, got.IsConsumed())

	pending, err := repo.GetLatestPending(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, "s0", pending.SessionID)

	n, err := repo.DeleteExpired(ctx, now.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = repo.GetBySession(ctx, "u1", "s1")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMemoryTrustedDeviceRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTrustedDeviceRepository()
	now := time.Now()

	first := &models.TrustedDevice{UserID: "u1", DeviceID: "d1", ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, repo.Upsert(ctx, first))

	second := &models.TrustedDevice{UserID: "u1", DeviceID: "d1", Fingerprint: "fp2", ExpiresAt: now.Add(2 * time.Hour)}
	require.NoError(t, repo.Upsert(ctx, second))
	assert.Equal(t, first.ID, second.ID, "upsert keeps the original row")

	got, err := repo.Get(ctx, "u1", "d1")
	require.NoError(t, err)
	assert.Equal(t, "fp2", got.Fingerprint)

	require.NoError(t, repo.Touch(ctx, got.ID, now.Add(time.Minute)))

	n, err := repo.DeleteExpired(ctx, now.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMemoryResendRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryResendRepository()
	now := time.Now()

	require.NoError(t, repo.RecordResend(ctx, "jane@example.com", now.Add(-20*time.Minute)))
	require.NoError(t, repo.RecordResend(ctx, "jane@example.com", now.Add(-time.Minute)))
	require.NoError(t, repo.RecordResend(ctx, "jane@example.com", now))

	count, err := repo.CountResends(ctx, "jane@example.com", now.Add(-15*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	n, err := repo.DeleteBefore(ctx, now.Add(-15*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
