package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BradenHooton/haulgate/internal/database"
	"github.com/BradenHooton/haulgate/internal/models"
)

const trustedDeviceColumns = `id, user_id, device_id, device_name, fingerprint, expires_at, last_seen_at, created_at`

type TrustedDeviceRepository struct {
	pool *pgxpool.Pool
}

func NewTrustedDeviceRepository(db *database.DB) *TrustedDeviceRepository {
	return &TrustedDeviceRepository{pool: db.Pool}
}

// Upsert records trust for (user, device), extending an existing window.
func (r *TrustedDeviceRepository) Upsert(ctx context.Context, d *models.TrustedDevice) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	now := time.Now()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	if d.LastSeenAt.IsZero() {
		d.LastSeenAt = now
	}

	query := `
		INSERT INTO trusted_devices (` + trustedDeviceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, device_id) DO UPDATE
		SET device_name = EXCLUDED.device_name,
		    fingerprint = EXCLUDED.fingerprint,
		    expires_at = EXCLUDED.expires_at,
		    last_seen_at = EXCLUDED.last_seen_at`
	_, err := r.pool.Exec(ctx, query,
		d.ID, d.UserID, d.DeviceID, d.DeviceName, d.Fingerprint, d.ExpiresAt, d.LastSeenAt, d.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert trusted device: %w", database.MapPostgresError(err))
	}
	return nil
}

func (r *TrustedDeviceRepository) Get(ctx context.Context, userID, deviceID string) (*models.TrustedDevice, error) {
	query := `SELECT ` + trustedDeviceColumns + ` FROM trusted_devices WHERE user_id = $1 AND device_id = $2`

	var d models.TrustedDevice
	err := r.pool.QueryRow(ctx, query, userID, deviceID).Scan(
		&d.ID, &d.UserID, &d.DeviceID, &d.DeviceName, &d.Fingerprint, &d.ExpiresAt, &d.LastSeenAt, &d.CreatedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &d, nil
}

func (r *TrustedDeviceRepository) Touch(ctx context.Context, id string, seenAt time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE trusted_devices SET last_seen_at = $2 WHERE id = $1`, id, seenAt)
	return err
}

func (r *TrustedDeviceRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM trusted_devices WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired trusted devices: %w", err)
	}
	return tag.RowsAffected(), nil
}
