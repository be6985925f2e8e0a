package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/haulgate/internal/database"
)

// ResendRepository records code resends for per-email rate limiting.
type ResendRepository struct {
	db *database.DB
}

func NewResendRepository(db *database.DB) *ResendRepository {
	return &ResendRepository{db: db}
}

func (r *ResendRepository) RecordResend(ctx context.Context, email string, at time.Time) error {
	_, err := r.db.Pool.Exec(ctx, `INSERT INTO otp_resends (email, sent_at) VALUES ($1, $2)`, email, at)
	return err
}

func (r *ResendRepository) CountResends(ctx context.Context, email string, since time.Time) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM otp_resends WHERE email = $1 AND sent_at >= $2`, email, since).Scan(&count)
	return count, err
}

func (r *ResendRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM otp_resends WHERE sent_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old resend records: %w", err)
	}
	return tag.RowsAffected(), nil
}
