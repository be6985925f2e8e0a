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

const challengeColumns = `id, user_id, session_id, email, code_hash, attempts, expires_at, last_sent_at, consumed_at, created_at`

// OTPChallengeRepository stores issued login codes.
type OTPChallengeRepository struct {
	pool *pgxpool.Pool
}

func NewOTPChallengeRepository(db *database.DB) *OTPChallengeRepository {
	return &OTPChallengeRepository{pool: db.Pool}
}

func scanChallenge(scanner rowScanner) (*models.OTPChallenge, error) {
	var c models.OTPChallenge
	err := scanner.Scan(
		&c.ID, &c.UserID, &c.SessionID, &c.Email, &c.CodeHash, &c.Attempts,
		&c.ExpiresAt, &c.LastSentAt, &c.ConsumedAt, &c.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &c, nil
}

func (r *OTPChallengeRepository) Create(ctx context.Context, c *models.OTPChallenge) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	query := `INSERT INTO otp_challenges (` + challengeColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.pool.Exec(ctx, query,
		c.ID, c.UserID, c.SessionID, c.Email, c.CodeHash, c.Attempts,
		c.ExpiresAt, c.LastSentAt, c.ConsumedAt, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create otp challenge: %w", database.MapPostgresError(err))
	}
	return nil
}

func (r *OTPChallengeRepository) GetBySession(ctx context.Context, userID, sessionID string) (*models.OTPChallenge, error) {
	query := `SELECT ` + challengeColumns + ` FROM otp_challenges WHERE user_id = $1 AND session_id = $2`
	return scanChallenge(r.pool.QueryRow(ctx, query, userID, sessionID))
}

// GetLatestPending returns the newest unconsumed challenge for email, expired or not.
func (r *OTPChallengeRepository) GetLatestPending(ctx context.Context, email string) (*models.OTPChallenge, error) {
	query := `
		SELECT ` + challengeColumns + ` FROM otp_challenges
		WHERE email = $1 AND consumed_at IS NULL
		ORDER BY created_at DESC
		LIMIT 1`
	return scanChallenge(r.pool.QueryRow(ctx, query, email))
}

func (r *OTPChallengeRepository) Update(ctx context.Context, c *models.OTPChallenge) error {
	query := `
		UPDATE otp_challenges
		SET code_hash = $2, attempts = $3, expires_at = $4, last_sent_at = $5, consumed_at = $6
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, c.ID, c.CodeHash, c.Attempts, c.ExpiresAt, c.LastSentAt, c.ConsumedAt)
	if err != nil {
		return fmt.Errorf("failed to update otp challenge: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// DeleteExpired removes challenges that expired or were consumed before cutoff.
func (r *OTPChallengeRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM otp_challenges WHERE expires_at < $1 OR consumed_at < $1`
	tag, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired otp challenges: %w", err)
	}
	return tag.RowsAffected(), nil
}
