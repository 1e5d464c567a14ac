package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tmcgavin/cyberlab/internal/database"
	"github.com/tmcgavin/cyberlab/internal/models"
)

type LoginAttemptRepository struct {
	db   *database.DB
	pool *pgxpool.Pool
}

func NewLoginAttemptRepository(db *database.DB) *LoginAttemptRepository {
	return &LoginAttemptRepository{db: db, pool: db.Pool}
}

func (r *LoginAttemptRepository) RecordAttempt(ctx context.Context, attempt *models.LoginAttempt) error {
	attempt.ID = uuid.New().String()
	if attempt.AttemptTime.IsZero() {
		attempt.AttemptTime = time.Now()
	}

	query := `
		INSERT INTO login_attempts (id, email, ip_address, user_agent, attempt_time, success, failure_reason, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		attempt.ID, attempt.Email, attempt.IPAddress, attempt.UserAgent,
		attempt.AttemptTime, attempt.Success, attempt.FailureReason, attempt.ExpiresAt,
	)
	if err != nil {
		return database.MapPostgresError(err)
	}
	return nil
}

// CountRecentFailures counts failed attempts for the (email, ip) pair
// inside the lookback window, ignoring anything before the most recent
// successful attempt. A success resets the failure budget.
func (r *LoginAttemptRepository) CountRecentFailures(ctx context.Context, email, ipAddress string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM login_attempts
		WHERE email = $1 AND ip_address = $2
		  AND success = FALSE
		  AND attempt_time > $3
		  AND attempt_time > COALESCE((
			SELECT MAX(attempt_time)
			FROM login_attempts
			WHERE email = $1 AND ip_address = $2 AND success = TRUE
		  ), 'epoch'::timestamptz)`

	var count int
	if err := r.pool.QueryRow(ctx, query, email, ipAddress, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count login failures: %w", err)
	}
	return count, nil
}

// FirstFailureSince returns the time of the oldest failure that counts
// toward the current budget. The lockout expiry is anchored to it.
func (r *LoginAttemptRepository) FirstFailureSince(ctx context.Context, email, ipAddress string, since time.Time) (*time.Time, error) {
	query := `
		SELECT MIN(attempt_time)
		FROM login_attempts
		WHERE email = $1 AND ip_address = $2
		  AND success = FALSE
		  AND attempt_time > $3
		  AND attempt_time > COALESCE((
			SELECT MAX(attempt_time)
			FROM login_attempts
			WHERE email = $1 AND ip_address = $2 AND success = TRUE
		  ), 'epoch'::timestamptz)`

	var first *time.Time
	if err := r.pool.QueryRow(ctx, query, email, ipAddress, since).Scan(&first); err != nil {
		return nil, fmt.Errorf("failed to find first failure: %w", err)
	}
	return first, nil
}

// DeleteExpired removes attempts past their retention window. Run from
// the background cleanup worker.
func (r *LoginAttemptRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM login_attempts WHERE expires_at < NOW()`)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return result.RowsAffected(), nil
}
