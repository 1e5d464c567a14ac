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

type SecurityLogRepository struct {
	db   *database.DB
	pool *pgxpool.Pool
}

func NewSecurityLogRepository(db *database.DB) *SecurityLogRepository {
	return &SecurityLogRepository{db: db, pool: db.Pool}
}

const securityLogColumns = `id, event_type, user_id, description, ip_address, user_agent, metadata, created_at`

func scanSecurityLogRow(scanner rowScanner) (*models.SecurityLog, error) {
	var entry models.SecurityLog

	err := scanner.Scan(
		&entry.ID, &entry.EventType, &entry.UserID, &entry.Description,
		&entry.IPAddress, &entry.UserAgent, &entry.Metadata, &entry.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &entry, nil
}

func (r *SecurityLogRepository) Insert(ctx context.Context, entry *models.SecurityLog) error {
	entry.ID = uuid.New().String()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO security_logs (id, event_type, user_id, description, ip_address, user_agent, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		entry.ID, entry.EventType, entry.UserID, entry.Description,
		entry.IPAddress, entry.UserAgent, entry.Metadata, entry.CreatedAt,
	)
	if err != nil {
		return database.MapPostgresError(err)
	}
	return nil
}

func (r *SecurityLogRepository) ListRecent(ctx context.Context, limit, offset int) ([]*models.SecurityLog, error) {
	query := `SELECT ` + securityLogColumns + ` FROM security_logs ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query security logs: %w", err)
	}
	defer rows.Close()

	entries := make([]*models.SecurityLog, 0)
	for rows.Next() {
		entry, err := scanSecurityLogRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan security log: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

func (r *SecurityLogRepository) ListByEventType(ctx context.Context, eventType string, limit, offset int) ([]*models.SecurityLog, error) {
	query := `
		SELECT ` + securityLogColumns + `
		FROM security_logs
		WHERE event_type = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, eventType, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query security logs: %w", err)
	}
	defer rows.Close()

	entries := make([]*models.SecurityLog, 0)
	for rows.Next() {
		entry, err := scanSecurityLogRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan security log: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

func (r *SecurityLogRepository) CountTodayByEventType(ctx context.Context, eventType string) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM security_logs
		WHERE event_type = $1 AND created_at >= date_trunc('day', NOW())`

	var count int64
	err := r.pool.QueryRow(ctx, query, eventType).Scan(&count)
	return count, err
}
