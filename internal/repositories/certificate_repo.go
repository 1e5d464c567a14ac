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

type CertificateRepository struct {
	db   *database.DB
	pool *pgxpool.Pool
}

func NewCertificateRepository(db *database.DB) *CertificateRepository {
	return &CertificateRepository{db: db, pool: db.Pool}
}

const certificateColumns = `id, user_id, course_id, number, issued_at, approved, approved_by, approved_at`

func scanCertificateRow(scanner rowScanner) (*models.Certificate, error) {
	var cert models.Certificate

	err := scanner.Scan(
		&cert.ID, &cert.UserID, &cert.CourseID, &cert.Number,
		&cert.IssuedAt, &cert.Approved, &cert.ApprovedBy, &cert.ApprovedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &cert, nil
}

// Create inserts a certificate. The unique (user_id, course_id) index is
// the authority on double issuance: a concurrent duplicate surfaces as
// models.ErrConflict for the caller to treat as already issued.
func (r *CertificateRepository) Create(ctx context.Context, cert *models.Certificate) (*models.Certificate, error) {
	cert.ID = uuid.New().String()
	if cert.IssuedAt.IsZero() {
		cert.IssuedAt = time.Now()
	}

	query := `
		INSERT INTO certificates (id, user_id, course_id, number, issued_at, approved, approved_by, approved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + certificateColumns

	return scanCertificateRow(r.pool.QueryRow(ctx, query,
		cert.ID, cert.UserID, cert.CourseID, cert.Number,
		cert.IssuedAt, cert.Approved, cert.ApprovedBy, cert.ApprovedAt,
	))
}

func (r *CertificateRepository) GetByID(ctx context.Context, id string) (*models.Certificate, error) {
	query := `SELECT ` + certificateColumns + ` FROM certificates WHERE id = $1`
	return scanCertificateRow(r.pool.QueryRow(ctx, query, id))
}

func (r *CertificateRepository) GetByUserCourse(ctx context.Context, userID, courseID string) (*models.Certificate, error) {
	query := `SELECT ` + certificateColumns + ` FROM certificates WHERE user_id = $1 AND course_id = $2`
	return scanCertificateRow(r.pool.QueryRow(ctx, query, userID, courseID))
}

func (r *CertificateRepository) GetByNumber(ctx context.Context, number string) (*models.CertificateWithCourse, error) {
	query := `
		SELECT c.id, c.user_id, c.course_id, c.number, c.issued_at, c.approved, c.approved_by, c.approved_at,
		       co.title, u.name
		FROM certificates c
		JOIN courses co ON co.id = c.course_id
		JOIN users u ON u.id = c.user_id
		WHERE c.number = $1`

	var cert models.CertificateWithCourse
	err := r.pool.QueryRow(ctx, query, number).Scan(
		&cert.ID, &cert.UserID, &cert.CourseID, &cert.Number,
		&cert.IssuedAt, &cert.Approved, &cert.ApprovedBy, &cert.ApprovedAt,
		&cert.CourseTitle, &cert.HolderName,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &cert, nil
}

func (r *CertificateRepository) ListByUser(ctx context.Context, userID string) ([]*models.CertificateWithCourse, error) {
	query := `
		SELECT c.id, c.user_id, c.course_id, c.number, c.issued_at, c.approved, c.approved_by, c.approved_at,
		       co.title, u.name
		FROM certificates c
		JOIN courses co ON co.id = c.course_id
		JOIN users u ON u.id = c.user_id
		WHERE c.user_id = $1
		ORDER BY c.issued_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query certificates: %w", err)
	}
	defer rows.Close()

	certs := make([]*models.CertificateWithCourse, 0)
	for rows.Next() {
		var cert models.CertificateWithCourse
		err := rows.Scan(
			&cert.ID, &cert.UserID, &cert.CourseID, &cert.Number,
			&cert.IssuedAt, &cert.Approved, &cert.ApprovedBy, &cert.ApprovedAt,
			&cert.CourseTitle, &cert.HolderName,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan certificate: %w", err)
		}
		certs = append(certs, &cert)
	}

	return certs, rows.Err()
}

func (r *CertificateRepository) ListPending(ctx context.Context, limit, offset int) ([]*models.CertificateWithCourse, error) {
	query := `
		SELECT c.id, c.user_id, c.course_id, c.number, c.issued_at, c.approved, c.approved_by, c.approved_at,
		       co.title, u.name
		FROM certificates c
		JOIN courses co ON co.id = c.course_id
		JOIN users u ON u.id = c.user_id
		WHERE c.approved = FALSE
		ORDER BY c.issued_at
		LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending certificates: %w", err)
	}
	defer rows.Close()

	certs := make([]*models.CertificateWithCourse, 0)
	for rows.Next() {
		var cert models.CertificateWithCourse
		err := rows.Scan(
			&cert.ID, &cert.UserID, &cert.CourseID, &cert.Number,
			&cert.IssuedAt, &cert.Approved, &cert.ApprovedBy, &cert.ApprovedAt,
			&cert.CourseTitle, &cert.HolderName,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan certificate: %w", err)
		}
		certs = append(certs, &cert)
	}

	return certs, rows.Err()
}

// Approve matches pending rows only, so the first approver wins.
func (r *CertificateRepository) Approve(ctx context.Context, certID, approverID string) (*models.Certificate, error) {
	query := `
		UPDATE certificates
		SET approved = TRUE, approved_by = $2, approved_at = $3
		WHERE id = $1 AND approved = FALSE
		RETURNING ` + certificateColumns

	return scanCertificateRow(r.pool.QueryRow(ctx, query, certID, approverID, time.Now()))
}

func (r *CertificateRepository) CountIssuedSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM certificates WHERE issued_at >= $1`, since).Scan(&count)
	return count, err
}
