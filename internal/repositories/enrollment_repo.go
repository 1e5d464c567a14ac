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

type EnrollmentRepository struct {
	db   *database.DB
	pool *pgxpool.Pool
}

func NewEnrollmentRepository(db *database.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db, pool: db.Pool}
}

const enrollmentColumns = `id, user_id, course_id, enrolled_at, completed, completed_at`

func scanEnrollmentRow(scanner rowScanner) (*models.Enrollment, error) {
	var enrollment models.Enrollment

	err := scanner.Scan(
		&enrollment.ID, &enrollment.UserID, &enrollment.CourseID,
		&enrollment.EnrolledAt, &enrollment.Completed, &enrollment.CompletedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &enrollment, nil
}

// Create inserts a new enrollment. The unique (user_id, course_id)
// index surfaces duplicates as models.ErrConflict.
func (r *EnrollmentRepository) Create(ctx context.Context, userID, courseID string) (*models.Enrollment, error) {
	query := `
		INSERT INTO enrollments (id, user_id, course_id, enrolled_at, completed)
		VALUES ($1, $2, $3, $4, FALSE)
		RETURNING ` + enrollmentColumns

	return scanEnrollmentRow(r.pool.QueryRow(ctx, query, uuid.New().String(), userID, courseID, time.Now()))
}

func (r *EnrollmentRepository) GetByUserCourse(ctx context.Context, userID, courseID string) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE user_id = $1 AND course_id = $2`
	return scanEnrollmentRow(r.pool.QueryRow(ctx, query, userID, courseID))
}

func (r *EnrollmentRepository) ListByUser(ctx context.Context, userID string) ([]*models.EnrollmentWithCourse, error) {
	query := `
		SELECT e.id, e.user_id, e.course_id, e.enrolled_at, e.completed, e.completed_at,
		       c.slug, c.title, c.level
		FROM enrollments e
		JOIN courses c ON c.id = e.course_id
		WHERE e.user_id = $1
		ORDER BY e.enrolled_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query enrollments: %w", err)
	}
	defer rows.Close()

	enrollments := make([]*models.EnrollmentWithCourse, 0)
	for rows.Next() {
		var e models.EnrollmentWithCourse
		err := rows.Scan(
			&e.ID, &e.UserID, &e.CourseID, &e.EnrolledAt, &e.Completed, &e.CompletedAt,
			&e.CourseSlug, &e.CourseTitle, &e.CourseLevel,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan enrollment: %w", err)
		}
		enrollments = append(enrollments, &e)
	}

	return enrollments, rows.Err()
}

// MarkCompleted flips an enrollment to completed. The WHERE guard keeps
// the original completion timestamp on repeat calls.
func (r *EnrollmentRepository) MarkCompleted(ctx context.Context, userID, courseID string) error {
	query := `
		UPDATE enrollments
		SET completed = TRUE, completed_at = $3
		WHERE user_id = $1 AND course_id = $2 AND completed = FALSE`

	_, err := r.pool.Exec(ctx, query, userID, courseID, time.Now())
	if err != nil {
		return database.MapPostgresError(err)
	}
	return nil
}

func (r *EnrollmentRepository) CountTotal(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM enrollments`).Scan(&count)
	return count, err
}

func (r *EnrollmentRepository) CountCompleted(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM enrollments WHERE completed = TRUE`).Scan(&count)
	return count, err
}
