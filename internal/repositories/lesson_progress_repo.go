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

type LessonProgressRepository struct {
	db   *database.DB
	pool *pgxpool.Pool
}

func NewLessonProgressRepository(db *database.DB) *LessonProgressRepository {
	return &LessonProgressRepository{db: db, pool: db.Pool}
}

// Upsert records a completed lesson for the user. Re-completing a
// lesson keeps the single row and refreshes its completion timestamp.
func (r *LessonProgressRepository) Upsert(ctx context.Context, userID, lessonID string) (*models.LessonProgress, error) {
	query := `
		INSERT INTO lesson_progress (id, user_id, lesson_id, completed, completed_at)
		VALUES ($1, $2, $3, TRUE, $4)
		ON CONFLICT (user_id, lesson_id) DO UPDATE SET completed = TRUE, completed_at = EXCLUDED.completed_at
		RETURNING id, user_id, lesson_id, completed, completed_at`

	var progress models.LessonProgress
	err := r.pool.QueryRow(ctx, query, uuid.New().String(), userID, lessonID, time.Now()).Scan(
		&progress.ID, &progress.UserID, &progress.LessonID,
		&progress.Completed, &progress.CompletedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &progress, nil
}

// CountCompletedActive counts the user's completed lessons that still
// count toward the course: rows for inactive lessons or lessons under
// inactive modules are excluded so deactivated content cannot satisfy
// completion.
func (r *LessonProgressRepository) CountCompletedActive(ctx context.Context, userID, courseID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM lesson_progress p
		JOIN lessons l ON l.id = p.lesson_id
		JOIN course_modules m ON m.id = l.module_id
		WHERE p.user_id = $1 AND m.course_id = $2
		  AND p.completed = TRUE AND l.active = TRUE AND m.active = TRUE`

	var count int
	if err := r.pool.QueryRow(ctx, query, userID, courseID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count completed lessons: %w", err)
	}
	return count, nil
}

func (r *LessonProgressRepository) ListByUserCourse(ctx context.Context, userID, courseID string) ([]*models.LessonProgress, error) {
	query := `
		SELECT p.id, p.user_id, p.lesson_id, p.completed, p.completed_at
		FROM lesson_progress p
		JOIN lessons l ON l.id = p.lesson_id
		JOIN course_modules m ON m.id = l.module_id
		WHERE p.user_id = $1 AND m.course_id = $2
		ORDER BY p.completed_at`

	rows, err := r.pool.Query(ctx, query, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query lesson progress: %w", err)
	}
	defer rows.Close()

	entries := make([]*models.LessonProgress, 0)
	for rows.Next() {
		var p models.LessonProgress
		if err := rows.Scan(&p.ID, &p.UserID, &p.LessonID, &p.Completed, &p.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan lesson progress: %w", err)
		}
		entries = append(entries, &p)
	}

	return entries, rows.Err()
}
