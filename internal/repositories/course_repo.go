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

type CourseRepository struct {
	db   *database.DB
	pool *pgxpool.Pool
}

func NewCourseRepository(db *database.DB) *CourseRepository {
	return &CourseRepository{db: db, pool: db.Pool}
}

const courseColumns = `id, slug, title, description, level, active, created_at, updated_at`

func scanCourseRow(scanner rowScanner) (*models.Course, error) {
	var course models.Course

	err := scanner.Scan(
		&course.ID, &course.Slug, &course.Title, &course.Description,
		&course.Level, &course.Active, &course.CreatedAt, &course.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &course, nil
}

func (r *CourseRepository) ListActive(ctx context.Context) ([]*models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE active = TRUE ORDER BY title`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query courses: %w", err)
	}
	defer rows.Close()

	courses := make([]*models.Course, 0)
	for rows.Next() {
		course, err := scanCourseRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan course: %w", err)
		}
		courses = append(courses, course)
	}

	return courses, rows.Err()
}

func (r *CourseRepository) GetByID(ctx context.Context, id string) (*models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE id = $1`
	return scanCourseRow(r.pool.QueryRow(ctx, query, id))
}

func (r *CourseRepository) GetBySlug(ctx context.Context, slug string) (*models.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE slug = $1`
	return scanCourseRow(r.pool.QueryRow(ctx, query, slug))
}

// GetDetail loads a course with its active modules and their active
// lessons, ordered by position.
func (r *CourseRepository) GetDetail(ctx context.Context, slug string) (*models.CourseDetail, error) {
	course, err := r.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	moduleQuery := `
		SELECT id, course_id, title, position, active
		FROM course_modules
		WHERE course_id = $1 AND active = TRUE
		ORDER BY position`

	rows, err := r.pool.Query(ctx, moduleQuery, course.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query modules: %w", err)
	}
	defer rows.Close()

	detail := &models.CourseDetail{Course: course, Modules: make([]*models.ModuleDetail, 0)}
	for rows.Next() {
		var mod models.CourseModule
		if err := rows.Scan(&mod.ID, &mod.CourseID, &mod.Title, &mod.Position, &mod.Active); err != nil {
			return nil, fmt.Errorf("failed to scan module: %w", err)
		}
		detail.Modules = append(detail.Modules, &models.ModuleDetail{Module: &mod, Lessons: make([]*models.Lesson, 0)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	lessonQuery := `
		SELECT l.id, l.module_id, l.title, l.position, l.duration_minutes, l.active
		FROM lessons l
		JOIN course_modules m ON m.id = l.module_id
		WHERE m.course_id = $1 AND m.active = TRUE AND l.active = TRUE
		ORDER BY m.position, l.position`

	lessonRows, err := r.pool.Query(ctx, lessonQuery, course.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query lessons: %w", err)
	}
	defer lessonRows.Close()

	byModule := make(map[string]int, len(detail.Modules))
	for i, mod := range detail.Modules {
		byModule[mod.Module.ID] = i
	}

	for lessonRows.Next() {
		var lesson models.Lesson
		if err := lessonRows.Scan(&lesson.ID, &lesson.ModuleID, &lesson.Title, &lesson.Position, &lesson.DurationMinutes, &lesson.Active); err != nil {
			return nil, fmt.Errorf("failed to scan lesson: %w", err)
		}
		if i, ok := byModule[lesson.ModuleID]; ok {
			detail.Modules[i].Lessons = append(detail.Modules[i].Lessons, &lesson)
		}
	}

	return detail, lessonRows.Err()
}

// GetLessonCourse resolves the owning course for a lesson. Inactive
// lessons and lessons under inactive modules do not resolve.
func (r *CourseRepository) GetLessonCourse(ctx context.Context, lessonID string) (*models.Course, error) {
	query := `
		SELECT c.id, c.slug, c.title, c.description, c.level, c.active, c.created_at, c.updated_at
		FROM courses c
		JOIN course_modules m ON m.course_id = c.id
		JOIN lessons l ON l.module_id = m.id
		WHERE l.id = $1 AND l.active = TRUE AND m.active = TRUE`

	return scanCourseRow(r.pool.QueryRow(ctx, query, lessonID))
}

// CountActiveLessons counts the lessons that participate in completion:
// active lessons under active modules of the course.
func (r *CourseRepository) CountActiveLessons(ctx context.Context, courseID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM lessons l
		JOIN course_modules m ON m.id = l.module_id
		WHERE m.course_id = $1 AND m.active = TRUE AND l.active = TRUE`

	var count int
	if err := r.pool.QueryRow(ctx, query, courseID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count lessons: %w", err)
	}
	return count, nil
}

func (r *CourseRepository) Create(ctx context.Context, course *models.Course) (*models.Course, error) {
	course.ID = uuid.New().String()

	now := time.Now()
	course.CreatedAt = now
	course.UpdatedAt = now

	query := `
		INSERT INTO courses (id, slug, title, description, level, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + courseColumns

	return scanCourseRow(r.pool.QueryRow(ctx, query,
		course.ID, course.Slug, course.Title, course.Description,
		course.Level, course.Active, course.CreatedAt, course.UpdatedAt,
	))
}

func (r *CourseRepository) CreateModule(ctx context.Context, mod *models.CourseModule) (*models.CourseModule, error) {
	mod.ID = uuid.New().String()

	query := `
		INSERT INTO course_modules (id, course_id, title, position, active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, course_id, title, position, active`

	var created models.CourseModule
	err := r.pool.QueryRow(ctx, query, mod.ID, mod.CourseID, mod.Title, mod.Position, mod.Active).
		Scan(&created.ID, &created.CourseID, &created.Title, &created.Position, &created.Active)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &created, nil
}

func (r *CourseRepository) CreateLesson(ctx context.Context, lesson *models.Lesson) (*models.Lesson, error) {
	lesson.ID = uuid.New().String()

	query := `
		INSERT INTO lessons (id, module_id, title, position, duration_minutes, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, module_id, title, position, duration_minutes, active`

	var created models.Lesson
	err := r.pool.QueryRow(ctx, query,
		lesson.ID, lesson.ModuleID, lesson.Title, lesson.Position, lesson.DurationMinutes, lesson.Active,
	).Scan(&created.ID, &created.ModuleID, &created.Title, &created.Position, &created.DurationMinutes, &created.Active)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &created, nil
}

func (r *CourseRepository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM courses WHERE active = TRUE`).Scan(&count)
	return count, err
}
