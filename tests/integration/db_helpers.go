package integration

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/tmcgavin/cyberlab/internal/database"
	"github.com/tmcgavin/cyberlab/internal/models"
	"github.com/tmcgavin/cyberlab/internal/repositories"
	"github.com/tmcgavin/cyberlab/pkg/auth"
)

// TestDB manages PostgreSQL testcontainer and database operations
type TestDB struct {
	Container  testcontainers.Container
	ConnString string
	Pool       *pgxpool.Pool
	DB         *database.DB
}

// SetupTestDatabase creates a PostgreSQL testcontainer, runs migrations, returns TestDB
func SetupTestDatabase(ctx context.Context) (*TestDB, error) {
	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("cyberlab"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(ctx, pool); err != nil {
		pool.Close()
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	dbWrapper := &database.DB{
		Pool: pool,
	}

	return &TestDB{
		Container:  container,
		ConnString: connStr,
		Pool:       pool,
		DB:         dbWrapper,
	}, nil
}

// runMigrations executes all goose migrations
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrationsDir, err := filepath.Abs("../../migrations")
	if err != nil {
		return fmt.Errorf("failed to get migrations path: %w", err)
	}

	// Suppress goose logs
	goose.SetLogger(log.New(nil, "", 0))

	// Goose needs a stdlib DB connection
	sqlDB := stdlib.OpenDB(*pool.Config().ConnConfig)
	defer sqlDB.Close()

	if err := goose.UpContext(ctx, sqlDB, migrationsDir); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}

// Teardown stops the container and closes the connection pool
func (db *TestDB) Teardown(ctx context.Context) error {
	if db.Pool != nil {
		db.Pool.Close()
	}
	if db.Container != nil {
		return db.Container.Terminate(ctx)
	}
	return nil
}

// CleanupTables truncates all tables for test isolation
func (db *TestDB) CleanupTables(ctx context.Context) error {
	tables := []string{
		"security_logs",
		"login_attempts",
		"certificates",
		"lesson_progress",
		"enrollments",
		"lessons",
		"course_modules",
		"courses",
		"users",
	}

	for _, table := range tables {
		if _, err := db.Pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return nil
}

// InitializeRepositories creates all repository instances from database wrapper
func InitializeRepositories(db *database.DB) (
	*repositories.UserRepository,
	*repositories.CourseRepository,
	*repositories.EnrollmentRepository,
	*repositories.LessonProgressRepository,
	*repositories.CertificateRepository,
	*repositories.LoginAttemptRepository,
	*repositories.SecurityLogRepository,
) {
	return repositories.NewUserRepository(db),
		repositories.NewCourseRepository(db),
		repositories.NewEnrollmentRepository(db),
		repositories.NewLessonProgressRepository(db),
		repositories.NewCertificateRepository(db),
		repositories.NewLoginAttemptRepository(db),
		repositories.NewSecurityLogRepository(db)
}

// SeedUser inserts a test user with hashed password
func SeedUser(ctx context.Context, pool *pgxpool.Pool, email, password, role string) (*models.User, error) {
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	query := `
		INSERT INTO users (email, password_hash, name, role, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'active', NOW(), NOW())
		RETURNING id, email, password_hash, name, role, status, created_at, updated_at
	`

	var user models.User
	err = pool.QueryRow(ctx, query, email, hashedPassword, "Test User", role).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Name,
		&user.Role,
		&user.Status,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	return &user, nil
}

// SeedCourse inserts a course with one module containing lessonCount lessons
// and returns the course plus the lesson IDs in position order.
func SeedCourse(ctx context.Context, pool *pgxpool.Pool, slug string, lessonCount int) (*models.Course, []string, error) {
	var course models.Course
	err := pool.QueryRow(ctx, `
		INSERT INTO courses (slug, title, description, level, active, created_at, updated_at)
		VALUES ($1, $2, 'seeded course', 'beginner', TRUE, NOW(), NOW())
		RETURNING id, slug, title, description, level, active, created_at, updated_at
	`, slug, "Course "+slug).Scan(
		&course.ID,
		&course.Slug,
		&course.Title,
		&course.Description,
		&course.Level,
		&course.Active,
		&course.CreatedAt,
		&course.UpdatedAt,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to insert course: %w", err)
	}

	var moduleID string
	err = pool.QueryRow(ctx, `
		INSERT INTO course_modules (course_id, title, position, active, created_at)
		VALUES ($1, 'Module 1', 1, TRUE, NOW())
		RETURNING id
	`, course.ID).Scan(&moduleID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to insert module: %w", err)
	}

	lessonIDs := make([]string, 0, lessonCount)
	for i := 1; i <= lessonCount; i++ {
		var lessonID string
		err = pool.QueryRow(ctx, `
			INSERT INTO lessons (module_id, title, position, duration_minutes, active, created_at)
			VALUES ($1, $2, $3, 10, TRUE, NOW())
			RETURNING id
		`, moduleID, fmt.Sprintf("Lesson %d", i), i).Scan(&lessonID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to insert lesson: %w", err)
		}
		lessonIDs = append(lessonIDs, lessonID)
	}

	return &course, lessonIDs, nil
}

// SeedEnrollment enrolls a user into a course directly
func SeedEnrollment(ctx context.Context, pool *pgxpool.Pool, userID, courseID string) (string, error) {
	var id string
	err := pool.QueryRow(ctx, `
		INSERT INTO enrollments (user_id, course_id, enrolled_at, completed)
		VALUES ($1, $2, NOW(), FALSE)
		RETURNING id
	`, userID, courseID).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to insert enrollment: %w", err)
	}
	return id, nil
}
