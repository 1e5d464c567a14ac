package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tmcgavin/cyberlab/internal/models"
)

// CourseRepository defines the interface for course catalog storage
type CourseRepository interface {
	ListActive(ctx context.Context) ([]*models.Course, error)
	GetByID(ctx context.Context, id string) (*models.Course, error)
	GetBySlug(ctx context.Context, slug string) (*models.Course, error)
	GetDetail(ctx context.Context, slug string) (*models.CourseDetail, error)
	GetLessonCourse(ctx context.Context, lessonID string) (*models.Course, error)
	CountActiveLessons(ctx context.Context, courseID string) (int, error)
	Create(ctx context.Context, course *models.Course) (*models.Course, error)
	CreateModule(ctx context.Context, mod *models.CourseModule) (*models.CourseModule, error)
	CreateLesson(ctx context.Context, lesson *models.Lesson) (*models.Lesson, error)
}

// CatalogService serves the public course catalog
type CatalogService struct {
	repo   CourseRepository
	logger *slog.Logger
}

// NewCatalogService creates a new CatalogService
func NewCatalogService(repo CourseRepository, logger *slog.Logger) *CatalogService {
	return &CatalogService{repo: repo, logger: logger}
}

// ListCourses returns all active courses
func (s *CatalogService) ListCourses(ctx context.Context) ([]*models.Course, error) {
	courses, err := s.repo.ListActive(ctx)
	if err != nil {
		s.logger.Error("failed to list courses", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return courses, nil
}

// GetCourse returns an active course with its modules and lessons
func (s *CatalogService) GetCourse(ctx context.Context, slug string) (*models.CourseDetail, error) {
	detail, err := s.repo.GetDetail(ctx, slug)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get course", slog.String("slug", slug), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	// Inactive courses are hidden from the catalog
	if !detail.Course.Active {
		return nil, models.ErrNotFound
	}

	return detail, nil
}

// CreateCourse publishes a new course
func (s *CatalogService) CreateCourse(ctx context.Context, course *models.Course) (*models.Course, error) {
	created, err := s.repo.Create(ctx, course)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create course", slog.String("slug", course.Slug), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("course created", slog.String("course_id", created.ID), slog.String("slug", created.Slug))
	return created, nil
}

// AddModule appends a module to an existing course
func (s *CatalogService) AddModule(ctx context.Context, mod *models.CourseModule) (*models.CourseModule, error) {
	if _, err := s.repo.GetByID(ctx, mod.CourseID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, models.ErrInternalServer
	}

	created, err := s.repo.CreateModule(ctx, mod)
	if err != nil {
		s.logger.Error("failed to create module", slog.String("course_id", mod.CourseID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return created, nil
}

// AddLesson appends a lesson to an existing module
func (s *CatalogService) AddLesson(ctx context.Context, lesson *models.Lesson) (*models.Lesson, error) {
	created, err := s.repo.CreateLesson(ctx, lesson)
	if err != nil {
		// Unknown module surfaces as a foreign key violation
		if errors.Is(err, models.ErrBadRequest) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to create lesson", slog.String("module_id", lesson.ModuleID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return created, nil
}
