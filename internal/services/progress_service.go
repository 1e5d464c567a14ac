package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tmcgavin/cyberlab/internal/models"
)

// LessonProgressRepository defines the interface for lesson progress storage
type LessonProgressRepository interface {
	Upsert(ctx context.Context, userID, lessonID string) (*models.LessonProgress, error)
	CountCompletedActive(ctx context.Context, userID, courseID string) (int, error)
	ListByUserCourse(ctx context.Context, userID, courseID string) ([]*models.LessonProgress, error)
}

// CertificateIssuer issues a certificate once a course is complete
type CertificateIssuer interface {
	IssueForCompletion(ctx context.Context, userID, courseID string) (*models.Certificate, error)
}

// ProgressResult is returned after marking a lesson complete
type ProgressResult struct {
	Progress        *models.LessonProgress  `json:"progress"`
	Completion      *models.CompletionState `json:"completion"`
	CourseCompleted bool                    `json:"course_completed"`
	Certificate     *models.Certificate     `json:"certificate,omitempty"`
}

// ProgressService tracks lesson completion and drives the course
// completion workflow
type ProgressService struct {
	repo           LessonProgressRepository
	courseRepo     CourseRepository
	enrollmentRepo EnrollmentRepository
	issuer         CertificateIssuer
	logger         *slog.Logger
}

// NewProgressService creates a new ProgressService
func NewProgressService(repo LessonProgressRepository, courseRepo CourseRepository, enrollmentRepo EnrollmentRepository, issuer CertificateIssuer, logger *slog.Logger) *ProgressService {
	return &ProgressService{
		repo:           repo,
		courseRepo:     courseRepo,
		enrollmentRepo: enrollmentRepo,
		issuer:         issuer,
		logger:         logger,
	}
}

// MarkLessonComplete records lesson completion for an enrolled user and
// re-evaluates course completion. Completion is computed from stored
// progress, never from client-supplied totals. When the last active
// lesson is done the enrollment flips to completed and a certificate is
// issued.
func (s *ProgressService) MarkLessonComplete(ctx context.Context, userID, lessonID string) (*ProgressResult, error) {
	course, err := s.courseRepo.GetLessonCourse(ctx, lessonID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to resolve lesson course", slog.String("lesson_id", lessonID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if _, err := s.enrollmentRepo.GetByUserCourse(ctx, userID, course.ID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotEnrolled
		}
		s.logger.Error("failed to check enrollment", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	progress, err := s.repo.Upsert(ctx, userID, lessonID)
	if err != nil {
		s.logger.Error("failed to record lesson progress",
			slog.String("user_id", userID),
			slog.String("lesson_id", lessonID),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	state, err := s.EvaluateCompletion(ctx, userID, course.ID)
	if err != nil {
		return nil, err
	}

	result := &ProgressResult{
		Progress:   progress,
		Completion: state,
	}

	if !state.Done() {
		return result, nil
	}

	if err := s.enrollmentRepo.MarkCompleted(ctx, userID, course.ID); err != nil {
		s.logger.Error("failed to mark enrollment completed",
			slog.String("user_id", userID),
			slog.String("course_id", course.ID),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	result.CourseCompleted = true

	cert, err := s.issuer.IssueForCompletion(ctx, userID, course.ID)
	if err != nil {
		// Completion stands even if issuance fails; the user can
		// request the certificate again from the certificates endpoint.
		s.logger.Error("failed to issue certificate on completion",
			slog.String("user_id", userID),
			slog.String("course_id", course.ID),
			slog.Any("error", err))
		return result, nil
	}
	result.Certificate = cert

	s.logger.Info("course completed",
		slog.String("user_id", userID),
		slog.String("course_id", course.ID))

	return result, nil
}

// EvaluateCompletion computes the user's completion state for a course
// from stored progress. Only active lessons of active modules count, on
// both sides of the comparison.
func (s *ProgressService) EvaluateCompletion(ctx context.Context, userID, courseID string) (*models.CompletionState, error) {
	total, err := s.courseRepo.CountActiveLessons(ctx, courseID)
	if err != nil {
		s.logger.Error("failed to count course lessons", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	completed, err := s.repo.CountCompletedActive(ctx, userID, courseID)
	if err != nil {
		s.logger.Error("failed to count completed lessons", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return &models.CompletionState{
		TotalLessons:     total,
		CompletedLessons: completed,
	}, nil
}

// GetCourseProgress returns completion state plus per-lesson entries
func (s *ProgressService) GetCourseProgress(ctx context.Context, userID, courseSlug string) (*models.CompletionState, []*models.LessonProgress, error) {
	course, err := s.courseRepo.GetBySlug(ctx, courseSlug)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil, models.ErrNotFound
		}
		return nil, nil, models.ErrInternalServer
	}

	state, err := s.EvaluateCompletion(ctx, userID, course.ID)
	if err != nil {
		return nil, nil, err
	}

	entries, err := s.repo.ListByUserCourse(ctx, userID, course.ID)
	if err != nil {
		s.logger.Error("failed to list lesson progress", slog.Any("error", err))
		return nil, nil, models.ErrInternalServer
	}

	return state, entries, nil
}
