package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tmcgavin/cyberlab/internal/models"
	pkglogger "github.com/tmcgavin/cyberlab/pkg/logger"
)

// EnrollmentRepository defines the interface for enrollment storage
type EnrollmentRepository interface {
	Create(ctx context.Context, userID, courseID string) (*models.Enrollment, error)
	GetByUserCourse(ctx context.Context, userID, courseID string) (*models.Enrollment, error)
	ListByUser(ctx context.Context, userID string) ([]*models.EnrollmentWithCourse, error)
	MarkCompleted(ctx context.Context, userID, courseID string) error
}

// EnrollmentService handles course enrollment
type EnrollmentService struct {
	repo        EnrollmentRepository
	courseRepo  CourseRepository
	userRepo    UserRepository
	securityLog SecurityLogRepository
	email       EmailService
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewEnrollmentService creates a new EnrollmentService
func NewEnrollmentService(repo EnrollmentRepository, courseRepo CourseRepository, userRepo UserRepository, securityLog SecurityLogRepository, email EmailService, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *EnrollmentService {
	return &EnrollmentService{
		repo:        repo,
		courseRepo:  courseRepo,
		userRepo:    userRepo,
		securityLog: securityLog,
		email:       email,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// Enroll adds the user to an active course. Enrolling twice in the same
// course is a conflict.
func (s *EnrollmentService) Enroll(ctx context.Context, userID, courseSlug string, meta RequestMeta) (*models.Enrollment, error) {
	course, err := s.courseRepo.GetBySlug(ctx, courseSlug)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get course", slog.String("slug", courseSlug), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if !course.Active {
		return nil, models.ErrNotFound
	}

	enrollment, err := s.repo.Create(ctx, userID, course.ID)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create enrollment",
			slog.String("user_id", userID),
			slog.String("course_id", course.ID),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user enrolled",
		slog.String("user_id", userID),
		slog.String("course_id", course.ID))
	s.auditLogger.LogCourseEvent("user_enrolled", userID, course.ID, nil)

	entry := &models.SecurityLog{
		EventType:   models.SecurityEventUserEnrolled,
		UserID:      &userID,
		Description: "user enrolled in course",
		IPAddress:   meta.IPAddress,
		UserAgent:   meta.UserAgent,
		Metadata:    models.LogMetadata{"course_id": course.ID, "course_slug": course.Slug},
	}
	if err := s.securityLog.Insert(ctx, entry); err != nil {
		s.logger.Error("failed to write security log entry", slog.Any("error", err))
	}

	// Confirmation email is best effort
	if user, err := s.userRepo.GetByID(ctx, userID); err == nil {
		if err := s.email.SendEnrollmentEmail(ctx, user.Email, user.Name, course.Title); err != nil {
			s.logger.Error("failed to send enrollment email", slog.Any("error", err))
		}
	}

	return enrollment, nil
}

// ListEnrollments returns the user's enrollments with course info
func (s *EnrollmentService) ListEnrollments(ctx context.Context, userID string) ([]*models.EnrollmentWithCourse, error) {
	enrollments, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list enrollments", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return enrollments, nil
}
