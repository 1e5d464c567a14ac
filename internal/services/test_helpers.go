package services

import (
	"context"
	"time"

	"github.com/tmcgavin/cyberlab/internal/models"
)

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	GetByIDFunc       func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc    func(ctx context.Context, email string) (*models.User, error)
	CreateFunc        func(ctx context.Context, user *models.User) (*models.User, error)
	ListFunc          func(ctx context.Context, limit, offset int) ([]*models.User, error)
	DeleteCascadeFunc func(ctx context.Context, id string) error
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	return []*models.User{}, nil
}

func (m *MockUserRepository) DeleteCascade(ctx context.Context, id string) error {
	if m.DeleteCascadeFunc != nil {
		return m.DeleteCascadeFunc(ctx, id)
	}
	return nil
}

// MockRateLimitRepository implements RateLimitRepository for testing
type MockRateLimitRepository struct {
	RecordAttemptFunc       func(ctx context.Context, attempt *models.LoginAttempt) error
	CountRecentFailuresFunc func(ctx context.Context, email, ipAddress string, since time.Time) (int, error)
	FirstFailureSinceFunc   func(ctx context.Context, email, ipAddress string, since time.Time) (*time.Time, error)
}

func (m *MockRateLimitRepository) RecordAttempt(ctx context.Context, attempt *models.LoginAttempt) error {
	if m.RecordAttemptFunc != nil {
		return m.RecordAttemptFunc(ctx, attempt)
	}
	return nil
}

func (m *MockRateLimitRepository) CountRecentFailures(ctx context.Context, email, ipAddress string, since time.Time) (int, error) {
	if m.CountRecentFailuresFunc != nil {
		return m.CountRecentFailuresFunc(ctx, email, ipAddress, since)
	}
	return 0, nil
}

func (m *MockRateLimitRepository) FirstFailureSince(ctx context.Context, email, ipAddress string, since time.Time) (*time.Time, error) {
	if m.FirstFailureSinceFunc != nil {
		return m.FirstFailureSinceFunc(ctx, email, ipAddress, since)
	}
	return nil, nil
}

// MockSecurityLogRepository implements SecurityLogRepository and
// SecurityLogReader for testing
type MockSecurityLogRepository struct {
	InsertFunc                func(ctx context.Context, entry *models.SecurityLog) error
	ListRecentFunc            func(ctx context.Context, limit, offset int) ([]*models.SecurityLog, error)
	ListByEventTypeFunc       func(ctx context.Context, eventType string, limit, offset int) ([]*models.SecurityLog, error)
	CountTodayByEventTypeFunc func(ctx context.Context, eventType string) (int64, error)

	Inserted []*models.SecurityLog
}

func (m *MockSecurityLogRepository) Insert(ctx context.Context, entry *models.SecurityLog) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, entry)
	}
	m.Inserted = append(m.Inserted, entry)
	return nil
}

func (m *MockSecurityLogRepository) ListRecent(ctx context.Context, limit, offset int) ([]*models.SecurityLog, error) {
	if m.ListRecentFunc != nil {
		return m.ListRecentFunc(ctx, limit, offset)
	}
	return []*models.SecurityLog{}, nil
}

func (m *MockSecurityLogRepository) ListByEventType(ctx context.Context, eventType string, limit, offset int) ([]*models.SecurityLog, error) {
	if m.ListByEventTypeFunc != nil {
		return m.ListByEventTypeFunc(ctx, eventType, limit, offset)
	}
	return []*models.SecurityLog{}, nil
}

func (m *MockSecurityLogRepository) CountTodayByEventType(ctx context.Context, eventType string) (int64, error) {
	if m.CountTodayByEventTypeFunc != nil {
		return m.CountTodayByEventTypeFunc(ctx, eventType)
	}
	return 0, nil
}

// MockCourseRepository implements CourseRepository for testing
type MockCourseRepository struct {
	ListActiveFunc         func(ctx context.Context) ([]*models.Course, error)
	GetByIDFunc            func(ctx context.Context, id string) (*models.Course, error)
	GetBySlugFunc          func(ctx context.Context, slug string) (*models.Course, error)
	GetDetailFunc          func(ctx context.Context, slug string) (*models.CourseDetail, error)
	GetLessonCourseFunc    func(ctx context.Context, lessonID string) (*models.Course, error)
	CountActiveLessonsFunc func(ctx context.Context, courseID string) (int, error)
	CreateFunc             func(ctx context.Context, course *models.Course) (*models.Course, error)
	CreateModuleFunc       func(ctx context.Context, mod *models.CourseModule) (*models.CourseModule, error)
	CreateLessonFunc       func(ctx context.Context, lesson *models.Lesson) (*models.Lesson, error)
}

func (m *MockCourseRepository) ListActive(ctx context.Context) ([]*models.Course, error) {
	if m.ListActiveFunc != nil {
		return m.ListActiveFunc(ctx)
	}
	return []*models.Course{}, nil
}

func (m *MockCourseRepository) GetByID(ctx context.Context, id string) (*models.Course, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockCourseRepository) GetBySlug(ctx context.Context, slug string) (*models.Course, error) {
	if m.GetBySlugFunc != nil {
		return m.GetBySlugFunc(ctx, slug)
	}
	return nil, models.ErrNotFound
}

func (m *MockCourseRepository) GetDetail(ctx context.Context, slug string) (*models.CourseDetail, error) {
	if m.GetDetailFunc != nil {
		return m.GetDetailFunc(ctx, slug)
	}
	return nil, models.ErrNotFound
}

func (m *MockCourseRepository) GetLessonCourse(ctx context.Context, lessonID string) (*models.Course, error) {
	if m.GetLessonCourseFunc != nil {
		return m.GetLessonCourseFunc(ctx, lessonID)
	}
	return nil, models.ErrNotFound
}

func (m *MockCourseRepository) CountActiveLessons(ctx context.Context, courseID string) (int, error) {
	if m.CountActiveLessonsFunc != nil {
		return m.CountActiveLessonsFunc(ctx, courseID)
	}
	return 0, nil
}

func (m *MockCourseRepository) Create(ctx context.Context, course *models.Course) (*models.Course, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, course)
	}
	return nil, models.ErrInternalServer
}

func (m *MockCourseRepository) CreateModule(ctx context.Context, mod *models.CourseModule) (*models.CourseModule, error) {
	if m.CreateModuleFunc != nil {
		return m.CreateModuleFunc(ctx, mod)
	}
	return nil, models.ErrInternalServer
}

func (m *MockCourseRepository) CreateLesson(ctx context.Context, lesson *models.Lesson) (*models.Lesson, error) {
	if m.CreateLessonFunc != nil {
		return m.CreateLessonFunc(ctx, lesson)
	}
	return nil, models.ErrInternalServer
}

// MockEnrollmentRepository implements EnrollmentRepository for testing
type MockEnrollmentRepository struct {
	CreateFunc          func(ctx context.Context, userID, courseID string) (*models.Enrollment, error)
	GetByUserCourseFunc func(ctx context.Context, userID, courseID string) (*models.Enrollment, error)
	ListByUserFunc      func(ctx context.Context, userID string) ([]*models.EnrollmentWithCourse, error)
	MarkCompletedFunc   func(ctx context.Context, userID, courseID string) error
}

func (m *MockEnrollmentRepository) Create(ctx context.Context, userID, courseID string) (*models.Enrollment, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, userID, courseID)
	}
	return nil, models.ErrInternalServer
}

func (m *MockEnrollmentRepository) GetByUserCourse(ctx context.Context, userID, courseID string) (*models.Enrollment, error) {
	if m.GetByUserCourseFunc != nil {
		return m.GetByUserCourseFunc(ctx, userID, courseID)
	}
	return nil, models.ErrNotFound
}

func (m *MockEnrollmentRepository) ListByUser(ctx context.Context, userID string) ([]*models.EnrollmentWithCourse, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, userID)
	}
	return []*models.EnrollmentWithCourse{}, nil
}

func (m *MockEnrollmentRepository) MarkCompleted(ctx context.Context, userID, courseID string) error {
	if m.MarkCompletedFunc != nil {
		return m.MarkCompletedFunc(ctx, userID, courseID)
	}
	return nil
}

// MockLessonProgressRepository implements LessonProgressRepository for testing
type MockLessonProgressRepository struct {
	UpsertFunc               func(ctx context.Context, userID, lessonID string) (*models.LessonProgress, error)
	CountCompletedActiveFunc func(ctx context.Context, userID, courseID string) (int, error)
	ListByUserCourseFunc     func(ctx context.Context, userID, courseID string) ([]*models.LessonProgress, error)
}

func (m *MockLessonProgressRepository) Upsert(ctx context.Context, userID, lessonID string) (*models.LessonProgress, error) {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, userID, lessonID)
	}
	return &models.LessonProgress{UserID: userID, LessonID: lessonID, Completed: true}, nil
}

func (m *MockLessonProgressRepository) CountCompletedActive(ctx context.Context, userID, courseID string) (int, error) {
	if m.CountCompletedActiveFunc != nil {
		return m.CountCompletedActiveFunc(ctx, userID, courseID)
	}
	return 0, nil
}

func (m *MockLessonProgressRepository) ListByUserCourse(ctx context.Context, userID, courseID string) ([]*models.LessonProgress, error) {
	if m.ListByUserCourseFunc != nil {
		return m.ListByUserCourseFunc(ctx, userID, courseID)
	}
	return []*models.LessonProgress{}, nil
}

// MockCertificateRepository implements CertificateRepository for testing
type MockCertificateRepository struct {
	CreateFunc          func(ctx context.Context, cert *models.Certificate) (*models.Certificate, error)
	GetByIDFunc         func(ctx context.Context, id string) (*models.Certificate, error)
	GetByUserCourseFunc func(ctx context.Context, userID, courseID string) (*models.Certificate, error)
	GetByNumberFunc     func(ctx context.Context, number string) (*models.CertificateWithCourse, error)
	ListByUserFunc      func(ctx context.Context, userID string) ([]*models.CertificateWithCourse, error)
	ListPendingFunc     func(ctx context.Context, limit, offset int) ([]*models.CertificateWithCourse, error)
	ApproveFunc         func(ctx context.Context, certID, approverID string) (*models.Certificate, error)
}

func (m *MockCertificateRepository) Create(ctx context.Context, cert *models.Certificate) (*models.Certificate, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, cert)
	}
	return nil, models.ErrInternalServer
}

func (m *MockCertificateRepository) GetByID(ctx context.Context, id string) (*models.Certificate, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockCertificateRepository) GetByUserCourse(ctx context.Context, userID, courseID string) (*models.Certificate, error) {
	if m.GetByUserCourseFunc != nil {
		return m.GetByUserCourseFunc(ctx, userID, courseID)
	}
	return nil, models.ErrNotFound
}

func (m *MockCertificateRepository) GetByNumber(ctx context.Context, number string) (*models.CertificateWithCourse, error) {
	if m.GetByNumberFunc != nil {
		return m.GetByNumberFunc(ctx, number)
	}
	return nil, models.ErrNotFound
}

func (m *MockCertificateRepository) ListByUser(ctx context.Context, userID string) ([]*models.CertificateWithCourse, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, userID)
	}
	return []*models.CertificateWithCourse{}, nil
}

func (m *MockCertificateRepository) ListPending(ctx context.Context, limit, offset int) ([]*models.CertificateWithCourse, error) {
	if m.ListPendingFunc != nil {
		return m.ListPendingFunc(ctx, limit, offset)
	}
	return []*models.CertificateWithCourse{}, nil
}

func (m *MockCertificateRepository) Approve(ctx context.Context, certID, approverID string) (*models.Certificate, error) {
	if m.ApproveFunc != nil {
		return m.ApproveFunc(ctx, certID, approverID)
	}
	return nil, models.ErrNotFound
}

// MockCertificateIssuer implements CertificateIssuer for testing
type MockCertificateIssuer struct {
	IssueForCompletionFunc func(ctx context.Context, userID, courseID string) (*models.Certificate, error)
}

func (m *MockCertificateIssuer) IssueForCompletion(ctx context.Context, userID, courseID string) (*models.Certificate, error) {
	if m.IssueForCompletionFunc != nil {
		return m.IssueForCompletionFunc(ctx, userID, courseID)
	}
	return &models.Certificate{UserID: userID, CourseID: courseID, Number: "CERT-TEST-ABC123"}, nil
}

// MockEmailService implements EmailService for testing
type MockEmailService struct {
	SendEnrollmentEmailFunc  func(ctx context.Context, email, name, courseTitle string) error
	SendCertificateEmailFunc func(ctx context.Context, email, name, courseTitle, certificateNumber string) error
}

func (m *MockEmailService) SendEnrollmentEmail(ctx context.Context, email, name, courseTitle string) error {
	if m.SendEnrollmentEmailFunc != nil {
		return m.SendEnrollmentEmailFunc(ctx, email, name, courseTitle)
	}
	return nil
}

func (m *MockEmailService) SendCertificateEmail(ctx context.Context, email, name, courseTitle, certificateNumber string) error {
	if m.SendCertificateEmailFunc != nil {
		return m.SendCertificateEmailFunc(ctx, email, name, courseTitle, certificateNumber)
	}
	return nil
}
