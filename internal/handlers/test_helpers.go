package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/tmcgavin/cyberlab/internal/auth"
	"github.com/tmcgavin/cyberlab/internal/models"
	"github.com/tmcgavin/cyberlab/internal/services"
	pkghttp "github.com/tmcgavin/cyberlab/pkg/http"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithAuthContext adds user claims to the request context for testing
// authenticated endpoints
func WithAuthContext(req *http.Request, userID, email, role string) *http.Request {
	claims := &models.TokenClaims{
		UserID: userID,
		Email:  email,
		Role:   role,
		Type:   "access",
	}
	ctx := context.WithValue(req.Context(), auth.UserContextKey, claims)
	return req.WithContext(ctx)
}

// WithURLParam attaches a chi route parameter to the request context
func WithURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(req.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}
	rctx.URLParams.Add(key, value)
	return req
}

// AssertJSONResponse checks status and decodes the JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"), "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks status and the machine-readable error code
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	LoginFunc          func(ctx context.Context, email, password string, meta services.RequestMeta) (*services.AuthResponse, error)
	RegisterFunc       func(ctx context.Context, email, password, name string, meta services.RequestMeta) (*services.AuthResponse, error)
	RefreshTokenFunc   func(ctx context.Context, refreshToken string) (*services.AuthResponse, error)
	GetCurrentUserFunc func(ctx context.Context, userID string) (*services.UserResponse, error)
}

func (m *MockAuthService) Login(ctx context.Context, email, password string, meta services.RequestMeta) (*services.AuthResponse, error) {
	if m.LoginFunc == nil {
		return nil, models.ErrUnauthorized
	}
	return m.LoginFunc(ctx, email, password, meta)
}

func (m *MockAuthService) Register(ctx context.Context, email, password, name string, meta services.RequestMeta) (*services.AuthResponse, error) {
	if m.RegisterFunc == nil {
		return nil, models.ErrConflict
	}
	return m.RegisterFunc(ctx, email, password, name, meta)
}

func (m *MockAuthService) RefreshToken(ctx context.Context, refreshToken string) (*services.AuthResponse, error) {
	if m.RefreshTokenFunc == nil {
		return nil, models.ErrUnauthorized
	}
	return m.RefreshTokenFunc(ctx, refreshToken)
}

func (m *MockAuthService) GetCurrentUser(ctx context.Context, userID string) (*services.UserResponse, error) {
	if m.GetCurrentUserFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetCurrentUserFunc(ctx, userID)
}

// MockRateLimitChecker implements RateLimitChecker for testing
type MockRateLimitChecker struct {
	CheckFunc  func(ctx context.Context, email, ipAddress string) (*models.RateLimitDecision, error)
	RecordFunc func(ctx context.Context, email, ipAddress, userAgent, country string, success bool, failureReason *string) error
}

func (m *MockRateLimitChecker) Check(ctx context.Context, email, ipAddress string) (*models.RateLimitDecision, error) {
	if m.CheckFunc == nil {
		return &models.RateLimitDecision{IsBlocked: false, AttemptsRemaining: 5}, nil
	}
	return m.CheckFunc(ctx, email, ipAddress)
}

func (m *MockRateLimitChecker) Record(ctx context.Context, email, ipAddress, userAgent, country string, success bool, failureReason *string) error {
	if m.RecordFunc == nil {
		return nil
	}
	return m.RecordFunc(ctx, email, ipAddress, userAgent, country, success, failureReason)
}

// MockUserService implements UserServiceInterface for testing
type MockUserService struct {
	GetUserFunc    func(ctx context.Context, id string) (*models.User, error)
	ListUsersFunc  func(ctx context.Context, limit, offset int) ([]*models.User, error)
	DeleteUserFunc func(ctx context.Context, adminID, targetID string, meta services.RequestMeta) error
}

func (m *MockUserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	if m.GetUserFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetUserFunc(ctx, id)
}

func (m *MockUserService) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	if m.ListUsersFunc == nil {
		return []*models.User{}, nil
	}
	return m.ListUsersFunc(ctx, limit, offset)
}

func (m *MockUserService) DeleteUser(ctx context.Context, adminID, targetID string, meta services.RequestMeta) error {
	if m.DeleteUserFunc == nil {
		return models.ErrNotFound
	}
	return m.DeleteUserFunc(ctx, adminID, targetID, meta)
}

// MockAdminService implements AdminServiceInterface for testing
type MockAdminService struct {
	GetDashboardStatsFunc func(ctx context.Context) (*services.DashboardStats, error)
	ListSecurityLogsFunc  func(ctx context.Context, eventType string, limit, offset int) ([]*models.SecurityLog, error)
}

func (m *MockAdminService) GetDashboardStats(ctx context.Context) (*services.DashboardStats, error) {
	if m.GetDashboardStatsFunc == nil {
		return &services.DashboardStats{}, nil
	}
	return m.GetDashboardStatsFunc(ctx)
}

func (m *MockAdminService) ListSecurityLogs(ctx context.Context, eventType string, limit, offset int) ([]*models.SecurityLog, error) {
	if m.ListSecurityLogsFunc == nil {
		return []*models.SecurityLog{}, nil
	}
	return m.ListSecurityLogsFunc(ctx, eventType, limit, offset)
}

// MockCertificateService implements CertificateServiceInterface for testing
type MockCertificateService struct {
	RequestCertificateFunc   func(ctx context.Context, userID, courseSlug string) (*models.Certificate, error)
	IssueManuallyFunc        func(ctx context.Context, adminID, userID, courseID string) (*models.Certificate, error)
	ApproveFunc              func(ctx context.Context, adminID, certID string) (*models.Certificate, error)
	ListPendingFunc          func(ctx context.Context, limit, offset int) ([]*models.CertificateWithCourse, error)
	ListUserCertificatesFunc func(ctx context.Context, userID string) ([]*models.CertificateWithCourse, error)
	VerifyByNumberFunc       func(ctx context.Context, number string) (*services.VerificationResult, error)
	QRCodeFunc               func(ctx context.Context, number string) ([]byte, error)
}

func (m *MockCertificateService) RequestCertificate(ctx context.Context, userID, courseSlug string) (*models.Certificate, error) {
	if m.RequestCertificateFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.RequestCertificateFunc(ctx, userID, courseSlug)
}

func (m *MockCertificateService) IssueManually(ctx context.Context, adminID, userID, courseID string) (*models.Certificate, error) {
	if m.IssueManuallyFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.IssueManuallyFunc(ctx, adminID, userID, courseID)
}

func (m *MockCertificateService) Approve(ctx context.Context, adminID, certID string) (*models.Certificate, error) {
	if m.ApproveFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.ApproveFunc(ctx, adminID, certID)
}

func (m *MockCertificateService) ListPending(ctx context.Context, limit, offset int) ([]*models.CertificateWithCourse, error) {
	if m.ListPendingFunc == nil {
		return []*models.CertificateWithCourse{}, nil
	}
	return m.ListPendingFunc(ctx, limit, offset)
}

func (m *MockCertificateService) ListUserCertificates(ctx context.Context, userID string) ([]*models.CertificateWithCourse, error) {
	if m.ListUserCertificatesFunc == nil {
		return []*models.CertificateWithCourse{}, nil
	}
	return m.ListUserCertificatesFunc(ctx, userID)
}

func (m *MockCertificateService) VerifyByNumber(ctx context.Context, number string) (*services.VerificationResult, error) {
	if m.VerifyByNumberFunc == nil {
		return &services.VerificationResult{Valid: false, Number: number}, nil
	}
	return m.VerifyByNumberFunc(ctx, number)
}

func (m *MockCertificateService) QRCode(ctx context.Context, number string) ([]byte, error) {
	if m.QRCodeFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.QRCodeFunc(ctx, number)
}

// MockCatalogService implements CatalogServiceInterface for testing
type MockCatalogService struct {
	ListCoursesFunc  func(ctx context.Context) ([]*models.Course, error)
	GetCourseFunc    func(ctx context.Context, slug string) (*models.CourseDetail, error)
	CreateCourseFunc func(ctx context.Context, course *models.Course) (*models.Course, error)
	AddModuleFunc    func(ctx context.Context, mod *models.CourseModule) (*models.CourseModule, error)
	AddLessonFunc    func(ctx context.Context, lesson *models.Lesson) (*models.Lesson, error)
}

func (m *MockCatalogService) ListCourses(ctx context.Context) ([]*models.Course, error) {
	if m.ListCoursesFunc == nil {
		return []*models.Course{}, nil
	}
	return m.ListCoursesFunc(ctx)
}

func (m *MockCatalogService) GetCourse(ctx context.Context, slug string) (*models.CourseDetail, error) {
	if m.GetCourseFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetCourseFunc(ctx, slug)
}

func (m *MockCatalogService) CreateCourse(ctx context.Context, course *models.Course) (*models.Course, error) {
	if m.CreateCourseFunc == nil {
		return course, nil
	}
	return m.CreateCourseFunc(ctx, course)
}

func (m *MockCatalogService) AddModule(ctx context.Context, mod *models.CourseModule) (*models.CourseModule, error) {
	if m.AddModuleFunc == nil {
		return mod, nil
	}
	return m.AddModuleFunc(ctx, mod)
}

func (m *MockCatalogService) AddLesson(ctx context.Context, lesson *models.Lesson) (*models.Lesson, error) {
	if m.AddLessonFunc == nil {
		return lesson, nil
	}
	return m.AddLessonFunc(ctx, lesson)
}

// MockEnrollmentService implements EnrollmentServiceInterface for testing
type MockEnrollmentService struct {
	EnrollFunc          func(ctx context.Context, userID, courseSlug string, meta services.RequestMeta) (*models.Enrollment, error)
	ListEnrollmentsFunc func(ctx context.Context, userID string) ([]*models.EnrollmentWithCourse, error)
}

func (m *MockEnrollmentService) Enroll(ctx context.Context, userID, courseSlug string, meta services.RequestMeta) (*models.Enrollment, error) {
	if m.EnrollFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.EnrollFunc(ctx, userID, courseSlug, meta)
}

func (m *MockEnrollmentService) ListEnrollments(ctx context.Context, userID string) ([]*models.EnrollmentWithCourse, error) {
	if m.ListEnrollmentsFunc == nil {
		return []*models.EnrollmentWithCourse{}, nil
	}
	return m.ListEnrollmentsFunc(ctx, userID)
}

// MockProgressService implements ProgressServiceInterface for testing
type MockProgressService struct {
	MarkLessonCompleteFunc func(ctx context.Context, userID, lessonID string) (*services.ProgressResult, error)
	GetCourseProgressFunc  func(ctx context.Context, userID, courseSlug string) (*models.CompletionState, []*models.LessonProgress, error)
}

func (m *MockProgressService) MarkLessonComplete(ctx context.Context, userID, lessonID string) (*services.ProgressResult, error) {
	if m.MarkLessonCompleteFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.MarkLessonCompleteFunc(ctx, userID, lessonID)
}

func (m *MockProgressService) GetCourseProgress(ctx context.Context, userID, courseSlug string) (*models.CompletionState, []*models.LessonProgress, error) {
	if m.GetCourseProgressFunc == nil {
		return nil, nil, models.ErrNotFound
	}
	return m.GetCourseProgressFunc(ctx, userID, courseSlug)
}
