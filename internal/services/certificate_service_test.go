package services_test

import (
	"context"
	"log/slog"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmcgavin/cyberlab/internal/models"
	"github.com/tmcgavin/cyberlab/internal/services"
	pkglogger "github.com/tmcgavin/cyberlab/pkg/logger"
)

func newCertificateService(certRepo *services.MockCertificateRepository, courseRepo *services.MockCourseRepository, enrollmentRepo *services.MockEnrollmentRepository, userRepo *services.MockUserRepository, config services.CertificateConfig) *services.CertificateService {
	return newCertificateServiceWithEmail(certRepo, courseRepo, enrollmentRepo, userRepo, &services.MockEmailService{}, config)
}

func newCertificateServiceWithEmail(certRepo *services.MockCertificateRepository, courseRepo *services.MockCourseRepository, enrollmentRepo *services.MockEnrollmentRepository, userRepo *services.MockUserRepository, email *services.MockEmailService, config services.CertificateConfig) *services.CertificateService {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	return services.NewCertificateService(
		certRepo, courseRepo, enrollmentRepo, userRepo,
		&services.MockSecurityLogRepository{},
		email,
		config,
		logger,
		pkglogger.NewAuditLogger(logger),
	)
}

func defaultCertConfig() services.CertificateConfig {
	return services.CertificateConfig{
		SelfServiceAutoApprove: false,
		VerificationURLBase:    "https://certs.example.com/verify",
	}
}

func completedEnrollmentRepo() *services.MockEnrollmentRepository {
	return &services.MockEnrollmentRepository{
		GetByUserCourseFunc: func(ctx context.Context, userID, courseID string) (*models.Enrollment, error) {
			return &models.Enrollment{UserID: userID, CourseID: courseID, Completed: true}, nil
		},
	}
}

func TestCertificateServiceIssueForCompletion_PendingByDefault(t *testing.T) {
	var created *models.Certificate
	certRepo := &services.MockCertificateRepository{
		CreateFunc: func(ctx context.Context, cert *models.Certificate) (*models.Certificate, error) {
			created = cert
			return cert, nil
		},
	}

	service := newCertificateService(certRepo, &services.MockCourseRepository{}, &services.MockEnrollmentRepository{}, &services.MockUserRepository{}, defaultCertConfig())

	cert, err := service.IssueForCompletion(context.Background(), "user_1", "course_1")

	require.NoError(t, err)
	require.NotNil(t, created)
	assert.False(t, cert.Approved)
	assert.Regexp(t, regexp.MustCompile(`^CERT-[0-9A-Z]+-[A-Z2-9]{6}$`), cert.Number)
}

func TestCertificateServiceIssueForCompletion_AutoApprove(t *testing.T) {
	certRepo := &services.MockCertificateRepository{
		CreateFunc: func(ctx context.Context, cert *models.Certificate) (*models.Certificate, error) {
			return cert, nil
		},
	}

	config := defaultCertConfig()
	config.SelfServiceAutoApprove = true
	service := newCertificateService(certRepo, &services.MockCourseRepository{}, &services.MockEnrollmentRepository{}, &services.MockUserRepository{}, config)

	cert, err := service.IssueForCompletion(context.Background(), "user_1", "course_1")

	require.NoError(t, err)
	assert.True(t, cert.Approved)
}

func TestCertificateServiceIssueForCompletion_ConflictReturnsExisting(t *testing.T) {
	existing := &models.Certificate{ID: "cert_1", UserID: "user_1", CourseID: "course_1", Number: "CERT-OLD-ABC123"}
	certRepo := &services.MockCertificateRepository{
		CreateFunc: func(ctx context.Context, cert *models.Certificate) (*models.Certificate, error) {
			return nil, models.ErrConflict
		},
		GetByUserCourseFunc: func(ctx context.Context, userID, courseID string) (*models.Certificate, error) {
			return existing, nil
		},
	}

	service := newCertificateService(certRepo, &services.MockCourseRepository{}, &services.MockEnrollmentRepository{}, &services.MockUserRepository{}, defaultCertConfig())

	cert, err := service.IssueForCompletion(context.Background(), "user_1", "course_1")

	require.NoError(t, err)
	assert.Equal(t, "CERT-OLD-ABC123", cert.Number)
}

func TestCertificateServiceRequestCertificate_RequiresCompletion(t *testing.T) {
	courseRepo := &services.MockCourseRepository{
		GetBySlugFunc: func(ctx context.Context, slug string) (*models.Course, error) {
			return activeCourse(), nil
		},
	}
	enrollmentRepo := &services.MockEnrollmentRepository{
		GetByUserCourseFunc: func(ctx context.Context, userID, courseID string) (*models.Enrollment, error) {
			return &models.Enrollment{UserID: userID, CourseID: courseID, Completed: false}, nil
		},
	}

	service := newCertificateService(&services.MockCertificateRepository{}, courseRepo, enrollmentRepo, &services.MockUserRepository{}, defaultCertConfig())

	_, err := service.RequestCertificate(context.Background(), "user_1", "network-defense")

	assert.ErrorIs(t, err, models.ErrCourseNotCompleted)
}

func TestCertificateServiceRequestCertificate_RequiresEnrollment(t *testing.T) {
	courseRepo := &services.MockCourseRepository{
		GetBySlugFunc: func(ctx context.Context, slug string) (*models.Course, error) {
			return activeCourse(), nil
		},
	}

	service := newCertificateService(&services.MockCertificateRepository{}, courseRepo, &services.MockEnrollmentRepository{}, &services.MockUserRepository{}, defaultCertConfig())

	_, err := service.RequestCertificate(context.Background(), "user_1", "network-defense")

	assert.ErrorIs(t, err, models.ErrNotEnrolled)
}

func TestCertificateServiceRequestCertificate_ReturnsExisting(t *testing.T) {
	existing := &models.Certificate{ID: "cert_1", Number: "CERT-OLD-ABC123"}
	courseRepo := &services.MockCourseRepository{
		GetBySlugFunc: func(ctx context.Context, slug string) (*models.Course, error) {
			return activeCourse(), nil
		},
	}
	enrollmentRepo := &services.MockEnrollmentRepository{
		GetByUserCourseFunc: func(ctx context.Context, userID, courseID string) (*models.Enrollment, error) {
			return &models.Enrollment{UserID: userID, CourseID: courseID, Completed: true}, nil
		},
	}
	certRepo := &services.MockCertificateRepository{
		GetByUserCourseFunc: func(ctx context.Context, userID, courseID string) (*models.Certificate, error) {
			return existing, nil
		},
	}

	service := newCertificateService(certRepo, courseRepo, enrollmentRepo, &services.MockUserRepository{}, defaultCertConfig())

	cert, err := service.RequestCertificate(context.Background(), "user_1", "network-defense")

	require.NoError(t, err)
	assert.Equal(t, existing.Number, cert.Number)
}

func TestCertificateServiceIssueForCompletion_PendingSendsNoEmail(t *testing.T) {
	certRepo := &services.MockCertificateRepository{
		CreateFunc: func(ctx context.Context, cert *models.Certificate) (*models.Certificate, error) {
			return cert, nil
		},
	}
	emailSent := false
	email := &services.MockEmailService{
		SendCertificateEmailFunc: func(ctx context.Context, addr, name, courseTitle, number string) error {
			emailSent = true
			return nil
		},
	}

	service := newCertificateServiceWithEmail(certRepo, &services.MockCourseRepository{}, &services.MockEnrollmentRepository{}, &services.MockUserRepository{}, email, defaultCertConfig())

	cert, err := service.IssueForCompletion(context.Background(), "user_1", "course_1")

	require.NoError(t, err)
	assert.False(t, cert.Approved)
	assert.False(t, emailSent)
}

func TestCertificateServiceApprove_SendsEmail(t *testing.T) {
	certRepo := &services.MockCertificateRepository{
		ApproveFunc: func(ctx context.Context, certID, approverID string) (*models.Certificate, error) {
			return &models.Certificate{ID: certID, UserID: "user_1", CourseID: "course_1", Number: "CERT-ABC-DEF234", Approved: true, ApprovedBy: &approverID}, nil
		},
	}
	userRepo := &services.MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return &models.User{ID: id, Email: "u@example.com", Name: "U"}, nil
		},
	}
	courseRepo := &services.MockCourseRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Course, error) {
			return activeCourse(), nil
		},
	}
	var sentNumber string
	email := &services.MockEmailService{
		SendCertificateEmailFunc: func(ctx context.Context, addr, name, courseTitle, number string) error {
			sentNumber = number
			return nil
		},
	}

	service := newCertificateServiceWithEmail(certRepo, courseRepo, &services.MockEnrollmentRepository{}, userRepo, email, defaultCertConfig())

	cert, err := service.Approve(context.Background(), "admin_1", "cert_1")

	require.NoError(t, err)
	assert.True(t, cert.Approved)
	assert.Equal(t, "CERT-ABC-DEF234", sentNumber)
}

func TestCertificateServiceApprove_AlreadyApprovedIsNoOp(t *testing.T) {
	firstApprover := "admin_1"
	certRepo := &services.MockCertificateRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Certificate, error) {
			return &models.Certificate{ID: id, UserID: "user_1", CourseID: "course_1", Number: "CERT-ABC-DEF234", Approved: true, ApprovedBy: &firstApprover}, nil
		},
	}
	emailSent := false
	email := &services.MockEmailService{
		SendCertificateEmailFunc: func(ctx context.Context, addr, name, courseTitle, number string) error {
			emailSent = true
			return nil
		},
	}

	service := newCertificateServiceWithEmail(certRepo, &services.MockCourseRepository{}, &services.MockEnrollmentRepository{}, &services.MockUserRepository{}, email, defaultCertConfig())

	cert, err := service.Approve(context.Background(), "admin_2", "cert_1")

	require.NoError(t, err)
	assert.True(t, cert.Approved)
	assert.Equal(t, "admin_1", *cert.ApprovedBy)
	assert.False(t, emailSent)
}

func TestCertificateServiceApprove_UnknownCertificate(t *testing.T) {
	service := newCertificateService(&services.MockCertificateRepository{}, &services.MockCourseRepository{}, &services.MockEnrollmentRepository{}, &services.MockUserRepository{}, defaultCertConfig())

	_, err := service.Approve(context.Background(), "admin_1", "cert_missing")

	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCertificateServiceIssueManually_PreApproved(t *testing.T) {
	userRepo := &services.MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return &models.User{ID: id, Email: "u@example.com", Name: "U"}, nil
		},
	}
	courseRepo := &services.MockCourseRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Course, error) {
			return activeCourse(), nil
		},
	}
	certRepo := &services.MockCertificateRepository{
		CreateFunc: func(ctx context.Context, cert *models.Certificate) (*models.Certificate, error) {
			return cert, nil
		},
	}

	service := newCertificateService(certRepo, courseRepo, completedEnrollmentRepo(), userRepo, defaultCertConfig())

	cert, err := service.IssueManually(context.Background(), "admin_1", "user_1", "course_1")

	require.NoError(t, err)
	assert.True(t, cert.Approved)
	require.NotNil(t, cert.ApprovedBy)
	assert.Equal(t, "admin_1", *cert.ApprovedBy)
	assert.Regexp(t, regexp.MustCompile(`^CERT-\d{6}-[A-Z2-9]{8}$`), cert.Number)
}

func TestCertificateServiceIssueManually_DuplicateIsConflict(t *testing.T) {
	userRepo := &services.MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return &models.User{ID: id}, nil
		},
	}
	courseRepo := &services.MockCourseRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Course, error) {
			return activeCourse(), nil
		},
	}
	certRepo := &services.MockCertificateRepository{
		CreateFunc: func(ctx context.Context, cert *models.Certificate) (*models.Certificate, error) {
			return nil, models.ErrConflict
		},
	}

	service := newCertificateService(certRepo, courseRepo, completedEnrollmentRepo(), userRepo, defaultCertConfig())

	_, err := service.IssueManually(context.Background(), "admin_1", "user_1", "course_1")

	assert.ErrorIs(t, err, models.ErrCertificateExists)
}

func TestCertificateServiceIssueManually_RequiresCompletion(t *testing.T) {
	userRepo := &services.MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return &models.User{ID: id}, nil
		},
	}
	courseRepo := &services.MockCourseRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Course, error) {
			return activeCourse(), nil
		},
	}
	enrollmentRepo := &services.MockEnrollmentRepository{
		GetByUserCourseFunc: func(ctx context.Context, userID, courseID string) (*models.Enrollment, error) {
			return &models.Enrollment{UserID: userID, CourseID: courseID, Completed: false}, nil
		},
	}

	service := newCertificateService(&services.MockCertificateRepository{}, courseRepo, enrollmentRepo, userRepo, defaultCertConfig())

	_, err := service.IssueManually(context.Background(), "admin_1", "user_1", "course_1")

	assert.ErrorIs(t, err, models.ErrCourseNotCompleted)
}

func TestCertificateServiceIssueManually_RequiresEnrollment(t *testing.T) {
	userRepo := &services.MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return &models.User{ID: id}, nil
		},
	}
	courseRepo := &services.MockCourseRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Course, error) {
			return activeCourse(), nil
		},
	}

	service := newCertificateService(&services.MockCertificateRepository{}, courseRepo, &services.MockEnrollmentRepository{}, userRepo, defaultCertConfig())

	_, err := service.IssueManually(context.Background(), "admin_1", "user_1", "course_1")

	assert.ErrorIs(t, err, models.ErrNotEnrolled)
}

func TestCertificateServiceIssueManually_UnknownUser(t *testing.T) {
	service := newCertificateService(&services.MockCertificateRepository{}, &services.MockCourseRepository{}, &services.MockEnrollmentRepository{}, &services.MockUserRepository{}, defaultCertConfig())

	_, err := service.IssueManually(context.Background(), "admin_1", "ghost", "course_1")

	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCertificateServiceVerifyByNumber_Approved(t *testing.T) {
	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	certRepo := &services.MockCertificateRepository{
		GetByNumberFunc: func(ctx context.Context, number string) (*models.CertificateWithCourse, error) {
			return &models.CertificateWithCourse{
				Certificate: models.Certificate{Number: number, Approved: true, IssuedAt: issuedAt},
				CourseTitle: "Network Defense",
				HolderName:  "Test User",
			}, nil
		},
	}

	service := newCertificateService(certRepo, &services.MockCourseRepository{}, &services.MockEnrollmentRepository{}, &services.MockUserRepository{}, defaultCertConfig())

	result, err := service.VerifyByNumber(context.Background(), "CERT-ABC-DEF234")

	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, "Test User", result.HolderName)
	assert.Equal(t, "Network Defense", result.CourseTitle)
}

func TestCertificateServiceVerifyByNumber_PendingHidesHolder(t *testing.T) {
	certRepo := &services.MockCertificateRepository{
		GetByNumberFunc: func(ctx context.Context, number string) (*models.CertificateWithCourse, error) {
			return &models.CertificateWithCourse{
				Certificate: models.Certificate{Number: number, Approved: false},
				HolderName:  "Hidden User",
			}, nil
		},
	}

	service := newCertificateService(certRepo, &services.MockCourseRepository{}, &services.MockEnrollmentRepository{}, &services.MockUserRepository{}, defaultCertConfig())

	result, err := service.VerifyByNumber(context.Background(), "CERT-ABC-DEF234")

	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Empty(t, result.HolderName)
}

func TestCertificateServiceVerifyByNumber_Unknown(t *testing.T) {
	service := newCertificateService(&services.MockCertificateRepository{}, &services.MockCourseRepository{}, &services.MockEnrollmentRepository{}, &services.MockUserRepository{}, defaultCertConfig())

	result, err := service.VerifyByNumber(context.Background(), "CERT-NOPE-NOPE99")

	require.NoError(t, err)
	assert.False(t, result.Valid)
}

func TestCertificateServiceQRCode_ValidCertificate(t *testing.T) {
	certRepo := &services.MockCertificateRepository{
		GetByNumberFunc: func(ctx context.Context, number string) (*models.CertificateWithCourse, error) {
			return &models.CertificateWithCourse{
				Certificate: models.Certificate{Number: number, Approved: true, IssuedAt: time.Now()},
			}, nil
		},
	}

	service := newCertificateService(certRepo, &services.MockCourseRepository{}, &services.MockEnrollmentRepository{}, &services.MockUserRepository{}, defaultCertConfig())

	png, err := service.QRCode(context.Background(), "CERT-ABC-DEF234")

	require.NoError(t, err)
	assert.NotEmpty(t, png)
	// PNG magic bytes
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])
}

func TestCertificateServiceQRCode_UnknownCertificate(t *testing.T) {
	service := newCertificateService(&services.MockCertificateRepository{}, &services.MockCourseRepository{}, &services.MockEnrollmentRepository{}, &services.MockUserRepository{}, defaultCertConfig())

	_, err := service.QRCode(context.Background(), "CERT-NOPE-NOPE99")

	assert.ErrorIs(t, err, models.ErrNotFound)
}
