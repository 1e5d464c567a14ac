package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	qrcode "github.com/skip2/go-qrcode"
	"github.com/tmcgavin/cyberlab/internal/models"
	pkglogger "github.com/tmcgavin/cyberlab/pkg/logger"
)

// CertificateRepository defines the interface for certificate storage
type CertificateRepository interface {
	Create(ctx context.Context, cert *models.Certificate) (*models.Certificate, error)
	GetByID(ctx context.Context, id string) (*models.Certificate, error)
	GetByUserCourse(ctx context.Context, userID, courseID string) (*models.Certificate, error)
	GetByNumber(ctx context.Context, number string) (*models.CertificateWithCourse, error)
	ListByUser(ctx context.Context, userID string) ([]*models.CertificateWithCourse, error)
	ListPending(ctx context.Context, limit, offset int) ([]*models.CertificateWithCourse, error)
	Approve(ctx context.Context, certID, approverID string) (*models.Certificate, error)
}

// CertificateConfig holds certificate issuance configuration
type CertificateConfig struct {
	SelfServiceAutoApprove bool
	VerificationURLBase    string
}

// CertificateService issues, approves, and verifies course certificates
type CertificateService struct {
	repo           CertificateRepository
	courseRepo     CourseRepository
	enrollmentRepo EnrollmentRepository
	userRepo       UserRepository
	securityLog    SecurityLogRepository
	email          EmailService
	config         CertificateConfig
	logger         *slog.Logger
	auditLogger    *pkglogger.AuditLogger
}

// NewCertificateService creates a new CertificateService
func NewCertificateService(repo CertificateRepository, courseRepo CourseRepository, enrollmentRepo EnrollmentRepository, userRepo UserRepository, securityLog SecurityLogRepository, email EmailService, config CertificateConfig, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *CertificateService {
	return &CertificateService{
		repo:           repo,
		courseRepo:     courseRepo,
		enrollmentRepo: enrollmentRepo,
		userRepo:       userRepo,
		securityLog:    securityLog,
		email:          email,
		config:         config,
		logger:         logger,
		auditLogger:    auditLogger,
	}
}

// IssueForCompletion issues a certificate triggered by course
// completion. The unique (user, course) index decides races: a conflict
// means another request already issued, so the existing certificate is
// returned instead of an error.
func (s *CertificateService) IssueForCompletion(ctx context.Context, userID, courseID string) (*models.Certificate, error) {
	cert := &models.Certificate{
		UserID:   userID,
		CourseID: courseID,
		Number:   generateCertificateNumber(),
		IssuedAt: time.Now(),
		Approved: s.config.SelfServiceAutoApprove,
	}

	created, err := s.repo.Create(ctx, cert)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return s.repo.GetByUserCourse(ctx, userID, courseID)
		}
		return nil, err
	}

	s.logger.Info("certificate issued",
		slog.String("user_id", userID),
		slog.String("course_id", courseID),
		slog.String("number", created.Number))
	s.auditLogger.LogCourseEvent("certificate_issued", userID, courseID, map[string]any{
		"number":   created.Number,
		"approved": created.Approved,
	})

	entry := &models.SecurityLog{
		EventType:   models.SecurityEventCertificateIssued,
		UserID:      &userID,
		Description: "certificate issued on course completion",
		Metadata:    models.LogMetadata{"course_id": courseID, "number": created.Number},
	}
	if err := s.securityLog.Insert(ctx, entry); err != nil {
		s.logger.Error("failed to write security log entry", slog.Any("error", err))
	}

	// Pending certificates are announced once approved, not at issuance
	if created.Approved {
		s.notify(ctx, created)
	}

	return created, nil
}

// RequestCertificate is the self-service path for users whose course is
// complete but whose certificate was not issued, for example after a
// transient issuance failure. Idempotent: an existing certificate is
// returned as is.
func (s *CertificateService) RequestCertificate(ctx context.Context, userID, courseSlug string) (*models.Certificate, error) {
	course, err := s.courseRepo.GetBySlug(ctx, courseSlug)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, models.ErrInternalServer
	}

	enrollment, err := s.enrollmentRepo.GetByUserCourse(ctx, userID, course.ID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotEnrolled
		}
		return nil, models.ErrInternalServer
	}
	if !enrollment.Completed {
		return nil, models.ErrCourseNotCompleted
	}

	if existing, err := s.repo.GetByUserCourse(ctx, userID, course.ID); err == nil {
		return existing, nil
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, models.ErrInternalServer
	}

	return s.IssueForCompletion(ctx, userID, course.ID)
}

// IssueManually lets an admin allocate a certificate directly, outside
// the completion workflow. Admin-issued certificates are always
// pre-approved and use a date-stamped number series.
func (s *CertificateService) IssueManually(ctx context.Context, adminID, userID, courseID string) (*models.Certificate, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, models.ErrInternalServer
	}
	if _, err := s.courseRepo.GetByID(ctx, courseID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, models.ErrInternalServer
	}

	enrollment, err := s.enrollmentRepo.GetByUserCourse(ctx, userID, courseID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotEnrolled
		}
		return nil, models.ErrInternalServer
	}
	if !enrollment.Completed {
		return nil, models.ErrCourseNotCompleted
	}

	now := time.Now()
	cert := &models.Certificate{
		UserID:     userID,
		CourseID:   courseID,
		Number:     generateManualCertificateNumber(now),
		IssuedAt:   now,
		Approved:   true,
		ApprovedBy: &adminID,
		ApprovedAt: &now,
	}

	created, err := s.repo.Create(ctx, cert)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrCertificateExists
		}
		s.logger.Error("failed to issue certificate", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogAdminAction("certificate_issued_manually", adminID, userID, "", map[string]any{
		"course_id": courseID,
		"number":    created.Number,
	})
	s.notify(ctx, created)

	return created, nil
}

// Approve marks a pending certificate as approved. Idempotent: an
// already approved certificate is returned as is, keeping its original
// approver.
func (s *CertificateService) Approve(ctx context.Context, adminID, certID string) (*models.Certificate, error) {
	cert, err := s.repo.Approve(ctx, certID, adminID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Approve only matches pending rows; an already approved
			// certificate is a no-op, not an error.
			existing, getErr := s.repo.GetByID(ctx, certID)
			if getErr == nil && existing.Approved {
				return existing, nil
			}
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to approve certificate", slog.String("certificate_id", certID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogAdminAction("certificate_approved", adminID, cert.UserID, "", map[string]any{
		"certificate_id": cert.ID,
		"number":         cert.Number,
	})
	s.notify(ctx, cert)

	return cert, nil
}

// ListPending returns certificates awaiting approval
func (s *CertificateService) ListPending(ctx context.Context, limit, offset int) ([]*models.CertificateWithCourse, error) {
	certs, err := s.repo.ListPending(ctx, limit, offset)
	if err != nil {
		s.logger.Error("failed to list pending certificates", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return certs, nil
}

// ListUserCertificates returns all certificates held by a user
func (s *CertificateService) ListUserCertificates(ctx context.Context, userID string) ([]*models.CertificateWithCourse, error) {
	certs, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list certificates", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return certs, nil
}

// VerificationResult is the public view of a certificate lookup
type VerificationResult struct {
	Valid       bool   `json:"valid"`
	Number      string `json:"number"`
	HolderName  string `json:"holder_name,omitempty"`
	CourseTitle string `json:"course_title,omitempty"`
	IssuedAt    string `json:"issued_at,omitempty"`
}

// VerifyByNumber resolves a certificate number for public verification.
// Pending certificates resolve as not valid without revealing holder
// details.
func (s *CertificateService) VerifyByNumber(ctx context.Context, number string) (*VerificationResult, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, models.ErrBadRequest
	}

	cert, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return &VerificationResult{Valid: false, Number: number}, nil
		}
		s.logger.Error("failed to look up certificate", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if !cert.Approved {
		return &VerificationResult{Valid: false, Number: number}, nil
	}

	return &VerificationResult{
		Valid:       true,
		Number:      cert.Number,
		HolderName:  cert.HolderName,
		CourseTitle: cert.CourseTitle,
		IssuedAt:    cert.IssuedAt.Format(time.RFC3339),
	}, nil
}

// QRCode renders a PNG QR code pointing at the public verification page
// for the certificate number.
func (s *CertificateService) QRCode(ctx context.Context, number string) ([]byte, error) {
	result, err := s.VerifyByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		return nil, models.ErrNotFound
	}

	url := fmt.Sprintf("%s/%s", strings.TrimRight(s.config.VerificationURLBase, "/"), result.Number)
	png, err := qrcode.Encode(url, qrcode.Medium, 256)
	if err != nil {
		s.logger.Error("failed to encode QR code", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return png, nil
}

func (s *CertificateService) notify(ctx context.Context, cert *models.Certificate) {
	user, err := s.userRepo.GetByID(ctx, cert.UserID)
	if err != nil {
		return
	}
	course, err := s.courseRepo.GetByID(ctx, cert.CourseID)
	if err != nil {
		return
	}
	if err := s.email.SendCertificateEmail(ctx, user.Email, user.Name, course.Title, cert.Number); err != nil {
		s.logger.Error("failed to send certificate email", slog.Any("error", err))
	}
}

// generateCertificateNumber builds the self-service number series:
// a millisecond timestamp in base36 plus a random suffix.
func generateCertificateNumber() string {
	return fmt.Sprintf("CERT-%s-%s",
		strings.ToUpper(strconv.FormatInt(time.Now().UnixMilli(), 36)),
		randomSuffix(6))
}

// generateManualCertificateNumber builds the admin-issued series,
// stamped with year and month.
func generateManualCertificateNumber(now time.Time) string {
	return fmt.Sprintf("CERT-%s-%s", now.Format("200601"), randomSuffix(8))
}

const suffixAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

func randomSuffix(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failures are unrecoverable in practice
		panic(fmt.Sprintf("read random bytes: %v", err))
	}
	for i := range buf {
		buf[i] = suffixAlphabet[int(buf[i])%len(suffixAlphabet)]
	}
	return string(buf)
}
