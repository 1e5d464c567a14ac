package handlers_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tmcgavin/cyberlab/internal/handlers"
	"github.com/tmcgavin/cyberlab/internal/models"
	"github.com/tmcgavin/cyberlab/internal/services"
)

func TestVerifyCertificate_Valid(t *testing.T) {
	mock := &handlers.MockCertificateService{
		VerifyByNumberFunc: func(ctx context.Context, number string) (*services.VerificationResult, error) {
			return &services.VerificationResult{
				Valid:       true,
				Number:      number,
				HolderName:  "Test User",
				CourseTitle: "Network Defense",
			}, nil
		},
	}

	handler := handlers.NewCertificateHandler(mock)
	req := handlers.NewTestRequest(t, "GET", "/certificates/CERT-ABC-DEF234/verify", nil)
	req = handlers.WithURLParam(req, "number", "CERT-ABC-DEF234")

	w := httptest.NewRecorder()
	handler.Verify(w, req)

	var result services.VerificationResult
	handlers.AssertJSONResponse(t, w, 200, &result)
	assert.True(t, result.Valid)
	assert.Equal(t, "Test User", result.HolderName)
}

func TestVerifyCertificate_UnknownIsStillOK(t *testing.T) {
	handler := handlers.NewCertificateHandler(&handlers.MockCertificateService{})
	req := handlers.NewTestRequest(t, "GET", "/certificates/CERT-NOPE/verify", nil)
	req = handlers.WithURLParam(req, "number", "CERT-NOPE")

	w := httptest.NewRecorder()
	handler.Verify(w, req)

	var result services.VerificationResult
	handlers.AssertJSONResponse(t, w, 200, &result)
	assert.False(t, result.Valid)
}

func TestRequestCertificate_NotCompleted(t *testing.T) {
	mock := &handlers.MockCertificateService{
		RequestCertificateFunc: func(ctx context.Context, userID, courseSlug string) (*models.Certificate, error) {
			return nil, models.ErrCourseNotCompleted
		},
	}

	handler := handlers.NewCertificateHandler(mock)
	req := handlers.NewTestRequest(t, "POST", "/courses/network-defense/certificate", nil)
	req = handlers.WithAuthContext(req, "user_1", "user@example.com", models.RoleUser)
	req = handlers.WithURLParam(req, "slug", "network-defense")

	w := httptest.NewRecorder()
	handler.Request(w, req)

	handlers.AssertErrorResponse(t, w, 409, "conflict")
}

func TestRequestCertificate_NotEnrolled(t *testing.T) {
	mock := &handlers.MockCertificateService{
		RequestCertificateFunc: func(ctx context.Context, userID, courseSlug string) (*models.Certificate, error) {
			return nil, models.ErrNotEnrolled
		},
	}

	handler := handlers.NewCertificateHandler(mock)
	req := handlers.NewTestRequest(t, "POST", "/courses/network-defense/certificate", nil)
	req = handlers.WithAuthContext(req, "user_1", "user@example.com", models.RoleUser)
	req = handlers.WithURLParam(req, "slug", "network-defense")

	w := httptest.NewRecorder()
	handler.Request(w, req)

	handlers.AssertErrorResponse(t, w, 403, "forbidden")
}

func TestIssueManually_Success(t *testing.T) {
	mock := &handlers.MockCertificateService{
		IssueManuallyFunc: func(ctx context.Context, adminID, userID, courseID string) (*models.Certificate, error) {
			return &models.Certificate{UserID: userID, CourseID: courseID, Number: "CERT-202609-ABCDEF23", Approved: true}, nil
		},
	}

	handler := handlers.NewCertificateHandler(mock)
	req := handlers.NewTestRequest(t, "POST", "/admin/certificates", handlers.IssueManuallyRequest{
		UserID:   testTargetID,
		CourseID: "3c9d8e0a-1b2c-4d3e-8f90-a1b2c3d4e5f6",
	})
	req = handlers.WithAuthContext(req, testAdminID, "admin@example.com", models.RoleAdmin)

	w := httptest.NewRecorder()
	handler.IssueManually(w, req)

	var cert models.Certificate
	handlers.AssertJSONResponse(t, w, 201, &cert)
	assert.True(t, cert.Approved)
}

func TestIssueManually_DuplicateIsConflict(t *testing.T) {
	mock := &handlers.MockCertificateService{
		IssueManuallyFunc: func(ctx context.Context, adminID, userID, courseID string) (*models.Certificate, error) {
			return nil, models.ErrCertificateExists
		},
	}

	handler := handlers.NewCertificateHandler(mock)
	req := handlers.NewTestRequest(t, "POST", "/admin/certificates", handlers.IssueManuallyRequest{
		UserID:   testTargetID,
		CourseID: "3c9d8e0a-1b2c-4d3e-8f90-a1b2c3d4e5f6",
	})
	req = handlers.WithAuthContext(req, testAdminID, "admin@example.com", models.RoleAdmin)

	w := httptest.NewRecorder()
	handler.IssueManually(w, req)

	handlers.AssertErrorResponse(t, w, 409, "conflict")
}

func TestIssueManually_MalformedIDs(t *testing.T) {
	handler := handlers.NewCertificateHandler(&handlers.MockCertificateService{})
	req := handlers.NewTestRequest(t, "POST", "/admin/certificates", handlers.IssueManuallyRequest{
		UserID:   "banana",
		CourseID: "apple",
	})
	req = handlers.WithAuthContext(req, testAdminID, "admin@example.com", models.RoleAdmin)

	w := httptest.NewRecorder()
	handler.IssueManually(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}

func TestQRCode_ServesPNG(t *testing.T) {
	mock := &handlers.MockCertificateService{
		QRCodeFunc: func(ctx context.Context, number string) ([]byte, error) {
			return []byte{0x89, 'P', 'N', 'G'}, nil
		},
	}

	handler := handlers.NewCertificateHandler(mock)
	req := handlers.NewTestRequest(t, "GET", "/certificates/CERT-ABC-DEF234/qr", nil)
	req = handlers.WithURLParam(req, "number", "CERT-ABC-DEF234")

	w := httptest.NewRecorder()
	handler.QRCode(w, req)

	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
}

func TestQRCode_UnknownCertificate(t *testing.T) {
	handler := handlers.NewCertificateHandler(&handlers.MockCertificateService{})
	req := handlers.NewTestRequest(t, "GET", "/certificates/CERT-NOPE/qr", nil)
	req = handlers.WithURLParam(req, "number", "CERT-NOPE")

	w := httptest.NewRecorder()
	handler.QRCode(w, req)

	handlers.AssertErrorResponse(t, w, 404, "not_found")
}
