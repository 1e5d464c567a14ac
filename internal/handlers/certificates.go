package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tmcgavin/cyberlab/internal/auth"
	"github.com/tmcgavin/cyberlab/internal/models"
	"github.com/tmcgavin/cyberlab/internal/services"
	pkghttp "github.com/tmcgavin/cyberlab/pkg/http"
)

// CertificateServiceInterface defines the interface for certificate logic
type CertificateServiceInterface interface {
	RequestCertificate(ctx context.Context, userID, courseSlug string) (*models.Certificate, error)
	IssueManually(ctx context.Context, adminID, userID, courseID string) (*models.Certificate, error)
	Approve(ctx context.Context, adminID, certID string) (*models.Certificate, error)
	ListPending(ctx context.Context, limit, offset int) ([]*models.CertificateWithCourse, error)
	ListUserCertificates(ctx context.Context, userID string) ([]*models.CertificateWithCourse, error)
	VerifyByNumber(ctx context.Context, number string) (*services.VerificationResult, error)
	QRCode(ctx context.Context, number string) ([]byte, error)
}

// CertificateHandler handles certificate HTTP requests
type CertificateHandler struct {
	service CertificateServiceInterface
}

// NewCertificateHandler creates a new CertificateHandler
func NewCertificateHandler(service CertificateServiceInterface) *CertificateHandler {
	return &CertificateHandler{service: service}
}

// IssueManuallyRequest represents the admin issuance request body
type IssueManuallyRequest struct {
	UserID   string `json:"user_id" validate:"required,uuid"`
	CourseID string `json:"course_id" validate:"required,uuid"`
}

// ListMine returns the authenticated user's certificates
func (h *CertificateHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	certs, err := h.service.ListUserCertificates(r.Context(), claims.UserID)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"certificates": certs,
		"count":        len(certs),
	})
}

// Request issues a certificate for a completed course when the
// completion-time issuance did not happen
func (h *CertificateHandler) Request(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	slug := chi.URLParam(r, "slug")

	cert, err := h.service.RequestCertificate(r.Context(), claims.UserID, slug)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Course not found")
		case errors.Is(err, models.ErrNotEnrolled):
			pkghttp.WriteForbidden(w, "Not enrolled in this course")
		case errors.Is(err, models.ErrCourseNotCompleted):
			pkghttp.WriteConflict(w, "Course is not completed yet")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, cert)
}

// Verify resolves a certificate number. Public, no authentication.
func (h *CertificateHandler) Verify(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")

	result, err := h.service.VerifyByNumber(r.Context(), number)
	if err != nil {
		if errors.Is(err, models.ErrBadRequest) {
			pkghttp.WriteBadRequest(w, "Certificate number is required")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, result)
}

// QRCode serves a PNG linking to the public verification page. Public,
// no authentication.
func (h *CertificateHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")

	png, err := h.service.QRCode(r.Context(), number)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Certificate not found")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "Certificate number is required")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// IssueManually lets an admin allocate a certificate directly
func (h *CertificateHandler) IssueManually(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req IssueManuallyRequest
	if err := jsonDecode(r, &req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	cert, err := h.service.IssueManually(r.Context(), claims.UserID, req.UserID, req.CourseID)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "User or course not found")
		case errors.Is(err, models.ErrNotEnrolled):
			pkghttp.WriteConflict(w, "User is not enrolled in this course")
		case errors.Is(err, models.ErrCourseNotCompleted):
			pkghttp.WriteConflict(w, "Course is not completed")
		case errors.Is(err, models.ErrCertificateExists):
			pkghttp.WriteConflict(w, "User already holds a certificate for this course")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, cert)
}

// ListPending returns certificates awaiting approval
func (h *CertificateHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r)

	certs, err := h.service.ListPending(r.Context(), limit, offset)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"certificates": certs,
		"count":        len(certs),
	})
}

// Approve approves a pending certificate
func (h *CertificateHandler) Approve(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	certID := chi.URLParam(r, "certificateID")

	cert, err := h.service.Approve(r.Context(), claims.UserID, certID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Certificate not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, cert)
}
