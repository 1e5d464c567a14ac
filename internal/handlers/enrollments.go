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

// EnrollmentServiceInterface defines the interface for enrollment logic
type EnrollmentServiceInterface interface {
	Enroll(ctx context.Context, userID, courseSlug string, meta services.RequestMeta) (*models.Enrollment, error)
	ListEnrollments(ctx context.Context, userID string) ([]*models.EnrollmentWithCourse, error)
}

// EnrollmentHandler handles enrollment HTTP requests
type EnrollmentHandler struct {
	service   EnrollmentServiceInterface
	ipHeaders []string
}

// NewEnrollmentHandler creates a new EnrollmentHandler
func NewEnrollmentHandler(service EnrollmentServiceInterface, ipHeaders []string) *EnrollmentHandler {
	return &EnrollmentHandler{service: service, ipHeaders: ipHeaders}
}

// Enroll enrolls the authenticated user in a course
func (h *EnrollmentHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	slug := chi.URLParam(r, "slug")
	meta := services.RequestMeta{
		IPAddress: pkghttp.ExtractClientIP(r, h.ipHeaders),
		UserAgent: r.Header.Get("User-Agent"),
	}

	enrollment, err := h.service.Enroll(r.Context(), claims.UserID, slug, meta)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Course not found")
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteConflict(w, "Already enrolled in this course")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, enrollment)
}

// List returns the authenticated user's enrollments
func (h *EnrollmentHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	enrollments, err := h.service.ListEnrollments(r.Context(), claims.UserID)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"enrollments": enrollments,
		"count":       len(enrollments),
	})
}
