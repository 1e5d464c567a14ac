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

// ProgressServiceInterface defines the interface for progress tracking
type ProgressServiceInterface interface {
	MarkLessonComplete(ctx context.Context, userID, lessonID string) (*services.ProgressResult, error)
	GetCourseProgress(ctx context.Context, userID, courseSlug string) (*models.CompletionState, []*models.LessonProgress, error)
}

// ProgressHandler handles lesson progress HTTP requests
type ProgressHandler struct {
	service ProgressServiceInterface
}

// NewProgressHandler creates a new ProgressHandler
func NewProgressHandler(service ProgressServiceInterface) *ProgressHandler {
	return &ProgressHandler{service: service}
}

// CompleteLesson marks a lesson complete for the authenticated user.
// The response carries the server-computed completion state, and the
// certificate when this was the final lesson.
func (h *ProgressHandler) CompleteLesson(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	lessonID := chi.URLParam(r, "lessonID")

	result, err := h.service.MarkLessonComplete(r.Context(), claims.UserID, lessonID)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Lesson not found")
		case errors.Is(err, models.ErrNotEnrolled):
			pkghttp.WriteForbidden(w, "Not enrolled in this course")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, result)
}

// GetCourseProgress returns the user's completion state for a course
func (h *ProgressHandler) GetCourseProgress(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	slug := chi.URLParam(r, "slug")

	state, entries, err := h.service.GetCourseProgress(r.Context(), claims.UserID, slug)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Course not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"completion": state,
		"lessons":    entries,
	})
}
