package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tmcgavin/cyberlab/internal/models"
	pkghttp "github.com/tmcgavin/cyberlab/pkg/http"
)

// CatalogServiceInterface defines the interface for the course catalog
type CatalogServiceInterface interface {
	ListCourses(ctx context.Context) ([]*models.Course, error)
	GetCourse(ctx context.Context, slug string) (*models.CourseDetail, error)
	CreateCourse(ctx context.Context, course *models.Course) (*models.Course, error)
	AddModule(ctx context.Context, mod *models.CourseModule) (*models.CourseModule, error)
	AddLesson(ctx context.Context, lesson *models.Lesson) (*models.Lesson, error)
}

// CourseHandler serves the public course catalog
type CourseHandler struct {
	service CatalogServiceInterface
}

// NewCourseHandler creates a new CourseHandler
func NewCourseHandler(service CatalogServiceInterface) *CourseHandler {
	return &CourseHandler{service: service}
}

// List returns all active courses
func (h *CourseHandler) List(w http.ResponseWriter, r *http.Request) {
	courses, err := h.service.ListCourses(r.Context())
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"courses": courses,
		"count":   len(courses),
	})
}

// Get returns a single course with modules and lessons
func (h *CourseHandler) Get(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	detail, err := h.service.GetCourse(r.Context(), slug)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Course not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, detail)
}

// CreateCourseRequest represents the admin course creation body
type CreateCourseRequest struct {
	Slug        string `json:"slug" validate:"required,min=3,max=100"`
	Title       string `json:"title" validate:"required,min=1,max=200"`
	Description string `json:"description"`
	Level       string `json:"level" validate:"required,oneof=beginner intermediate advanced"`
	Active      bool   `json:"active"`
}

// CreateModuleRequest represents the admin module creation body
type CreateModuleRequest struct {
	Title    string `json:"title" validate:"required,min=1,max=200"`
	Position int    `json:"position" validate:"required,min=1"`
	Active   bool   `json:"active"`
}

// CreateLessonRequest represents the admin lesson creation body
type CreateLessonRequest struct {
	Title           string `json:"title" validate:"required,min=1,max=200"`
	Position        int    `json:"position" validate:"required,min=1"`
	DurationMinutes int    `json:"duration_minutes" validate:"min=0"`
	Active          bool   `json:"active"`
}

// Create publishes a new course
func (h *CourseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCourseRequest
	if err := jsonDecode(r, &req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	course, err := h.service.CreateCourse(r.Context(), &models.Course{
		Slug:        req.Slug,
		Title:       req.Title,
		Description: req.Description,
		Level:       req.Level,
		Active:      req.Active,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			pkghttp.WriteConflict(w, "A course with this slug already exists")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, course)
}

// CreateModule appends a module to a course
func (h *CourseHandler) CreateModule(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")

	var req CreateModuleRequest
	if err := jsonDecode(r, &req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	mod, err := h.service.AddModule(r.Context(), &models.CourseModule{
		CourseID: courseID,
		Title:    req.Title,
		Position: req.Position,
		Active:   req.Active,
	})
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Course not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, mod)
}

// CreateLesson appends a lesson to a module
func (h *CourseHandler) CreateLesson(w http.ResponseWriter, r *http.Request) {
	moduleID := chi.URLParam(r, "moduleID")

	var req CreateLessonRequest
	if err := jsonDecode(r, &req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	lesson, err := h.service.AddLesson(r.Context(), &models.Lesson{
		ModuleID:        moduleID,
		Title:           req.Title,
		Position:        req.Position,
		DurationMinutes: req.DurationMinutes,
		Active:          req.Active,
	})
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Module not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, lesson)
}
