package handlers_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmcgavin/cyberlab/internal/handlers"
	"github.com/tmcgavin/cyberlab/internal/models"
)

func TestListCourses(t *testing.T) {
	mock := &handlers.MockCatalogService{
		ListCoursesFunc: func(ctx context.Context) ([]*models.Course, error) {
			return []*models.Course{
				{ID: "c1", Slug: "network-defense", Title: "Network Defense", Level: "beginner", Active: true},
				{ID: "c2", Slug: "threat-hunting", Title: "Threat Hunting", Level: "advanced", Active: true},
			}, nil
		},
	}

	handler := handlers.NewCourseHandler(mock)
	req := handlers.NewTestRequest(t, "GET", "/courses", nil)

	w := httptest.NewRecorder()
	handler.List(w, req)

	var result struct {
		Courses []*models.Course `json:"courses"`
		Count   int              `json:"count"`
	}
	handlers.AssertJSONResponse(t, w, 200, &result)
	assert.Equal(t, 2, result.Count)
	require.Len(t, result.Courses, 2)
	assert.Equal(t, "network-defense", result.Courses[0].Slug)
}

func TestListCourses_Empty(t *testing.T) {
	handler := handlers.NewCourseHandler(&handlers.MockCatalogService{})
	req := handlers.NewTestRequest(t, "GET", "/courses", nil)

	w := httptest.NewRecorder()
	handler.List(w, req)

	var result struct {
		Courses []*models.Course `json:"courses"`
		Count   int              `json:"count"`
	}
	handlers.AssertJSONResponse(t, w, 200, &result)
	assert.Equal(t, 0, result.Count)
}

func TestGetCourse_WithModulesAndLessons(t *testing.T) {
	mock := &handlers.MockCatalogService{
		GetCourseFunc: func(ctx context.Context, slug string) (*models.CourseDetail, error) {
			return &models.CourseDetail{
				Course: &models.Course{ID: "c1", Slug: slug, Title: "Network Defense", Active: true},
				Modules: []*models.ModuleDetail{
					{
						Module: &models.CourseModule{ID: "m1", CourseID: "c1", Title: "Fundamentals", Position: 1, Active: true},
						Lessons: []*models.Lesson{
							{ID: "l1", ModuleID: "m1", Title: "Intro", Position: 1, Active: true},
							{ID: "l2", ModuleID: "m1", Title: "Firewalls", Position: 2, Active: true},
						},
					},
				},
			}, nil
		},
	}

	handler := handlers.NewCourseHandler(mock)
	req := handlers.NewTestRequest(t, "GET", "/courses/network-defense", nil)
	req = handlers.WithURLParam(req, "slug", "network-defense")

	w := httptest.NewRecorder()
	handler.Get(w, req)

	var detail models.CourseDetail
	handlers.AssertJSONResponse(t, w, 200, &detail)
	assert.Equal(t, "network-defense", detail.Course.Slug)
	require.Len(t, detail.Modules, 1)
	assert.Len(t, detail.Modules[0].Lessons, 2)
}

func TestGetCourse_NotFound(t *testing.T) {
	handler := handlers.NewCourseHandler(&handlers.MockCatalogService{})
	req := handlers.NewTestRequest(t, "GET", "/courses/nope", nil)
	req = handlers.WithURLParam(req, "slug", "nope")

	w := httptest.NewRecorder()
	handler.Get(w, req)

	handlers.AssertErrorResponse(t, w, 404, "not_found")
}

func TestCreateCourse(t *testing.T) {
	mock := &handlers.MockCatalogService{
		CreateCourseFunc: func(ctx context.Context, course *models.Course) (*models.Course, error) {
			course.ID = "c1"
			return course, nil
		},
	}

	handler := handlers.NewCourseHandler(mock)
	req := handlers.NewTestRequest(t, "POST", "/admin/courses", handlers.CreateCourseRequest{
		Slug:   "incident-response",
		Title:  "Incident Response",
		Level:  "intermediate",
		Active: true,
	})

	w := httptest.NewRecorder()
	handler.Create(w, req)

	var course models.Course
	handlers.AssertJSONResponse(t, w, 201, &course)
	assert.Equal(t, "c1", course.ID)
	assert.Equal(t, "incident-response", course.Slug)
}

func TestCreateCourse_DuplicateSlug(t *testing.T) {
	mock := &handlers.MockCatalogService{
		CreateCourseFunc: func(ctx context.Context, course *models.Course) (*models.Course, error) {
			return nil, models.ErrConflict
		},
	}

	handler := handlers.NewCourseHandler(mock)
	req := handlers.NewTestRequest(t, "POST", "/admin/courses", handlers.CreateCourseRequest{
		Slug:   "incident-response",
		Title:  "Incident Response",
		Level:  "intermediate",
		Active: true,
	})

	w := httptest.NewRecorder()
	handler.Create(w, req)

	handlers.AssertErrorResponse(t, w, 409, "conflict")
}

func TestCreateCourse_InvalidLevel(t *testing.T) {
	handler := handlers.NewCourseHandler(&handlers.MockCatalogService{})
	req := handlers.NewTestRequest(t, "POST", "/admin/courses", handlers.CreateCourseRequest{
		Slug:  "incident-response",
		Title: "Incident Response",
		Level: "expert",
	})

	w := httptest.NewRecorder()
	handler.Create(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}

func TestCreateLesson_UnknownModule(t *testing.T) {
	mock := &handlers.MockCatalogService{
		AddLessonFunc: func(ctx context.Context, lesson *models.Lesson) (*models.Lesson, error) {
			return nil, models.ErrNotFound
		},
	}

	handler := handlers.NewCourseHandler(mock)
	req := handlers.NewTestRequest(t, "POST", "/admin/modules/m-missing/lessons", handlers.CreateLessonRequest{
		Title:    "Packet Analysis",
		Position: 1,
		Active:   true,
	})
	req = handlers.WithURLParam(req, "moduleID", "m-missing")

	w := httptest.NewRecorder()
	handler.CreateLesson(w, req)

	handlers.AssertErrorResponse(t, w, 404, "not_found")
}
