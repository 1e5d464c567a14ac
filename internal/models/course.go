package models

import "time"

// Course is a published training course in the catalog.
// Inactive courses are hidden from the catalog and excluded from
// completion evaluation.
type Course struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Level       string    `json:"level"` // "beginner", "intermediate", "advanced"
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CourseModule is an ordered section of a course.
type CourseModule struct {
	ID        string    `json:"id"`
	CourseID  string    `json:"course_id"`
	Title     string    `json:"title"`
	Position  int       `json:"position"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Lesson is a single unit of content inside a module.
type Lesson struct {
	ID              string    `json:"id"`
	ModuleID        string    `json:"module_id"`
	Title           string    `json:"title"`
	Position        int       `json:"position"`
	DurationMinutes int       `json:"duration_minutes"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
}

// CourseDetail is a course with its active modules and lessons, as served
// to the lesson viewer.
type CourseDetail struct {
	Course  *Course         `json:"course"`
	Modules []*ModuleDetail `json:"modules"`
}

type ModuleDetail struct {
	Module  *CourseModule `json:"module"`
	Lessons []*Lesson     `json:"lessons"`
}
