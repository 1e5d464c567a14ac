package models

import "time"

// Enrollment ties a user to a course. One row per (user, course) pair,
// enforced by a unique index. Completed flips to true exactly once, when
// every active lesson of the course has been finished.
type Enrollment struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	CourseID    string     `json:"course_id"`
	EnrolledAt  time.Time  `json:"enrolled_at"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// EnrollmentWithCourse joins an enrollment with catalog data for listing.
type EnrollmentWithCourse struct {
	Enrollment
	CourseSlug  string `json:"course_slug"`
	CourseTitle string `json:"course_title"`
	CourseLevel string `json:"course_level"`
}

// LessonProgress records a finished lesson. At most one row per
// (user, lesson) pair; re-marking a lesson refreshes the timestamp.
type LessonProgress struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	LessonID    string    `json:"lesson_id"`
	Completed   bool      `json:"completed"`
	CompletedAt time.Time `json:"completed_at"`
}

// CompletionState is the server-computed completion snapshot for a
// (user, course) pair.
type CompletionState struct {
	TotalLessons     int `json:"total_lessons"`
	CompletedLessons int `json:"completed_lessons"`
}

// Done reports whether every active lesson has been completed. An empty
// course never counts as done.
func (cs CompletionState) Done() bool {
	return cs.TotalLessons > 0 && cs.CompletedLessons == cs.TotalLessons
}
