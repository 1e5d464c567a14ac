package models

import "time"

// Certificate is a course-completion certificate. At most one per
// (user, course) pair; the unique index on that pair is the authority
// when two completions race, not any client-side guard.
type Certificate struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	CourseID   string     `json:"course_id"`
	Number     string     `json:"number"` // globally unique, human-readable
	IssuedAt   time.Time  `json:"issued_at"`
	Approved   bool       `json:"approved"`
	ApprovedBy *string    `json:"approved_by,omitempty"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
}

// CertificateWithCourse joins a certificate with catalog data for listing
// and public verification.
type CertificateWithCourse struct {
	Certificate
	CourseTitle string `json:"course_title"`
	HolderName  string `json:"holder_name"`
}
