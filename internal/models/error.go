package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Login throttling
	ErrRateLimitExceeded = errors.New("too many failed login attempts")

	// Account state errors
	ErrAccountDisabled  = errors.New("account is disabled")
	ErrAccountSuspended = errors.New("account is suspended")

	// Course workflow errors
	ErrNotEnrolled        = errors.New("user is not enrolled in this course")
	ErrCourseNotCompleted = errors.New("course is not completed")
	ErrCertificateExists  = errors.New("certificate already issued for this course")
)
