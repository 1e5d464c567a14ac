package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/tmcgavin/cyberlab/internal/auth"
	"github.com/tmcgavin/cyberlab/internal/handlers"
	"github.com/tmcgavin/cyberlab/internal/middleware"
	"github.com/tmcgavin/cyberlab/internal/repositories"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	rateLimitHandler *handlers.RateLimitHandler,
	courseHandler *handlers.CourseHandler,
	enrollmentHandler *handlers.EnrollmentHandler,
	progressHandler *handlers.ProgressHandler,
	certificateHandler *handlers.CertificateHandler,
	adminHandler *handlers.AdminHandler,
	tokenManager *auth.TokenManager,
	userRepo *repositories.UserRepository,
) {
	throughputLimit := middleware.DefaultAuthRateLimit()

	// Public routes
	router.With(middleware.RateLimitByIP(throughputLimit)).Post("/auth/login", authHandler.Login)
	router.With(middleware.RateLimitByIP(throughputLimit)).Post("/auth/register", authHandler.Register)
	router.With(middleware.RateLimitByIP(throughputLimit)).Post("/auth/refresh", authHandler.RefreshToken)

	// Pre-auth rate limit endpoint used by login clients. Handles its
	// own CORS including preflight.
	router.With(middleware.RateLimitByIP(throughputLimit)).Post("/auth/rate-limit", rateLimitHandler.Handle)
	router.Options("/auth/rate-limit", rateLimitHandler.Handle)

	// Public catalog and certificate verification
	router.Get("/courses", courseHandler.List)
	router.Get("/courses/{slug}", courseHandler.Get)
	router.Get("/certificates/{number}/verify", certificateHandler.Verify)
	router.Get("/certificates/{number}/qr", certificateHandler.QRCode)

	// Authenticated routes
	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(tokenManager))

		r.Get("/auth/me", authHandler.Me)

		r.Post("/courses/{slug}/enroll", enrollmentHandler.Enroll)
		r.Get("/enrollments", enrollmentHandler.List)
		r.Get("/courses/{slug}/progress", progressHandler.GetCourseProgress)
		r.Post("/lessons/{lessonID}/complete", progressHandler.CompleteLesson)

		r.Get("/certificates", certificateHandler.ListMine)
		r.Post("/courses/{slug}/certificate", certificateHandler.Request)

		// Admin-only routes. Role is re-read from the store, not
		// trusted from the token.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(userRepo, "admin"))

			r.Get("/admin/dashboard", adminHandler.Dashboard)
			r.Get("/admin/security-logs", adminHandler.SecurityLogs)
			r.Get("/admin/users", adminHandler.ListUsers)
			r.Delete("/admin/users/{userID}", adminHandler.DeleteUser)

			r.Post("/admin/courses", courseHandler.Create)
			r.Post("/admin/courses/{courseID}/modules", courseHandler.CreateModule)
			r.Post("/admin/modules/{moduleID}/lessons", courseHandler.CreateLesson)

			r.Get("/admin/certificates/pending", certificateHandler.ListPending)
			r.Post("/admin/certificates", certificateHandler.IssueManually)
			r.Post("/admin/certificates/{certificateID}/approve", certificateHandler.Approve)
		})
	})
}
