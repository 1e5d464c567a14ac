package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/tmcgavin/cyberlab/internal/auth"
	"github.com/tmcgavin/cyberlab/internal/background"
	"github.com/tmcgavin/cyberlab/internal/config"
	"github.com/tmcgavin/cyberlab/internal/database"
	"github.com/tmcgavin/cyberlab/internal/handlers"
	middlewareCustom "github.com/tmcgavin/cyberlab/internal/middleware"
	"github.com/tmcgavin/cyberlab/internal/models"
	"github.com/tmcgavin/cyberlab/internal/repositories"
	"github.com/tmcgavin/cyberlab/internal/routes"
	"github.com/tmcgavin/cyberlab/internal/services"
	pkgauth "github.com/tmcgavin/cyberlab/pkg/auth"
	pkglogger "github.com/tmcgavin/cyberlab/pkg/logger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 60*time.Second)
	if err := db.Migrate(migrateCtx, "migrations"); err != nil {
		migrateCancel()
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}
	migrateCancel()

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	courseRepo := repositories.NewCourseRepository(db)
	enrollmentRepo := repositories.NewEnrollmentRepository(db)
	progressRepo := repositories.NewLessonProgressRepository(db)
	certificateRepo := repositories.NewCertificateRepository(db)
	loginAttemptRepo := repositories.NewLoginAttemptRepository(db)
	securityLogRepo := repositories.NewSecurityLogRepository(db)

	// Initialize cleanup manager
	cleanupManager := background.NewCleanupManager(loginAttemptRepo, logger, cfg.Auth.CleanupInterval)

	// Initialize token manager
	tokenManager := auth.NewTokenManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenExpiry,
		cfg.Auth.RefreshTokenExpiry,
	)

	// Initialize security services
	auditLogger := pkglogger.NewAuditLogger(logger)

	// Rate limiting service
	rateLimitConfig := services.RateLimitConfig{
		MaxFailedAttempts: cfg.Auth.MaxFailedAttempts,
		LookbackWindow:    cfg.Auth.LookbackWindow,
		LockoutDuration:   cfg.Auth.LockoutDuration,
		RetentionPeriod:   cfg.Auth.AttemptRetention,
	}
	rateLimitService := services.NewRateLimitService(loginAttemptRepo, securityLogRepo, rateLimitConfig, logger)

	// Timing delay for auth security
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:   cfg.Auth.TimingBaseDelayMs,
		RandomDelayMs: cfg.Auth.TimingRandomDelayMs,
	})

	// Email delivery
	var emailService services.EmailService
	if cfg.Email.Enabled {
		sesService, err := services.NewAWSSESEmailService(cfg.Email.AWSRegion, cfg.Email.FromAddress, logger)
		if err != nil {
			logger.Error("failed to initialize email service", slog.Any("error", err))
			os.Exit(1)
		}
		emailService = sesService
	} else {
		emailService = services.NewNoopEmailService(logger)
	}

	// Initialize services
	authService := services.NewAuthService(userRepo, rateLimitService, tokenManager, timingDelay, logger, auditLogger)
	catalogService := services.NewCatalogService(courseRepo, logger)
	certificateService := services.NewCertificateService(
		certificateRepo,
		courseRepo,
		enrollmentRepo,
		userRepo,
		securityLogRepo,
		emailService,
		services.CertificateConfig{
			SelfServiceAutoApprove: cfg.Certificates.SelfServiceAutoApprove,
			VerificationURLBase:    cfg.Certificates.VerificationURLBase,
		},
		logger,
		auditLogger,
	)
	enrollmentService := services.NewEnrollmentService(enrollmentRepo, courseRepo, userRepo, securityLogRepo, emailService, logger, auditLogger)
	progressService := services.NewProgressService(progressRepo, courseRepo, enrollmentRepo, certificateService, logger)
	userService := services.NewUserService(userRepo, securityLogRepo, logger, auditLogger)
	adminService := services.NewAdminService(userRepo, enrollmentRepo, certificateRepo, securityLogRepo, logger)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, cfg.Server.TrustedIPHeaders)
	rateLimitHandler := handlers.NewRateLimitHandler(rateLimitService, cfg.Server.TrustedIPHeaders)
	courseHandler := handlers.NewCourseHandler(catalogService)
	enrollmentHandler := handlers.NewEnrollmentHandler(enrollmentService, cfg.Server.TrustedIPHeaders)
	progressHandler := handlers.NewProgressHandler(progressService)
	certificateHandler := handlers.NewCertificateHandler(certificateService)
	adminHandler := handlers.NewAdminHandler(userService, adminService, cfg.Server.TrustedIPHeaders)

	// Bootstrap first admin user if configured
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ensureAdminUser(ctx, userRepo, logger); err != nil {
		logger.Error("failed to ensure admin user", slog.Any("error", err))
	}
	cancel()

	// Setup CORS middleware
	corsConfig := middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(corsConfig))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, authHandler, rateLimitHandler, courseHandler, enrollmentHandler, progressHandler, certificateHandler, adminHandler, tokenManager, userRepo)

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start cleanup task
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// ensureAdminUser creates the first admin user if ADMIN_EMAIL and ADMIN_PASSWORD are set
func ensureAdminUser(ctx context.Context, userRepo *repositories.UserRepository, logger *slog.Logger) error {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminEmail == "" || adminPassword == "" {
		logger.Info("no ADMIN_EMAIL or ADMIN_PASSWORD set, skipping admin user creation")
		return nil
	}

	_, err := userRepo.GetByEmail(ctx, adminEmail)
	if err == nil {
		logger.Info("admin user already exists")
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to check if admin exists: %w", err)
	}

	hashedPassword, err := pkgauth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	now := time.Now()
	admin := &models.User{
		Email:             adminEmail,
		PasswordHash:      hashedPassword,
		Name:              "Admin",
		Role:              models.RoleAdmin,
		Status:            "active",
		PasswordChangedAt: &now,
	}

	if _, err := userRepo.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	logger.Info("admin user created successfully")
	return nil
}
