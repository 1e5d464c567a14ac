package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/tmcgavin/cyberlab/internal/auth"
	"github.com/tmcgavin/cyberlab/internal/config"
	"github.com/tmcgavin/cyberlab/internal/database"
	"github.com/tmcgavin/cyberlab/internal/handlers"
	middlewareCustom "github.com/tmcgavin/cyberlab/internal/middleware"
	"github.com/tmcgavin/cyberlab/internal/routes"
	"github.com/tmcgavin/cyberlab/internal/services"
	pkglogger "github.com/tmcgavin/cyberlab/pkg/logger"
)

// SentEmail represents a captured email message
type SentEmail struct {
	To      string
	Subject string
	Body    string
}

// MockEmailService captures sent emails for test assertions
type MockEmailService struct {
	SentEmails []SentEmail
	mu         sync.Mutex
}

// SendEnrollmentEmail records the enrollment confirmation
func (m *MockEmailService) SendEnrollmentEmail(ctx context.Context, email, name, courseTitle string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SentEmails = append(m.SentEmails, SentEmail{
		To:      email,
		Subject: "Enrollment confirmed",
		Body:    "Enrolled in: " + courseTitle,
	})
	return nil
}

// SendCertificateEmail records the certificate notification
func (m *MockEmailService) SendCertificateEmail(ctx context.Context, email, name, courseTitle, certificateNumber string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SentEmails = append(m.SentEmails, SentEmail{
		To:      email,
		Subject: "Your certificate is ready",
		Body:    "Certificate number: " + certificateNumber,
	})
	return nil
}

// GetLastEmail returns the most recent email sent
func (m *MockEmailService) GetLastEmail() *SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.SentEmails) == 0 {
		return nil
	}
	return &m.SentEmails[len(m.SentEmails)-1]
}

// TestServer wraps httptest.Server with database and all dependencies
type TestServer struct {
	Server       *httptest.Server
	Pool         *database.DB
	EmailService *MockEmailService
	Config       *config.Config

	logger *slog.Logger
}

// NewTestServer initializes a complete HTTP server with real database + mocked email
func NewTestServer(db *database.DB) *TestServer {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:          "test-secret-32-characters-long-for-testing",
			AccessTokenExpiry:  15 * time.Minute,
			RefreshTokenExpiry: 7 * 24 * time.Hour,
			MaxFailedAttempts:  5,
			LookbackWindow:     15 * time.Minute,
			LockoutDuration:    15 * time.Minute,
			AttemptRetention:   24 * time.Hour,
			CleanupInterval:    1 * time.Hour,

			TimingBaseDelayMs:   0,
			TimingRandomDelayMs: 0,
		},
		Certificates: config.CertificateConfig{
			SelfServiceAutoApprove: true,
			VerificationURLBase:    "http://localhost:8080/certificates/verify",
		},
		Server: config.ServerConfig{
			Port:           "0",
			Env:            "test",
			AllowedOrigins: []string{},
		},
	}

	userRepo, courseRepo, enrollmentRepo, progressRepo, certificateRepo, loginAttemptRepo, securityLogRepo :=
		InitializeRepositories(db)

	mockEmail := &MockEmailService{
		SentEmails: []SentEmail{},
	}

	tokenManager := auth.NewTokenManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenExpiry,
		cfg.Auth.RefreshTokenExpiry,
	)

	auditLogger := pkglogger.NewAuditLogger(logger)

	rateLimitConfig := services.RateLimitConfig{
		MaxFailedAttempts: cfg.Auth.MaxFailedAttempts,
		LookbackWindow:    cfg.Auth.LookbackWindow,
		LockoutDuration:   cfg.Auth.LockoutDuration,
		RetentionPeriod:   cfg.Auth.AttemptRetention,
	}
	rateLimitService := services.NewRateLimitService(loginAttemptRepo, securityLogRepo, rateLimitConfig, logger)

	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:   cfg.Auth.TimingBaseDelayMs,
		RandomDelayMs: cfg.Auth.TimingRandomDelayMs,
	})

	authService := services.NewAuthService(userRepo, rateLimitService, tokenManager, timingDelay, logger, auditLogger)
	catalogService := services.NewCatalogService(courseRepo, logger)
	certificateService := services.NewCertificateService(
		certificateRepo,
		courseRepo,
		enrollmentRepo,
		userRepo,
		securityLogRepo,
		mockEmail,
		services.CertificateConfig{
			SelfServiceAutoApprove: cfg.Certificates.SelfServiceAutoApprove,
			VerificationURLBase:    cfg.Certificates.VerificationURLBase,
		},
		logger,
		auditLogger,
	)
	enrollmentService := services.NewEnrollmentService(enrollmentRepo, courseRepo, userRepo, securityLogRepo, mockEmail, logger, auditLogger)
	progressService := services.NewProgressService(progressRepo, courseRepo, enrollmentRepo, certificateService, logger)
	userService := services.NewUserService(userRepo, securityLogRepo, logger, auditLogger)
	adminService := services.NewAdminService(userRepo, enrollmentRepo, certificateRepo, securityLogRepo, logger)

	authHandler := handlers.NewAuthHandler(authService, nil)
	rateLimitHandler := handlers.NewRateLimitHandler(rateLimitService, nil)
	courseHandler := handlers.NewCourseHandler(catalogService)
	enrollmentHandler := handlers.NewEnrollmentHandler(enrollmentService, nil)
	progressHandler := handlers.NewProgressHandler(progressService)
	certificateHandler := handlers.NewCertificateHandler(certificateService)
	adminHandler := handlers.NewAdminHandler(userService, adminService, nil)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(r, authHandler, rateLimitHandler, courseHandler, enrollmentHandler, progressHandler, certificateHandler, adminHandler, tokenManager, userRepo)

	server := httptest.NewServer(r)

	return &TestServer{
		Server:       server,
		Pool:         db,
		EmailService: mockEmail,
		Config:       cfg,
		logger:       logger,
	}
}

// Close shuts down the test server
func (ts *TestServer) Close() {
	if ts.Server != nil {
		ts.Server.Close()
	}
}

// Request makes an HTTP request to the test server
func (ts *TestServer) Request(method, path string, body interface{}, headers map[string]string) (*http.Response, error) {
	url := ts.Server.URL + path

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	return http.DefaultClient.Do(req)
}

// RequestWithAuth makes an authenticated HTTP request with access token
func (ts *TestServer) RequestWithAuth(method, path, accessToken string, body interface{}) (*http.Response, error) {
	headers := map[string]string{
		"Authorization": "Bearer " + accessToken,
	}
	return ts.Request(method, path, body, headers)
}

// ParseJSONResponse parses JSON response body into target struct
func ParseJSONResponse(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(target)
}

// ExtractTokensFromResponse extracts access/refresh tokens from auth response
func ExtractTokensFromResponse(resp *http.Response) (accessToken, refreshToken string, err error) {
	defer resp.Body.Close()

	var authResp map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		return "", "", err
	}

	if access, ok := authResp["access_token"].(string); ok {
		accessToken = access
	}
	if refresh, ok := authResp["refresh_token"].(string); ok {
		refreshToken = refresh
	}

	return accessToken, refreshToken, nil
}

// GetErrorMessage extracts error message from error response
func GetErrorMessage(resp *http.Response) (string, error) {
	defer resp.Body.Close()
	var errResp map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		return "", err
	}
	if msg, ok := errResp["message"].(string); ok {
		return msg, nil
	}
	return "", nil
}
