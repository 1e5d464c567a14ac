package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tmcgavin/cyberlab/internal/models"
)

// RateLimitRepository defines the interface for login attempt storage
type RateLimitRepository interface {
	RecordAttempt(ctx context.Context, attempt *models.LoginAttempt) error
	CountRecentFailures(ctx context.Context, email, ipAddress string, since time.Time) (int, error)
	FirstFailureSince(ctx context.Context, email, ipAddress string, since time.Time) (*time.Time, error)
}

// SecurityLogRepository defines the interface for security log writes
type SecurityLogRepository interface {
	Insert(ctx context.Context, entry *models.SecurityLog) error
}

// RateLimitConfig holds configuration for rate limiting behavior
type RateLimitConfig struct {
	MaxFailedAttempts int
	LookbackWindow    time.Duration
	LockoutDuration   time.Duration
	RetentionPeriod   time.Duration
}

// RateLimitService throttles authentication attempts per (email, IP) pair
type RateLimitService struct {
	repo        RateLimitRepository
	securityLog SecurityLogRepository
	config      RateLimitConfig
	logger      *slog.Logger
}

// NewRateLimitService creates a new RateLimitService
func NewRateLimitService(repo RateLimitRepository, securityLog SecurityLogRepository, config RateLimitConfig, logger *slog.Logger) *RateLimitService {
	return &RateLimitService{
		repo:        repo,
		securityLog: securityLog,
		config:      config,
		logger:      logger,
	}
}

// Check evaluates whether a login attempt for the (email, IP) pair
// should be allowed. Storage errors propagate so callers block the
// attempt rather than waving it through with an unknown failure count.
func (s *RateLimitService) Check(ctx context.Context, email, ipAddress string) (*models.RateLimitDecision, error) {
	email = normalizeEmail(email)
	lookback := time.Now().Add(-s.config.LookbackWindow)

	failedCount, err := s.repo.CountRecentFailures(ctx, email, ipAddress, lookback)
	if err != nil {
		s.logger.Error("failed to count login failures", slog.Any("error", err))
		return nil, fmt.Errorf("rate limit check: %w", err)
	}

	if failedCount < s.config.MaxFailedAttempts {
		return &models.RateLimitDecision{
			IsBlocked:         false,
			AttemptsRemaining: s.config.MaxFailedAttempts - failedCount,
		}, nil
	}

	firstFailure, err := s.repo.FirstFailureSince(ctx, email, ipAddress, lookback)
	if err != nil {
		s.logger.Error("failed to find first login failure", slog.Any("error", err))
		return nil, fmt.Errorf("rate limit check: %w", err)
	}

	// The lockout is anchored at the failure that opened the window. If
	// it has already lapsed the pair gets a fresh budget.
	if firstFailure != nil {
		blockedUntil := firstFailure.Add(s.config.LockoutDuration)
		if time.Now().Before(blockedUntil) {
			s.logger.Warn("login rate limited",
				slog.String("ip_address", ipAddress),
				slog.Int("failed_attempts", failedCount),
				slog.Time("blocked_until", blockedUntil))
			return &models.RateLimitDecision{
				IsBlocked:         true,
				AttemptsRemaining: 0,
				BlockedUntil:      &blockedUntil,
			}, nil
		}
	}

	return &models.RateLimitDecision{
		IsBlocked:         false,
		AttemptsRemaining: s.config.MaxFailedAttempts,
	}, nil
}

// Record persists the outcome of an authentication attempt and mirrors
// it into the security log. A security log failure does not fail the
// recording itself.
func (s *RateLimitService) Record(ctx context.Context, email, ipAddress, userAgent, country string, success bool, failureReason *string) error {
	email = normalizeEmail(email)

	attempt := &models.LoginAttempt{
		Email:         email,
		IPAddress:     ipAddress,
		UserAgent:     userAgent,
		AttemptTime:   time.Now(),
		Success:       success,
		FailureReason: failureReason,
		ExpiresAt:     time.Now().Add(s.config.RetentionPeriod),
	}

	if err := s.repo.RecordAttempt(ctx, attempt); err != nil {
		s.logger.Error("failed to record login attempt", slog.Any("error", err))
		return fmt.Errorf("record attempt: %w", err)
	}

	eventType := models.SecurityEventLoginFailed
	description := "failed login attempt"
	if success {
		eventType = models.SecurityEventLoginSuccess
		description = "successful login"
	}

	metadata := models.LogMetadata{"email": email}
	if country != "" {
		metadata["country"] = country
	}

	entry := &models.SecurityLog{
		EventType:   eventType,
		Description: description,
		IPAddress:   ipAddress,
		UserAgent:   userAgent,
		Metadata:    metadata,
	}
	if err := s.securityLog.Insert(ctx, entry); err != nil {
		s.logger.Error("failed to write security log entry",
			slog.String("event_type", eventType),
			slog.Any("error", err))
	}

	return nil
}

// RecordBlocked writes a security log entry for an attempt rejected by
// the rate limiter without touching the attempt table.
func (s *RateLimitService) RecordBlocked(ctx context.Context, email, ipAddress, userAgent string) {
	entry := &models.SecurityLog{
		EventType:   models.SecurityEventLoginBlocked,
		Description: "login attempt blocked by rate limiter",
		IPAddress:   ipAddress,
		UserAgent:   userAgent,
		Metadata:    models.LogMetadata{"email": normalizeEmail(email)},
	}
	if err := s.securityLog.Insert(ctx, entry); err != nil {
		s.logger.Error("failed to write security log entry",
			slog.String("event_type", models.SecurityEventLoginBlocked),
			slog.Any("error", err))
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
