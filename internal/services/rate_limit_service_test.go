package services_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmcgavin/cyberlab/internal/models"
	"github.com/tmcgavin/cyberlab/internal/services"
)

func testRateLimitConfig() services.RateLimitConfig {
	return services.RateLimitConfig{
		MaxFailedAttempts: 5,
		LookbackWindow:    15 * time.Minute,
		LockoutDuration:   15 * time.Minute,
		RetentionPeriod:   24 * time.Hour,
	}
}

func TestRateLimitServiceCheck_AllowsInitialAttempt(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	repo := &services.MockRateLimitRepository{}
	securityLog := &services.MockSecurityLogRepository{}

	service := services.NewRateLimitService(repo, securityLog, testRateLimitConfig(), logger)

	decision, err := service.Check(context.Background(), "test@example.com", "192.168.1.1")

	require.NoError(t, err)
	assert.False(t, decision.IsBlocked)
	assert.Equal(t, 5, decision.AttemptsRemaining)
	assert.Nil(t, decision.BlockedUntil)
}

func TestRateLimitServiceCheck_CountsDownRemaining(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	repo := &services.MockRateLimitRepository{
		CountRecentFailuresFunc: func(ctx context.Context, email, ip string, since time.Time) (int, error) {
			return 3, nil
		},
	}
	securityLog := &services.MockSecurityLogRepository{}

	service := services.NewRateLimitService(repo, securityLog, testRateLimitConfig(), logger)

	decision, err := service.Check(context.Background(), "test@example.com", "192.168.1.1")

	require.NoError(t, err)
	assert.False(t, decision.IsBlocked)
	assert.Equal(t, 2, decision.AttemptsRemaining)
}

func TestRateLimitServiceCheck_BlocksAfterMaxFailures(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	firstFailure := time.Now().Add(-5 * time.Minute)
	repo := &services.MockRateLimitRepository{
		CountRecentFailuresFunc: func(ctx context.Context, email, ip string, since time.Time) (int, error) {
			return 5, nil
		},
		FirstFailureSinceFunc: func(ctx context.Context, email, ip string, since time.Time) (*time.Time, error) {
			return &firstFailure, nil
		},
	}
	securityLog := &services.MockSecurityLogRepository{}

	service := services.NewRateLimitService(repo, securityLog, testRateLimitConfig(), logger)

	decision, err := service.Check(context.Background(), "test@example.com", "192.168.1.1")

	require.NoError(t, err)
	assert.True(t, decision.IsBlocked)
	assert.Equal(t, 0, decision.AttemptsRemaining)
	require.NotNil(t, decision.BlockedUntil)
	assert.WithinDuration(t, firstFailure.Add(15*time.Minute), *decision.BlockedUntil, time.Second)
}

func TestRateLimitServiceCheck_ExpiredLockoutAllows(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	// First failure 20 minutes ago, lockout duration 15 minutes
	firstFailure := time.Now().Add(-20 * time.Minute)
	repo := &services.MockRateLimitRepository{
		CountRecentFailuresFunc: func(ctx context.Context, email, ip string, since time.Time) (int, error) {
			return 5, nil
		},
		FirstFailureSinceFunc: func(ctx context.Context, email, ip string, since time.Time) (*time.Time, error) {
			return &firstFailure, nil
		},
	}
	securityLog := &services.MockSecurityLogRepository{}

	config := testRateLimitConfig()
	config.LookbackWindow = time.Hour
	service := services.NewRateLimitService(repo, securityLog, config, logger)

	decision, err := service.Check(context.Background(), "test@example.com", "192.168.1.1")

	require.NoError(t, err)
	assert.False(t, decision.IsBlocked)
}

func TestRateLimitServiceCheck_StorageErrorPropagates(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	repo := &services.MockRateLimitRepository{
		CountRecentFailuresFunc: func(ctx context.Context, email, ip string, since time.Time) (int, error) {
			return 0, errors.New("connection refused")
		},
	}
	securityLog := &services.MockSecurityLogRepository{}

	service := services.NewRateLimitService(repo, securityLog, testRateLimitConfig(), logger)

	decision, err := service.Check(context.Background(), "test@example.com", "192.168.1.1")

	assert.Error(t, err)
	assert.Nil(t, decision)
}

func TestRateLimitServiceCheck_NormalizesEmail(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	var seenEmail string
	repo := &services.MockRateLimitRepository{
		CountRecentFailuresFunc: func(ctx context.Context, email, ip string, since time.Time) (int, error) {
			seenEmail = email
			return 0, nil
		},
	}
	securityLog := &services.MockSecurityLogRepository{}

	service := services.NewRateLimitService(repo, securityLog, testRateLimitConfig(), logger)

	_, err := service.Check(context.Background(), "  Test@Example.COM  ", "192.168.1.1")

	require.NoError(t, err)
	assert.Equal(t, "test@example.com", seenEmail)
}

func TestRateLimitServiceRecord_PersistsAttemptAndSecurityLog(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	var recorded *models.LoginAttempt
	repo := &services.MockRateLimitRepository{
		RecordAttemptFunc: func(ctx context.Context, attempt *models.LoginAttempt) error {
			recorded = attempt
			return nil
		},
	}
	securityLog := &services.MockSecurityLogRepository{}

	service := services.NewRateLimitService(repo, securityLog, testRateLimitConfig(), logger)

	reason := "invalid_credentials"
	err := service.Record(context.Background(), "test@example.com", "192.168.1.1", "Mozilla/5.0", "US", false, &reason)

	require.NoError(t, err)
	require.NotNil(t, recorded)
	assert.False(t, recorded.Success)
	assert.Equal(t, "test@example.com", recorded.Email)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), recorded.ExpiresAt, time.Minute)

	require.Len(t, securityLog.Inserted, 1)
	assert.Equal(t, models.SecurityEventLoginFailed, securityLog.Inserted[0].EventType)
	assert.Equal(t, "US", securityLog.Inserted[0].Metadata["country"])
}

func TestRateLimitServiceRecord_SecurityLogFailureDoesNotFailRecord(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	repo := &services.MockRateLimitRepository{}
	securityLog := &services.MockSecurityLogRepository{
		InsertFunc: func(ctx context.Context, entry *models.SecurityLog) error {
			return errors.New("log table unavailable")
		},
	}

	service := services.NewRateLimitService(repo, securityLog, testRateLimitConfig(), logger)

	err := service.Record(context.Background(), "test@example.com", "192.168.1.1", "Mozilla/5.0", "US", true, nil)

	assert.NoError(t, err)
}
