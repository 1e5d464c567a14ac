package services_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmcgavin/cyberlab/internal/auth"
	"github.com/tmcgavin/cyberlab/internal/models"
	"github.com/tmcgavin/cyberlab/internal/services"
	pkgauth "github.com/tmcgavin/cyberlab/pkg/auth"
	pkglogger "github.com/tmcgavin/cyberlab/pkg/logger"
)

const testJWTSecret = "test-secret-key-that-is-long-enough-for-hmac"

func newAuthService(t *testing.T, userRepo *services.MockUserRepository, rateLimitRepo *services.MockRateLimitRepository) *services.AuthService {
	t.Helper()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	securityLog := &services.MockSecurityLogRepository{}
	rateLimiter := services.NewRateLimitService(rateLimitRepo, securityLog, testRateLimitConfig(), logger)
	tm := auth.NewTokenManager(testJWTSecret, 15*time.Minute, 7*24*time.Hour)
	timing := auth.NewTimingDelay(auth.TimingConfig{BaseDelayMs: 0, RandomDelayMs: 0})

	return services.NewAuthService(userRepo, rateLimiter, tm, timing, logger, pkglogger.NewAuditLogger(logger))
}

func testUser(t *testing.T, password string) *models.User {
	t.Helper()

	hash, err := pkgauth.HashPassword(password)
	require.NoError(t, err)

	return &models.User{
		ID:           "user_123",
		Email:        "test@example.com",
		PasswordHash: hash,
		Name:         "Test User",
		Role:         models.RoleUser,
		Status:       "active",
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
}

func TestAuthServiceLogin_Success(t *testing.T) {
	user := testUser(t, "correct horse battery")
	userRepo := &services.MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		},
	}

	var recordedSuccess bool
	rateLimitRepo := &services.MockRateLimitRepository{
		RecordAttemptFunc: func(ctx context.Context, attempt *models.LoginAttempt) error {
			recordedSuccess = attempt.Success
			return nil
		},
	}

	service := newAuthService(t, userRepo, rateLimitRepo)

	resp, err := service.Login(context.Background(), "test@example.com", "correct horse battery", services.RequestMeta{IPAddress: "192.168.1.1"})

	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "user_123", resp.User.ID)
	assert.True(t, recordedSuccess)
}

func TestAuthServiceLogin_WrongPassword(t *testing.T) {
	user := testUser(t, "correct horse battery")
	userRepo := &services.MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		},
	}

	var recorded *models.LoginAttempt
	rateLimitRepo := &services.MockRateLimitRepository{
		RecordAttemptFunc: func(ctx context.Context, attempt *models.LoginAttempt) error {
			recorded = attempt
			return nil
		},
	}

	service := newAuthService(t, userRepo, rateLimitRepo)

	resp, err := service.Login(context.Background(), "test@example.com", "wrong password", services.RequestMeta{IPAddress: "192.168.1.1"})

	assert.ErrorIs(t, err, models.ErrUnauthorized)
	assert.Nil(t, resp)
	require.NotNil(t, recorded)
	assert.False(t, recorded.Success)
}

func TestAuthServiceLogin_UnknownUserStillRecordsFailure(t *testing.T) {
	userRepo := &services.MockUserRepository{}

	var recorded *models.LoginAttempt
	rateLimitRepo := &services.MockRateLimitRepository{
		RecordAttemptFunc: func(ctx context.Context, attempt *models.LoginAttempt) error {
			recorded = attempt
			return nil
		},
	}

	service := newAuthService(t, userRepo, rateLimitRepo)

	_, err := service.Login(context.Background(), "nobody@example.com", "whatever", services.RequestMeta{IPAddress: "192.168.1.1"})

	// Unknown users get the same error as wrong passwords
	assert.ErrorIs(t, err, models.ErrUnauthorized)
	require.NotNil(t, recorded)
	assert.Equal(t, "nobody@example.com", recorded.Email)
}

func TestAuthServiceLogin_RateLimitedBeforeCredentialCheck(t *testing.T) {
	credentialCheckReached := false
	userRepo := &services.MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			credentialCheckReached = true
			return nil, models.ErrNotFound
		},
	}

	firstFailure := time.Now().Add(-time.Minute)
	rateLimitRepo := &services.MockRateLimitRepository{
		CountRecentFailuresFunc: func(ctx context.Context, email, ip string, since time.Time) (int, error) {
			return 5, nil
		},
		FirstFailureSinceFunc: func(ctx context.Context, email, ip string, since time.Time) (*time.Time, error) {
			return &firstFailure, nil
		},
	}

	service := newAuthService(t, userRepo, rateLimitRepo)

	_, err := service.Login(context.Background(), "test@example.com", "anything", services.RequestMeta{IPAddress: "192.168.1.1"})

	assert.ErrorIs(t, err, models.ErrRateLimitExceeded)
	assert.False(t, credentialCheckReached)
}

func TestAuthServiceLogin_RateLimitStoreErrorBlocks(t *testing.T) {
	credentialCheckReached := false
	userRepo := &services.MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			credentialCheckReached = true
			return nil, models.ErrNotFound
		},
	}
	rateLimitRepo := &services.MockRateLimitRepository{
		CountRecentFailuresFunc: func(ctx context.Context, email, ip string, since time.Time) (int, error) {
			return 0, assert.AnError
		},
	}

	service := newAuthService(t, userRepo, rateLimitRepo)

	_, err := service.Login(context.Background(), "test@example.com", "anything", services.RequestMeta{IPAddress: "192.168.1.1"})

	assert.ErrorIs(t, err, models.ErrInternalServer)
	assert.False(t, credentialCheckReached)
}

func TestAuthServiceLogin_DisabledAccount(t *testing.T) {
	user := testUser(t, "correct horse battery")
	user.Status = "disabled"
	userRepo := &services.MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		},
	}

	service := newAuthService(t, userRepo, &services.MockRateLimitRepository{})

	_, err := service.Login(context.Background(), "test@example.com", "correct horse battery", services.RequestMeta{})

	assert.ErrorIs(t, err, models.ErrAccountDisabled)
}

func TestAuthServiceRegister_Success(t *testing.T) {
	userRepo := &services.MockUserRepository{
		CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
			user.ID = "user_456"
			user.CreatedAt = time.Now()
			user.UpdatedAt = time.Now()
			return user, nil
		},
	}

	service := newAuthService(t, userRepo, &services.MockRateLimitRepository{})

	resp, err := service.Register(context.Background(), "New@Example.com", "Sufficiently l0ng pw", "New User", services.RequestMeta{})

	require.NoError(t, err)
	assert.Equal(t, "new@example.com", resp.User.Email)
	assert.Equal(t, models.RoleUser, resp.User.Role)
	assert.NotEmpty(t, resp.AccessToken)
}

func TestAuthServiceRegister_DuplicateEmail(t *testing.T) {
	user := testUser(t, "correct horse battery")
	userRepo := &services.MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		},
	}

	service := newAuthService(t, userRepo, &services.MockRateLimitRepository{})

	_, err := service.Register(context.Background(), "test@example.com", "Sufficiently l0ng pw", "Dup", services.RequestMeta{})

	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestAuthServiceRegister_RejectsWeakPassword(t *testing.T) {
	service := newAuthService(t, &services.MockUserRepository{}, &services.MockRateLimitRepository{})

	_, err := service.Register(context.Background(), "test@example.com", "short", "User", services.RequestMeta{})

	assert.Error(t, err)
}

func TestAuthServiceRefreshToken_RoundTrip(t *testing.T) {
	user := testUser(t, "correct horse battery")
	userRepo := &services.MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
	}

	tm := auth.NewTokenManager(testJWTSecret, 15*time.Minute, 7*24*time.Hour)
	refreshToken, err := tm.GenerateRefreshToken(user)
	require.NoError(t, err)

	service := newAuthService(t, userRepo, &services.MockRateLimitRepository{})

	resp, err := service.RefreshToken(context.Background(), refreshToken)

	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, user.ID, resp.User.ID)
}

func TestAuthServiceRefreshToken_RejectsAccessToken(t *testing.T) {
	user := testUser(t, "correct horse battery")
	userRepo := &services.MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
	}

	tm := auth.NewTokenManager(testJWTSecret, 15*time.Minute, 7*24*time.Hour)
	accessToken, err := tm.GenerateAccessToken(user)
	require.NoError(t, err)

	service := newAuthService(t, userRepo, &services.MockRateLimitRepository{})

	_, err = service.RefreshToken(context.Background(), accessToken)

	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestAuthServiceRefreshToken_RejectsTokenIssuedBeforePasswordChange(t *testing.T) {
	user := testUser(t, "correct horse battery")

	tm := auth.NewTokenManager(testJWTSecret, 15*time.Minute, 7*24*time.Hour)
	refreshToken, err := tm.GenerateRefreshToken(user)
	require.NoError(t, err)

	changed := time.Now().Add(time.Minute)
	user.PasswordChangedAt = &changed

	userRepo := &services.MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
	}

	service := newAuthService(t, userRepo, &services.MockRateLimitRepository{})

	_, err = service.RefreshToken(context.Background(), refreshToken)

	assert.ErrorIs(t, err, models.ErrUnauthorized)
}
