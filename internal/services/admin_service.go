package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/tmcgavin/cyberlab/internal/models"
)

// UserStatsRepository provides user counts for the dashboard
type UserStatsRepository interface {
	CountTotal(ctx context.Context) (int64, error)
	CountByRole(ctx context.Context, role string) (int64, error)
}

// EnrollmentStatsRepository provides enrollment counts for the dashboard
type EnrollmentStatsRepository interface {
	CountTotal(ctx context.Context) (int64, error)
	CountCompleted(ctx context.Context) (int64, error)
}

// CertificateStatsRepository provides certificate counts for the dashboard
type CertificateStatsRepository interface {
	CountIssuedSince(ctx context.Context, since time.Time) (int64, error)
}

// SecurityLogReader provides read access to the security log
type SecurityLogReader interface {
	ListRecent(ctx context.Context, limit, offset int) ([]*models.SecurityLog, error)
	ListByEventType(ctx context.Context, eventType string, limit, offset int) ([]*models.SecurityLog, error)
	CountTodayByEventType(ctx context.Context, eventType string) (int64, error)
}

// DashboardStats summarizes platform activity for admins
type DashboardStats struct {
	TotalUsers           int64 `json:"total_users"`
	AdminUsers           int64 `json:"admin_users"`
	TotalEnrollments     int64 `json:"total_enrollments"`
	CompletedEnrollments int64 `json:"completed_enrollments"`
	CertificatesThisWeek int64 `json:"certificates_this_week"`
	FailedLoginsToday    int64 `json:"failed_logins_today"`
	BlockedLoginsToday   int64 `json:"blocked_logins_today"`
}

// AdminService serves the admin dashboard and security log views
type AdminService struct {
	userStats       UserStatsRepository
	enrollmentStats EnrollmentStatsRepository
	certStats       CertificateStatsRepository
	securityLog     SecurityLogReader
	logger          *slog.Logger
}

// NewAdminService creates a new AdminService
func NewAdminService(userStats UserStatsRepository, enrollmentStats EnrollmentStatsRepository, certStats CertificateStatsRepository, securityLog SecurityLogReader, logger *slog.Logger) *AdminService {
	return &AdminService{
		userStats:       userStats,
		enrollmentStats: enrollmentStats,
		certStats:       certStats,
		securityLog:     securityLog,
		logger:          logger,
	}
}

// GetDashboardStats aggregates counters for the admin dashboard
func (s *AdminService) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{}
	var err error

	if stats.TotalUsers, err = s.userStats.CountTotal(ctx); err != nil {
		s.logger.Error("failed to count users", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if stats.AdminUsers, err = s.userStats.CountByRole(ctx, models.RoleAdmin); err != nil {
		s.logger.Error("failed to count admins", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if stats.TotalEnrollments, err = s.enrollmentStats.CountTotal(ctx); err != nil {
		s.logger.Error("failed to count enrollments", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if stats.CompletedEnrollments, err = s.enrollmentStats.CountCompleted(ctx); err != nil {
		s.logger.Error("failed to count completed enrollments", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if stats.CertificatesThisWeek, err = s.certStats.CountIssuedSince(ctx, time.Now().AddDate(0, 0, -7)); err != nil {
		s.logger.Error("failed to count certificates", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if stats.FailedLoginsToday, err = s.securityLog.CountTodayByEventType(ctx, models.SecurityEventLoginFailed); err != nil {
		s.logger.Error("failed to count failed logins", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if stats.BlockedLoginsToday, err = s.securityLog.CountTodayByEventType(ctx, models.SecurityEventLoginBlocked); err != nil {
		s.logger.Error("failed to count blocked logins", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return stats, nil
}

// ListSecurityLogs returns recent security log entries, optionally
// filtered by event type
func (s *AdminService) ListSecurityLogs(ctx context.Context, eventType string, limit, offset int) ([]*models.SecurityLog, error) {
	var entries []*models.SecurityLog
	var err error

	if eventType != "" {
		entries, err = s.securityLog.ListByEventType(ctx, eventType, limit, offset)
	} else {
		entries, err = s.securityLog.ListRecent(ctx, limit, offset)
	}
	if err != nil {
		s.logger.Error("failed to list security logs", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return entries, nil
}
