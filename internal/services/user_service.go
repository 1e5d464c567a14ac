package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/tmcgavin/cyberlab/internal/models"
	pkglogger "github.com/tmcgavin/cyberlab/pkg/logger"
)

// UserService handles user management operations
type UserService struct {
	repo        UserRepository
	securityLog SecurityLogRepository
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewUserService creates a new UserService
func NewUserService(repo UserRepository, securityLog SecurityLogRepository, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *UserService {
	return &UserService{
		repo:        repo,
		securityLog: securityLog,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// GetUser returns a single user by ID
func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return user, nil
}

// ListUsers returns a page of users
func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	users, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		s.logger.Error("failed to list users", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return users, nil
}

// DeleteUser permanently removes a user account and its dependent data.
// Checks run in a fixed order: target ID must be a well-formed UUID,
// admins cannot delete themselves, admin accounts cannot be deleted at
// all, and the target must exist.
func (s *UserService) DeleteUser(ctx context.Context, adminID, targetID string, meta RequestMeta) error {
	if _, err := uuid.Parse(targetID); err != nil {
		return models.ErrBadRequest
	}

	if targetID == adminID {
		s.logger.Warn("admin attempted self deletion", slog.String("admin_id", adminID))
		return models.ErrBadRequest
	}

	target, err := s.repo.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to get user for deletion", slog.String("user_id", targetID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if target.IsAdmin() {
		s.logger.Warn("attempted deletion of admin account",
			slog.String("admin_id", adminID),
			slog.String("target_id", targetID))
		return models.ErrForbidden
	}

	if err := s.repo.DeleteCascade(ctx, targetID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to delete user",
			slog.String("user_id", targetID),
			slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("user deleted",
		slog.String("admin_id", adminID),
		slog.String("target_id", targetID))
	s.auditLogger.LogAdminAction("user_deletion", adminID, targetID, meta.IPAddress, nil)

	entry := &models.SecurityLog{
		EventType:   models.SecurityEventUserDeletion,
		UserID:      &adminID,
		Description: "user account deleted by admin",
		IPAddress:   meta.IPAddress,
		UserAgent:   meta.UserAgent,
		Metadata:    models.LogMetadata{"target_id": targetID, "target_email": target.Email},
	}
	if err := s.securityLog.Insert(ctx, entry); err != nil {
		s.logger.Error("failed to write security log entry", slog.Any("error", err))
	}

	return nil
}
