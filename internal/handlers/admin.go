package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tmcgavin/cyberlab/internal/auth"
	"github.com/tmcgavin/cyberlab/internal/models"
	"github.com/tmcgavin/cyberlab/internal/services"
	pkghttp "github.com/tmcgavin/cyberlab/pkg/http"
)

// UserServiceInterface defines the interface for user management
type UserServiceInterface interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error)
	DeleteUser(ctx context.Context, adminID, targetID string, meta services.RequestMeta) error
}

// AdminServiceInterface defines the interface for admin dashboard data
type AdminServiceInterface interface {
	GetDashboardStats(ctx context.Context) (*services.DashboardStats, error)
	ListSecurityLogs(ctx context.Context, eventType string, limit, offset int) ([]*models.SecurityLog, error)
}

// AdminHandler handles admin HTTP requests. All routes behind it
// require the admin role.
type AdminHandler struct {
	userService  UserServiceInterface
	adminService AdminServiceInterface
	ipHeaders    []string
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(userService UserServiceInterface, adminService AdminServiceInterface, ipHeaders []string) *AdminHandler {
	return &AdminHandler{
		userService:  userService,
		adminService: adminService,
		ipHeaders:    ipHeaders,
	}
}

// userView strips password material from user listings
type userView struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// Dashboard serves aggregated platform statistics
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.adminService.GetDashboardStats(r.Context())
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, stats)
}

// SecurityLogs lists security log entries, optionally filtered by the
// event_type query parameter
func (h *AdminHandler) SecurityLogs(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r)
	eventType := r.URL.Query().Get("event_type")

	entries, err := h.adminService.ListSecurityLogs(r.Context(), eventType, limit, offset)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"logs":  entries,
		"count": len(entries),
	})
}

// ListUsers returns a page of user accounts
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r)

	users, err := h.userService.ListUsers(r.Context(), limit, offset)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, userView{
			ID:        u.ID,
			Email:     u.Email,
			Name:      u.Name,
			Role:      u.Role,
			Status:    u.Status,
			CreatedAt: u.CreatedAt.Format(timeFormat),
		})
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"users": views,
		"count": len(views),
	})
}

// DeleteUser permanently removes a user account and its data
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	targetID := chi.URLParam(r, "userID")
	meta := services.RequestMeta{
		IPAddress: pkghttp.ExtractClientIP(r, h.ipHeaders),
		UserAgent: r.Header.Get("User-Agent"),
	}

	if err := h.userService.DeleteUser(r.Context(), claims.UserID, targetID, meta); err != nil {
		switch {
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "Invalid deletion target")
		case errors.Is(err, models.ErrForbidden):
			pkghttp.WriteForbidden(w, "Admin accounts cannot be deleted")
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "User not found")
		default:
			// Admin-only endpoint, so the store error detail is safe to expose
			pkghttp.WriteErrorWithDetails(w, http.StatusInternalServerError, "internal_error", "Failed to delete user", err.Error())
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "User deleted",
	})
}
