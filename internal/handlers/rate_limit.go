package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/tmcgavin/cyberlab/internal/models"
	pkghttp "github.com/tmcgavin/cyberlab/pkg/http"
)

// RateLimitChecker defines the interface for rate limit decisions
type RateLimitChecker interface {
	Check(ctx context.Context, email, ipAddress string) (*models.RateLimitDecision, error)
	Record(ctx context.Context, email, ipAddress, userAgent, country string, success bool, failureReason *string) error
}

// RateLimitHandler exposes the pre-auth rate limit endpoint consumed by
// login clients before and after credential submission
type RateLimitHandler struct {
	service   RateLimitChecker
	ipHeaders []string
}

// NewRateLimitHandler creates a new RateLimitHandler
func NewRateLimitHandler(service RateLimitChecker, ipHeaders []string) *RateLimitHandler {
	return &RateLimitHandler{service: service, ipHeaders: ipHeaders}
}

// RateLimitRequest represents the request body for the rate limit endpoint
type RateLimitRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Action  string `json:"action" validate:"required,oneof=check record"`
	Success *bool  `json:"success,omitempty"`
}

// Handle serves POST requests with both check and record actions. The
// endpoint is called cross-origin by browser clients before login, so
// it carries permissive CORS headers and answers preflight itself.
func (h *RateLimitHandler) Handle(w http.ResponseWriter, r *http.Request) {
	writeOpenCORS(w)

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	if r.Method != http.MethodPost {
		pkghttp.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Only POST is supported")
		return
	}

	var req RateLimitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	ipAddress := pkghttp.ExtractClientIP(r, h.ipHeaders)
	userAgent := r.Header.Get("User-Agent")
	country := r.Header.Get("CF-IPCountry")

	switch req.Action {
	case "check":
		decision, err := h.service.Check(r.Context(), req.Email, ipAddress)
		if err != nil {
			// Callers treat errors as blocked, so an unknown failure
			// count fails closed end to end
			pkghttp.WriteInternalError(w, "Rate limit check failed")
			return
		}
		pkghttp.WriteJSON(w, http.StatusOK, decision)

	case "record":
		success := req.Success != nil && *req.Success
		var reason *string
		if !success {
			msg := "invalid_credentials"
			reason = &msg
		}
		if err := h.service.Record(r.Context(), req.Email, ipAddress, userAgent, country, success, reason); err != nil {
			pkghttp.WriteInternalError(w, "Failed to record attempt")
			return
		}
		pkghttp.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

func writeOpenCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
}
