package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// RequestRateConfig limits raw request throughput per client IP. This
// sits in front of the credential-aware limiter, which tracks failures
// per (email, IP) pair in the database.
type RequestRateConfig struct {
	RequestsPerMinute int
}

// DefaultAuthRateLimit returns the request throughput cap for auth
// endpoints
func DefaultAuthRateLimit() RequestRateConfig {
	return RequestRateConfig{RequestsPerMinute: 20}
}

// RateLimitByIP creates a middleware that rate limits requests by
// client IP
func RateLimitByIP(config RequestRateConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.RequestsPerMinute,
		1*time.Minute,
		httprate.WithKeyByRealIP(),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"rate_limit_exceeded","message":"Too many requests"}`))
		}),
	)
}
