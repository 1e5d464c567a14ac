package models

import "time"

// LoginAttempt is one row in the login-attempt ledger, keyed by
// (email, source address) for rate-limit decisions.
type LoginAttempt struct {
	ID            string
	Email         string
	IPAddress     string
	UserAgent     string
	AttemptTime   time.Time
	Success       bool
	FailureReason *string
	ExpiresAt     time.Time
}

// RateLimitDecision is the outcome of evaluating the ledger for one
// (email, source address) key.
type RateLimitDecision struct {
	IsBlocked         bool       `json:"isBlocked"`
	AttemptsRemaining int        `json:"attemptsRemaining"`
	BlockedUntil      *time.Time `json:"blockedUntil"`
}
