package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Event types recorded in the security log
const (
	SecurityEventLoginSuccess      = "login_success"
	SecurityEventLoginFailed       = "login_failed"
	SecurityEventLoginBlocked      = "login_blocked"
	SecurityEventUserRegistered    = "user_registered"
	SecurityEventUserDeletion      = "user_deletion"
	SecurityEventUserEnrolled      = "user_enrolled"
	SecurityEventCertificateIssued = "certificate_issued"
)

// SecurityLog is an immutable audit record. Rows are append-only and
// never mutated or deleted.
type SecurityLog struct {
	ID          string      `json:"id"`
	EventType   string      `json:"event_type"`
	UserID      *string     `json:"user_id,omitempty"`
	Description string      `json:"description"`
	IPAddress   string      `json:"ip_address"`
	UserAgent   string      `json:"user_agent"`
	Metadata    LogMetadata `json:"metadata"`
	CreatedAt   time.Time   `json:"created_at"`
}

// LogMetadata holds arbitrary structured context, stored as JSONB.
type LogMetadata map[string]interface{}

// Scan implements sql.Scanner for JSONB
func (m *LogMetadata) Scan(value interface{}) error {
	if value == nil {
		*m = make(LogMetadata)
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return ErrBadRequest
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(bytes, &decoded); err != nil {
		return err
	}
	*m = LogMetadata(decoded)
	return nil
}

// Value implements driver.Valuer for JSONB
func (m LogMetadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// MarshalJSON implements json.Marshaler
func (m LogMetadata) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}(m))
}

// UnmarshalJSON implements json.Unmarshaler
func (m *LogMetadata) UnmarshalJSON(data []byte) error {
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*m = LogMetadata(decoded)
	return nil
}
