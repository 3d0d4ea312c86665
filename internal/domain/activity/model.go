package activity

import (
	"time"

	"github.com/google/uuid"
)

// Entry is one recorded user action.
type Entry struct {
	ID         uuid.UUID `json:"id"`
	UserID     string    `json:"user_id"`
	UserName   string    `json:"user_name"`
	Action     string    `json:"action"`
	Resource   string    `json:"resource"`
	ResourceID string    `json:"resource_id,omitempty"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	StatusCode int       `json:"status_code"`
	IPAddress  string    `json:"ip_address,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Filter narrows a listing. Empty fields match everything.
type Filter struct {
	UserID   string
	Action   string
	Resource string
	Since    *time.Time
}
