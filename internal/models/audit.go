package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditLog records manager and payment actions. Written inside the mutating
// transaction so the trail and the state change commit together.
type AuditLog struct {
	ID           uuid.UUID       `json:"id"`
	UserID       uuid.UUID       `json:"user_id"`
	Action       string          `json:"action"`
	ResourceType string          `json:"resource_type"`
	ResourceID   uuid.UUID       `json:"resource_id"`
	Details      json.RawMessage `json:"details,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}
