package models

import (
	"time"

	"github.com/google/uuid"
)

// Resolution record status.
const (
	ResolutionStatusPending  = "pending"
	ResolutionStatusResolved = "resolved"
)

// Manager dispositions of a disputed task.
const (
	ResolutionPaid      = "paid"
	ResolutionPartial   = "partial"
	ResolutionRework    = "rework"
	ResolutionCancelled = "cancelled"
)

// Resolution is a dispute record. At most one pending resolution exists per
// task; a later dispute on the same task creates a new record.
type Resolution struct {
	ID         uuid.UUID  `json:"id"`
	TaskID     uuid.UUID  `json:"task_id"`
	Reason     string     `json:"reason"`
	Status     string     `json:"status"`
	Resolution string     `json:"resolution,omitempty"`
	PayKobo    int64      `json:"pay_kobo"`
	ResolvedBy *uuid.UUID `json:"resolved_by,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
