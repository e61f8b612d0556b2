package models

import (
	"time"

	"github.com/google/uuid"
)

// Escrow status enums. held transitions to released exactly once.
const (
	EscrowStatusHeld     = "held"
	EscrowStatusReleased = "released"
)

type Escrow struct {
	ID          uuid.UUID  `json:"id"`
	TaskID      uuid.UUID  `json:"task_id"`
	PosterID    uuid.UUID  `json:"poster_id"`
	AmountKobo  int64      `json:"amount_kobo"`
	Status      string     `json:"status"`
	RecipientID *uuid.UUID `json:"recipient_id,omitempty"`
	ReleasedAt  *time.Time `json:"released_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
