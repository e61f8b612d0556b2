package models

import (
	"time"

	"github.com/google/uuid"
)

// Proof types. A photo proof carries before/after image references; a code
// proof carries the code the poster handed out.
const (
	ProofTypePhoto = "photo"
	ProofTypeCode  = "code"
)

// Proof is 1:1 with a task. Resubmission overwrites; no history is kept.
type Proof struct {
	TaskID         uuid.UUID `json:"task_id"`
	Type           string    `json:"type"`
	BeforeImageURL string    `json:"before_image_url,omitempty"`
	AfterImageURL  string    `json:"after_image_url,omitempty"`
	Code           string    `json:"code,omitempty"`
	SubmittedAt    time.Time `json:"submitted_at"`
}
