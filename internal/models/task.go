package models

import (
	"time"

	"github.com/google/uuid"
)

// Task status enums. paid and cancelled are terminal.
const (
	TaskStatusActive    = "active"
	TaskStatusReserved  = "reserved"
	TaskStatusCompleted = "completed"
	TaskStatusPaid      = "paid"
	TaskStatusDisputed  = "disputed"
	TaskStatusCancelled = "cancelled"
)

// Assignment modes, fixed at creation.
const (
	ModeSingle       = "single"
	ModeApplications = "applications"
)

// MaxApplicants caps the applicant list for applications-mode tasks.
const MaxApplicants = 3

// EscrowThresholdKobo: tasks paying at or above this amount require escrow.
const EscrowThresholdKobo int64 = 500_000 // ₦5,000

type Task struct {
	ID             uuid.UUID  `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	PayKobo        int64      `json:"pay_kobo"`
	Location       string     `json:"location"`
	DateTime       time.Time  `json:"date_time"`
	Category       string     `json:"category"`
	Mode           string     `json:"mode"`
	ProofRequired  bool       `json:"proof_required"`
	Status         string     `json:"status"`
	PosterID       uuid.UUID  `json:"poster_id"`
	WorkerID       *uuid.UUID `json:"worker_id,omitempty"`
	EscrowRequired bool       `json:"escrow_required"`
	EscrowID       *uuid.UUID `json:"escrow_id,omitempty"`
	ManagerAlerted bool       `json:"manager_alerted"`
	ReservedAt     *time.Time `json:"reserved_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	ConfirmedAt    *time.Time `json:"confirmed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Application is one applicant row on an applications-mode task.
type Application struct {
	ID         uuid.UUID `json:"id"`
	TaskID     uuid.UUID `json:"task_id"`
	UserID     uuid.UUID `json:"user_id"`
	Note       string    `json:"note"`
	DistanceKm float64   `json:"distance_km"`
	CreatedAt  time.Time `json:"applied_at"`
}
