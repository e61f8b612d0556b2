package models

import (
	"time"

	"github.com/google/uuid"
)

// User roles.
const (
	RoleWorker  = "worker"
	RolePoster  = "poster"
	RoleManager = "manager"
	RoleAdmin   = "admin"
)

// TrustedThreshold is the completed-task count at which a worker earns the
// trusted badge. The flag is a one-way latch; it never reverts.
const TrustedThreshold = 3

type User struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	Role           string    `json:"role"`
	LGA            string    `json:"lga"`
	Neighbourhood  string    `json:"neighbourhood"`
	Trusted        bool      `json:"trusted"`
	CompletedCount int       `json:"completed_count"`
	EarningsKobo   int64     `json:"earnings_kobo"`
	PasswordHash   string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
