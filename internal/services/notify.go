package services

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jobbridge/backend/internal/models"
)

// Notifier delivers notifications to users. Fire-and-forget: delivery failure
// must never roll back the state transition that triggered it.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, title, message string, taskID *uuid.UUID)
}

// NotificationStore persists notification rows.
type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
}

// Emitter is the default Notifier backed by the notifications table.
type Emitter struct {
	Store  NotificationStore
	Logger *slog.Logger
}

func NewEmitter(store NotificationStore, logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{Store: store, Logger: logger}
}

var _ Notifier = (*Emitter)(nil)

func (e *Emitter) Notify(ctx context.Context, userID uuid.UUID, title, message string, taskID *uuid.UUID) {
	n := &models.Notification{
		ID:      uuid.New(),
		UserID:  userID,
		Title:   title,
		Message: message,
		TaskID:  taskID,
	}
	if err := e.Store.Create(ctx, n); err != nil {
		e.Logger.Warn("notification delivery failed", "user_id", userID, "title", title, "error", err)
	}
}
