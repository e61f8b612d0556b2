// Package overdue surfaces completed-but-unconfirmed tasks to managers once
// the confirmation SLA elapses. Advisory only: it never changes task status.
package overdue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"

	"github.com/jobbridge/backend/internal/models"
)

// DefaultSLA is the confirmation window after which a completed task is
// surfaced in the manager queue.
const DefaultSLA = 6 * time.Hour

// ScanArgs is the periodic River job payload. The scan carries no state.
type ScanArgs struct{}

func (ScanArgs) Kind() string { return "overdue_scan" }

// TaskSource is the slice of the task repository the scanner reads.
type TaskSource interface {
	ListOverdue(ctx context.Context, cutoff time.Time, onlyUnalerted bool) ([]*models.Task, error)
	SetManagerAlerted(ctx context.Context, taskID uuid.UUID) error
}

// ManagerDirectory resolves the manager role to users.
type ManagerDirectory interface {
	ListByRole(ctx context.Context, role string) ([]*models.User, error)
}

// Notifier matches services.Notifier without importing it.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, title, message string, taskID *uuid.UUID)
}

// Scanner is the River worker behind the periodic overdue scan.
type Scanner struct {
	river.WorkerDefaults[ScanArgs]
	Tasks    TaskSource
	Users    ManagerDirectory
	Notifier Notifier
	SLA      time.Duration
	Logger   *slog.Logger
}

func NewScanner(tasks TaskSource, users ManagerDirectory, notifier Notifier, sla time.Duration, logger *slog.Logger) *Scanner {
	if sla <= 0 {
		sla = DefaultSLA
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{Tasks: tasks, Users: users, Notifier: notifier, SLA: sla, Logger: logger}
}

// Work alerts managers about tasks newly past the SLA. Each task is surfaced
// once; the manager_alerted flag keeps repeat scans quiet.
func (s *Scanner) Work(ctx context.Context, _ *river.Job[ScanArgs]) error {
	cutoff := time.Now().Add(-s.SLA)
	tasks, err := s.Tasks.ListOverdue(ctx, cutoff, true)
	if err != nil {
		return fmt.Errorf("list overdue tasks: %w", err)
	}
	if len(tasks) == 0 {
		return nil
	}

	managers, err := s.Users.ListByRole(ctx, models.RoleManager)
	if err != nil {
		return fmt.Errorf("list managers: %w", err)
	}

	for _, t := range tasks {
		hours := HoursOverdue(t, time.Now())
		for _, m := range managers {
			s.Notifier.Notify(ctx, m.ID, "Overdue Confirmation",
				fmt.Sprintf("Task %q completed %dh ago and still awaiting confirmation", t.Title, hours), &t.ID)
		}
		if err := s.Tasks.SetManagerAlerted(ctx, t.ID); err != nil {
			s.Logger.Error("mark task alerted", "task_id", t.ID, "error", err)
		}
	}
	s.Logger.Info("overdue scan surfaced tasks", "count", len(tasks))
	return nil
}

// Entry is a row in the manager's overdue queue.
type Entry struct {
	Task         *models.Task `json:"task"`
	HoursOverdue int          `json:"hours_overdue"`
}

// Queue lists every completed task past the SLA (alerted or not), oldest
// first, with whole hours elapsed past completion.
func (s *Scanner) Queue(ctx context.Context) ([]Entry, error) {
	now := time.Now()
	tasks, err := s.Tasks.ListOverdue(ctx, now.Add(-s.SLA), false)
	if err != nil {
		return nil, fmt.Errorf("list overdue tasks: %w", err)
	}
	entries := make([]Entry, 0, len(tasks))
	for _, t := range tasks {
		entries = append(entries, Entry{Task: t, HoursOverdue: HoursOverdue(t, now)})
	}
	return entries, nil
}

// HoursOverdue is floor((now - completedAt) / 1h), or 0 when the task has no
// completion timestamp.
func HoursOverdue(t *models.Task, now time.Time) int {
	if t.CompletedAt == nil {
		return 0
	}
	h := int(now.Sub(*t.CompletedAt) / time.Hour)
	if h < 0 {
		return 0
	}
	return h
}
