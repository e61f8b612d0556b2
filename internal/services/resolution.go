package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jobbridge/backend/internal/domain"
	"github.com/jobbridge/backend/internal/ledger"
	"github.com/jobbridge/backend/internal/models"
)

// ResolutionTaskStore is the slice of the task repository the dispute engine
// needs.
type ResolutionTaskStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	MarkDisputed(ctx context.Context, tx pgx.Tx, taskID uuid.UUID) (int64, error)
	ResolveStatus(ctx context.Context, tx pgx.Tx, taskID uuid.UUID, newStatus string) (int64, error)
	ListDisputed(ctx context.Context) ([]*models.Task, error)
}

// ResolutionStore persists dispute records.
type ResolutionStore interface {
	CreatePending(ctx context.Context, tx pgx.Tx, res *models.Resolution) (int64, error)
	Resolve(ctx context.Context, tx pgx.Tx, taskID, resolvedBy uuid.UUID, resolution string, payKobo int64) (int64, error)
	GetPendingByTaskID(ctx context.Context, taskID uuid.UUID) (*models.Resolution, error)
}

// UserDirectory resolves functional roles to users. Disputes are routed to
// whoever holds the manager role, never to a hard-coded display name.
type UserDirectory interface {
	ListByRole(ctx context.Context, role string) ([]*models.User, error)
}

// ResolutionService is the dispute engine: it opens disputes on completed
// tasks and drives them to a terminal disposition.
type ResolutionService struct {
	Pool        TxBeginner
	Tasks       ResolutionTaskStore
	Resolutions ResolutionStore
	Users       UserDirectory
	Ledger      ledger.Service
	Audit       AuditStore
	Notifier    Notifier
	Logger      *slog.Logger
}

func NewResolutionService(pool TxBeginner, tasks ResolutionTaskStore, resolutions ResolutionStore,
	users UserDirectory, ledgerSvc ledger.Service, audit AuditStore, notifier Notifier, logger *slog.Logger) *ResolutionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResolutionService{
		Pool: pool, Tasks: tasks, Resolutions: resolutions, Users: users,
		Ledger: ledgerSvc, Audit: audit, Notifier: notifier, Logger: logger,
	}
}

// Dispute moves a completed task to disputed and opens a pending resolution.
// Either side of the task may raise it.
func (s *ResolutionService) Dispute(ctx context.Context, taskID, callerID uuid.UUID, reason string) error {
	if reason == "" {
		return domain.Validation("dispute reason is required")
	}
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return err
	}
	isWorker := task.WorkerID != nil && *task.WorkerID == callerID
	if task.PosterID != callerID && !isWorker {
		return domain.Forbidden("only the poster or worker can dispute this task")
	}

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin dispute tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := s.Tasks.MarkDisputed(ctx, tx, taskID)
	if err != nil {
		return fmt.Errorf("mark disputed: %w", err)
	}
	if rows == 0 {
		return domain.Conflict("only completed tasks can be disputed")
	}

	created, err := s.Resolutions.CreatePending(ctx, tx, &models.Resolution{
		ID:     uuid.New(),
		TaskID: taskID,
		Reason: reason,
	})
	if err != nil {
		return fmt.Errorf("open resolution: %w", err)
	}
	if created == 0 {
		return domain.Conflict("a dispute is already open for this task")
	}

	if err := s.writeAudit(ctx, tx, callerID, "dispute_task", taskID, map[string]any{"reason": reason}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit dispute tx: %w", err)
	}

	s.notifyManagers(ctx, task, reason)
	return nil
}

// payoutFor centralizes the payout and post-resolution status rules so every
// call site applies the default-half-pay and zero-credit rules identically.
func payoutFor(resolution string, payKobo int64, override *int64) (newStatus string, payoutKobo int64, err error) {
	switch resolution {
	case models.ResolutionPaid:
		return models.TaskStatusPaid, payKobo, nil
	case models.ResolutionPartial:
		if override == nil {
			// Default: half pay, rounded down to the smallest unit.
			return models.TaskStatusPaid, payKobo / 2, nil
		}
		if *override <= 0 || *override > payKobo {
			return "", 0, domain.Validation("partial pay amount must be positive and at most the task pay")
		}
		return models.TaskStatusPaid, *override, nil
	case models.ResolutionRework:
		return models.TaskStatusActive, 0, nil
	case models.ResolutionCancelled:
		return models.TaskStatusCancelled, 0, nil
	default:
		return "", 0, domain.Validation("invalid resolution type")
	}
}

// Resolve drives a disputed task to its disposition. Manager/admin only.
// A partial resolution still counts as one full completed task for trust.
func (s *ResolutionService) Resolve(ctx context.Context, taskID, managerID uuid.UUID, callerRole, resolution string, payOverrideKobo *int64) error {
	if callerRole != models.RoleManager && callerRole != models.RoleAdmin {
		return domain.Forbidden("manager access required")
	}
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return err
	}

	newStatus, payout, err := payoutFor(resolution, task.PayKobo, payOverrideKobo)
	if err != nil {
		return err
	}

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin resolve tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := s.Resolutions.Resolve(ctx, tx, taskID, managerID, resolution, payout)
	if err != nil {
		return fmt.Errorf("resolve dispute record: %w", err)
	}
	if rows == 0 {
		return domain.AlreadyProcessed("dispute already resolved")
	}

	moved, err := s.Tasks.ResolveStatus(ctx, tx, taskID, newStatus)
	if err != nil {
		return fmt.Errorf("move task out of disputed: %w", err)
	}
	if moved == 0 {
		return domain.Conflict("task is not disputed")
	}

	var credit *ledger.CreditResult
	if task.WorkerID != nil {
		// payout 0 is the legal no-op credit on rework/cancelled.
		credit, err = s.Ledger.CreditCompletion(ctx, tx, *task.WorkerID, payout)
		if err != nil {
			return fmt.Errorf("credit worker: %w", err)
		}
	}

	if err := s.writeAudit(ctx, tx, managerID, "resolve_dispute", taskID, map[string]any{
		"resolution": resolution,
		"pay_kobo":   payout,
	}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit resolve tx: %w", err)
	}

	s.notifyResolution(ctx, task, resolution, payout, credit)
	return nil
}

// DisputeEntry is a manager-queue row: the disputed task plus the open
// dispute's reason.
type DisputeEntry struct {
	Task       *models.Task `json:"task"`
	Reason     string       `json:"reason"`
	DisputedAt time.Time    `json:"disputed_at"`
}

// Disputes lists the manager queue, oldest first.
func (s *ResolutionService) Disputes(ctx context.Context) ([]DisputeEntry, error) {
	tasks, err := s.Tasks.ListDisputed(ctx)
	if err != nil {
		return nil, fmt.Errorf("list disputed tasks: %w", err)
	}
	entries := make([]DisputeEntry, 0, len(tasks))
	for _, t := range tasks {
		entry := DisputeEntry{Task: t}
		res, err := s.Resolutions.GetPendingByTaskID(ctx, t.ID)
		if err != nil {
			return nil, fmt.Errorf("load dispute reason: %w", err)
		}
		if res != nil {
			entry.Reason = res.Reason
			entry.DisputedAt = res.CreatedAt
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *ResolutionService) getTask(ctx context.Context, taskID uuid.UUID) (*models.Task, error) {
	task, err := s.Tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NotFound("task not found")
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

func (s *ResolutionService) writeAudit(ctx context.Context, tx pgx.Tx, actorID uuid.UUID, action string, taskID uuid.UUID, details map[string]any) error {
	raw, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("marshal audit details: %w", err)
	}
	if err := s.Audit.CreateTx(ctx, tx, &models.AuditLog{
		ID:           uuid.New(),
		UserID:       actorID,
		Action:       action,
		ResourceType: "task",
		ResourceID:   taskID,
		Details:      raw,
	}); err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

func (s *ResolutionService) notifyManagers(ctx context.Context, task *models.Task, reason string) {
	managers, err := s.Users.ListByRole(ctx, models.RoleManager)
	if err != nil {
		s.Logger.Warn("manager lookup failed", "task_id", task.ID, "error", err)
		return
	}
	for _, m := range managers {
		s.Notifier.Notify(ctx, m.ID, "Task Dispute",
			fmt.Sprintf("Dispute raised for task: %s (%s)", task.Title, reason), &task.ID)
	}
}

func (s *ResolutionService) notifyResolution(ctx context.Context, task *models.Task, resolution string, payout int64, credit *ledger.CreditResult) {
	s.Notifier.Notify(ctx, task.PosterID, "Dispute Resolved",
		fmt.Sprintf("Task %q was resolved as %s", task.Title, resolution), &task.ID)

	if task.WorkerID == nil {
		return
	}
	switch {
	case payout > 0:
		title := "Payment Received"
		message := fmt.Sprintf("You received %s for: %s", naira(payout), task.Title)
		if credit != nil && credit.BecameTrusted {
			title = "Payment Received - You're now Trusted!"
			message += " And you've earned your Trusted badge!"
		}
		s.Notifier.Notify(ctx, *task.WorkerID, title, message, &task.ID)
	case resolution == models.ResolutionRework:
		s.Notifier.Notify(ctx, *task.WorkerID, "Task Sent Back",
			fmt.Sprintf("Task %q was reopened for rework", task.Title), &task.ID)
	default:
		s.Notifier.Notify(ctx, *task.WorkerID, "Dispute Resolved",
			fmt.Sprintf("Task %q was resolved as %s", task.Title, resolution), &task.ID)
	}
}
