package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jobbridge/backend/internal/domain"
	"github.com/jobbridge/backend/internal/ledger"
	"github.com/jobbridge/backend/internal/models"
)

// EscrowStore is the escrow repository interface for the escrow service.
type EscrowStore interface {
	Create(ctx context.Context, tx pgx.Tx, e *models.Escrow) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Escrow, error)
	Release(ctx context.Context, tx pgx.Tx, escrowID, recipientID uuid.UUID) (int64, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Escrow, error)
}

// EscrowTaskStore is the slice of the task repository escrow needs.
type EscrowTaskStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	SetEscrow(ctx context.Context, tx pgx.Tx, taskID, escrowID uuid.UUID) error
	MarkPaidFromEscrow(ctx context.Context, tx pgx.Tx, taskID uuid.UUID) (int64, error)
}

// EscrowService holds and releases simulated escrow payments for high-value
// tasks. Release is the alternate payment path to poster confirmation; both
// converge on the same ledger credit and terminal task state.
type EscrowService struct {
	Pool     TxBeginner
	Escrows  EscrowStore
	Tasks    EscrowTaskStore
	Ledger   ledger.Service
	Audit    AuditStore
	Notifier Notifier
	Logger   *slog.Logger
}

func NewEscrowService(pool TxBeginner, escrows EscrowStore, tasks EscrowTaskStore,
	ledgerSvc ledger.Service, audit AuditStore, notifier Notifier, logger *slog.Logger) *EscrowService {
	if logger == nil {
		logger = slog.Default()
	}
	return &EscrowService{
		Pool: pool, Escrows: escrows, Tasks: tasks,
		Ledger: ledgerSvc, Audit: audit, Notifier: notifier, Logger: logger,
	}
}

// Create opens a held escrow for the task. The amount must equal task pay
// exactly; partial escrow is not a thing.
func (s *EscrowService) Create(ctx context.Context, taskID, posterID uuid.UUID, amountKobo int64) (*models.Escrow, error) {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.PosterID != posterID {
		return nil, domain.Forbidden("only the poster can create escrow for this task")
	}
	if amountKobo != task.PayKobo {
		return nil, domain.Validation("escrow amount must match task pay")
	}
	if task.Status == models.TaskStatusPaid || task.Status == models.TaskStatusCancelled {
		return nil, domain.Conflict("task is already settled")
	}
	if task.EscrowID != nil {
		return nil, domain.Conflict("escrow already exists for this task")
	}

	e := &models.Escrow{
		ID:         uuid.New(),
		TaskID:     taskID,
		PosterID:   posterID,
		AmountKobo: amountKobo,
		Status:     models.EscrowStatusHeld,
	}

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin escrow tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.Escrows.Create(ctx, tx, e); err != nil {
		return nil, fmt.Errorf("create escrow: %w", err)
	}
	if err := s.Tasks.SetEscrow(ctx, tx, taskID, e.ID); err != nil {
		return nil, fmt.Errorf("link escrow to task: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit escrow tx: %w", err)
	}
	return e, nil
}

// Release pays the held amount to the recipient (defaulting to the task's
// worker), credits the ledger, and settles the task — all in one transaction.
// Exactly one concurrent release succeeds; the loser gets AlreadyProcessed.
func (s *EscrowService) Release(ctx context.Context, escrowID, posterID uuid.UUID, recipientID *uuid.UUID) error {
	e, err := s.Escrows.GetByID(ctx, escrowID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.NotFound("escrow not found")
		}
		return fmt.Errorf("get escrow: %w", err)
	}
	if e.PosterID != posterID {
		return domain.Forbidden("only the escrow owner can release it")
	}
	if e.Status != models.EscrowStatusHeld {
		return domain.AlreadyProcessed("escrow already processed")
	}

	task, err := s.getTask(ctx, e.TaskID)
	if err != nil {
		return err
	}

	recipient := uuid.Nil
	if recipientID != nil {
		recipient = *recipientID
	} else if task.WorkerID != nil {
		recipient = *task.WorkerID
	}
	if recipient == uuid.Nil {
		return domain.Validation("no recipient specified")
	}

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin release tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := s.Escrows.Release(ctx, tx, escrowID, recipient)
	if err != nil {
		return fmt.Errorf("release escrow: %w", err)
	}
	if rows == 0 {
		return domain.AlreadyProcessed("escrow already processed")
	}

	paid, err := s.Tasks.MarkPaidFromEscrow(ctx, tx, e.TaskID)
	if err != nil {
		return fmt.Errorf("settle task: %w", err)
	}
	if paid == 0 {
		return domain.AlreadyProcessed("task already settled")
	}

	credit, err := s.Ledger.CreditCompletion(ctx, tx, recipient, e.AmountKobo)
	if err != nil {
		return fmt.Errorf("credit recipient: %w", err)
	}

	if err := s.writeAudit(ctx, tx, posterID, escrowID, recipient, e.AmountKobo); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit release tx: %w", err)
	}

	title := "Escrow Released"
	message := fmt.Sprintf("You received %s for: %s", naira(e.AmountKobo), task.Title)
	if credit.BecameTrusted {
		title = "Escrow Released - You're now Trusted!"
		message += " And you've earned your Trusted badge!"
	}
	s.Notifier.Notify(ctx, recipient, title, message, &task.ID)
	return nil
}

func (s *EscrowService) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Escrow, error) {
	return s.Escrows.ListByUser(ctx, userID)
}

func (s *EscrowService) getTask(ctx context.Context, taskID uuid.UUID) (*models.Task, error) {
	task, err := s.Tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NotFound("task not found")
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

func (s *EscrowService) writeAudit(ctx context.Context, tx pgx.Tx, actorID, escrowID, recipient uuid.UUID, amountKobo int64) error {
	details := fmt.Sprintf(`{"recipient_id":%q,"amount_kobo":%d}`, recipient.String(), amountKobo)
	if err := s.Audit.CreateTx(ctx, tx, &models.AuditLog{
		ID:           uuid.New(),
		UserID:       actorID,
		Action:       "release_escrow",
		ResourceType: "escrow",
		ResourceID:   escrowID,
		Details:      []byte(details),
	}); err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}
