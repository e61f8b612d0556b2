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

// TxBeginner abstracts transaction creation so tests don't need a pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// TaskStore is the task repository interface used by the task service. The
// (int64, error) methods are conditional updates whose affected-row count is
// the state guard.
type TaskStore interface {
	Create(ctx context.Context, t *models.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	Reserve(ctx context.Context, taskID, workerID uuid.UUID) (int64, error)
	MarkCompleted(ctx context.Context, tx pgx.Tx, taskID, workerID uuid.UUID) (int64, error)
	MarkPaid(ctx context.Context, tx pgx.Tx, taskID uuid.UUID) (int64, error)
	CancelIfActive(ctx context.Context, taskID, posterID uuid.UUID) (int64, error)
}

// ApplicationStore manages the applicant list.
type ApplicationStore interface {
	InsertGuarded(ctx context.Context, a *models.Application) (int64, error)
	Exists(ctx context.Context, taskID, userID uuid.UUID) (bool, error)
}

// ProofStore upserts completion evidence.
type ProofStore interface {
	Upsert(ctx context.Context, tx pgx.Tx, p *models.Proof) error
}

// EscrowReleaser is the slice of the escrow repository confirm needs to keep
// the two payment paths exactly-once.
type EscrowReleaser interface {
	Release(ctx context.Context, tx pgx.Tx, escrowID, recipientID uuid.UUID) (int64, error)
}

// AuditStore writes audit rows inside the mutating transaction.
type AuditStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, a *models.AuditLog) error
}

// TaskService implements the task lifecycle: create, reserve/apply/select,
// proof submission, confirmation, cancellation.
type TaskService struct {
	Pool     TxBeginner
	Tasks    TaskStore
	Apps     ApplicationStore
	Proofs   ProofStore
	Escrows  EscrowReleaser
	Ledger   ledger.Service
	Audit    AuditStore
	Notifier Notifier
	Logger   *slog.Logger
}

func NewTaskService(pool TxBeginner, tasks TaskStore, apps ApplicationStore, proofs ProofStore,
	escrows EscrowReleaser, ledgerSvc ledger.Service, audit AuditStore, notifier Notifier, logger *slog.Logger) *TaskService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskService{
		Pool: pool, Tasks: tasks, Apps: apps, Proofs: proofs,
		Escrows: escrows, Ledger: ledgerSvc, Audit: audit, Notifier: notifier, Logger: logger,
	}
}

// CreateTaskInput carries the poster-supplied fields.
type CreateTaskInput struct {
	Title         string
	Description   string
	PayKobo       int64
	Location      string
	DateTime      time.Time
	Category      string
	Mode          string
	ProofRequired bool
}

func (s *TaskService) Create(ctx context.Context, posterID uuid.UUID, in CreateTaskInput) (*models.Task, error) {
	if in.Title == "" || in.Location == "" || in.DateTime.IsZero() {
		return nil, domain.Validation("title, location, and dateTime are required")
	}
	if in.PayKobo <= 0 {
		return nil, domain.Validation("pay must be greater than 0")
	}
	if in.Mode == "" {
		in.Mode = models.ModeSingle
	}
	if in.Mode != models.ModeSingle && in.Mode != models.ModeApplications {
		return nil, domain.Validation("mode must be single or applications")
	}
	if in.Category == "" {
		in.Category = "general"
	}

	t := &models.Task{
		ID:             uuid.New(),
		Title:          in.Title,
		Description:    in.Description,
		PayKobo:        in.PayKobo,
		Location:       in.Location,
		DateTime:       in.DateTime,
		Category:       in.Category,
		Mode:           in.Mode,
		ProofRequired:  in.ProofRequired,
		Status:         models.TaskStatusActive,
		PosterID:       posterID,
		EscrowRequired: in.PayKobo >= models.EscrowThresholdKobo,
	}
	if err := s.Tasks.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return t, nil
}

// Reserve is the first-come-first-served assignment for single-mode tasks.
func (s *TaskService) Reserve(ctx context.Context, taskID, userID uuid.UUID) error {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return err
	}
	if task.Mode != models.ModeSingle {
		return domain.Conflict("task does not support direct reservation")
	}
	if task.PosterID == userID {
		return domain.Forbidden("cannot reserve your own task")
	}

	rows, err := s.Tasks.Reserve(ctx, taskID, userID)
	if err != nil {
		return fmt.Errorf("reserve task: %w", err)
	}
	if rows == 0 {
		return domain.Conflict("task no longer available")
	}
	return nil
}

func (s *TaskService) Apply(ctx context.Context, taskID, userID uuid.UUID, note string, distanceKm float64) error {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return err
	}
	if task.Mode != models.ModeApplications {
		return domain.Conflict("task does not accept applications")
	}
	if task.PosterID == userID {
		return domain.Forbidden("cannot apply to your own task")
	}
	if task.Status != models.TaskStatusActive {
		return domain.Conflict("task no longer available")
	}

	rows, err := s.Apps.InsertGuarded(ctx, &models.Application{
		ID:         uuid.New(),
		TaskID:     taskID,
		UserID:     userID,
		Note:       note,
		DistanceKm: distanceKm,
	})
	if err != nil {
		return fmt.Errorf("insert application: %w", err)
	}
	if rows == 0 {
		applied, err := s.Apps.Exists(ctx, taskID, userID)
		if err != nil {
			return fmt.Errorf("check application: %w", err)
		}
		if applied {
			return domain.Conflict("already applied to this task")
		}
		// A selection or cancellation may have landed since the read above.
		if task, err = s.getTask(ctx, taskID); err != nil {
			return err
		}
		if task.Status != models.TaskStatusActive {
			return domain.Conflict("task no longer available")
		}
		return domain.Conflict("maximum applications reached")
	}
	return nil
}

func (s *TaskService) SelectApplicant(ctx context.Context, taskID, posterID, chosenID uuid.UUID) error {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return err
	}
	if task.PosterID != posterID {
		return domain.Forbidden("only the poster can select an applicant")
	}
	if task.Mode != models.ModeApplications {
		return domain.Conflict("task does not accept applications")
	}
	applied, err := s.Apps.Exists(ctx, taskID, chosenID)
	if err != nil {
		return fmt.Errorf("check applicant: %w", err)
	}
	if !applied {
		return domain.Conflict("user has not applied to this task")
	}

	rows, err := s.Tasks.Reserve(ctx, taskID, chosenID)
	if err != nil {
		return fmt.Errorf("select applicant: %w", err)
	}
	if rows == 0 {
		return domain.Conflict("task no longer available")
	}

	s.Notifier.Notify(ctx, chosenID, "You were selected",
		fmt.Sprintf("You were chosen for: %s", task.Title), &task.ID)
	return nil
}

func (s *TaskService) Cancel(ctx context.Context, taskID, posterID uuid.UUID) error {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return err
	}
	if task.PosterID != posterID {
		return domain.Forbidden("only the poster can cancel this task")
	}
	rows, err := s.Tasks.CancelIfActive(ctx, taskID, posterID)
	if err != nil {
		return fmt.Errorf("cancel task: %w", err)
	}
	if rows == 0 {
		return domain.Conflict("task can only be cancelled while active")
	}
	return nil
}

// ProofInput carries completion evidence. Image references come from the file
// storage collaborator; the core only stores them.
type ProofInput struct {
	Type           string
	BeforeImageURL string
	AfterImageURL  string
	Code           string
}

func (in ProofInput) validate() error {
	switch in.Type {
	case models.ProofTypePhoto:
		if in.BeforeImageURL == "" || in.AfterImageURL == "" {
			return domain.Validation("photo proof requires before and after images")
		}
	case models.ProofTypeCode:
		if in.Code == "" {
			return domain.Validation("code proof requires a non-empty code")
		}
	default:
		return domain.Validation("proof type must be photo or code")
	}
	return nil
}

// SubmitProof records evidence and moves the task to completed. Resubmission
// overwrites the previous proof.
func (s *TaskService) SubmitProof(ctx context.Context, taskID, workerID uuid.UUID, in ProofInput) error {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return err
	}
	if task.WorkerID == nil || *task.WorkerID != workerID {
		return domain.Forbidden("not authorized to submit proof for this task")
	}
	if err := in.validate(); err != nil {
		return err
	}

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin proof tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.Proofs.Upsert(ctx, tx, &models.Proof{
		TaskID:         taskID,
		Type:           in.Type,
		BeforeImageURL: in.BeforeImageURL,
		AfterImageURL:  in.AfterImageURL,
		Code:           in.Code,
	}); err != nil {
		return fmt.Errorf("upsert proof: %w", err)
	}

	rows, err := s.Tasks.MarkCompleted(ctx, tx, taskID, workerID)
	if err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	if rows == 0 {
		return domain.Conflict("task is not awaiting work")
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit proof tx: %w", err)
	}

	s.Notifier.Notify(ctx, task.PosterID, "Task Completed - Review Required",
		fmt.Sprintf("Proof submitted for task: %s", task.Title), &task.ID)
	return nil
}

// Confirm is the poster's approval: task → paid and the worker is credited.
// For escrowed tasks the hold is released in the same transaction, so the
// confirm and release-escrow paths can never both pay out.
func (s *TaskService) Confirm(ctx context.Context, taskID, posterID uuid.UUID) error {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return err
	}
	if task.PosterID != posterID {
		return domain.Forbidden("only the poster can confirm this task")
	}
	if task.WorkerID == nil {
		return domain.Conflict("task has no assigned worker")
	}
	workerID := *task.WorkerID

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin confirm tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := s.Tasks.MarkPaid(ctx, tx, taskID)
	if err != nil {
		return fmt.Errorf("mark paid: %w", err)
	}
	if rows == 0 {
		return domain.Conflict("task is not awaiting confirmation")
	}

	if task.EscrowID != nil {
		released, err := s.Escrows.Release(ctx, tx, *task.EscrowID, workerID)
		if err != nil {
			return fmt.Errorf("release escrow: %w", err)
		}
		if released == 0 {
			return domain.AlreadyProcessed("escrow already processed")
		}
	}

	credit, err := s.Ledger.CreditCompletion(ctx, tx, workerID, task.PayKobo)
	if err != nil {
		return fmt.Errorf("credit worker: %w", err)
	}

	if err := s.writeAudit(ctx, tx, posterID, "confirm_task", taskID, map[string]any{
		"pay_kobo": task.PayKobo,
	}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit confirm tx: %w", err)
	}

	s.notifyPayout(ctx, workerID, task, task.PayKobo, credit)
	return nil
}

func (s *TaskService) getTask(ctx context.Context, taskID uuid.UUID) (*models.Task, error) {
	task, err := s.Tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NotFound("task not found")
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

func (s *TaskService) writeAudit(ctx context.Context, tx pgx.Tx, actorID uuid.UUID, action string, taskID uuid.UUID, details map[string]any) error {
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

func (s *TaskService) notifyPayout(ctx context.Context, workerID uuid.UUID, task *models.Task, amountKobo int64, credit *ledger.CreditResult) {
	title := "Payment Received"
	message := fmt.Sprintf("You received %s for: %s", naira(amountKobo), task.Title)
	if credit != nil && credit.BecameTrusted {
		title = "Payment Received - You're now Trusted!"
		message += " And you've earned your Trusted badge!"
	}
	s.Notifier.Notify(ctx, workerID, title, message, &task.ID)
}

// naira renders a kobo amount for user-facing messages.
func naira(kobo int64) string {
	return fmt.Sprintf("₦%d", kobo/100)
}
