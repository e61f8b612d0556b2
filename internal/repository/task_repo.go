package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jobbridge/backend/internal/models"
)

const taskColumns = `id, title, description, pay_kobo, location, date_time, category, mode, proof_required,
	status, poster_id, worker_id, escrow_required, escrow_id, manager_alerted,
	reserved_at, completed_at, confirmed_at, created_at, updated_at`

type TaskRepo struct {
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{pool: pool}
}

func scanTask(row pgx.Row) (*models.Task, error) {
	var t models.Task
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.PayKobo, &t.Location, &t.DateTime, &t.Category,
		&t.Mode, &t.ProofRequired, &t.Status, &t.PosterID, &t.WorkerID, &t.EscrowRequired, &t.EscrowID,
		&t.ManagerAlerted, &t.ReservedAt, &t.CompletedAt, &t.ConfirmedAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TaskRepo) Create(ctx context.Context, t *models.Task) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO tasks (id, title, description, pay_kobo, location, date_time, category, mode, proof_required, status, poster_id, escrow_required)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`, t.ID, t.Title, t.Description, t.PayKobo, t.Location, t.DateTime, t.Category, t.Mode, t.ProofRequired, t.Status, t.PosterID, t.EscrowRequired).
		Scan(&t.CreatedAt, &t.UpdatedAt)
}

func (r *TaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	return scanTask(r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
}

// ListFilter narrows List. Zero values mean "no filter".
type ListFilter struct {
	Status   string
	PosterID uuid.UUID
	WorkerID uuid.UUID
	Limit    int
	Offset   int
}

func (r *TaskRepo) List(ctx context.Context, f ListFilter) ([]*models.Task, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE ($1 = '' OR status = $1)
			AND ($2::uuid IS NULL OR poster_id = $2)
			AND ($3::uuid IS NULL OR worker_id = $3)
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5
	`, f.Status, nullUUID(f.PosterID), nullUUID(f.WorkerID), f.Limit, f.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

func nullUUID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func collectTasks(rows pgx.Rows) ([]*models.Task, error) {
	var list []*models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// Reserve assigns the worker iff the task is still active and unassigned.
// The affected-row count decides the race: zero rows means another worker won.
func (r *TaskRepo) Reserve(ctx context.Context, taskID, workerID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tasks SET status = $3, worker_id = $2, reserved_at = now(), updated_at = now()
		WHERE id = $1 AND status = $4 AND worker_id IS NULL
	`, taskID, workerID, models.TaskStatusReserved, models.TaskStatusActive)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// MarkCompleted moves a task to completed within the proof transaction. The
// active arm covers tasks sent back for rework with the worker preserved.
func (r *TaskRepo) MarkCompleted(ctx context.Context, tx pgx.Tx, taskID, workerID uuid.UUID) (int64, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE tasks SET status = $3, completed_at = now(), manager_alerted = false, updated_at = now()
		WHERE id = $1 AND worker_id = $2 AND status IN ($4, $5)
	`, taskID, workerID, models.TaskStatusCompleted, models.TaskStatusReserved, models.TaskStatusActive)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// MarkPaid confirms a completed task. Zero rows: not completed any more.
func (r *TaskRepo) MarkPaid(ctx context.Context, tx pgx.Tx, taskID uuid.UUID) (int64, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE tasks SET status = $2, confirmed_at = now(), updated_at = now()
		WHERE id = $1 AND status = $3
	`, taskID, models.TaskStatusPaid, models.TaskStatusCompleted)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// MarkPaidFromEscrow pays a task via escrow release. It refuses terminal
// states so a task is never paid twice.
func (r *TaskRepo) MarkPaidFromEscrow(ctx context.Context, tx pgx.Tx, taskID uuid.UUID) (int64, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE tasks SET status = $2, confirmed_at = now(), updated_at = now()
		WHERE id = $1 AND status NOT IN ($2, $3)
	`, taskID, models.TaskStatusPaid, models.TaskStatusCancelled)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *TaskRepo) MarkDisputed(ctx context.Context, tx pgx.Tx, taskID uuid.UUID) (int64, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE tasks SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3
	`, taskID, models.TaskStatusDisputed, models.TaskStatusCompleted)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ResolveStatus moves a disputed task to its post-resolution status. Worker
// and applicants are left untouched (rework keeps both).
func (r *TaskRepo) ResolveStatus(ctx context.Context, tx pgx.Tx, taskID uuid.UUID, newStatus string) (int64, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE tasks SET status = $2, confirmed_at = now(), updated_at = now()
		WHERE id = $1 AND status = $3
	`, taskID, newStatus, models.TaskStatusDisputed)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// CancelIfActive is the poster's direct active → cancelled transition.
func (r *TaskRepo) CancelIfActive(ctx context.Context, taskID, posterID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tasks SET status = $3, updated_at = now()
		WHERE id = $1 AND poster_id = $2 AND status = $4
	`, taskID, posterID, models.TaskStatusCancelled, models.TaskStatusActive)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *TaskRepo) SetEscrow(ctx context.Context, tx pgx.Tx, taskID, escrowID uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		UPDATE tasks SET escrow_required = true, escrow_id = $2, updated_at = now() WHERE id = $1
	`, taskID, escrowID)
	return err
}

// ListOverdue returns completed tasks whose confirmation window elapsed
// before the cutoff. onlyUnalerted restricts to tasks not yet surfaced.
func (r *TaskRepo) ListOverdue(ctx context.Context, cutoff time.Time, onlyUnalerted bool) ([]*models.Task, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE status = $1 AND completed_at < $2 AND (NOT $3 OR manager_alerted = false)
		ORDER BY completed_at ASC
	`, models.TaskStatusCompleted, cutoff, onlyUnalerted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

func (r *TaskRepo) SetManagerAlerted(ctx context.Context, taskID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE tasks SET manager_alerted = true, updated_at = now() WHERE id = $1`, taskID)
	return err
}

func (r *TaskRepo) ListDisputed(ctx context.Context) ([]*models.Task, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+taskColumns+` FROM tasks WHERE status = $1 ORDER BY updated_at ASC
	`, models.TaskStatusDisputed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

// ManagerStats backs the manager dashboard.
type ManagerStats struct {
	ActiveDisputes       int `json:"active_disputes"`
	OverdueConfirmations int `json:"overdue_confirmations"`
	ResolvedToday        int `json:"resolved_today"`
}

func (r *TaskRepo) Stats(ctx context.Context, overdueCutoff time.Time) (*ManagerStats, error) {
	var s ManagerStats
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = $1),
			COUNT(*) FILTER (WHERE status = $2 AND completed_at < $3),
			COUNT(*) FILTER (WHERE status = $4 AND confirmed_at > now() - interval '24 hours')
		FROM tasks
	`, models.TaskStatusDisputed, models.TaskStatusCompleted, overdueCutoff, models.TaskStatusPaid).
		Scan(&s.ActiveDisputes, &s.OverdueConfirmations, &s.ResolvedToday)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CountPendingConfirmations counts this worker's tasks awaiting confirmation.
func (r *TaskRepo) CountPendingConfirmations(ctx context.Context, workerID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM tasks WHERE worker_id = $1 AND status = $2
	`, workerID, models.TaskStatusCompleted).Scan(&n)
	return n, err
}
