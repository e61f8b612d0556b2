package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jobbridge/backend/internal/models"
)

const resolutionColumns = `id, task_id, reason, status, resolution, pay_kobo, resolved_by, resolved_at, created_at`

type ResolutionRepo struct {
	pool *pgxpool.Pool
}

func NewResolutionRepo(pool *pgxpool.Pool) *ResolutionRepo {
	return &ResolutionRepo{pool: pool}
}

func scanResolution(row pgx.Row) (*models.Resolution, error) {
	var res models.Resolution
	err := row.Scan(&res.ID, &res.TaskID, &res.Reason, &res.Status, &res.Resolution, &res.PayKobo,
		&res.ResolvedBy, &res.ResolvedAt, &res.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// CreatePending opens a dispute record. The NOT EXISTS guard keeps the open
// resolution unique per task at write time. Zero rows: a dispute is already
// open.
func (r *ResolutionRepo) CreatePending(ctx context.Context, tx pgx.Tx, res *models.Resolution) (int64, error) {
	tag, err := tx.Exec(ctx, `
		INSERT INTO resolutions (id, task_id, reason, status, resolution, pay_kobo)
		SELECT $1, $2, $3, $4, '', 0
		WHERE NOT EXISTS (SELECT 1 FROM resolutions WHERE task_id = $2 AND status = $4)
	`, res.ID, res.TaskID, res.Reason, models.ResolutionStatusPending)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Resolve finalizes the open resolution record. Guarded on status=pending so
// exactly one concurrent resolve succeeds.
func (r *ResolutionRepo) Resolve(ctx context.Context, tx pgx.Tx, taskID, resolvedBy uuid.UUID, resolution string, payKobo int64) (int64, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE resolutions
		SET status = $3, resolution = $4, pay_kobo = $5, resolved_by = $2, resolved_at = now()
		WHERE task_id = $1 AND status = $6
	`, taskID, resolvedBy, models.ResolutionStatusResolved, resolution, payKobo, models.ResolutionStatusPending)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// GetPendingByTaskID returns the open dispute for a task, or nil.
func (r *ResolutionRepo) GetPendingByTaskID(ctx context.Context, taskID uuid.UUID) (*models.Resolution, error) {
	res, err := scanResolution(r.pool.QueryRow(ctx, `
		SELECT `+resolutionColumns+` FROM resolutions WHERE task_id = $1 AND status = $2
	`, taskID, models.ResolutionStatusPending))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return res, err
}

func (r *ResolutionRepo) ListPending(ctx context.Context) ([]*models.Resolution, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+resolutionColumns+` FROM resolutions WHERE status = $1 ORDER BY created_at ASC
	`, models.ResolutionStatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Resolution
	for rows.Next() {
		res, err := scanResolution(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, res)
	}
	return list, rows.Err()
}
