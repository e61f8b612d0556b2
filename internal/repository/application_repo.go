package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jobbridge/backend/internal/models"
)

type ApplicationRepo struct {
	pool *pgxpool.Pool
}

func NewApplicationRepo(pool *pgxpool.Pool) *ApplicationRepo {
	return &ApplicationRepo{pool: pool}
}

// InsertGuarded appends an applicant while the task is still active and
// accepting applications, the cap is not reached, and the user has not applied
// before. The parent task row is locked first, so concurrent applications and
// a concurrent worker selection serialize: once a worker is chosen the status
// re-check under the lock sees reserved and no further applicant can slip in,
// and two overlapping applications see each other's committed rows when
// re-evaluating the cap and duplicate guards. Returns the affected-row count
// (0 means a guard failed).
func (r *ApplicationRepo) InsertGuarded(ctx context.Context, a *models.Application) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var taskID uuid.UUID
	err = tx.QueryRow(ctx, `
		SELECT id FROM tasks
		WHERE id = $1 AND status = $2 AND mode = $3
		FOR UPDATE
	`, a.TaskID, models.TaskStatusActive, models.ModeApplications).Scan(&taskID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	tag, err := tx.Exec(ctx, `
		INSERT INTO applications (id, task_id, user_id, note, distance_km)
		SELECT $1, $2, $3, $4, $5
		WHERE (SELECT COUNT(*) FROM applications WHERE task_id = $2) < $6
			AND NOT EXISTS (SELECT 1 FROM applications WHERE task_id = $2 AND user_id = $3)
	`, a.ID, a.TaskID, a.UserID, a.Note, a.DistanceKm, models.MaxApplicants)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *ApplicationRepo) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*models.Application, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, task_id, user_id, note, distance_km, created_at
		FROM applications WHERE task_id = $1 ORDER BY created_at ASC
	`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Application
	for rows.Next() {
		var a models.Application
		if err := rows.Scan(&a.ID, &a.TaskID, &a.UserID, &a.Note, &a.DistanceKm, &a.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &a)
	}
	return list, rows.Err()
}

func (r *ApplicationRepo) Exists(ctx context.Context, taskID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM applications WHERE task_id = $1 AND user_id = $2)
	`, taskID, userID).Scan(&exists)
	return exists, err
}
