package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jobbridge/backend/internal/models"
)

type ProofRepo struct {
	pool *pgxpool.Pool
}

func NewProofRepo(pool *pgxpool.Pool) *ProofRepo {
	return &ProofRepo{pool: pool}
}

// Upsert writes the task's proof record, overwriting any earlier submission.
// Last write wins; at most one proof row exists per task.
func (r *ProofRepo) Upsert(ctx context.Context, tx pgx.Tx, p *models.Proof) error {
	return tx.QueryRow(ctx, `
		INSERT INTO proofs (task_id, type, before_image_url, after_image_url, code, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (task_id) DO UPDATE SET
			type = EXCLUDED.type,
			before_image_url = EXCLUDED.before_image_url,
			after_image_url = EXCLUDED.after_image_url,
			code = EXCLUDED.code,
			created_at = EXCLUDED.created_at
		RETURNING created_at
	`, p.TaskID, p.Type, p.BeforeImageURL, p.AfterImageURL, p.Code).Scan(&p.SubmittedAt)
}

// GetByTaskID returns the task's proof, or nil when none was submitted.
func (r *ProofRepo) GetByTaskID(ctx context.Context, taskID uuid.UUID) (*models.Proof, error) {
	var p models.Proof
	err := r.pool.QueryRow(ctx, `
		SELECT task_id, type, before_image_url, after_image_url, code, created_at
		FROM proofs WHERE task_id = $1
	`, taskID).Scan(&p.TaskID, &p.Type, &p.BeforeImageURL, &p.AfterImageURL, &p.Code, &p.SubmittedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
