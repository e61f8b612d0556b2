package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jobbridge/backend/internal/models"
)

const escrowColumns = `id, task_id, poster_id, amount_kobo, status, recipient_id, released_at, created_at`

type EscrowRepo struct {
	pool *pgxpool.Pool
}

func NewEscrowRepo(pool *pgxpool.Pool) *EscrowRepo {
	return &EscrowRepo{pool: pool}
}

func scanEscrow(row pgx.Row) (*models.Escrow, error) {
	var e models.Escrow
	err := row.Scan(&e.ID, &e.TaskID, &e.PosterID, &e.AmountKobo, &e.Status, &e.RecipientID, &e.ReleasedAt, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EscrowRepo) Create(ctx context.Context, tx pgx.Tx, e *models.Escrow) error {
	return tx.QueryRow(ctx, `
		INSERT INTO escrow (id, task_id, poster_id, amount_kobo, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, e.ID, e.TaskID, e.PosterID, e.AmountKobo, e.Status).Scan(&e.CreatedAt)
}

func (r *EscrowRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Escrow, error) {
	return scanEscrow(r.pool.QueryRow(ctx, `SELECT `+escrowColumns+` FROM escrow WHERE id = $1`, id))
}

// Release flips held → released exactly once; the affected-row count is the
// concurrency guard, so a second concurrent release sees zero rows.
func (r *EscrowRepo) Release(ctx context.Context, tx pgx.Tx, escrowID, recipientID uuid.UUID) (int64, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE escrow SET status = $3, recipient_id = $2, released_at = now()
		WHERE id = $1 AND status = $4
	`, escrowID, recipientID, models.EscrowStatusReleased, models.EscrowStatusHeld)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListByUser returns escrow rows where the user is poster or recipient.
func (r *EscrowRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Escrow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+escrowColumns+` FROM escrow
		WHERE poster_id = $1 OR recipient_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Escrow
	for rows.Next() {
		e, err := scanEscrow(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}
