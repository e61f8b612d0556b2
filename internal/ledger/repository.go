package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jobbridge/backend/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetForUpdate locks the user row for the rest of the transaction so
// concurrent credits to the same user serialize. Call within a transaction.
func (r *Repository) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.User, error) {
	var u models.User
	err := tx.QueryRow(ctx, `
		SELECT id, name, email, phone, role, lga, neighbourhood, trusted, completed_count, earnings_kobo, password_hash, created_at, updated_at
		FROM users WHERE id = $1 FOR UPDATE
	`, id).Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Role, &u.LGA, &u.Neighbourhood,
		&u.Trusted, &u.CompletedCount, &u.EarningsKobo, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, pgx.ErrNoRows
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ApplyCredit adds the amount to earnings and, when countCompletion is set,
// bumps completed_count by one. Returns the new count and earnings.
func (r *Repository) ApplyCredit(ctx context.Context, tx pgx.Tx, id uuid.UUID, amountKobo int64, countCompletion bool) (newCount int, newEarnings int64, err error) {
	incr := 0
	if countCompletion {
		incr = 1
	}
	err = tx.QueryRow(ctx, `
		UPDATE users
		SET earnings_kobo = earnings_kobo + $2, completed_count = completed_count + $3, updated_at = now()
		WHERE id = $1
		RETURNING completed_count, earnings_kobo
	`, id, amountKobo, incr).Scan(&newCount, &newEarnings)
	return newCount, newEarnings, err
}

// SetTrusted sets the one-way trust latch.
func (r *Repository) SetTrusted(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	_, err := tx.Exec(ctx, `UPDATE users SET trusted = true, updated_at = now() WHERE id = $1`, id)
	return err
}
