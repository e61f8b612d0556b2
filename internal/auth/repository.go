package auth

import (
	"context"
	"errors"
	"time"

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

const userColumns = `id, name, email, phone, role, lga, neighbourhood, trusted, completed_count, earnings_kobo, password_hash, created_at, updated_at`

// Create inserts a new user. Uniqueness of email and phone is enforced by the
// database; callers translate the 23505 violation into a duplicate error.
func (r *Repository) Create(ctx context.Context, u *models.User) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO users (id, name, email, phone, role, lga, neighbourhood, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`, u.ID, u.Name, u.Email, u.Phone, u.Role, u.LGA, u.Neighbourhood, u.PasswordHash).
		Scan(&u.CreatedAt, &u.UpdatedAt)
}

// GetByIdentifier looks a user up by email or phone. Returns nil if not found.
func (r *Repository) GetByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	var u models.User
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1 OR phone = $1`, identifier)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Role, &u.LGA, &u.Neighbourhood,
		&u.Trusted, &u.CompletedCount, &u.EarningsKobo, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UpsertOTP stores a one-time code for the user, replacing any previous one.
func (r *Repository) UpsertOTP(ctx context.Context, userID uuid.UUID, code string, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO otps (user_id, code, expires_at, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (user_id) DO UPDATE SET
			code = EXCLUDED.code,
			expires_at = EXCLUDED.expires_at,
			created_at = EXCLUDED.created_at
	`, userID, code, expiresAt)
	return err
}

// ConsumeOTP deletes the user's code if it matches and has not expired,
// reporting whether a row was consumed. Delete-on-verify makes each code
// single use.
func (r *Repository) ConsumeOTP(ctx context.Context, userID uuid.UUID, code string, now time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM otps WHERE user_id = $1 AND code = $2 AND expires_at > $3
	`, userID, code, now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
