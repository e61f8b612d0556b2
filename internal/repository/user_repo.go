package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jobbridge/backend/internal/models"
)

const userColumns = `id, name, email, phone, role, lga, neighbourhood, trusted, completed_count, earnings_kobo, password_hash, created_at, updated_at`

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Role, &u.LGA, &u.Neighbourhood,
		&u.Trusted, &u.CompletedCount, &u.EarningsKobo, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) Create(ctx context.Context, u *models.User) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO users (id, name, email, phone, role, lga, neighbourhood, trusted, completed_count, earnings_kobo, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`, u.ID, u.Name, u.Email, u.Phone, u.Role, u.LGA, u.Neighbourhood, u.Trusted, u.CompletedCount, u.EarningsKobo, u.PasswordHash).
		Scan(&u.CreatedAt, &u.UpdatedAt)
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByIdentifier looks a user up by email or phone (both globally unique).
func (r *UserRepo) GetByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1 OR phone = $1`, identifier))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

// UpdateProfile updates the caller-editable fields only. Trust and ledger
// fields are owned by the ledger and never written here.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uuid.UUID, name, lga, neighbourhood string) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		UPDATE users
		SET name = COALESCE(NULLIF($2, ''), name),
			lga = COALESCE(NULLIF($3, ''), lga),
			neighbourhood = COALESCE(NULLIF($4, ''), neighbourhood),
			updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns+`
	`, id, name, lga, neighbourhood))
}

// ListByRole returns users holding the given role. Used to route dispute and
// overdue notifications to managers (lookup by role, never by display name).
func (r *UserRepo) ListByRole(ctx context.Context, role string) ([]*models.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE role = $1 ORDER BY created_at`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

func (r *UserRepo) List(ctx context.Context) ([]*models.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return list, rows.Err()
}
