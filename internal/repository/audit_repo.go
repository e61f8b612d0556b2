package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jobbridge/backend/internal/models"
)

type AuditRepo struct {
	pool *pgxpool.Pool
}

func NewAuditRepo(pool *pgxpool.Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

// CreateTx writes an audit row inside the mutating transaction.
func (r *AuditRepo) CreateTx(ctx context.Context, tx pgx.Tx, a *models.AuditLog) error {
	return tx.QueryRow(ctx, `
		INSERT INTO audit_logs (id, user_id, action, resource_type, resource_id, details)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, a.ID, a.UserID, a.Action, a.ResourceType, a.ResourceID, a.Details).Scan(&a.CreatedAt)
}
