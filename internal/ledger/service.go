// Package ledger owns the trust/earnings fields on users. Trust, completed
// count, and earnings are mutated here and nowhere else.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jobbridge/backend/internal/domain"
	"github.com/jobbridge/backend/internal/models"
)

// CreditResult reports the worker's ledger state after a credit.
type CreditResult struct {
	CompletedCount int
	EarningsKobo   int64
	BecameTrusted  bool
}

type Service interface {
	// CreditCompletion credits a payout to the worker inside the caller's
	// transaction. amount 0 is a legal no-op credit (rework/cancelled paths);
	// amount > 0 counts exactly one completion regardless of the amount.
	CreditCompletion(ctx context.Context, tx pgx.Tx, workerID uuid.UUID, amountKobo int64) (*CreditResult, error)
}

// Repo is the minimal user-ledger repository interface.
type Repo interface {
	GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.User, error)
	ApplyCredit(ctx context.Context, tx pgx.Tx, id uuid.UUID, amountKobo int64, countCompletion bool) (newCount int, newEarnings int64, err error)
	SetTrusted(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
}

type service struct {
	repo Repo
}

func NewService(repo Repo) Service {
	return &service{repo: repo}
}

var _ Service = (*service)(nil)

func (s *service) CreditCompletion(ctx context.Context, tx pgx.Tx, workerID uuid.UUID, amountKobo int64) (*CreditResult, error) {
	if amountKobo < 0 {
		return nil, domain.Validation("credit amount must not be negative")
	}

	u, err := s.repo.GetForUpdate(ctx, tx, workerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NotFound("worker not found")
		}
		return nil, fmt.Errorf("lock worker row: %w", err)
	}

	newCount, newEarnings, err := s.repo.ApplyCredit(ctx, tx, workerID, amountKobo, amountKobo > 0)
	if err != nil {
		return nil, fmt.Errorf("apply credit: %w", err)
	}

	becameTrusted := false
	if newCount >= models.TrustedThreshold && !u.Trusted {
		if err := s.repo.SetTrusted(ctx, tx, workerID); err != nil {
			return nil, fmt.Errorf("set trusted: %w", err)
		}
		becameTrusted = true
	}

	return &CreditResult{
		CompletedCount: newCount,
		EarningsKobo:   newEarnings,
		BecameTrusted:  becameTrusted,
	}, nil
}
