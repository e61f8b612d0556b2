package ledger

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jobbridge/backend/internal/domain"
	"github.com/jobbridge/backend/internal/models"
)

// mockRepo is an in-memory user ledger. Tests drive it sequentially; the
// serialization the real repo gets from FOR UPDATE is out of scope here.
type mockRepo struct {
	mu          sync.Mutex
	users       map[uuid.UUID]*models.User
	setTrustedN int
}

func newMockRepo(users ...*models.User) *mockRepo {
	m := &mockRepo{users: make(map[uuid.UUID]*models.User)}
	for _, u := range users {
		cp := *u
		m.users[u.ID] = &cp
	}
	return m
}

func (m *mockRepo) GetForUpdate(_ context.Context, _ pgx.Tx, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (m *mockRepo) ApplyCredit(_ context.Context, _ pgx.Tx, id uuid.UUID, amountKobo int64, countCompletion bool) (int, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[id]
	if countCompletion {
		u.CompletedCount++
	}
	u.EarningsKobo += amountKobo
	return u.CompletedCount, u.EarningsKobo, nil
}

func (m *mockRepo) SetTrusted(_ context.Context, _ pgx.Tx, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[id]
	u.Trusted = true
	m.setTrustedN++
	return nil
}

func (m *mockRepo) user(id uuid.UUID) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.users[id]
	return &cp
}

func TestCreditCompletion(t *testing.T) {
	worker := &models.User{ID: uuid.New()}
	repo := newMockRepo(worker)
	svc := NewService(repo)
	ctx := context.Background()

	res, err := svc.CreditCompletion(ctx, nil, worker.ID, 150_000)
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if res.CompletedCount != 1 || res.EarningsKobo != 150_000 || res.BecameTrusted {
		t.Errorf("first credit: %+v", res)
	}

	u := repo.user(worker.ID)
	if u.CompletedCount != 1 || u.EarningsKobo != 150_000 || u.Trusted {
		t.Errorf("stored state: %+v", u)
	}
}

func TestCreditCompletionErrors(t *testing.T) {
	worker := &models.User{ID: uuid.New()}
	svc := NewService(newMockRepo(worker))
	ctx := context.Background()

	if _, err := svc.CreditCompletion(ctx, nil, worker.ID, -1); domain.KindOf(err) != domain.KindValidation {
		t.Errorf("negative amount: want validation, got %v", err)
	}
	if _, err := svc.CreditCompletion(ctx, nil, uuid.New(), 100); domain.KindOf(err) != domain.KindNotFound {
		t.Errorf("unknown worker: want not-found, got %v", err)
	}
}

// Zero-amount credits (rework, cancelled dispositions) count no completion
// and move no money.
func TestCreditCompletionZero(t *testing.T) {
	worker := &models.User{ID: uuid.New(), CompletedCount: 2, EarningsKobo: 400_000}
	repo := newMockRepo(worker)
	svc := NewService(repo)

	res, err := svc.CreditCompletion(context.Background(), nil, worker.ID, 0)
	if err != nil {
		t.Fatalf("zero credit: %v", err)
	}
	if res.CompletedCount != 2 || res.EarningsKobo != 400_000 || res.BecameTrusted {
		t.Errorf("zero credit result: %+v", res)
	}
}

func TestTrustedLatch(t *testing.T) {
	worker := &models.User{ID: uuid.New()}
	repo := newMockRepo(worker)
	svc := NewService(repo)
	ctx := context.Background()

	for i := 1; i <= models.TrustedThreshold+2; i++ {
		res, err := svc.CreditCompletion(ctx, nil, worker.ID, 100_000)
		if err != nil {
			t.Fatalf("credit %d: %v", i, err)
		}
		wantBecame := i == models.TrustedThreshold
		if res.BecameTrusted != wantBecame {
			t.Errorf("credit %d: BecameTrusted=%v, want %v", i, res.BecameTrusted, wantBecame)
		}
	}

	if !repo.user(worker.ID).Trusted {
		t.Error("worker should be trusted after threshold")
	}
	if repo.setTrustedN != 1 {
		t.Errorf("SetTrusted called %d times, want exactly 1", repo.setTrustedN)
	}
}

// A worker already trusted never re-flips the badge, whatever the count does.
func TestTrustedAlreadySet(t *testing.T) {
	worker := &models.User{ID: uuid.New(), Trusted: true, CompletedCount: 7}
	repo := newMockRepo(worker)
	svc := NewService(repo)

	res, err := svc.CreditCompletion(context.Background(), nil, worker.ID, 100_000)
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if res.BecameTrusted {
		t.Error("BecameTrusted must only report the flip, not the steady state")
	}
	if repo.setTrustedN != 0 {
		t.Errorf("SetTrusted called %d times on an already-trusted worker", repo.setTrustedN)
	}
}
