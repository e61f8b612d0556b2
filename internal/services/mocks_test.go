package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jobbridge/backend/internal/ledger"
	"github.com/jobbridge/backend/internal/models"
)

// ---------------------------------------------------------------------------
// In-memory mocks. They reproduce the conditional-update semantics of the
// repositories (rows-affected as the state guard) so the real service logic
// is exercised without a database.
// ---------------------------------------------------------------------------

// --- noopTx satisfies pgx.Tx for test use; only Commit/Rollback are called. ---

type noopTx struct{}

func (noopTx) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }
func (noopTx) Commit(context.Context) error          { return nil }
func (noopTx) Rollback(context.Context) error        { return nil }
func (noopTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (noopTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (noopTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (noopTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (noopTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (noopTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (noopTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (noopTx) Conn() *pgx.Conn { return nil }

type mockPool struct{}

func (mockPool) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }

// --- task store ---

type mockTasks struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*models.Task
}

func newMockTasks(tasks ...*models.Task) *mockTasks {
	m := &mockTasks{tasks: make(map[uuid.UUID]*models.Task)}
	for _, t := range tasks {
		cp := *t
		m.tasks[t.ID] = &cp
	}
	return m
}

func (m *mockTasks) Create(_ context.Context, t *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.tasks[t.ID] = &cp
	return nil
}

func (m *mockTasks) GetByID(_ context.Context, id uuid.UUID) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *t
	return &cp, nil
}

func (m *mockTasks) Reserve(_ context.Context, taskID, workerID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[taskID]
	if !ok || t.Status != models.TaskStatusActive || t.WorkerID != nil {
		return 0, nil
	}
	now := time.Now()
	t.Status = models.TaskStatusReserved
	t.WorkerID = &workerID
	t.ReservedAt = &now
	return 1, nil
}

func (m *mockTasks) MarkCompleted(_ context.Context, _ pgx.Tx, taskID, workerID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[taskID]
	if !ok || t.WorkerID == nil || *t.WorkerID != workerID {
		return 0, nil
	}
	if t.Status != models.TaskStatusReserved && t.Status != models.TaskStatusActive {
		return 0, nil
	}
	now := time.Now()
	t.Status = models.TaskStatusCompleted
	t.CompletedAt = &now
	t.ManagerAlerted = false
	return 1, nil
}

func (m *mockTasks) MarkPaid(_ context.Context, _ pgx.Tx, taskID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[taskID]
	if !ok || t.Status != models.TaskStatusCompleted {
		return 0, nil
	}
	now := time.Now()
	t.Status = models.TaskStatusPaid
	t.ConfirmedAt = &now
	return 1, nil
}

func (m *mockTasks) MarkPaidFromEscrow(_ context.Context, _ pgx.Tx, taskID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[taskID]
	if !ok || t.Status == models.TaskStatusPaid || t.Status == models.TaskStatusCancelled {
		return 0, nil
	}
	now := time.Now()
	t.Status = models.TaskStatusPaid
	t.ConfirmedAt = &now
	return 1, nil
}

func (m *mockTasks) MarkDisputed(_ context.Context, _ pgx.Tx, taskID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[taskID]
	if !ok || t.Status != models.TaskStatusCompleted {
		return 0, nil
	}
	t.Status = models.TaskStatusDisputed
	return 1, nil
}

func (m *mockTasks) ResolveStatus(_ context.Context, _ pgx.Tx, taskID uuid.UUID, newStatus string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[taskID]
	if !ok || t.Status != models.TaskStatusDisputed {
		return 0, nil
	}
	t.Status = newStatus
	return 1, nil
}

func (m *mockTasks) CancelIfActive(_ context.Context, taskID, posterID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[taskID]
	if !ok || t.Status != models.TaskStatusActive || t.PosterID != posterID {
		return 0, nil
	}
	t.Status = models.TaskStatusCancelled
	return 1, nil
}

func (m *mockTasks) SetEscrow(_ context.Context, _ pgx.Tx, taskID, escrowID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[taskID]
	if !ok {
		return fmt.Errorf("task %s not found", taskID)
	}
	t.EscrowID = &escrowID
	return nil
}

func (m *mockTasks) ListDisputed(_ context.Context) ([]*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Task
	for _, t := range m.tasks {
		if t.Status == models.TaskStatusDisputed {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockTasks) get(id uuid.UUID) *models.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.tasks[id]
	return &cp
}

// --- application store ---

// mockApps mirrors the repository's locked insert: the task's status and mode
// are re-checked at insert time, not only at the service's preceding read.
type mockApps struct {
	mu           sync.Mutex
	tasks        *mockTasks
	apps         []*models.Application
	beforeInsert func() // runs before the guard, for interleaving writes
}

func (m *mockApps) InsertGuarded(ctx context.Context, a *models.Application) (int64, error) {
	if m.beforeInsert != nil {
		m.beforeInsert()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tasks != nil {
		t, err := m.tasks.GetByID(ctx, a.TaskID)
		if err != nil || t.Status != models.TaskStatusActive || t.Mode != models.ModeApplications {
			return 0, nil
		}
	}
	count := 0
	for _, e := range m.apps {
		if e.TaskID == a.TaskID {
			if e.UserID == a.UserID {
				return 0, nil
			}
			count++
		}
	}
	if count >= models.MaxApplicants {
		return 0, nil
	}
	cp := *a
	m.apps = append(m.apps, &cp)
	return 1, nil
}

func (m *mockApps) Exists(_ context.Context, taskID, userID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.apps {
		if e.TaskID == taskID && e.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

// --- proof store ---

type mockProofs struct {
	mu     sync.Mutex
	proofs map[uuid.UUID]*models.Proof
}

func (m *mockProofs) Upsert(_ context.Context, _ pgx.Tx, p *models.Proof) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.proofs == nil {
		m.proofs = make(map[uuid.UUID]*models.Proof)
	}
	cp := *p
	m.proofs[p.TaskID] = &cp
	return nil
}

// --- escrow store ---

type mockEscrows struct {
	mu      sync.Mutex
	escrows map[uuid.UUID]*models.Escrow
}

func newMockEscrows(escrows ...*models.Escrow) *mockEscrows {
	m := &mockEscrows{escrows: make(map[uuid.UUID]*models.Escrow)}
	for _, e := range escrows {
		cp := *e
		m.escrows[e.ID] = &cp
	}
	return m
}

func (m *mockEscrows) Create(_ context.Context, _ pgx.Tx, e *models.Escrow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.escrows[e.ID] = &cp
	return nil
}

func (m *mockEscrows) GetByID(_ context.Context, id uuid.UUID) (*models.Escrow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.escrows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *e
	return &cp, nil
}

func (m *mockEscrows) Release(_ context.Context, _ pgx.Tx, escrowID, recipientID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.escrows[escrowID]
	if !ok || e.Status != models.EscrowStatusHeld {
		return 0, nil
	}
	now := time.Now()
	e.Status = models.EscrowStatusReleased
	e.RecipientID = &recipientID
	e.ReleasedAt = &now
	return 1, nil
}

func (m *mockEscrows) ListByUser(_ context.Context, userID uuid.UUID) ([]*models.Escrow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Escrow
	for _, e := range m.escrows {
		if e.PosterID == userID || (e.RecipientID != nil && *e.RecipientID == userID) {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockEscrows) get(id uuid.UUID) *models.Escrow {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.escrows[id]
	return &cp
}

// --- resolution store ---

type mockResolutions struct {
	mu      sync.Mutex
	records []*models.Resolution
}

func (m *mockResolutions) CreatePending(_ context.Context, _ pgx.Tx, res *models.Resolution) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.TaskID == res.TaskID && r.Status == models.ResolutionStatusPending {
			return 0, nil
		}
	}
	cp := *res
	cp.Status = models.ResolutionStatusPending
	cp.CreatedAt = time.Now()
	m.records = append(m.records, &cp)
	return 1, nil
}

func (m *mockResolutions) Resolve(_ context.Context, _ pgx.Tx, taskID, resolvedBy uuid.UUID, resolution string, payKobo int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.TaskID == taskID && r.Status == models.ResolutionStatusPending {
			now := time.Now()
			r.Status = models.ResolutionStatusResolved
			r.Resolution = resolution
			r.PayKobo = payKobo
			r.ResolvedBy = &resolvedBy
			r.ResolvedAt = &now
			return 1, nil
		}
	}
	return 0, nil
}

func (m *mockResolutions) GetPendingByTaskID(_ context.Context, taskID uuid.UUID) (*models.Resolution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.TaskID == taskID && r.Status == models.ResolutionStatusPending {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

// --- user directory ---

type mockUsers struct {
	users []*models.User
}

func (m *mockUsers) ListByRole(_ context.Context, role string) ([]*models.User, error) {
	var out []*models.User
	for _, u := range m.users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

// --- ledger ---

type creditCall struct {
	WorkerID   uuid.UUID
	AmountKobo int64
}

// mockLedger counts positive credits per worker and reports BecameTrusted the
// first time a worker reaches the threshold, like the real service.
type mockLedger struct {
	mu      sync.Mutex
	counts  map[uuid.UUID]int
	trusted map[uuid.UUID]bool
	calls   []creditCall
}

func newMockLedger() *mockLedger {
	return &mockLedger{counts: make(map[uuid.UUID]int), trusted: make(map[uuid.UUID]bool)}
}

func (m *mockLedger) CreditCompletion(_ context.Context, _ pgx.Tx, workerID uuid.UUID, amountKobo int64) (*ledger.CreditResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, creditCall{WorkerID: workerID, AmountKobo: amountKobo})
	if amountKobo > 0 {
		m.counts[workerID]++
	}
	became := false
	if m.counts[workerID] >= models.TrustedThreshold && !m.trusted[workerID] {
		m.trusted[workerID] = true
		became = true
	}
	return &ledger.CreditResult{CompletedCount: m.counts[workerID], BecameTrusted: became}, nil
}

func (m *mockLedger) creditsFor(workerID uuid.UUID) []creditCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []creditCall
	for _, c := range m.calls {
		if c.WorkerID == workerID {
			out = append(out, c)
		}
	}
	return out
}

// --- audit ---

type mockAudit struct {
	mu      sync.Mutex
	entries []*models.AuditLog
}

func (m *mockAudit) CreateTx(_ context.Context, _ pgx.Tx, a *models.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *mockAudit) byAction(action string) []*models.AuditLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.AuditLog
	for _, e := range m.entries {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

// --- notifier ---

type sentNotification struct {
	UserID  uuid.UUID
	Title   string
	Message string
}

type mockNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (m *mockNotifier) Notify(_ context.Context, userID uuid.UUID, title, message string, _ *uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentNotification{UserID: userID, Title: title, Message: message})
}

func (m *mockNotifier) forUser(userID uuid.UUID) []sentNotification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []sentNotification
	for _, n := range m.sent {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}
