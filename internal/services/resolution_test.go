package services

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/jobbridge/backend/internal/domain"
	"github.com/jobbridge/backend/internal/models"
)

type resolutionFixture struct {
	svc         *ResolutionService
	tasks       *mockTasks
	resolutions *mockResolutions
	ledger      *mockLedger
	audit       *mockAudit
	notifier    *mockNotifier
	manager     *models.User
}

func newResolutionFixture(tasks *mockTasks) *resolutionFixture {
	manager := &models.User{ID: uuid.New(), Name: "Duty Manager", Role: models.RoleManager}
	f := &resolutionFixture{
		tasks:       tasks,
		resolutions: &mockResolutions{},
		ledger:      newMockLedger(),
		audit:       &mockAudit{},
		notifier:    &mockNotifier{},
		manager:     manager,
	}
	f.svc = NewResolutionService(mockPool{}, tasks, f.resolutions,
		&mockUsers{users: []*models.User{manager}}, f.ledger, f.audit, f.notifier, nil)
	return f
}

func completedTask(poster, worker uuid.UUID, payKobo int64) *models.Task {
	t := activeTask(poster, payKobo, models.ModeSingle)
	t.Status = models.TaskStatusCompleted
	t.WorkerID = &worker
	return t
}

func TestDispute(t *testing.T) {
	poster := uuid.New()
	worker := uuid.New()
	task := completedTask(poster, worker, 100_000)
	f := newResolutionFixture(newMockTasks(task))
	ctx := context.Background()

	if err := f.svc.Dispute(ctx, task.ID, poster, ""); domain.KindOf(err) != domain.KindValidation {
		t.Errorf("empty reason: want validation, got %v", err)
	}
	if err := f.svc.Dispute(ctx, task.ID, uuid.New(), "not my task"); domain.KindOf(err) != domain.KindForbidden {
		t.Errorf("third party dispute: want forbidden, got %v", err)
	}

	if err := f.svc.Dispute(ctx, task.ID, poster, "work not finished"); err != nil {
		t.Fatalf("dispute: %v", err)
	}
	if got := f.tasks.get(task.ID); got.Status != models.TaskStatusDisputed {
		t.Errorf("after dispute: status=%q", got.Status)
	}
	if len(f.audit.byAction("dispute_task")) != 1 {
		t.Error("dispute should write an audit entry")
	}
	inbox := f.notifier.forUser(f.manager.ID)
	if len(inbox) != 1 || inbox[0].Title != "Task Dispute" {
		t.Errorf("manager notification: %+v", inbox)
	}

	// Already disputed: state guard refuses a second round.
	if err := f.svc.Dispute(ctx, task.ID, worker, "me too"); domain.KindOf(err) != domain.KindConflict {
		t.Errorf("second dispute: want conflict, got %v", err)
	}
}

func TestDisputeNonCompleted(t *testing.T) {
	poster := uuid.New()
	task := activeTask(poster, 100_000, models.ModeSingle)
	f := newResolutionFixture(newMockTasks(task))

	err := f.svc.Dispute(context.Background(), task.ID, poster, "pre-emptive")
	if domain.KindOf(err) != domain.KindConflict {
		t.Errorf("dispute active task: want conflict, got %v", err)
	}
}

func TestPayoutFor(t *testing.T) {
	override := int64(30_000)
	tooBig := int64(200_000)
	cases := []struct {
		name       string
		resolution string
		override   *int64
		wantStatus string
		wantPayout int64
		wantErr    bool
	}{
		{"paid full", models.ResolutionPaid, nil, models.TaskStatusPaid, 100_000, false},
		{"partial default half", models.ResolutionPartial, nil, models.TaskStatusPaid, 50_000, false},
		{"partial override", models.ResolutionPartial, &override, models.TaskStatusPaid, 30_000, false},
		{"partial over pay", models.ResolutionPartial, &tooBig, "", 0, true},
		{"rework reopens", models.ResolutionRework, nil, models.TaskStatusActive, 0, false},
		{"cancelled", models.ResolutionCancelled, nil, models.TaskStatusCancelled, 0, false},
		{"unknown", "split", nil, "", 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, payout, err := payoutFor(tc.resolution, 100_000, tc.override)
			if tc.wantErr {
				if domain.KindOf(err) != domain.KindValidation {
					t.Fatalf("want validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("payoutFor: %v", err)
			}
			if status != tc.wantStatus || payout != tc.wantPayout {
				t.Errorf("got (%q, %d), want (%q, %d)", status, payout, tc.wantStatus, tc.wantPayout)
			}
		})
	}
}

func TestResolvePartialDefault(t *testing.T) {
	poster := uuid.New()
	worker := uuid.New()
	task := completedTask(poster, worker, 100_000)
	f := newResolutionFixture(newMockTasks(task))
	ctx := context.Background()

	if err := f.svc.Dispute(ctx, task.ID, poster, "half done"); err != nil {
		t.Fatalf("dispute: %v", err)
	}

	if err := f.svc.Resolve(ctx, task.ID, worker, models.RoleWorker, models.ResolutionPartial, nil); domain.KindOf(err) != domain.KindForbidden {
		t.Errorf("non-manager resolve: want forbidden, got %v", err)
	}

	if err := f.svc.Resolve(ctx, task.ID, f.manager.ID, models.RoleManager, models.ResolutionPartial, nil); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got := f.tasks.get(task.ID); got.Status != models.TaskStatusPaid {
		t.Errorf("after partial: status=%q, want paid", got.Status)
	}
	credits := f.ledger.creditsFor(worker)
	if len(credits) != 1 || credits[0].AmountKobo != 50_000 {
		t.Errorf("partial default should credit half pay, got %+v", credits)
	}
	inbox := f.notifier.forUser(worker)
	if len(inbox) != 1 || inbox[0].Title != "Payment Received" {
		t.Errorf("worker notification: %+v", inbox)
	}

	if err := f.svc.Resolve(ctx, task.ID, f.manager.ID, models.RoleManager, models.ResolutionPaid, nil); domain.KindOf(err) != domain.KindAlreadyProcessed {
		t.Errorf("second resolve: want already-processed, got %v", err)
	}
}

func TestResolveRework(t *testing.T) {
	poster := uuid.New()
	worker := uuid.New()
	task := completedTask(poster, worker, 100_000)
	f := newResolutionFixture(newMockTasks(task))
	ctx := context.Background()

	if err := f.svc.Dispute(ctx, task.ID, poster, "redo it"); err != nil {
		t.Fatalf("dispute: %v", err)
	}
	if err := f.svc.Resolve(ctx, task.ID, f.manager.ID, models.RoleManager, models.ResolutionRework, nil); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	got := f.tasks.get(task.ID)
	if got.Status != models.TaskStatusActive {
		t.Errorf("after rework: status=%q, want active", got.Status)
	}
	if got.WorkerID == nil || *got.WorkerID != worker {
		t.Error("rework must keep the worker assigned")
	}
	// Zero payout: no completion counted.
	credits := f.ledger.creditsFor(worker)
	if len(credits) != 1 || credits[0].AmountKobo != 0 {
		t.Errorf("rework credits: %+v", credits)
	}
	inbox := f.notifier.forUser(worker)
	if len(inbox) != 1 || inbox[0].Title != "Task Sent Back" {
		t.Errorf("worker notification: %+v", inbox)
	}
}

func TestResolveCancelled(t *testing.T) {
	poster := uuid.New()
	worker := uuid.New()
	task := completedTask(poster, worker, 100_000)
	f := newResolutionFixture(newMockTasks(task))
	ctx := context.Background()

	if err := f.svc.Dispute(ctx, task.ID, worker, "poster unreachable"); err != nil {
		t.Fatalf("dispute: %v", err)
	}
	if err := f.svc.Resolve(ctx, task.ID, f.manager.ID, models.RoleAdmin, models.ResolutionCancelled, nil); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got := f.tasks.get(task.ID); got.Status != models.TaskStatusCancelled {
		t.Errorf("after cancel: status=%q", got.Status)
	}
	posterInbox := f.notifier.forUser(poster)
	if len(posterInbox) != 1 || posterInbox[0].Title != "Dispute Resolved" {
		t.Errorf("poster notification: %+v", posterInbox)
	}
}

func TestResolveRace(t *testing.T) {
	poster := uuid.New()
	worker := uuid.New()
	task := completedTask(poster, worker, 100_000)
	f := newResolutionFixture(newMockTasks(task))
	ctx := context.Background()

	if err := f.svc.Dispute(ctx, task.ID, poster, "contested"); err != nil {
		t.Fatalf("dispute: %v", err)
	}

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = f.svc.Resolve(context.Background(), task.ID, f.manager.ID, models.RoleManager, models.ResolutionPaid, nil)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		}
	}
	if wins != 1 {
		t.Errorf("resolve winners: got %d, want 1", wins)
	}
	if len(f.ledger.creditsFor(worker)) != 1 {
		t.Errorf("worker credited %d times", len(f.ledger.creditsFor(worker)))
	}
}

func TestDisputesQueue(t *testing.T) {
	poster := uuid.New()
	worker := uuid.New()
	task := completedTask(poster, worker, 100_000)
	f := newResolutionFixture(newMockTasks(task))
	ctx := context.Background()

	entries, err := f.svc.Disputes(ctx)
	if err != nil {
		t.Fatalf("disputes: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("empty queue: got %d entries", len(entries))
	}

	if err := f.svc.Dispute(ctx, task.ID, poster, "wrong colour"); err != nil {
		t.Fatalf("dispute: %v", err)
	}
	entries, err = f.svc.Disputes(ctx)
	if err != nil {
		t.Fatalf("disputes: %v", err)
	}
	if len(entries) != 1 || entries[0].Reason != "wrong colour" {
		t.Errorf("queue: %+v", entries)
	}
}
