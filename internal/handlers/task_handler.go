package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/jobbridge/backend/internal/middleware"
	"github.com/jobbridge/backend/internal/models"
	"github.com/jobbridge/backend/internal/repository"
	"github.com/jobbridge/backend/internal/services"
)

// TaskReader is the read-only slice of the task repository the handler needs.
type TaskReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	List(ctx context.Context, f repository.ListFilter) ([]*models.Task, error)
}

// ApplicationReader lists applications for the poster's review screen.
type ApplicationReader interface {
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]*models.Application, error)
}

// ProofReader fetches a task's submitted proof.
type ProofReader interface {
	GetByTaskID(ctx context.Context, taskID uuid.UUID) (*models.Proof, error)
}

// TaskHandler serves /api/tasks endpoints.
type TaskHandler struct {
	Tasks       *services.TaskService
	Resolutions *services.ResolutionService
	TaskRepo    TaskReader
	AppRepo     ApplicationReader
	ProofRepo   ProofReader
	Logger      *slog.Logger
}

type createTaskRequest struct {
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	PayKobo       int64     `json:"pay_kobo"`
	Location      string    `json:"location"`
	DateTime      time.Time `json:"date_time"`
	Category      string    `json:"category"`
	Mode          string    `json:"mode"`
	ProofRequired bool      `json:"proof_required"`
}

// Create handles POST /api/tasks.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	task, err := h.Tasks.Create(r.Context(), p.UserID, services.CreateTaskInput{
		Title:         req.Title,
		Description:   req.Description,
		PayKobo:       req.PayKobo,
		Location:      req.Location,
		DateTime:      req.DateTime,
		Category:      req.Category,
		Mode:          req.Mode,
		ProofRequired: req.ProofRequired,
	})
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// List handles GET /api/tasks. Filters: ?status=, ?limit=, ?offset=.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := repository.ListFilter{Status: q.Get("status")}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil {
		f.Limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil {
		f.Offset = v
	}
	tasks, err := h.TaskRepo.List(r.Context(), f)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// Get handles GET /api/tasks/{id}.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid task id"})
		return
	}
	task, err := h.TaskRepo.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, h.Logger, notFoundOr(err, "task not found"))
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Reserve handles POST /api/tasks/{id}/reserve.
func (h *TaskHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	h.taskAction(w, r, func(ctx context.Context, taskID uuid.UUID, p *middleware.Principal) error {
		return h.Tasks.Reserve(ctx, taskID, p.UserID)
	})
}

type applyRequest struct {
	Note       string  `json:"note"`
	DistanceKm float64 `json:"distance_km"`
}

// Apply handles POST /api/tasks/{id}/apply.
func (h *TaskHandler) Apply(w http.ResponseWriter, r *http.Request) {
	var req applyRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	h.taskAction(w, r, func(ctx context.Context, taskID uuid.UUID, p *middleware.Principal) error {
		return h.Tasks.Apply(ctx, taskID, p.UserID, req.Note, req.DistanceKm)
	})
}

type selectApplicantRequest struct {
	UserID string `json:"user_id"`
}

// SelectApplicant handles POST /api/tasks/{id}/select.
func (h *TaskHandler) SelectApplicant(w http.ResponseWriter, r *http.Request) {
	var req selectApplicantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	chosenID, err := uuid.Parse(req.UserID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user_id"})
		return
	}
	h.taskAction(w, r, func(ctx context.Context, taskID uuid.UUID, p *middleware.Principal) error {
		return h.Tasks.SelectApplicant(ctx, taskID, p.UserID, chosenID)
	})
}

// Applicants handles GET /api/tasks/{id}/applicants.
func (h *TaskHandler) Applicants(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid task id"})
		return
	}
	apps, err := h.AppRepo.ListByTask(r.Context(), id)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, apps)
}

type proofRequest struct {
	Type           string `json:"type"`
	BeforeImageURL string `json:"before_image_url"`
	AfterImageURL  string `json:"after_image_url"`
	Code           string `json:"code"`
}

// SubmitProof handles POST /api/tasks/{id}/proof.
func (h *TaskHandler) SubmitProof(w http.ResponseWriter, r *http.Request) {
	var req proofRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	h.taskAction(w, r, func(ctx context.Context, taskID uuid.UUID, p *middleware.Principal) error {
		return h.Tasks.SubmitProof(ctx, taskID, p.UserID, services.ProofInput{
			Type:           req.Type,
			BeforeImageURL: req.BeforeImageURL,
			AfterImageURL:  req.AfterImageURL,
			Code:           req.Code,
		})
	})
}

// GetProof handles GET /api/tasks/{id}/proof.
func (h *TaskHandler) GetProof(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid task id"})
		return
	}
	proof, err := h.ProofRepo.GetByTaskID(r.Context(), id)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if proof == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no proof submitted"})
		return
	}
	writeJSON(w, http.StatusOK, proof)
}

// Confirm handles POST /api/tasks/{id}/confirm. Pays the worker exactly once.
func (h *TaskHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.taskAction(w, r, func(ctx context.Context, taskID uuid.UUID, p *middleware.Principal) error {
		return h.Tasks.Confirm(ctx, taskID, p.UserID)
	})
}

type disputeRequest struct {
	Reason string `json:"reason"`
}

// Dispute handles POST /api/tasks/{id}/dispute.
func (h *TaskHandler) Dispute(w http.ResponseWriter, r *http.Request) {
	var req disputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	h.taskAction(w, r, func(ctx context.Context, taskID uuid.UUID, p *middleware.Principal) error {
		return h.Resolutions.Dispute(ctx, taskID, p.UserID, req.Reason)
	})
}

// Cancel handles POST /api/tasks/{id}/cancel.
func (h *TaskHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.taskAction(w, r, func(ctx context.Context, taskID uuid.UUID, p *middleware.Principal) error {
		return h.Tasks.Cancel(ctx, taskID, p.UserID)
	})
}

// taskAction runs a state transition for the path's task on behalf of the
// authenticated principal and answers 200 {"status":"ok"} on success.
func (h *TaskHandler) taskAction(w http.ResponseWriter, r *http.Request, fn func(context.Context, uuid.UUID, *middleware.Principal) error) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid task id"})
		return
	}
	if err := fn(r.Context(), id, p); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
