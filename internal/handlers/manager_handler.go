package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/jobbridge/backend/internal/overdue"
	"github.com/jobbridge/backend/internal/repository"
	"github.com/jobbridge/backend/internal/services"
)

// StatsSource provides the manager dashboard counters.
type StatsSource interface {
	Stats(ctx context.Context, overdueCutoff time.Time) (*repository.ManagerStats, error)
}

// ManagerHandler serves /api/manager endpoints. Routes are gated on the
// manager role by middleware; the resolution service re-checks.
type ManagerHandler struct {
	Resolutions *services.ResolutionService
	Scanner     *overdue.Scanner
	TaskRepo    StatsSource
	SLA         time.Duration
	Logger      *slog.Logger
}

// Disputes handles GET /api/manager/disputes.
func (h *ManagerHandler) Disputes(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Resolutions.Disputes(r.Context())
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

type resolveRequest struct {
	Resolution string `json:"resolution"`
	PayKobo    *int64 `json:"pay_kobo,omitempty"`
}

// Resolve handles POST /api/manager/disputes/{id}/resolve, where {id} is the
// disputed task.
func (h *ManagerHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	taskID, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid task id"})
		return
	}
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if err := h.Resolutions.Resolve(r.Context(), taskID, p.UserID, p.Role, req.Resolution, req.PayKobo); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "resolved"})
}

// Overdue handles GET /api/manager/overdue.
func (h *ManagerHandler) Overdue(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Scanner.Queue(r.Context())
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// Stats handles GET /api/manager/stats.
func (h *ManagerHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.TaskRepo.Stats(r.Context(), time.Now().Add(-h.SLA))
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
