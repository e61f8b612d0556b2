package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/jobbridge/backend/internal/services"
)

// PaymentHandler serves /api/payments endpoints.
type PaymentHandler struct {
	Escrows *services.EscrowService
	Logger  *slog.Logger
}

type createEscrowRequest struct {
	TaskID     string `json:"task_id"`
	AmountKobo int64  `json:"amount_kobo"`
}

// CreateEscrow handles POST /api/payments/escrow.
func (h *PaymentHandler) CreateEscrow(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req createEscrowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	taskID, err := uuid.Parse(req.TaskID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid task_id"})
		return
	}
	escrow, err := h.Escrows.Create(r.Context(), taskID, p.UserID, req.AmountKobo)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, escrow)
}

type releaseEscrowRequest struct {
	RecipientID string `json:"recipient_id,omitempty"`
}

// ReleaseEscrow handles POST /api/payments/escrow/{id}/release.
func (h *PaymentHandler) ReleaseEscrow(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid escrow id"})
		return
	}
	var req releaseEscrowRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	var recipient *uuid.UUID
	if req.RecipientID != "" {
		rid, err := uuid.Parse(req.RecipientID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid recipient_id"})
			return
		}
		recipient = &rid
	}
	if err := h.Escrows.Release(r.Context(), id, p.UserID, recipient); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "released"})
}

// ListEscrows handles GET /api/payments/escrow. Returns holds where the caller
// is poster or recipient.
func (h *PaymentHandler) ListEscrows(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	escrows, err := h.Escrows.ListByUser(r.Context(), p.UserID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, escrows)
}
