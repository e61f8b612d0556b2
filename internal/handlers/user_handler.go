package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/jobbridge/backend/internal/models"
	"github.com/jobbridge/backend/internal/repository"
)

// UserStore is the slice of the user repository the profile endpoints need.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, name, lga, neighbourhood string) (*models.User, error)
}

// UserTaskLister lists the caller's tasks from either side of the marketplace.
type UserTaskLister interface {
	List(ctx context.Context, f repository.ListFilter) ([]*models.Task, error)
	CountPendingConfirmations(ctx context.Context, workerID uuid.UUID) (int, error)
}

// NotificationStore serves the caller's inbox.
type NotificationStore interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) (int64, error)
}

// UserHandler serves /api/users/me and /api/notifications endpoints.
type UserHandler struct {
	Users         UserStore
	Tasks         UserTaskLister
	Notifications NotificationStore
	Logger        *slog.Logger
}

// Me handles GET /api/users/me.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	u, err := h.Users.GetByID(r.Context(), p.UserID)
	if err != nil {
		writeError(w, h.Logger, notFoundOr(err, "user not found"))
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// Get handles GET /api/users/{id}: another user's public profile.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user id"})
		return
	}
	u, err := h.Users.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, h.Logger, notFoundOr(err, "user not found"))
		return
	}
	writeJSON(w, http.StatusOK, u)
}

type updateProfileRequest struct {
	Name          string `json:"name"`
	LGA           string `json:"lga"`
	Neighbourhood string `json:"neighbourhood"`
}

// Update handles PUT /api/users/{id}. Callers may edit their own profile;
// admins may edit anyone's.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user id"})
		return
	}
	if p.UserID != id && p.Role != models.RoleAdmin {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "not authorized to update this profile"})
		return
	}
	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	u, err := h.Users.UpdateProfile(r.Context(), id, req.Name, req.LGA, req.Neighbourhood)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// UpdateMe handles PATCH /api/users/me. Only name and location fields are
// caller-editable; trust and earnings belong to the ledger.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	u, err := h.Users.UpdateProfile(r.Context(), p.UserID, req.Name, req.LGA, req.Neighbourhood)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// Postings handles GET /api/users/me/postings.
func (h *UserHandler) Postings(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	tasks, err := h.Tasks.List(r.Context(), repository.ListFilter{PosterID: p.UserID, Status: r.URL.Query().Get("status")})
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// Jobs handles GET /api/users/me/jobs.
func (h *UserHandler) Jobs(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	tasks, err := h.Tasks.List(r.Context(), repository.ListFilter{WorkerID: p.UserID, Status: r.URL.Query().Get("status")})
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

type walletResponse struct {
	EarningsKobo         int64 `json:"earnings_kobo"`
	CompletedCount       int   `json:"completed_count"`
	Trusted              bool  `json:"trusted"`
	PendingConfirmations int   `json:"pending_confirmations"`
}

// Wallet handles GET /api/users/me/wallet.
func (h *UserHandler) Wallet(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	u, err := h.Users.GetByID(r.Context(), p.UserID)
	if err != nil {
		writeError(w, h.Logger, notFoundOr(err, "user not found"))
		return
	}
	pending, err := h.Tasks.CountPendingConfirmations(r.Context(), p.UserID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, walletResponse{
		EarningsKobo:         u.EarningsKobo,
		CompletedCount:       u.CompletedCount,
		Trusted:              u.Trusted,
		PendingConfirmations: pending,
	})
}

// ListNotifications handles GET /api/notifications.
func (h *UserHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	ns, err := h.Notifications.ListByUser(r.Context(), p.UserID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ns)
}

// MarkNotificationRead handles POST /api/notifications/{id}/read. The user
// scope in the update keeps callers from touching other inboxes.
func (h *UserHandler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid notification id"})
		return
	}
	rows, err := h.Notifications.MarkRead(r.Context(), id, p.UserID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if rows == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "notification not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
