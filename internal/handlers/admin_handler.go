package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jobbridge/backend/internal/models"
)

// UserLister lists every registered user for the admin console.
type UserLister interface {
	List(ctx context.Context) ([]*models.User, error)
}

// AdminHandler serves /api/admin endpoints. Routes are gated on the admin
// role by middleware.
type AdminHandler struct {
	Pool   *pgxpool.Pool
	Users  UserLister
	Logger *slog.Logger
}

// PlatformStats is the admin dashboard counter block.
type PlatformStats struct {
	TotalUsers        int   `json:"total_users"`
	TotalTasks        int   `json:"total_tasks"`
	ActiveTasks       int   `json:"active_tasks"`
	CompletedTasks    int   `json:"completed_tasks"`
	DisputedTasks     int   `json:"disputed_tasks"`
	TotalApplications int   `json:"total_applications"`
	TotalEarningsKobo int64 `json:"total_earnings_kobo"`
}

// Stats handles GET /api/admin/stats.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	var s PlatformStats
	err := h.Pool.QueryRow(r.Context(), `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM tasks),
			(SELECT COUNT(*) FROM tasks WHERE status = 'active'),
			(SELECT COUNT(*) FROM tasks WHERE status = 'completed'),
			(SELECT COUNT(*) FROM tasks WHERE status = 'disputed'),
			(SELECT COUNT(*) FROM applications),
			(SELECT COALESCE(SUM(earnings_kobo), 0) FROM users)
	`).Scan(&s.TotalUsers, &s.TotalTasks, &s.ActiveTasks, &s.CompletedTasks,
		&s.DisputedTasks, &s.TotalApplications, &s.TotalEarningsKobo)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// ListUsers handles GET /api/admin/users.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Users.List(r.Context())
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}
