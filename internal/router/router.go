package router

import (
	"net/http"

	"github.com/jobbridge/backend/internal/auth"
	"github.com/jobbridge/backend/internal/handlers"
	"github.com/jobbridge/backend/internal/middleware"
	"github.com/jobbridge/backend/internal/models"
)

// New returns an http.Handler serving the API under /api.
// All routes except /api/auth/* and /api/health require a Bearer token.
func New(
	authHandler *auth.Handler,
	tasks *handlers.TaskHandler,
	payments *handlers.PaymentHandler,
	manager *handlers.ManagerHandler,
	users *handlers.UserHandler,
	admin *handlers.AdminHandler,
	authSvc auth.Service,
) http.Handler {
	mux := http.NewServeMux()

	authed := middleware.JWTAuth(authSvc)
	managerOnly := middleware.RequireRole(models.RoleManager, models.RoleAdmin)
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	handle := func(pattern string, h http.HandlerFunc, mws ...func(http.Handler) http.Handler) {
		var wrapped http.Handler = h
		for i := len(mws) - 1; i >= 0; i-- {
			wrapped = mws[i](wrapped)
		}
		mux.Handle(pattern, wrapped)
	}

	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Auth
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/request-otp", authHandler.RequestOTP)
	mux.HandleFunc("POST /api/auth/verify-otp", authHandler.VerifyOTP)

	// Tasks
	handle("POST /api/tasks", tasks.Create, authed)
	handle("GET /api/tasks", tasks.List, authed)
	handle("GET /api/tasks/{id}", tasks.Get, authed)
	handle("POST /api/tasks/{id}/reserve", tasks.Reserve, authed)
	handle("POST /api/tasks/{id}/apply", tasks.Apply, authed)
	handle("POST /api/tasks/{id}/select", tasks.SelectApplicant, authed)
	handle("GET /api/tasks/{id}/applicants", tasks.Applicants, authed)
	handle("POST /api/tasks/{id}/proof", tasks.SubmitProof, authed)
	handle("GET /api/tasks/{id}/proof", tasks.GetProof, authed)
	handle("POST /api/tasks/{id}/confirm", tasks.Confirm, authed)
	handle("POST /api/tasks/{id}/dispute", tasks.Dispute, authed)
	handle("POST /api/tasks/{id}/cancel", tasks.Cancel, authed)

	// Payments
	handle("POST /api/payments/escrow", payments.CreateEscrow, authed)
	handle("GET /api/payments/escrow", payments.ListEscrows, authed)
	handle("POST /api/payments/escrow/{id}/release", payments.ReleaseEscrow, authed)

	// Manager console
	handle("GET /api/manager/disputes", manager.Disputes, authed, managerOnly)
	handle("POST /api/manager/disputes/{id}/resolve", manager.Resolve, authed, managerOnly)
	handle("GET /api/manager/overdue", manager.Overdue, authed, managerOnly)
	handle("GET /api/manager/stats", manager.Stats, authed, managerOnly)

	// Profile and inbox
	handle("GET /api/users/me", users.Me, authed)
	handle("PATCH /api/users/me", users.UpdateMe, authed)
	handle("GET /api/users/{id}", users.Get, authed)
	handle("PUT /api/users/{id}", users.Update, authed)
	handle("GET /api/users/me/postings", users.Postings, authed)
	handle("GET /api/users/me/jobs", users.Jobs, authed)
	handle("GET /api/users/me/wallet", users.Wallet, authed)
	handle("GET /api/notifications", users.ListNotifications, authed)
	handle("POST /api/notifications/{id}/read", users.MarkNotificationRead, authed)

	// Admin console
	handle("GET /api/admin/stats", admin.Stats, authed, adminOnly)
	handle("GET /api/admin/users", admin.ListUsers, authed, adminOnly)

	return mux
}
