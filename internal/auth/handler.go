package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"

	"github.com/jobbridge/backend/internal/domain"
	"github.com/jobbridge/backend/internal/models"
)

type RegisterRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Password      string `json:"password"`
	Role          string `json:"role"`
	LGA           string `json:"lga"`
	Neighbourhood string `json:"neighbourhood"`
}

type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type OTPRequest struct {
	Identifier string `json:"identifier"`
	OTP        string `json:"otp,omitempty"`
}

type SessionResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type Handler struct {
	svc Service
	log *slog.Logger
}

func NewHandler(svc Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	u, token, err := h.svc.Register(r.Context(), RegisterInput{
		Name:          req.Name,
		Email:         req.Email,
		Phone:         req.Phone,
		Password:      req.Password,
		Role:          req.Role,
		LGA:           req.LGA,
		Neighbourhood: req.Neighbourhood,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateIdentifier) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		if domain.KindOf(err) == domain.KindValidation {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.log.Error("register failed", "error", err)
		http.Error(w, "registration failed", http.StatusInternalServerError)
		return
	}
	writeSession(w, http.StatusCreated, token, u)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Identifier == "" || req.Password == "" {
		http.Error(w, "missing identifier or password", http.StatusBadRequest)
		return
	}
	u, token, err := h.svc.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		h.log.Error("login failed", "error", err)
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}
	writeSession(w, http.StatusOK, token, u)
}

func (h *Handler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	var req OTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Identifier == "" {
		http.Error(w, "email or phone required", http.StatusBadRequest)
		return
	}
	code, err := h.svc.RequestOTP(r.Context(), req.Identifier)
	if err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		h.log.Error("otp request failed", "error", err)
		http.Error(w, "failed to send OTP", http.StatusInternalServerError)
		return
	}
	resp := map[string]string{"message": "OTP sent"}
	if os.Getenv("APP_ENV") == "development" {
		resp["otp"] = code
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *Handler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req OTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Identifier == "" || req.OTP == "" {
		http.Error(w, "identifier and OTP required", http.StatusBadRequest)
		return
	}
	u, token, err := h.svc.VerifyOTP(r.Context(), req.Identifier, req.OTP)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			http.Error(w, "invalid or expired OTP", http.StatusUnauthorized)
			return
		}
		h.log.Error("otp verify failed", "error", err)
		http.Error(w, "verification failed", http.StatusInternalServerError)
		return
	}
	writeSession(w, http.StatusOK, token, u)
}

func writeSession(w http.ResponseWriter, status int, token string, u *models.User) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(SessionResponse{Token: token, User: u})
}
