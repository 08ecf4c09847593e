package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vedgupta/prenotebook/internal/obs"
)

// Handlers provides the HTTP endpoints for account management.
type Handlers struct {
	users         *UserService
	sessions      *SessionService
	secureCookies bool
}

// NewHandlers creates auth HTTP handlers.
func NewHandlers(users *UserService, sessions *SessionService, secureCookies bool) *Handlers {
	return &Handlers{users: users, sessions: sessions, secureCookies: secureCookies}
}

// RegisterRoutes registers the auth endpoints on the mux.
func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /auth/register", h.handleRegister)
	mux.HandleFunc("POST /auth/login", h.handleLogin)
	mux.HandleFunc("POST /auth/logout", h.handleLogout)
	mux.HandleFunc("GET /auth/whoami", h.handleWhoami)
	mux.HandleFunc("POST /auth/password/reset", h.handlePasswordReset)
	mux.HandleFunc("POST /auth/password/reset/confirm", h.handlePasswordResetConfirm)
}

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (h *Handlers) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Name == "" || req.Password == "" {
		http.Error(w, "email, name and password are required", http.StatusBadRequest)
		return
	}

	user, err := h.users.RegisterWithPassword(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrWeakPassword):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, ErrAccountExists):
			http.Error(w, "An account with this email already exists", http.StatusConflict)
		default:
			obs.From(r.Context()).Error("register_failed", "err", err)
			http.Error(w, "Registration failed", http.StatusInternalServerError)
		}
		return
	}

	session, err := h.sessions.Create(r.Context(), user.ID)
	if err != nil {
		obs.From(r.Context()).Error("session_create_failed", "err", err)
		http.Error(w, "Registration failed", http.StatusInternalServerError)
		return
	}
	h.sessions.SetCookie(w, session, h.secureCookies)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(userResponse{ID: user.ID, Email: user.Email, Name: user.Name})
}

func (h *Handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.users.VerifyLogin(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			http.Error(w, "Invalid email or password", http.StatusUnauthorized)
			return
		}
		obs.From(r.Context()).Error("login_failed", "err", err)
		http.Error(w, "Login failed", http.StatusInternalServerError)
		return
	}

	session, err := h.sessions.Create(r.Context(), user.ID)
	if err != nil {
		obs.From(r.Context()).Error("session_create_failed", "err", err)
		http.Error(w, "Login failed", http.StatusInternalServerError)
		return
	}
	h.sessions.SetCookie(w, session, h.secureCookies)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(userResponse{ID: user.ID, Email: user.Email, Name: user.Name})
}

func (h *Handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sessionID, ok := GetFromRequest(r); ok {
		if err := h.sessions.Delete(r.Context(), sessionID); err != nil {
			obs.From(r.Context()).Warn("session_delete_failed", "err", err)
		}
	}
	h.sessions.ClearCookie(w, h.secureCookies)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

func (h *Handlers) handleWhoami(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := GetFromRequest(r)
	if !ok {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	session, err := h.sessions.Validate(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	user, err := h.users.GetUser(r.Context(), session.UserID)
	if err != nil {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(userResponse{ID: user.ID, Email: user.Email, Name: user.Name})
}

func (h *Handlers) handlePasswordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		http.Error(w, "email is required", http.StatusBadRequest)
		return
	}

	// Always report success so responses don't reveal which emails exist.
	if err := h.users.SendPasswordReset(r.Context(), req.Email); err != nil {
		obs.From(r.Context()).Error("password_reset_send_failed", "err", err)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "If the email exists, a reset link has been sent"})
}

func (h *Handlers) handlePasswordResetConfirm(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" || req.Password == "" {
		http.Error(w, "token and password are required", http.StatusBadRequest)
		return
	}

	err := h.users.ResetPassword(r.Context(), req.Token, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrWeakPassword):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, ErrInvalidToken):
			http.Error(w, "Invalid or expired reset token", http.StatusBadRequest)
		default:
			obs.From(r.Context()).Error("password_reset_confirm_failed", "err", err)
			http.Error(w, "Password reset failed", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Password has been reset"})
}
