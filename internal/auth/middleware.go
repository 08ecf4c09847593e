package auth

import (
	"context"
	"net/http"

	"github.com/vedgupta/prenotebook/internal/obs"
)

type contextKey string

const identityContextKey contextKey = "auth_identity"

// Middleware resolves session cookies into caller identities.
type Middleware struct {
	sessions *SessionService
	users    *UserService
}

// NewMiddleware creates auth middleware.
func NewMiddleware(sessions *SessionService, users *UserService) *Middleware {
	return &Middleware{sessions: sessions, users: users}
}

// RequireAuth rejects requests without a valid session.
// Rejected requests get a 401 with a JSON body of {"error":"Unauthorized"}.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := m.resolve(r)
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"Unauthorized"}`))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

// OptionalAuth resolves the session if present but never rejects.
func (m *Middleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if identity, ok := m.resolve(r); ok {
			r = r.WithContext(WithIdentity(r.Context(), identity))
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) resolve(r *http.Request) (Identity, bool) {
	sessionID, ok := GetFromRequest(r)
	if !ok {
		return Identity{}, false
	}

	session, err := m.sessions.Validate(r.Context(), sessionID)
	if err != nil {
		return Identity{}, false
	}

	user, err := m.users.GetUser(r.Context(), session.UserID)
	if err != nil {
		obs.From(r.Context()).Warn("session_user_missing", "user_id", session.UserID, "err", err)
		return Identity{}, false
	}

	return Identity{ID: user.ID, Name: user.Name, Email: user.Email}, true
}

// WithIdentity returns a context carrying the given identity.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// GetIdentity returns the caller identity stored in the context.
func GetIdentity(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(Identity)
	return identity, ok
}

// IsAuthenticated reports whether the context carries an identity.
func IsAuthenticated(ctx context.Context) bool {
	_, ok := GetIdentity(ctx)
	return ok
}
