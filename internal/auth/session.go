package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	stdtime "time"

	"github.com/vedgupta/prenotebook/internal/db"
)

const (
	// SessionIDLength is the byte length of session IDs before encoding.
	SessionIDLength = 32

	// SessionCookieName is the name of the session cookie.
	SessionCookieName = "session_id"
)

// ErrSessionNotFound is returned when a session doesn't exist or has expired.
var ErrSessionNotFound = errors.New("session not found")

// Session represents an active login session.
type Session struct {
	ID        string
	UserID    string
	CreatedAt stdtime.Time
	ExpiresAt stdtime.Time
}

// SessionService manages login sessions.
type SessionService struct {
	db       *db.AppDB
	duration stdtime.Duration
	clock    Clock
}

// NewSessionService creates a new session service.
func NewSessionService(appDB *db.AppDB, duration stdtime.Duration) *SessionService {
	return &SessionService{
		db:       appDB,
		duration: duration,
		clock:    realClock{},
	}
}

// SetClock replaces the clock used by the service. Intended for testing.
func (s *SessionService) SetClock(c Clock) {
	s.clock = c
}

// Create creates a new session for a user.
func (s *SessionService) Create(ctx context.Context, userID string) (*Session, error) {
	id, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}

	now := s.clock.Now()
	session := &Session{
		ID:        id,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.duration),
	}

	err = s.db.InsertSession(ctx, db.SessionRow{
		SessionID: session.ID,
		UserID:    session.UserID,
		CreatedAt: session.CreatedAt.Unix(),
		ExpiresAt: session.ExpiresAt.Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	return session, nil
}

// Validate checks a session ID and returns the session if valid.
// Expiry is checked against the service clock, not in SQL, so tests with a
// fake clock see sessions expire deterministically.
func (s *SessionService) Validate(ctx context.Context, sessionID string) (*Session, error) {
	row, err := s.db.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	session := &Session{
		ID:        row.SessionID,
		UserID:    row.UserID,
		CreatedAt: stdtime.Unix(row.CreatedAt, 0),
		ExpiresAt: stdtime.Unix(row.ExpiresAt, 0),
	}

	if !s.clock.Now().Before(session.ExpiresAt) {
		return nil, ErrSessionNotFound
	}

	return session, nil
}

// Delete removes a session (logout). Deleting an unknown session is not an
// error.
func (s *SessionService) Delete(ctx context.Context, sessionID string) error {
	if err := s.db.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteByUserID removes every session belonging to a user, forcing
// re-login on all their devices.
func (s *SessionService) DeleteByUserID(ctx context.Context, userID string) error {
	if _, err := s.db.DeleteSessionsByUser(ctx, userID); err != nil {
		return fmt.Errorf("delete user sessions: %w", err)
	}
	return nil
}

// Cleanup removes expired sessions and returns how many were deleted.
func (s *SessionService) Cleanup(ctx context.Context) (int64, error) {
	n, err := s.db.DeleteExpiredSessions(ctx, s.clock.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return n, nil
}

// SetCookie sets the session cookie on an HTTP response.
func (s *SessionService) SetCookie(w http.ResponseWriter, session *Session, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    session.ID,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie removes the session cookie.
func (s *SessionService) ClearCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// GetFromRequest extracts the session ID from a request's cookie.
func GetFromRequest(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

func generateSessionID() (string, error) {
	bytes := make([]byte, SessionIDLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}
