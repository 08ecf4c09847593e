package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// UserRow is a row in the users table.
type UserRow struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    int64
}

// SessionRow is a row in the sessions table.
type SessionRow struct {
	SessionID string
	UserID    string
	ExpiresAt int64
	CreatedAt int64
}

// ResetTokenRow is a row in the reset_tokens table.
type ResetTokenRow struct {
	TokenHash string
	UserID    string
	ExpiresAt int64
	CreatedAt int64
}

// InsertUser inserts a new user row. Email uniqueness violations surface as
// errors satisfying IsUniqueConstraintError.
func (a *AppDB) InsertUser(ctx context.Context, row UserRow) error {
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, row.ID, row.Email, row.Name, row.PasswordHash, row.CreatedAt)
	if err != nil {
		if IsUniqueConstraintError(err) {
			return err
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetUserByEmail returns the user with the given email.
// Returns sql.ErrNoRows if no such user exists.
func (a *AppDB) GetUserByEmail(ctx context.Context, email string) (*UserRow, error) {
	return a.getUser(ctx, `SELECT id, email, name, password_hash, created_at FROM users WHERE email = ?`, email)
}

// GetUserByID returns the user with the given id.
// Returns sql.ErrNoRows if no such user exists.
func (a *AppDB) GetUserByID(ctx context.Context, id string) (*UserRow, error) {
	return a.getUser(ctx, `SELECT id, email, name, password_hash, created_at FROM users WHERE id = ?`, id)
}

func (a *AppDB) getUser(ctx context.Context, query string, arg any) (*UserRow, error) {
	var user UserRow
	err := a.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// UpdateUserPassword replaces the password hash for the given user.
func (a *AppDB) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	result, err := a.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, userID)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// InsertSession inserts a new session row.
func (a *AppDB) InsertSession(ctx context.Context, row SessionRow) error {
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, user_id, expires_at, created_at)
		VALUES (?, ?, ?, ?)
	`, row.SessionID, row.UserID, row.ExpiresAt, row.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// GetSession returns the session with the given id.
// Returns sql.ErrNoRows if no such session exists.
func (a *AppDB) GetSession(ctx context.Context, sessionID string) (*SessionRow, error) {
	var session SessionRow
	err := a.db.QueryRowContext(ctx, `
		SELECT session_id, user_id, expires_at, created_at FROM sessions WHERE session_id = ?
	`, sessionID).Scan(&session.SessionID, &session.UserID, &session.ExpiresAt, &session.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

// DeleteSession removes the session with the given id.
func (a *AppDB) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := a.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteSessionsByUser removes every session belonging to a user.
func (a *AppDB) DeleteSessionsByUser(ctx context.Context, userID string) (int64, error) {
	result, err := a.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete user sessions: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read delete result: %w", err)
	}
	return affected, nil
}

// DeleteExpiredSessions removes all sessions that expired at or before now.
// Returns the number of sessions removed.
func (a *AppDB) DeleteExpiredSessions(ctx context.Context, now int64) (int64, error) {
	result, err := a.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read cleanup result: %w", err)
	}
	return affected, nil
}

// InsertResetToken inserts a new password reset token hash.
func (a *AppDB) InsertResetToken(ctx context.Context, row ResetTokenRow) error {
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO reset_tokens (token_hash, user_id, expires_at, created_at)
		VALUES (?, ?, ?, ?)
	`, row.TokenHash, row.UserID, row.ExpiresAt, row.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert reset token: %w", err)
	}
	return nil
}

// ConsumeResetToken atomically deletes and returns the user id for an
// unexpired reset token hash. Returns sql.ErrNoRows when the token is
// unknown or already expired, so a token can never be used twice.
func (a *AppDB) ConsumeResetToken(ctx context.Context, tokenHash string, now int64) (string, error) {
	var userID string
	err := a.db.QueryRowContext(ctx, `
		DELETE FROM reset_tokens
		WHERE token_hash = ? AND expires_at > ?
		RETURNING user_id
	`, tokenHash, now).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", err
		}
		return "", fmt.Errorf("failed to consume reset token: %w", err)
	}
	return userID, nil
}
