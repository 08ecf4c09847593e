// Package auth implements password accounts, sessions, and the HTTP
// middleware that resolves a session cookie into a caller identity.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"strings"
	stdtime "time"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"

	"github.com/vedgupta/prenotebook/internal/db"
	"github.com/vedgupta/prenotebook/internal/email"
	"github.com/vedgupta/prenotebook/internal/obs"
)

// Errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountExists      = errors.New("account already exists")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// Argon2id parameters (OWASP second recommendation: m=19456, t=2, p=1)
// Parameters are embedded in each hash string, so hashes produced with
// other parameters still verify correctly.
const (
	argon2Time    = 2
	argon2Memory  = 19 * 1024 // ~19 MiB (OWASP lighter alternative)
	argon2Threads = 1
	argon2KeyLen  = 32
	argon2SaltLen = 16
)

// ResetTokenExpiry is how long a password reset link stays valid.
const ResetTokenExpiry = 1 * stdtime.Hour

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 6

// Clock abstracts time for testability.
type Clock interface {
	Now() stdtime.Time
}

// realClock implements Clock using the real system stdtime.
type realClock struct{}

func (realClock) Now() stdtime.Time { return stdtime.Now() }

// Identity is the resolved caller of a request.
type Identity struct {
	ID    string
	Name  string
	Email string
}

// User represents a user account.
type User struct {
	ID        string
	Email     string
	Name      string
	CreatedAt stdtime.Time
}

// UserService handles user management operations.
type UserService struct {
	db           *db.AppDB
	emailService email.EmailService
	baseURL      string // Base URL for reset link generation
	clock        Clock  // Clock for time operations (defaults to real time)
}

// NewUserService creates a new user service.
func NewUserService(appDB *db.AppDB, emailSvc email.EmailService, baseURL string) *UserService {
	return &UserService{
		db:           appDB,
		emailService: emailSvc,
		baseURL:      baseURL,
		clock:        realClock{},
	}
}

// SetClock replaces the clock used by the service. Intended for testing.
func (s *UserService) SetClock(c Clock) {
	s.clock = c
}

// RegisterWithPassword creates a new account with email/password.
// Returns ErrAccountExists if the email is already registered.
// A welcome email is sent best-effort; registration succeeds without it.
func (s *UserService) RegisterWithPassword(ctx context.Context, emailAddr, name, password string) (*User, error) {
	if err := ValidatePasswordStrength(password); err != nil {
		return nil, err
	}

	passwordHash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.clock.Now()
	user := &User{
		ID:        "user-" + uuid.NewString(),
		Email:     emailAddr,
		Name:      name,
		CreatedAt: now,
	}

	err = s.db.InsertUser(ctx, db.UserRow{
		ID:           user.ID,
		Email:        emailAddr,
		Name:         name,
		PasswordHash: passwordHash,
		CreatedAt:    now.Unix(),
	})
	if err != nil {
		if db.IsUniqueConstraintError(err) {
			return nil, ErrAccountExists
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	if err := s.emailService.Send(emailAddr, email.TemplateWelcome, email.WelcomeData{Name: name}); err != nil {
		obs.From(ctx).Warn("welcome_email_failed", "err", err)
	}

	return user, nil
}

// VerifyLogin verifies email/password credentials for an existing account.
// Returns ErrInvalidCredentials if the user doesn't exist or the password is
// wrong; callers cannot distinguish the two cases.
func (s *UserService) VerifyLogin(ctx context.Context, emailAddr, password string) (*User, error) {
	row, err := s.db.GetUserByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get account: %w", err)
	}

	if !VerifyPassword(password, row.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return &User{
		ID:        row.ID,
		Email:     row.Email,
		Name:      row.Name,
		CreatedAt: stdtime.Unix(row.CreatedAt, 0),
	}, nil
}

// GetUser returns the account with the given id.
func (s *UserService) GetUser(ctx context.Context, userID string) (*User, error) {
	row, err := s.db.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &User{
		ID:        row.ID,
		Email:     row.Email,
		Name:      row.Name,
		CreatedAt: stdtime.Unix(row.CreatedAt, 0),
	}, nil
}

// SendPasswordReset sends a password reset email.
// Unknown emails succeed silently to prevent account enumeration.
func (s *UserService) SendPasswordReset(ctx context.Context, emailAddr string) error {
	row, err := s.db.GetUserByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("get account: %w", err)
	}

	// Generate random token, store only its hash
	token, err := generateSecureToken(32)
	if err != nil {
		return fmt.Errorf("generate token: %w", err)
	}

	now := s.clock.Now()
	err = s.db.InsertResetToken(ctx, db.ResetTokenRow{
		TokenHash: hashToken(token),
		UserID:    row.ID,
		ExpiresAt: now.Add(ResetTokenExpiry).Unix(),
		CreatedAt: now.Unix(),
	})
	if err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	link := fmt.Sprintf("%s/auth/password/reset/confirm?token=%s", s.baseURL, token)
	err = s.emailService.Send(emailAddr, email.TemplatePasswordReset, email.PasswordResetData{
		Link:      link,
		ExpiresIn: "1 hour",
	})
	if err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}

	return nil
}

// ResetPassword resets a user's password using a reset token.
// The token is consumed on success and cannot be used again.
func (s *UserService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := ValidatePasswordStrength(newPassword); err != nil {
		return err
	}

	userID, err := s.db.ConsumeResetToken(ctx, hashToken(token), s.clock.Now().Unix())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrInvalidToken
		}
		return fmt.Errorf("consume reset token: %w", err)
	}

	passwordHash, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.db.UpdateUserPassword(ctx, userID, passwordHash); err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}

	// A credentials change invalidates every open session for the account
	if _, err := s.db.DeleteSessionsByUser(ctx, userID); err != nil {
		obs.From(ctx).Warn("session_invalidation_failed", "user_id", userID, "err", err)
	}

	return nil
}

// ValidatePasswordStrength checks if a password meets minimum requirements.
func ValidatePasswordStrength(password string) error {
	if len(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

// HashPassword hashes a password using Argon2id.
func HashPassword(password string) (string, error) {
	// Generate salt
	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	// Hash password
	start := stdtime.Now()
	hash := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
	log.Printf("[ARGON2] HashPassword: m=%d KiB, t=%d, p=%d, took %s", argon2Memory, argon2Time, argon2Threads, stdtime.Since(start))

	// Encode as: $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
	encodedSalt := base64.RawStdEncoding.EncodeToString(salt)
	encodedHash := base64.RawStdEncoding.EncodeToString(hash)

	return fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		argon2Memory, argon2Time, argon2Threads, encodedSalt, encodedHash), nil
}

// VerifyPassword checks if a password matches a hash.
func VerifyPassword(password, encodedHash string) bool {
	// Parse the encoded hash
	// Format: $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return false
	}

	if parts[1] != "argon2id" {
		return false
	}

	if parts[2] != "v=19" {
		return false
	}

	// Parse parameters
	var memory, time uint32
	var threads uint8
	_, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads)
	if err != nil {
		return false
	}

	salt := parts[4]
	hash := parts[5]

	// Decode salt
	saltBytes, err := base64.RawStdEncoding.DecodeString(salt)
	if err != nil {
		return false
	}

	// Decode hash
	hashBytes, err := base64.RawStdEncoding.DecodeString(hash)
	if err != nil {
		return false
	}

	// Validate hash length is reasonable (Argon2 output is typically 32 bytes)
	hashLen := len(hashBytes)
	if hashLen <= 0 || hashLen > argon2KeyLen*2 {
		return false
	}

	// Compute hash of provided password
	computedHash := argon2.IDKey([]byte(password), saltBytes, time, memory, threads, uint32(hashLen))

	// Constant-time comparison
	return subtle.ConstantTimeCompare(hashBytes, computedHash) == 1
}

// Helper functions

func generateSecureToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}

func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return base64.URLEncoding.EncodeToString(hash[:])
}
