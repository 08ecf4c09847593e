package auth

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	stdtime "time"

	"pgregory.net/rapid"

	"github.com/vedgupta/prenotebook/internal/db"
	"github.com/vedgupta/prenotebook/internal/email"
	"github.com/vedgupta/prenotebook/internal/testdb"
)

var authFixtureCounter atomic.Int64

// newTestUserService opens a fresh in-memory database and returns a user
// service over it. Callers must Close the returned AppDB. Shared between
// plain and rapid tests, so it reports failure via error instead of
// testing.TB.
func newTestUserService() (*UserService, *email.MockEmailService, *db.AppDB, error) {
	appDB, err := testdb.NewAppDBInMemory(fmt.Sprintf("auth_test_%d", authFixtureCounter.Add(1)))
	if err != nil {
		return nil, nil, nil, err
	}
	mock := email.NewMockEmailService()
	return NewUserService(appDB, mock, "http://localhost:8080"), mock, appDB, nil
}

func emailGen() *rapid.Generator[string] {
	return rapid.Custom(func(t *rapid.T) string {
		local := rapid.StringMatching(`[a-z0-9]{3,12}`).Draw(t, "local")
		domain := rapid.SampledFrom([]string{"example.com", "test.org", "mail.net"}).Draw(t, "domain")
		return local + "@" + domain
	})
}

func passwordGen() *rapid.Generator[string] {
	return rapid.StringN(MinPasswordLength, 40, -1)
}

func TestHashPassword_VerifyRoundTrip(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$") {
		t.Fatalf("unexpected hash format: %q", hash)
	}
	if !VerifyPassword("correct horse battery staple", hash) {
		t.Fatal("correct password did not verify")
	}
	if VerifyPassword("wrong password", hash) {
		t.Fatal("wrong password verified")
	}
}

func TestVerifyPassword_RejectsMalformedHashes(t *testing.T) {
	t.Parallel()

	malformed := []string{
		"",
		"plaintext",
		"$argon2id$v=19$m=19456,t=2,p=1$salt",
		"$argon2i$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$bogus$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=19456,t=2,p=1$!!!$aGFzaA",
		"$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$!!!",
	}
	for _, hash := range malformed {
		if VerifyPassword("password", hash) {
			t.Errorf("malformed hash verified: %q", hash)
		}
	}
}

func testRegisterAndLogin(t *rapid.T) {
	svc, mock, appDB, err := newTestUserService()
	if err != nil {
		t.Fatalf("newTestUserService failed: %v", err)
	}
	defer appDB.Close()
	ctx := context.Background()

	emailAddr := emailGen().Draw(t, "email")
	name := rapid.StringN(1, 30, -1).Draw(t, "name")
	password := passwordGen().Draw(t, "password")

	user, err := svc.RegisterWithPassword(ctx, emailAddr, name, password)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.ID == "" || user.Email != emailAddr || user.Name != name {
		t.Fatalf("unexpected user: %+v", user)
	}

	// Welcome email went out
	if mock.Count() != 1 || mock.LastEmail().Template != email.TemplateWelcome {
		t.Fatalf("expected one welcome email, got %d (%+v)", mock.Count(), mock.LastEmail())
	}

	// Correct credentials log in
	got, err := svc.VerifyLogin(ctx, emailAddr, password)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("login returned user %q, want %q", got.ID, user.ID)
	}

	// Wrong password and unknown email both fail identically
	if _, err := svc.VerifyLogin(ctx, emailAddr, password+"x"); err != ErrInvalidCredentials {
		t.Fatalf("wrong password: got %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.VerifyLogin(ctx, "nobody@"+emailAddr, password); err != ErrInvalidCredentials {
		t.Fatalf("unknown email: got %v, want ErrInvalidCredentials", err)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testRegisterAndLogin)
}

func FuzzRegisterAndLogin(f *testing.F) {
	f.Add([]byte{0x00})
	f.Fuzz(rapid.MakeFuzz(testRegisterAndLogin))
}

func testDuplicateEmailRejected(t *rapid.T) {
	svc, _, appDB, err := newTestUserService()
	if err != nil {
		t.Fatalf("newTestUserService failed: %v", err)
	}
	defer appDB.Close()
	ctx := context.Background()

	emailAddr := emailGen().Draw(t, "email")
	password := passwordGen().Draw(t, "password")

	if _, err := svc.RegisterWithPassword(ctx, emailAddr, "First", password); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.RegisterWithPassword(ctx, emailAddr, "Second", password); err != ErrAccountExists {
		t.Fatalf("duplicate register: got %v, want ErrAccountExists", err)
	}
}

func TestDuplicateEmailRejected(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testDuplicateEmailRejected)
}

func FuzzDuplicateEmailRejected(f *testing.F) {
	f.Add([]byte{0x00})
	f.Fuzz(rapid.MakeFuzz(testDuplicateEmailRejected))
}

func testWeakPasswordRejected(t *rapid.T) {
	svc, mock, appDB, err := newTestUserService()
	if err != nil {
		t.Fatalf("newTestUserService failed: %v", err)
	}
	defer appDB.Close()
	ctx := context.Background()

	weak := rapid.StringMatching(`[a-zA-Z0-9]{0,5}`).Draw(t, "weak")
	if _, err := svc.RegisterWithPassword(ctx, emailGen().Draw(t, "email"), "Someone", weak); err != ErrWeakPassword {
		t.Fatalf("weak password: got %v, want ErrWeakPassword", err)
	}
	if mock.Count() != 0 {
		t.Fatalf("no email should be sent on failed registration, got %d", mock.Count())
	}
}

func TestWeakPasswordRejected(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testWeakPasswordRejected)
}

func FuzzWeakPasswordRejected(f *testing.F) {
	f.Add([]byte{0x00})
	f.Fuzz(rapid.MakeFuzz(testWeakPasswordRejected))
}

func TestPasswordReset_FullFlow(t *testing.T) {
	t.Parallel()

	svc, mock, appDB, err := newTestUserService()
	if err != nil {
		t.Fatalf("newTestUserService failed: %v", err)
	}
	defer appDB.Close()
	ctx := context.Background()
	clock := NewFakeClock(stdtime.Date(2025, 6, 1, 12, 0, 0, 0, stdtime.UTC))
	svc.SetClock(clock)

	user, err := svc.RegisterWithPassword(ctx, "reset@example.com", "Reset User", "original-password")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	mock.Clear()

	if err := svc.SendPasswordReset(ctx, "reset@example.com"); err != nil {
		t.Fatalf("send reset: %v", err)
	}
	if mock.Count() != 1 || mock.LastEmail().Template != email.TemplatePasswordReset {
		t.Fatalf("expected one reset email, got %d", mock.Count())
	}

	data, ok := mock.LastEmail().Data.(email.PasswordResetData)
	if !ok {
		t.Fatalf("unexpected email data: %T", mock.LastEmail().Data)
	}
	idx := strings.Index(data.Link, "token=")
	if idx < 0 {
		t.Fatalf("reset link has no token: %q", data.Link)
	}
	token := data.Link[idx+len("token="):]

	sessions := NewSessionService(appDB, stdtime.Hour)
	sessions.SetClock(clock)
	session, err := sessions.Create(ctx, user.ID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	if err := svc.ResetPassword(ctx, token, "brand-new-password"); err != nil {
		t.Fatalf("reset password: %v", err)
	}

	// Resetting the password logs out every open session
	if _, err := sessions.Validate(ctx, session.ID); err != ErrSessionNotFound {
		t.Fatalf("session survived password reset: %v", err)
	}

	// Old password no longer works, new one does
	if _, err := svc.VerifyLogin(ctx, "reset@example.com", "original-password"); err != ErrInvalidCredentials {
		t.Fatalf("old password: got %v, want ErrInvalidCredentials", err)
	}
	got, err := svc.VerifyLogin(ctx, "reset@example.com", "brand-new-password")
	if err != nil || got.ID != user.ID {
		t.Fatalf("new password login: %v (user %+v)", err, got)
	}

	// Token is single-use
	if err := svc.ResetPassword(ctx, token, "another-password"); err != ErrInvalidToken {
		t.Fatalf("reused token: got %v, want ErrInvalidToken", err)
	}
}

func TestPasswordReset_ExpiredToken(t *testing.T) {
	t.Parallel()

	svc, mock, appDB, err := newTestUserService()
	if err != nil {
		t.Fatalf("newTestUserService failed: %v", err)
	}
	defer appDB.Close()
	ctx := context.Background()
	clock := NewFakeClock(stdtime.Date(2025, 6, 1, 12, 0, 0, 0, stdtime.UTC))
	svc.SetClock(clock)

	if _, err := svc.RegisterWithPassword(ctx, "expired@example.com", "Expired", "some-password"); err != nil {
		t.Fatalf("register: %v", err)
	}
	mock.Clear()

	if err := svc.SendPasswordReset(ctx, "expired@example.com"); err != nil {
		t.Fatalf("send reset: %v", err)
	}
	data := mock.LastEmail().Data.(email.PasswordResetData)
	token := data.Link[strings.Index(data.Link, "token=")+len("token="):]

	clock.Advance(ResetTokenExpiry + stdtime.Minute)

	if err := svc.ResetPassword(ctx, token, "new-password"); err != ErrInvalidToken {
		t.Fatalf("expired token: got %v, want ErrInvalidToken", err)
	}
}

func TestPasswordReset_UnknownEmailSilent(t *testing.T) {
	t.Parallel()

	svc, mock, appDB, err := newTestUserService()
	if err != nil {
		t.Fatalf("newTestUserService failed: %v", err)
	}
	defer appDB.Close()

	if err := svc.SendPasswordReset(context.Background(), "ghost@example.com"); err != nil {
		t.Fatalf("unknown email should succeed silently, got %v", err)
	}
	if mock.Count() != 0 {
		t.Fatalf("no email should be sent for unknown address, got %d", mock.Count())
	}
}
