package email

// Template names as constants for type safety.
const (
	TemplatePasswordReset = "password_reset"
	TemplateWelcome       = "welcome"
)

// PasswordResetData contains data for password reset emails.
type PasswordResetData struct {
	Link      string
	ExpiresIn string // e.g., "1 hour"
}

// WelcomeData contains data for welcome emails.
type WelcomeData struct {
	Name string
}
