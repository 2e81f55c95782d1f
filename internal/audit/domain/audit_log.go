package domain

import "time"

// Audit actions written by the auth flow.
const (
	ActionRegister         = "register"
	ActionVerifySuccess    = "verify_success"
	ActionVerifyFailure    = "verify_failure"
	ActionLoginSuccess     = "login_success"
	ActionLoginFailure     = "login_failure"
	ActionBlocked          = "blocked"
	ActionPasswordSet      = "password_set"
	ActionProfileCompleted = "profile_completed"
)

// AuditLog represents an audit event. IdentityID is empty for events with no known account.
type AuditLog struct {
	ID          string
	IdentityID  string
	PhoneNumber string
	Action      string
	IP          string
	Metadata    string
	CreatedAt   time.Time
}
