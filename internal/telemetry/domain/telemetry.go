package domain

import "time"

// Event types emitted by the auth flow.
const (
	EventRegister         = "register"
	EventVerifySuccess    = "verify_success"
	EventVerifyFailure    = "verify_failure"
	EventLoginSuccess     = "login_success"
	EventLoginFailure     = "login_failure"
	EventBlocked          = "blocked"
	EventPasswordSet      = "password_set"
	EventProfileCompleted = "profile_completed"
)

// AuthEvent is one auth-flow event, serialized as JSON onto the event stream.
type AuthEvent struct {
	ID          string            `json:"id"`
	Type        string            `json:"type"`
	IdentityID  string            `json:"identity_id,omitempty"`
	PhoneNumber string            `json:"phone_number,omitempty"`
	Source      string            `json:"source,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}
