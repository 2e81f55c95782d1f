package domain

import "time"

// Kind is the operation a failed attempt was made against.
type Kind string

const (
	KindLogin        Kind = "login"
	KindVerification Kind = "verification"
)

// Valid reports whether k is a known operation kind.
func (k Kind) Valid() bool {
	return k == KindLogin || k == KindVerification
}

// FailedAttempt is an immutable ledger entry (failed_attempts table).
// PhoneNumber is nil when the request carried no phone number.
type FailedAttempt struct {
	ID          int64
	Source      string
	PhoneNumber *string
	Kind        Kind
	CreatedAt   time.Time
}

// Key identifies the (source, phone, kind) triple the limiter counts against.
type Key struct {
	Source      string
	PhoneNumber *string
	Kind        Kind
}

// Phone returns a pointer to phone, or nil when phone is empty.
func Phone(phone string) *string {
	if phone == "" {
		return nil
	}
	return &phone
}

// Window is the sliding-window view a block policy decides on.
type Window struct {
	Key      Key
	Failures int
	Span     time.Duration
}
