package repository

import (
	"context"
	"errors"
	"time"

	"phone-otp-auth/backend/internal/otp/domain"
)

// ErrChallengeExists is returned by Create when a row for the phone number is already stored.
var ErrChallengeExists = errors.New("verification code already exists for phone number")

// Repository defines persistence for verification challenges. At most one row exists per phone number.
type Repository interface {
	// Get returns the stored challenge for phone, or nil if none exists.
	Get(ctx context.Context, phone string) (*domain.Challenge, error)
	// Create inserts c. Returns ErrChallengeExists if phone already has a row.
	Create(ctx context.Context, c *domain.Challenge) error
	// Update overwrites code and expiry of the existing row for c.PhoneNumber. CreatedAt is left as stored.
	Update(ctx context.Context, c *domain.Challenge) error
	// Consume deletes the row matching phone and code when it was created at or after createdAfter
	// and expires after now. Reports whether a row was deleted.
	Consume(ctx context.Context, phone, code string, createdAfter, now time.Time) (bool, error)
	// DeleteStale removes the row for phone when it expired at or before now or was created before createdAfter.
	DeleteStale(ctx context.Context, phone string, createdAfter, now time.Time) error
	// Delete removes the row for phone, if any.
	Delete(ctx context.Context, phone string) error
}
