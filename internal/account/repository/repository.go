package repository

import (
	"context"
	"errors"
	"time"

	"phone-otp-auth/backend/internal/account/domain"
)

var (
	// ErrPhoneTaken is returned by Create when an identity already owns the phone number.
	ErrPhoneTaken = errors.New("phone number already registered")
	// ErrEmailTaken is returned by UpdateProfile when another identity owns the email.
	ErrEmailTaken = errors.New("email already in use")
)

// Repository defines persistence for identities (the AccountStore).
// Lookups return nil, nil when no row matches.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Identity, error)
	GetByPhone(ctx context.Context, phone string) (*domain.Identity, error)
	// GetOrCreate returns the identity for phone, inserting one with an unusable password if absent.
	// Safe under concurrent calls for the same phone: exactly one row is created.
	GetOrCreate(ctx context.Context, phone string, now time.Time) (identity *domain.Identity, created bool, err error)
	Create(ctx context.Context, i *domain.Identity) error
	SetPassword(ctx context.Context, id, passwordHash string, now time.Time) error
	UpdateProfile(ctx context.Context, id string, p domain.Profile, now time.Time) error
	// EmailTaken reports whether an identity other than exceptID owns email.
	EmailTaken(ctx context.Context, email, exceptID string) (bool, error)
}
