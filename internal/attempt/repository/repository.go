package repository

import (
	"context"
	"time"

	"phone-otp-auth/backend/internal/attempt/domain"
)

// Ledger is the append-only log of failed attempts, queried as a sliding window.
type Ledger interface {
	// Append records a failed attempt.
	Append(ctx context.Context, a *domain.FailedAttempt) error
	// CountSince returns how many attempts match key exactly (a nil phone matches only nil) at or after since.
	CountSince(ctx context.Context, key domain.Key, since time.Time) (int, error)
	// DeleteBefore removes attempts strictly older than cutoff and returns how many were removed.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
