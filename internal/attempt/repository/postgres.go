package repository

import (
	"context"
	"time"

	"phone-otp-auth/backend/internal/attempt/domain"
	"phone-otp-auth/backend/internal/db"
)

type PostgresLedger struct {
	db db.Querier
}

// NewPostgresLedger returns a Ledger backed by the failed_attempts table.
func NewPostgresLedger(q db.Querier) *PostgresLedger {
	return &PostgresLedger{db: q}
}

// Append inserts a row and sets a.ID.
func (l *PostgresLedger) Append(ctx context.Context, a *domain.FailedAttempt) error {
	return l.db.QueryRow(ctx, `
		INSERT INTO failed_attempts (ip_address, phone_number, attempt_type, created_at)
		VALUES ($1, $2, $3, $4) RETURNING id`,
		a.Source, a.PhoneNumber, string(a.Kind), a.CreatedAt).Scan(&a.ID)
}

// CountSince uses IS NOT DISTINCT FROM so a nil phone only matches rows recorded without one.
func (l *PostgresLedger) CountSince(ctx context.Context, key domain.Key, since time.Time) (int, error) {
	var n int
	err := l.db.QueryRow(ctx, `
		SELECT count(*) FROM failed_attempts
		WHERE ip_address = $1 AND phone_number IS NOT DISTINCT FROM $2 AND attempt_type = $3 AND created_at >= $4`,
		key.Source, key.PhoneNumber, string(key.Kind), since).Scan(&n)
	return n, err
}

// DeleteBefore removes rows created before cutoff.
func (l *PostgresLedger) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := l.db.Exec(ctx, `DELETE FROM failed_attempts WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
