package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"phone-otp-auth/backend/internal/db"
	"phone-otp-auth/backend/internal/otp/domain"
)

type PostgresRepository struct {
	db db.Querier
}

// NewPostgresRepository returns a verification challenge repository that uses the given pool.
func NewPostgresRepository(q db.Querier) *PostgresRepository {
	return &PostgresRepository{db: q}
}

// Get returns the challenge for phone, or nil if not found.
func (r *PostgresRepository) Get(ctx context.Context, phone string) (*domain.Challenge, error) {
	var c domain.Challenge
	err := r.db.QueryRow(ctx,
		`SELECT phone_number, code, created_at, expires_at FROM verification_codes WHERE phone_number = $1`, phone).
		Scan(&c.PhoneNumber, &c.Code, &c.CreatedAt, &c.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// Create persists the challenge. The phone_number primary key rejects a second live row.
func (r *PostgresRepository) Create(ctx context.Context, c *domain.Challenge) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO verification_codes (phone_number, code, created_at, expires_at) VALUES ($1, $2, $3, $4)`,
		c.PhoneNumber, c.Code, c.CreatedAt, c.ExpiresAt)
	if db.IsUniqueViolation(err, "") {
		return ErrChallengeExists
	}
	return err
}

// Update overwrites code and expires_at in place.
func (r *PostgresRepository) Update(ctx context.Context, c *domain.Challenge) error {
	_, err := r.db.Exec(ctx,
		`UPDATE verification_codes SET code = $2, expires_at = $3 WHERE phone_number = $1`,
		c.PhoneNumber, c.Code, c.ExpiresAt)
	return err
}

// Consume deletes the matching live challenge in one statement, so concurrent verifications of the
// same code succeed at most once.
func (r *PostgresRepository) Consume(ctx context.Context, phone, code string, createdAfter, now time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM verification_codes
		WHERE phone_number = $1 AND code = $2 AND created_at >= $3 AND expires_at > $4`,
		phone, code, createdAfter, now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// DeleteStale removes an expired challenge for phone.
func (r *PostgresRepository) DeleteStale(ctx context.Context, phone string, createdAfter, now time.Time) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM verification_codes
		WHERE phone_number = $1 AND (expires_at <= $2 OR created_at < $3)`,
		phone, now, createdAfter)
	return err
}

// Delete removes the challenge for phone.
func (r *PostgresRepository) Delete(ctx context.Context, phone string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM verification_codes WHERE phone_number = $1`, phone)
	return err
}
