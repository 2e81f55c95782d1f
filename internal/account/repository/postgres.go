package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"phone-otp-auth/backend/internal/account/domain"
	"phone-otp-auth/backend/internal/db"
)

const identityColumns = `id, phone_number, first_name, last_name, email, password_hash,
	is_active, is_staff, is_superuser, is_admin, created_at, updated_at`

const (
	phoneConstraint = "identities_phone_number_key"
	emailConstraint = "identities_email_key"
)

type PostgresRepository struct {
	db db.Querier
}

// NewPostgresRepository returns an identity repository backed by the given pool.
func NewPostgresRepository(q db.Querier) *PostgresRepository {
	return &PostgresRepository{db: q}
}

// GetByID returns the identity for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	row := r.db.QueryRow(ctx, `SELECT `+identityColumns+` FROM identities WHERE id = $1`, id)
	return scanIdentity(row)
}

// GetByPhone returns the identity owning phone, or nil if not found.
func (r *PostgresRepository) GetByPhone(ctx context.Context, phone string) (*domain.Identity, error) {
	row := r.db.QueryRow(ctx, `SELECT `+identityColumns+` FROM identities WHERE phone_number = $1`, phone)
	return scanIdentity(row)
}

// GetOrCreate inserts with ON CONFLICT DO NOTHING and falls back to a read when another writer won.
func (r *PostgresRepository) GetOrCreate(ctx context.Context, phone string, now time.Time) (*domain.Identity, bool, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO identities (id, phone_number, password_hash, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, TRUE, $4, $4)
		ON CONFLICT (phone_number) DO NOTHING
		RETURNING `+identityColumns,
		uuid.NewString(), phone, domain.UnusablePassword, now)
	ident, err := scanIdentity(row)
	if err != nil {
		return nil, false, fmt.Errorf("identity upsert: %w", err)
	}
	if ident != nil {
		return ident, true, nil
	}
	ident, err = r.GetByPhone(ctx, phone)
	if err != nil {
		return nil, false, err
	}
	if ident == nil {
		return nil, false, fmt.Errorf("identity upsert: row for %s vanished", phone)
	}
	return ident, false, nil
}

// Create persists i. i.ID must be set.
func (r *PostgresRepository) Create(ctx context.Context, i *domain.Identity) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO identities (id, phone_number, first_name, last_name, email, password_hash,
			is_active, is_staff, is_superuser, is_admin, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		i.ID, i.PhoneNumber, i.FirstName, i.LastName, i.Email, i.PasswordHash,
		i.IsActive, i.IsStaff, i.IsSuperuser, i.IsAdmin, i.CreatedAt, i.UpdatedAt)
	if db.IsUniqueViolation(err, phoneConstraint) {
		return ErrPhoneTaken
	}
	if db.IsUniqueViolation(err, emailConstraint) {
		return ErrEmailTaken
	}
	return err
}

// SetPassword replaces the stored credential hash.
func (r *PostgresRepository) SetPassword(ctx context.Context, id, passwordHash string, now time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE identities SET password_hash = $2, updated_at = $3 WHERE id = $1`, id, passwordHash, now)
	return err
}

// UpdateProfile overwrites first name, last name and email. The partial unique index on email
// is the final arbiter when two identities race for the same address.
func (r *PostgresRepository) UpdateProfile(ctx context.Context, id string, p domain.Profile, now time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE identities SET first_name = $2, last_name = $3, email = $4, updated_at = $5
		WHERE id = $1`, id, p.FirstName, p.LastName, p.Email, now)
	if db.IsUniqueViolation(err, emailConstraint) {
		return ErrEmailTaken
	}
	return err
}

// EmailTaken reports whether an identity other than exceptID owns email.
func (r *PostgresRepository) EmailTaken(ctx context.Context, email, exceptID string) (bool, error) {
	var taken bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM identities WHERE email = $1 AND id::text <> $2)`, email, exceptID).Scan(&taken)
	return taken, err
}

func scanIdentity(row pgx.Row) (*domain.Identity, error) {
	var i domain.Identity
	err := row.Scan(&i.ID, &i.PhoneNumber, &i.FirstName, &i.LastName, &i.Email, &i.PasswordHash,
		&i.IsActive, &i.IsStaff, &i.IsSuperuser, &i.IsAdmin, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &i, nil
}
