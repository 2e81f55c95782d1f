package repository

import (
	"context"

	"phone-otp-auth/backend/internal/audit/domain"
	"phone-otp-auth/backend/internal/db"
)

type PostgresRepository struct {
	db db.Querier
}

// NewPostgresRepository returns an audit log repository backed by the given pool.
func NewPostgresRepository(q db.Querier) *PostgresRepository {
	return &PostgresRepository{db: q}
}

// Create persists the audit log. a.ID must be set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO audit_logs (id, identity_id, phone_number, action, ip, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, nullable(a.IdentityID), nullable(a.PhoneNumber), a.Action, a.IP, nullable(a.Metadata), a.CreatedAt)
	return err
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
