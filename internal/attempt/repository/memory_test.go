package repository

import (
	"context"
	"testing"
	"time"

	"phone-otp-auth/backend/internal/attempt/domain"
)

func TestMemoryLedger_WindowAndPurge(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	key := domain.Key{Source: "1.2.3.4", PhoneNumber: domain.Phone("09123456789"), Kind: domain.KindLogin}

	for _, age := range []time.Duration{2 * time.Hour, 61 * time.Minute, time.Hour, time.Minute} {
		_ = l.Append(ctx, &domain.FailedAttempt{Source: key.Source, PhoneNumber: key.PhoneNumber, Kind: key.Kind, CreatedAt: now.Add(-age)})
	}
	n, _ := l.CountSince(ctx, key, now.Add(-time.Hour))
	if n != 2 {
		t.Errorf("CountSince = %d, want 2 (window start is inclusive)", n)
	}

	removed, _ := l.DeleteBefore(ctx, now.Add(-time.Hour))
	if removed != 2 {
		t.Errorf("DeleteBefore removed %d, want 2", removed)
	}
	if l.Len() != 2 {
		t.Errorf("Len = %d, want 2", l.Len())
	}
}

func TestMemoryLedger_NilPhone(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()
	now := time.Now()
	_ = l.Append(ctx, &domain.FailedAttempt{Source: "1.2.3.4", Kind: domain.KindVerification, CreatedAt: now})

	n, _ := l.CountSince(ctx, domain.Key{Source: "1.2.3.4", PhoneNumber: domain.Phone("09123456789"), Kind: domain.KindVerification}, now.Add(-time.Hour))
	if n != 0 {
		t.Errorf("phone key matched a phoneless attempt: %d", n)
	}
	n, _ = l.CountSince(ctx, domain.Key{Source: "1.2.3.4", Kind: domain.KindVerification}, now.Add(-time.Hour))
	if n != 1 {
		t.Errorf("nil key count = %d, want 1", n)
	}
}
