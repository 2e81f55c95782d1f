package attempt

import (
	"context"
	"testing"
	"time"

	"phone-otp-auth/backend/internal/attempt/domain"
	"phone-otp-auth/backend/internal/attempt/repository"
	"phone-otp-auth/backend/internal/clock"
)

func TestPurger_RemovesOnlyOldRows(t *testing.T) {
	now := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
	clk := clock.NewFake(now)
	ledger := repository.NewMemoryLedger()
	ctx := context.Background()

	for _, age := range []time.Duration{10 * 24 * time.Hour, 5*24*time.Hour + time.Second, 4 * 24 * time.Hour, time.Minute} {
		_ = ledger.Append(ctx, &domain.FailedAttempt{Source: src, Kind: domain.KindLogin, CreatedAt: now.Add(-age)})
	}

	n, err := NewPurger(ledger, clk, 0, nil).Purge(ctx)
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if n != 2 {
		t.Errorf("Purge removed %d, want 2", n)
	}
	if ledger.Len() != 2 {
		t.Errorf("remaining = %d, want 2", ledger.Len())
	}
}

func TestPurger_DoesNotAffectLiveWindow(t *testing.T) {
	clk := clock.NewFake(time.Now())
	ledger := repository.NewMemoryLedger()
	l := NewLimiter(ledger, nil, clk, nil, nil)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		l.RecordFailure(ctx, src, phone, domain.KindLogin)
	}

	if _, err := NewPurger(ledger, clk, time.Minute, nil).Purge(ctx); err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if blocked, _ := l.IsBlocked(ctx, src, phone, domain.KindLogin); !blocked {
		t.Error("purge must never remove attempts inside the limiter window")
	}
}

func TestPurger_RunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewPurger(repository.NewMemoryLedger(), nil, 0, nil).Run(ctx, time.Hour)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
