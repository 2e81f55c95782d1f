package repository

import (
	"context"
	"sync"
	"time"

	"phone-otp-auth/backend/internal/attempt/domain"
)

// MemoryLedger keeps attempts in a slice. Used by the dev server and tests.
type MemoryLedger struct {
	mu     sync.Mutex
	rows   []domain.FailedAttempt
	nextID int64
}

// NewMemoryLedger returns an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{}
}

func (l *MemoryLedger) Append(ctx context.Context, a *domain.FailedAttempt) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	a.ID = l.nextID
	row := *a
	if a.PhoneNumber != nil {
		p := *a.PhoneNumber
		row.PhoneNumber = &p
	}
	l.rows = append(l.rows, row)
	return nil
}

func (l *MemoryLedger) CountSince(ctx context.Context, key domain.Key, since time.Time) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, r := range l.rows {
		if r.Source == key.Source && r.Kind == key.Kind && samePhone(r.PhoneNumber, key.PhoneNumber) && !r.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (l *MemoryLedger) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.rows[:0]
	var removed int64
	for _, r := range l.rows {
		if r.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	l.rows = kept
	return removed, nil
}

// Len returns the number of stored attempts.
func (l *MemoryLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.rows)
}

func samePhone(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
