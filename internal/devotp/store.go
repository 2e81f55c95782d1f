// Package devotp keeps issued verification codes by phone number for test-mode retrieval (GET /dev/otp).
// Only wired when OTP_RETURN_TO_CLIENT is set, which config refuses in production.
package devotp

import (
	"context"
	"sync"
	"time"

	"phone-otp-auth/backend/internal/clock"
)

// Store holds plain codes by phone number for dev-only retrieval.
type Store interface {
	// Put stores code for phone until expiresAt, replacing any previous code.
	Put(ctx context.Context, phone, code string, expiresAt time.Time)
	// Get returns the code for phone if present and not expired.
	Get(ctx context.Context, phone string) (code string, ok bool)
	// Delete drops the code for phone, e.g. once it has been consumed.
	Delete(ctx context.Context, phone string)
}

type entry struct {
	code      string
	expiresAt time.Time
}

// MemoryStore is an in-memory Store implementation.
type MemoryStore struct {
	mu    sync.RWMutex
	m     map[string]entry
	clock clock.Clock
}

// NewMemoryStore returns a new in-memory dev OTP store. A nil clk uses the system clock.
func NewMemoryStore(clk clock.Clock) *MemoryStore {
	if clk == nil {
		clk = clock.System{}
	}
	return &MemoryStore{m: make(map[string]entry), clock: clk}
}

func (s *MemoryStore) Put(ctx context.Context, phone, code string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[phone] = entry{code: code, expiresAt: expiresAt}
}

// Get returns the code for phone if present and not expired. Expired entries are dropped.
func (s *MemoryStore) Get(ctx context.Context, phone string) (string, bool) {
	now := s.clock.Now()
	s.mu.RLock()
	e, ok := s.m[phone]
	s.mu.RUnlock()
	if !ok {
		return "", false
	}
	if e.expiresAt.After(now) {
		return e.code, true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// A Put may have replaced the entry since the read.
	if e, ok = s.m[phone]; ok && e.expiresAt.After(now) {
		return e.code, true
	}
	delete(s.m, phone)
	return "", false
}

func (s *MemoryStore) Delete(ctx context.Context, phone string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, phone)
}
