package repository

import (
	"context"
	"sync"
	"time"

	"phone-otp-auth/backend/internal/otp/domain"
)

// MemoryRepository keeps challenges in a map keyed by phone number.
type MemoryRepository struct {
	mu sync.Mutex
	m  map[string]domain.Challenge
}

// NewMemoryRepository returns an empty in-memory challenge repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{m: make(map[string]domain.Challenge)}
}

func (r *MemoryRepository) Get(ctx context.Context, phone string) (*domain.Challenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.m[phone]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *MemoryRepository) Create(ctx context.Context, c *domain.Challenge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.m[c.PhoneNumber]; ok {
		return ErrChallengeExists
	}
	r.m[c.PhoneNumber] = *c
	return nil
}

func (r *MemoryRepository) Update(ctx context.Context, c *domain.Challenge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.m[c.PhoneNumber]
	if !ok {
		return nil
	}
	cur.Code = c.Code
	cur.ExpiresAt = c.ExpiresAt
	r.m[c.PhoneNumber] = cur
	return nil
}

func (r *MemoryRepository) Consume(ctx context.Context, phone, code string, createdAfter, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.m[phone]
	if !ok || c.Code != code || c.CreatedAt.Before(createdAfter) || !c.ExpiresAt.After(now) {
		return false, nil
	}
	delete(r.m, phone)
	return true, nil
}

func (r *MemoryRepository) DeleteStale(ctx context.Context, phone string, createdAfter, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.m[phone]
	if ok && (!c.ExpiresAt.After(now) || c.CreatedAt.Before(createdAfter)) {
		delete(r.m, phone)
	}
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, phone string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, phone)
	return nil
}
