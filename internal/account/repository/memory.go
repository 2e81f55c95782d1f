package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"phone-otp-auth/backend/internal/account/domain"
)

// MemoryRepository is an in-process Repository for local development and tests.
type MemoryRepository struct {
	mu      sync.Mutex
	byID    map[string]*domain.Identity
	byPhone map[string]string
}

// NewMemoryRepository returns an empty in-memory identity repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:    make(map[string]*domain.Identity),
		byPhone: make(map[string]string),
	}
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneIdentity(r.byID[id]), nil
}

func (r *MemoryRepository) GetByPhone(ctx context.Context, phone string) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneIdentity(r.byID[r.byPhone[phone]]), nil
}

func (r *MemoryRepository) GetOrCreate(ctx context.Context, phone string, now time.Time) (*domain.Identity, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byPhone[phone]; ok {
		return cloneIdentity(r.byID[id]), false, nil
	}
	i := &domain.Identity{
		ID:           uuid.NewString(),
		PhoneNumber:  phone,
		PasswordHash: domain.UnusablePassword,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.byID[i.ID] = i
	r.byPhone[phone] = i.ID
	return cloneIdentity(i), true, nil
}

func (r *MemoryRepository) Create(ctx context.Context, i *domain.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byPhone[i.PhoneNumber]; ok {
		return ErrPhoneTaken
	}
	if i.Email != nil && r.emailOwnerLocked(*i.Email, "") {
		return ErrEmailTaken
	}
	r.byID[i.ID] = cloneIdentity(i)
	r.byPhone[i.PhoneNumber] = i.ID
	return nil
}

func (r *MemoryRepository) SetPassword(ctx context.Context, id, passwordHash string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i, ok := r.byID[id]; ok {
		i.PasswordHash = passwordHash
		i.UpdatedAt = now
	}
	return nil
}

func (r *MemoryRepository) UpdateProfile(ctx context.Context, id string, p domain.Profile, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.byID[id]
	if !ok {
		return nil
	}
	if p.Email != nil && r.emailOwnerLocked(*p.Email, id) {
		return ErrEmailTaken
	}
	i.FirstName = cloneString(p.FirstName)
	i.LastName = cloneString(p.LastName)
	i.Email = cloneString(p.Email)
	i.UpdatedAt = now
	return nil
}

func (r *MemoryRepository) EmailTaken(ctx context.Context, email, exceptID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.emailOwnerLocked(email, exceptID), nil
}

func (r *MemoryRepository) emailOwnerLocked(email, exceptID string) bool {
	for id, i := range r.byID {
		if id != exceptID && i.Email != nil && *i.Email == email {
			return true
		}
	}
	return false
}

func cloneIdentity(i *domain.Identity) *domain.Identity {
	if i == nil {
		return nil
	}
	c := *i
	c.FirstName = cloneString(i.FirstName)
	c.LastName = cloneString(i.LastName)
	c.Email = cloneString(i.Email)
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
