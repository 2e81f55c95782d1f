// Package otp implements the verification code lifecycle: issue, verify (one-time use) and regenerate.
package otp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"phone-otp-auth/backend/internal/clock"
	"phone-otp-auth/backend/internal/otp/domain"
	"phone-otp-auth/backend/internal/otp/repository"
)

// DefaultTTL is how long an issued code stays valid.
const DefaultTTL = 5 * time.Minute

var (
	// ErrAlreadyPending is returned by Issue when the phone number already has a live challenge.
	ErrAlreadyPending = errors.New("verification code already pending")
	// ErrNoChallenge is returned by Regenerate when the phone number has nothing to regenerate.
	ErrNoChallenge = errors.New("no verification code for phone number")
)

// Service manages verification challenges.
type Service struct {
	repo  repository.Repository
	clock clock.Clock
	rand  RandomSource
	ttl   time.Duration
}

// NewService returns a Service with the default TTL. clk and rnd default to the system clock and crypto/rand.
func NewService(repo repository.Repository, clk clock.Clock, rnd RandomSource) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	if rnd == nil {
		rnd = CryptoSource{}
	}
	return &Service{repo: repo, clock: clk, rand: rnd, ttl: DefaultTTL}
}

// TTL returns the lifetime of issued codes.
func (s *Service) TTL() time.Duration { return s.ttl }

// Issue creates a fresh challenge for phone and returns it. Fails with ErrAlreadyPending when a live
// challenge exists, including when a concurrent Issue for the same phone won the insert.
// An expired challenge for phone is purged first.
func (s *Service) Issue(ctx context.Context, phone string) (*domain.Challenge, error) {
	now := s.clock.Now()
	existing, err := s.repo.Get(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("otp lookup: %w", err)
	}
	if existing != nil {
		if existing.IsValid(now, s.ttl) {
			return nil, ErrAlreadyPending
		}
		if err := s.repo.DeleteStale(ctx, phone, now.Add(-s.ttl), now); err != nil {
			return nil, fmt.Errorf("otp purge: %w", err)
		}
	}
	code, err := s.rand.NewCode()
	if err != nil {
		return nil, fmt.Errorf("otp generate: %w", err)
	}
	c := &domain.Challenge{
		PhoneNumber: phone,
		Code:        code,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
	}
	if err := s.repo.Create(ctx, c); err != nil {
		if errors.Is(err, repository.ErrChallengeExists) {
			return nil, ErrAlreadyPending
		}
		return nil, fmt.Errorf("otp create: %w", err)
	}
	return c, nil
}

// Verify reports whether code matches the live challenge for phone. On a match the challenge is
// deleted. On a mismatch it is left in place so the caller may retry until expiry.
func (s *Service) Verify(ctx context.Context, phone, code string) (bool, error) {
	if phone == "" || code == "" {
		return false, nil
	}
	now := s.clock.Now()
	ok, err := s.repo.Consume(ctx, phone, code, now.Add(-s.ttl), now)
	if err != nil {
		return false, fmt.Errorf("otp consume: %w", err)
	}
	return ok, nil
}

// Regenerate overwrites the code and expiry of the existing challenge for phone. The creation time is
// kept, so a challenge older than the TTL stays invalid regardless of its new expiry.
func (s *Service) Regenerate(ctx context.Context, phone string) (*domain.Challenge, error) {
	c, err := s.repo.Get(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("otp lookup: %w", err)
	}
	if c == nil {
		return nil, ErrNoChallenge
	}
	code, err := s.rand.NewCode()
	if err != nil {
		return nil, fmt.Errorf("otp generate: %w", err)
	}
	c.Code = code
	c.ExpiresAt = s.clock.Now().Add(s.ttl)
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("otp update: %w", err)
	}
	return c, nil
}
