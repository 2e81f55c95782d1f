package security

import (
	"time"

	"phone-otp-auth/backend/internal/clock"
)

// NewTestTokenProvider returns a TokenProvider signing with a throwaway P-256 key, 5m access and 24h refresh.
// For unit tests only.
func NewTestTokenProvider() (*TokenProvider, error) {
	signer, pub, err := GenerateEphemeralKey()
	if err != nil {
		return nil, err
	}
	return NewTokenProvider(signer, pub, "test-issuer", "test-audience", 5*time.Minute, 24*time.Hour), nil
}

// NewTestTokenProviderWithClock is NewTestTokenProvider reading time from clk.
func NewTestTokenProviderWithClock(clk clock.Clock) (*TokenProvider, error) {
	p, err := NewTestTokenProvider()
	if err != nil {
		return nil, err
	}
	return p.WithClock(clk), nil
}
