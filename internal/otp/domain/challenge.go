package domain

import "time"

// Challenge is the single outstanding verification code for a phone number (verification_codes table).
type Challenge struct {
	PhoneNumber string
	Code        string
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// IsValid reports whether the challenge is still usable at now: before its expiry and created within ttl.
// Both bounds are checked so a regenerated expiry cannot revive a stale row.
func (c *Challenge) IsValid(now time.Time, ttl time.Duration) bool {
	if c == nil {
		return false
	}
	return now.Before(c.ExpiresAt) && !c.CreatedAt.Before(now.Add(-ttl))
}
