// Package engine evaluates the failed-attempt block decision with OPA Rego.
package engine

import (
	"phone-otp-auth/backend/internal/attempt/domain"
)

const (
	// PolicyPackage is the Rego package a block policy must declare.
	PolicyPackage = "otp_auth.attempts"
	blockedQuery  = "data.otp_auth.attempts.blocked"
)

// DefaultPolicy blocks once the trailing window holds max_failures failures.
const DefaultPolicy = `package otp_auth.attempts

default blocked = false

blocked if {
	input.failures >= input.max_failures
}
`

// buildInput maps a window to the document exposed to Rego as input.
func buildInput(w domain.Window, maxFailures int) map[string]interface{} {
	var phone interface{}
	if w.Key.PhoneNumber != nil {
		phone = *w.Key.PhoneNumber
	}
	return map[string]interface{}{
		"source":         w.Key.Source,
		"phone_number":   phone,
		"kind":           string(w.Key.Kind),
		"failures":       w.Failures,
		"window_seconds": int64(w.Span.Seconds()),
		"max_failures":   maxFailures,
	}
}
