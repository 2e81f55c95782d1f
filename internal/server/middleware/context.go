// Package middleware holds the gin middleware in front of the JSON API.
package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"phone-otp-auth/backend/internal/security"
)

type contextKey struct{ name string }

var (
	clientIPKey  = contextKey{"client_ip"}
	principalKey = contextKey{"principal"}
)

// WithClientIP returns a context carrying the client address.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// ClientIPFromContext returns the client address set by ClientIP, or "".
func ClientIPFromContext(ctx context.Context) string {
	v, _ := ctx.Value(clientIPKey).(string)
	return v
}

// WithPrincipal returns a context carrying the authenticated principal.
func WithPrincipal(ctx context.Context, p security.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the principal set by RequireAuth and true if set.
func PrincipalFromContext(ctx context.Context) (security.Principal, bool) {
	p, ok := ctx.Value(principalKey).(security.Principal)
	return p, ok
}

// ClientIP copies gin's resolved client address into the request context so services
// and the audit logger see the same value the limiter keys on.
func ClientIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(WithClientIP(c.Request.Context(), c.ClientIP()))
		c.Next()
	}
}
