package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"phone-otp-auth/backend/internal/security"
)

const bearerPrefix = "bearer "

// AccessValidator validates access tokens. *security.TokenProvider implements it.
type AccessValidator interface {
	ValidateAccess(token string) (security.Principal, error)
}

// RequireAuth rejects requests without a valid Bearer access token with 401 and otherwise
// puts the principal in the request context.
func RequireAuth(tokens AccessValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearer(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Authentication credentials were not provided."})
			return
		}
		p, err := tokens.ValidateAccess(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Given token not valid for any token type"})
			return
		}
		c.Request = c.Request.WithContext(WithPrincipal(c.Request.Context(), p))
		c.Next()
	}
}

// extractBearer returns the token from an Authorization header value, or "" if missing or malformed.
func extractBearer(v string) string {
	v = strings.TrimSpace(v)
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
