package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const ctxPrincipalKey = "auth_principal"

// Middleware authenticates the bearer token and stores the Principal on both the gin
// context and the request context. Requests without a valid token are rejected with 401.
func Middleware(tokens TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if h == "" || !strings.HasPrefix(strings.ToLower(h), "bearer ") {
			slog.Warn("authentication required but not provided",
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": ErrUnauthorized.Error(), "message": "missing bearer token"})
			return
		}

		raw := strings.TrimSpace(h[len("Bearer "):])
		principal, err := tokens.Authenticate(raw)
		if err != nil {
			slog.Warn("failed to authenticate bearer token",
				"error", err,
				"path", c.Request.URL.Path,
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": ErrUnauthorized.Error(), "message": "invalid token"})
			return
		}

		c.Set(ctxPrincipalKey, principal)
		c.Request = c.Request.WithContext(WithPrincipal(c.Request.Context(), principal))
		c.Next()
	}
}

// RequireCapability rejects requests whose principal lacks c with 403.
func RequireCapability(c Capability) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		p := GetPrincipal(ctx)
		if err := Require(p, c); err != nil {
			status, kind := http.StatusForbidden, ErrForbidden.Error()
			if p == nil {
				status, kind = http.StatusUnauthorized, ErrUnauthorized.Error()
			}
			slog.Warn("capability check failed",
				"capability", c.String(),
				"path", ctx.Request.URL.Path,
			)
			ctx.AbortWithStatusJSON(status, gin.H{"error": kind, "message": err.Error()})
			return
		}
		ctx.Next()
	}
}

// GetPrincipal returns the Principal set by Middleware, or nil.
func GetPrincipal(c *gin.Context) *Principal {
	v, ok := c.Get(ctxPrincipalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*Principal)
	return p
}
