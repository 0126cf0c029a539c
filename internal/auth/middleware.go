package auth

import (
	"context"
	"net/http"
	"strings"

	"customer-service/internal/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type principalCtxKey struct{}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p *domain.Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey{}, p)
}

// PrincipalFrom returns the request principal, or nil when the caller is anonymous.
func PrincipalFrom(ctx context.Context) *domain.Principal {
	p, _ := ctx.Value(principalCtxKey{}).(*domain.Principal)
	return p
}

// Middleware resolves an optional Bearer token into the request principal.
// Requests without an Authorization header continue anonymously; a malformed
// or expired token is rejected with 401.
func Middleware(tokens *TokenManager, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}
		p, err := tokens.Parse(strings.TrimSpace(parts[1]))
		if err != nil {
			logger.Warn("auth: rejected token",
				zap.String("path", c.Request.URL.Path),
				zap.String("remote_addr", c.ClientIP()),
				zap.Error(err),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		c.Request = c.Request.WithContext(WithPrincipal(c.Request.Context(), p))
		c.Next()
	}
}

// RequireAuthenticated rejects anonymous requests regardless of roles.
func RequireAuthenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		if PrincipalFrom(c.Request.Context()) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}

// RequireRole lets the request through only when the principal holds role.
func RequireRole(role domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := PrincipalFrom(c.Request.Context())
		if p == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		if !p.HasRole(role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access denied"})
			return
		}
		c.Next()
	}
}
