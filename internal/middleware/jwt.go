package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eventconnect/backend/internal/auth"
	"github.com/eventconnect/backend/pkg/response"
)

// RevocationChecker reports whether a token id was logged out.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// JWT returns a middleware that validates the bearer token and stores its claims in context.
// A nil checker skips the revocation lookup.
func JWT(jwtService *auth.JWTService, revoked RevocationChecker, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		claims, err := jwtService.Validate(parts[1])
		if errors.Is(err, auth.ErrTokenExpired) {
			response.Unauthorized(c, "token expired")
			c.Abort()
			return
		}
		if err != nil {
			response.Unauthorized(c, "invalid token")
			c.Abort()
			return
		}
		if revoked != nil && claims.ID != "" {
			isRevoked, err := revoked.IsRevoked(c.Request.Context(), claims.ID)
			if err != nil {
				logger.Error("revocation lookup failed", zap.Error(err))
				response.ServiceUnavailable(c, "authentication temporarily unavailable")
				c.Abort()
				return
			}
			if isRevoked {
				response.Unauthorized(c, "token has been revoked")
				c.Abort()
				return
			}
		}
		c.Set(auth.ContextClaims, claims)
		c.Next()
	}
}
