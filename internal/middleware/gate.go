package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eventconnect/backend/internal/access"
	"github.com/eventconnect/backend/internal/auth"
	"github.com/eventconnect/backend/pkg/response"
)

// ContextPrincipal is the gin context key for the caller's access.Principal.
const ContextPrincipal = "principal"

// Gate consults the policy for the matched route template and stores the
// granted capabilities. It must run after JWT.
func Gate(policy *access.Policy, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := auth.ClaimsFrom(c)
		if !ok {
			response.Unauthorized(c, "missing user context")
			c.Abort()
			return
		}
		d := policy.Decide(claims.Role, c.Request.Method, c.FullPath())
		if !d.Allowed {
			logger.Debug("access denied",
				zap.String("user_id", claims.UserID.String()),
				zap.String("role", string(claims.Role)),
				zap.String("method", c.Request.Method),
				zap.String("route", c.FullPath()),
			)
			response.Forbidden(c, "insufficient permissions")
			c.Abort()
			return
		}
		c.Set(ContextPrincipal, access.Principal{UserID: claims.UserID, Role: claims.Role, Grant: d.Grant})
		c.Next()
	}
}

// PrincipalFrom returns the principal stored by Gate.
func PrincipalFrom(c *gin.Context) (access.Principal, bool) {
	v, ok := c.Get(ContextPrincipal)
	if !ok {
		return access.Principal{}, false
	}
	p, ok := v.(access.Principal)
	return p, ok
}
