package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eventconnect/backend/pkg/response"
)

// WindowCounter counts events per key in a fixed window.
type WindowCounter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error)
}

// Throttle limits each authenticated caller to limit requests per window on
// the routes it guards. Counter failures let the request through.
func Throttle(counter WindowCounter, name string, limit int, window time.Duration, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok {
			c.Next()
			return
		}
		n, err := counter.IncrWindow(c.Request.Context(), "throttle:"+name+":"+p.UserID.String(), window)
		if err != nil {
			logger.Warn("throttle counter unavailable", zap.String("throttle", name), zap.Error(err))
			c.Next()
			return
		}
		if n > int64(limit) {
			response.TooManyRequests(c, "too many attempts, try again later")
			c.Abort()
			return
		}
		c.Next()
	}
}
