package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/eventconnect/backend/pkg/response"
)

const (
	corsMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	corsHeaders = "Content-Type, Authorization, X-Request-ID"
	corsExpose  = "X-Request-ID"
	corsMaxAge  = "86400"
)

// corsAllowlist decides which browser origins may call the API.
type corsAllowlist struct {
	any     bool
	origins map[string]struct{}
}

func newCORSAllowlist(raw string) corsAllowlist {
	l := corsAllowlist{origins: map[string]struct{}{}}
	for _, o := range strings.Split(raw, ",") {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		switch o {
		case "":
		case "*":
			l.any = true
		default:
			l.origins[o] = struct{}{}
		}
	}
	if len(l.origins) == 0 {
		l.any = true
	}
	return l
}

// allow returns the Access-Control-Allow-Origin value for origin.
func (l corsAllowlist) allow(origin string) (string, bool) {
	if l.any {
		return "*", true
	}
	if _, ok := l.origins[origin]; ok {
		return origin, true
	}
	return "", false
}

// CORS answers preflight requests and tags responses for allowed origins.
// allowedOrigins is "*" or a comma-separated list such as
// "http://localhost:3000,https://app.eventconnect.io". Preflights from other
// origins are refused with 403.
func CORS(allowedOrigins string) gin.HandlerFunc {
	list := newCORSAllowlist(allowedOrigins)
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		value, ok := list.allow(origin)
		if ok {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", value)
			if value != "*" {
				h.Add("Vary", "Origin")
			}
			h.Set("Access-Control-Expose-Headers", corsExpose)
		}
		if c.Request.Method != http.MethodOptions {
			c.Next()
			return
		}
		if origin != "" && !ok {
			response.Forbidden(c, "origin not allowed")
			c.Abort()
			return
		}
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Methods", corsMethods)
		h.Set("Access-Control-Allow-Headers", corsHeaders)
		h.Set("Access-Control-Max-Age", corsMaxAge)
		c.AbortWithStatus(http.StatusNoContent)
	}
}
