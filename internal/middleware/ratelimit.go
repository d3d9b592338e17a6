package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/eventconnect/backend/pkg/response"
)

const (
	visitorIdleTTL  = 10 * time.Minute
	visitorSweepGap = 5 * time.Minute
)

type limiterEntry struct {
	limiter *rate.Limiter
	last    time.Time
}

type ipLimiter struct {
	mu       sync.Mutex
	visitors map[string]*limiterEntry
	rps      rate.Limit
	burst    int
}

func (l *ipLimiter) allow(ip string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	le, ok := l.visitors[ip]
	if !ok {
		le = &limiterEntry{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.visitors[ip] = le
	}
	le.last = now
	return le.limiter.AllowN(now, 1)
}

func (l *ipLimiter) sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, v := range l.visitors {
		if now.Sub(v.last) > visitorIdleTTL {
			delete(l.visitors, k)
		}
	}
}

// RateLimit applies a per-client-IP token bucket. Idle visitors are swept until ctx is done.
func RateLimit(ctx context.Context, rps float64, burst int) gin.HandlerFunc {
	l := &ipLimiter{visitors: map[string]*limiterEntry{}, rps: rate.Limit(rps), burst: burst}
	go func() {
		t := time.NewTicker(visitorSweepGap)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				l.sweep(now)
			}
		}
	}()
	return func(c *gin.Context) {
		if !l.allow(c.ClientIP(), time.Now()) {
			response.TooManyRequests(c, "too many requests")
			c.Abort()
			return
		}
		c.Next()
	}
}
