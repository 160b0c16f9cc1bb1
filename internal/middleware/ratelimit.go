package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"procurement/pkg/response"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter is a token bucket per client (user when authenticated,
// otherwise IP). Idle buckets are swept after ttl.
type RateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	perSecond rate.Limit
	burst     int
	ttl       time.Duration
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		buckets:   make(map[string]*bucket),
		perSecond: rate.Limit(perSecond),
		burst:     burst,
		ttl:       5 * time.Minute,
	}
}

func (l *RateLimiter) Allow(key string, now time.Time) bool {
	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.perSecond, l.burst)}
		l.buckets[key] = b
	}
	b.seen = now
	l.mu.Unlock()
	return b.lim.AllowN(now, 1)
}

// Sweep drops buckets idle since before now-ttl and returns how many remain
func (l *RateLimiter) Sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, b := range l.buckets {
		if now.Sub(b.seen) > l.ttl {
			delete(l.buckets, k)
		}
	}
	return len(l.buckets)
}

// Run sweeps every minute until ctx is done
func (l *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.Sweep(now)
		}
	}
}

func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if a := Actor(c); a.Authenticated() {
			key = "user:" + a.UserID.String()
		}
		if !l.Allow(key, time.Now()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, response.Error(http.StatusTooManyRequests, "rate_limited", "rate limit exceeded"))
			return
		}
		c.Next()
	}
}
