package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/faultline/errors"
	"github.com/kbukum/faultline/resilience"
)

// RateLimitConfig configures per-client rate limiting of ingest routes.
type RateLimitConfig struct {
	// Rate is the sustained requests per second per key.
	Rate float64
	// Burst is the bucket capacity per key.
	Burst int
	// KeyFunc extracts the limit key. Defaults to the client IP.
	KeyFunc func(*gin.Context) string
}

const maxBuckets = 10000

// RateLimit keeps one token bucket per key and rejects requests with 429
// once the bucket is empty.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}
	var (
		mu      sync.Mutex
		buckets = make(map[string]*resilience.RateLimiter)
	)
	bucket := func(key string) *resilience.RateLimiter {
		mu.Lock()
		defer mu.Unlock()
		rl, ok := buckets[key]
		if !ok {
			if len(buckets) >= maxBuckets {
				clear(buckets)
			}
			rl = resilience.NewRateLimiter(resilience.RateLimiterConfig{Name: key, Rate: cfg.Rate, Burst: cfg.Burst})
			buckets[key] = rl
		}
		return rl
	}

	return func(c *gin.Context) {
		if !bucket(cfg.KeyFunc(c)).Allow() {
			ce := errors.New(errors.KindClient, "rate limit exceeded")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ce.ToResponse())
			return
		}
		c.Next()
	}
}
