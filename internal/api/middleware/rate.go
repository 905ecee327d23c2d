package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int
	Burst             int

	// MaxClients caps the per-IP tracking table. Once the table
	// reaches this size, entries idle for longer than ClientTTL are
	// evicted before a new client is admitted.
	MaxClients int
	ClientTTL  time.Duration
}

// DefaultRateLimitConfig returns production-ready limits.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		Burst:             200,
		MaxClients:        10000,
		ClientTTL:         3 * time.Minute,
	}
}

// RateLimit creates a per-IP rate limiting middleware with automatic
// eviction of stale clients.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.MaxClients <= 0 {
		cfg.MaxClients = 10000
	}
	if cfg.ClientTTL <= 0 {
		cfg.ClientTTL = 3 * time.Minute
	}

	type client struct {
		limiter  *rate.Limiter
		lastSeen int64
	}

	var (
		mu      sync.Mutex
		clients = make(map[string]*client)
	)

	return func(c *gin.Context) {
		ip := c.ClientIP()
		now := time.Now()

		mu.Lock()
		cl, ok := clients[ip]
		if !ok {
			if len(clients) >= cfg.MaxClients {
				cutoff := now.Add(-cfg.ClientTTL).UnixNano()
				for addr, old := range clients {
					if old.lastSeen < cutoff {
						delete(clients, addr)
					}
				}
			}
			cl = &client{
				limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
			}
			clients[ip] = cl
		}
		cl.lastSeen = now.UnixNano()
		limiter := cl.limiter
		mu.Unlock()

		if !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			c.Abort()
			return
		}
		c.Next()
	}
}
