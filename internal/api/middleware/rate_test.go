package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newLimitedRouter(cfg RateLimitConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RateLimit(cfg))
	router.GET("/", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestRateLimitAllowsWithinBurst(t *testing.T) {
	router := newLimitedRouter(RateLimitConfig{RequestsPerSecond: 1, Burst: 3})

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, "request %d within burst should pass", i+1)
	}
}

func TestRateLimitRejectsBeyondBurst(t *testing.T) {
	router := newLimitedRouter(RateLimitConfig{RequestsPerSecond: 1, Burst: 1})

	first := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	router.ServeHTTP(first, req)
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	router.ServeHTTP(second, req)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestRateLimitEvictsStaleClients(t *testing.T) {
	router := newLimitedRouter(RateLimitConfig{
		RequestsPerSecond: 1,
		Burst:             1,
		MaxClients:        1,
		ClientTTL:         10 * time.Millisecond,
	})

	do := func(addr string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		router.ServeHTTP(w, req)
		return w.Code
	}

	// Exhaust the first client's burst, then let its entry go stale.
	assert.Equal(t, http.StatusOK, do("10.0.0.5:1234"))
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.5:1234"))
	time.Sleep(20 * time.Millisecond)

	// A new client pushes the table past the cap, sweeping the stale
	// entry. The first client then starts over with a fresh limiter.
	assert.Equal(t, http.StatusOK, do("10.0.0.6:1234"))
	assert.Equal(t, http.StatusOK, do("10.0.0.5:1234"),
		"evicted client should not inherit its old exhausted limiter")
}

func TestRateLimitIsPerIP(t *testing.T) {
	router := newLimitedRouter(RateLimitConfig{RequestsPerSecond: 1, Burst: 1})

	for _, addr := range []string{"10.0.0.3:1234", "10.0.0.4:1234"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, "first request from %s should pass", addr)
	}
}
