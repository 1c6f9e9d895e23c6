package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestRateLimitAllowsWithinRate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RateLimit(3, time.Minute))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/test", nil)
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("Request %d: expected 200, got %d", i+1, w.Code)
		}
	}
}

func TestRateLimitBlocksOverRate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RateLimit(2, time.Minute))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	var last int
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/test", nil)
		router.ServeHTTP(w, req)
		last = w.Code
	}

	if last != http.StatusTooManyRequests {
		t.Errorf("Expected 429 on the third request, got %d", last)
	}
}

func TestRateLimiterWindowReset(t *testing.T) {
	limiter := NewRateLimiter(1, 10*time.Millisecond)

	if !limiter.Allow("1.2.3.4") {
		t.Error("Expected first request to pass")
	}
	if limiter.Allow("1.2.3.4") {
		t.Error("Expected second request to be blocked")
	}

	time.Sleep(15 * time.Millisecond)

	if !limiter.Allow("1.2.3.4") {
		t.Error("Expected request to pass after window reset")
	}
}

func TestRateLimiterPerIP(t *testing.T) {
	limiter := NewRateLimiter(1, time.Minute)

	if !limiter.Allow("1.1.1.1") {
		t.Error("Expected first IP to pass")
	}
	if !limiter.Allow("2.2.2.2") {
		t.Error("Expected second IP to pass independently")
	}
	if limiter.Allow("1.1.1.1") {
		t.Error("Expected first IP to be blocked")
	}
}
