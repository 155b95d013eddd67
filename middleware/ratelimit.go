package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"lockchun-chatbot/internal/config"
	"lockchun-chatbot/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitMiddleware limits requests per client IP using an in-process
// token bucket. The chat endpoint must stay responsive even while the vector
// index is unavailable, so the limiter holds no external dependencies.
func RateLimitMiddleware(cfg *config.Config) gin.HandlerFunc {
	type visitor struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}

	var (
		mu       sync.Mutex
		visitors = make(map[string]*visitor)
	)

	window := time.Duration(cfg.RateLimitWindow) * time.Second
	perSecond := rate.Limit(float64(cfg.RateLimitReqs) / window.Seconds())

	// Drop idle visitor buckets so the map does not grow unbounded
	go func() {
		for range time.Tick(window) {
			mu.Lock()
			for ip, v := range visitors {
				if time.Since(v.lastSeen) > 2*window {
					delete(visitors, ip)
				}
			}
			mu.Unlock()
		}
	}()

	return func(c *gin.Context) {
		// Skip rate limiting for health checks
		if c.FullPath() == "/health" || c.FullPath() == "/ready" {
			c.Next()
			return
		}

		ip := c.ClientIP()

		mu.Lock()
		v, exists := visitors[ip]
		if !exists {
			v = &visitor{limiter: rate.NewLimiter(perSecond, cfg.RateLimitReqs)}
			visitors[ip] = v
		}
		v.lastSeen = time.Now()
		allowed := v.limiter.Allow()
		mu.Unlock()

		if !allowed {
			c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.RateLimitReqs))
			c.Header("X-RateLimit-Remaining", "0")
			utils.RespondWithError(c, http.StatusTooManyRequests,
				"Too many requests. Please try again later.")
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.RateLimitReqs))
		c.Next()
	}
}
