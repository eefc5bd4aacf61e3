package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// RateLimit limits every client IP to rps requests per second with bursts of
// up to burst requests. Limiters of clients that have been idle for ten
// minutes are dropped.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	limiters := cache.New(10*time.Minute, 20*time.Minute)
	return func(c *gin.Context) {
		ip := c.ClientIP()
		var l *rate.Limiter
		if v, ok := limiters.Get(ip); ok {
			l = v.(*rate.Limiter)
		} else {
			l = rate.NewLimiter(rate.Limit(rps), burst)
			// Another request from the same client may have won the race.
			if err := limiters.Add(ip, l, cache.DefaultExpiration); err != nil {
				if v, ok := limiters.Get(ip); ok {
					l = v.(*rate.Limiter)
				}
			}
		}
		// Refresh the expiration so active clients keep their limiter.
		limiters.SetDefault(ip, l)

		if !l.Allow() {
			body := gin.H{"error": "Too many requests, slow down."}
			if id := c.GetString("request_id"); id != "" {
				body["request_id"] = id
			}
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, body)
			return
		}
		c.Next()
	}
}
