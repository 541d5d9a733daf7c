package middleware

import (
	"math"
	"net/http"

	"github.com/labstack/echo/v4"

	"sitechat/internal/infrastructure/ratelimit"
	"sitechat/pkg/logger"
)

// RateLimit throttles requests per client IP.
func RateLimit(limiter *ratelimit.RateLimiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()

			if allowed, wait := limiter.Allow(ip, "http"); !allowed {
				logger.Warn("RATE LIMIT: Blocked request from IP %s (retry in %v)", ip, wait)

				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"error":       "Rate limit exceeded",
					"retry_after": int(math.Ceil(wait.Seconds())),
				})
			}

			return next(c)
		}
	}
}
