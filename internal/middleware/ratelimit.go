package middleware

import (
	"net/http"

	"hashbroker/config"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// RateLimit applies one process-wide limiter to every HTTP request it
// wraps; routes installs it for all routes, the /ws upgrade request
// included. Inbound action frames on an open WebSocket are bounded
// separately by each session's own limiter (internal/session).
func RateLimit(cfg *config.Config) echo.MiddlewareFunc {
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !limiter.Allow() {
				return c.JSON(http.StatusTooManyRequests, map[string]string{
					"error":   "Rate limit exceeded",
					"message": "Too many requests, please try again later",
				})
			}
			return next(c)
		}
	}
}
