package middleware

import (
	"github.com/labstack/echo/v4"

	"schoolmsg/internal/infrastructure/ratelimit"
	"schoolmsg/pkg/errors"
	"schoolmsg/pkg/logger"
	"schoolmsg/pkg/response"
)

// RateLimit throttles action per authenticated caller. It must run after
// Authenticate. If the limiter backend fails the request is let through.
func RateLimit(limiter ratelimit.Limiter, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity, ok := IdentityFrom(c)
			if !ok {
				return next(c)
			}

			allowed, wait, err := limiter.Allow(c.Request().Context(), identity.UID, action)
			if err != nil {
				logger.Warn("Rate limiter unavailable for %s/%s: %v", identity.UID, action, err)
				return next(c)
			}
			if !allowed {
				logger.Info("Rate limited: user %s action %s, retry in %v", identity.UID, action, wait)
				response.RetryAfter(c, wait)
				return response.Error(c, errors.TooManyRequests("Rate limit exceeded. Please slow down"))
			}

			return next(c)
		}
	}
}
