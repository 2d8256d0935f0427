package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"schoolmsg/internal/domain/entity"
	"schoolmsg/pkg/errors"
	"schoolmsg/pkg/response"
)

const identityKey = "identity"

type IdentityResolver interface {
	Resolve(ctx context.Context, idToken string) (entity.Identity, error)
}

type AuthMiddleware struct {
	resolver IdentityResolver
}

func NewAuthMiddleware(resolver IdentityResolver) *AuthMiddleware {
	return &AuthMiddleware{
		resolver: resolver,
	}
}

// Authenticate verifies the bearer token once and stores the caller's identity
// on the request context for the handlers.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return response.Error(c, errors.Unauthorized("Authorization header is required", nil))
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return response.Error(c, errors.Unauthorized("Invalid authorization format", nil))
		}

		identity, err := m.resolver.Resolve(c.Request().Context(), parts[1])
		if err != nil {
			return response.Error(c, err)
		}

		c.Set(identityKey, identity)
		c.Set("uid", identity.UID)

		return next(c)
	}
}

// IdentityFrom returns the identity stored by Authenticate.
func IdentityFrom(c echo.Context) (entity.Identity, bool) {
	identity, ok := c.Get(identityKey).(entity.Identity)
	return identity, ok
}
