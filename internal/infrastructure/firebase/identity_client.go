package firebase

import (
	"context"

	"firebase.google.com/go/v4/auth"

	"schoolmsg/internal/domain/entity"
	"schoolmsg/pkg/errors"
)

// TokenVerifier is the slice of *auth.Client the identity layer needs.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

type IdentityClient struct {
	verifier TokenVerifier
}

func NewIdentityClient(verifier TokenVerifier) *IdentityClient {
	return &IdentityClient{
		verifier: verifier,
	}
}

// Resolve verifies idToken and returns the caller's uid and role.
func (c *IdentityClient) Resolve(ctx context.Context, idToken string) (entity.Identity, error) {
	token, err := c.verifier.VerifyIDToken(ctx, idToken)
	if err != nil {
		return entity.Identity{}, errors.Unauthorized("Invalid or expired token", err)
	}

	return entity.Identity{
		UID:  token.UID,
		Role: RoleFromClaims(token.Claims),
	}, nil
}

// RoleFromClaims reads the role custom claim. Tokens minted by the admin tools
// carry it either at the top level or nested under customClaims.
func RoleFromClaims(claims map[string]interface{}) entity.Role {
	if raw, ok := claims["role"].(string); ok && raw != "" {
		return entity.ParseRole(raw)
	}
	if nested, ok := claims["customClaims"].(map[string]interface{}); ok {
		if raw, ok := nested["role"].(string); ok {
			return entity.ParseRole(raw)
		}
	}
	return entity.RoleUser
}
