package firebase

import (
	"context"
	"strings"

	"schoolmsg/internal/domain/entity"
	"schoolmsg/pkg/errors"
)

// DevIdentityResolver accepts tokens of the form "dev:<uid>:<role>". It is only
// wired when the memory store runs outside production.
type DevIdentityResolver struct{}

func (DevIdentityResolver) Resolve(ctx context.Context, idToken string) (entity.Identity, error) {
	parts := strings.Split(idToken, ":")
	if len(parts) != 3 || parts[0] != "dev" || parts[1] == "" {
		return entity.Identity{}, errors.Unauthorized("Invalid development token", nil)
	}
	return entity.Identity{UID: parts[1], Role: entity.ParseRole(parts[2])}, nil
}
