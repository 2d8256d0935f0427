package firebase

import (
	"context"
	"fmt"
	"testing"

	"firebase.google.com/go/v4/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolmsg/internal/domain/entity"
	"schoolmsg/pkg/errors"
)

type stubVerifier map[string]*auth.Token

func (s stubVerifier) VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error) {
	if tok, ok := s[idToken]; ok {
		return tok, nil
	}
	return nil, fmt.Errorf("ID token has expired")
}

func TestRoleFromClaims(t *testing.T) {
	cases := []struct {
		name   string
		claims map[string]interface{}
		want   entity.Role
	}{
		{"top level", map[string]interface{}{"role": "teacher"}, entity.RoleTeacher},
		{"nested", map[string]interface{}{"customClaims": map[string]interface{}{"role": "parent"}}, entity.RoleParent},
		{"top level wins", map[string]interface{}{"role": "admin", "customClaims": map[string]interface{}{"role": "parent"}}, entity.RoleAdmin},
		{"missing", map[string]interface{}{}, entity.RoleUser},
		{"nil", nil, entity.RoleUser},
		{"wrong type", map[string]interface{}{"role": 7}, entity.RoleUser},
		{"unknown role", map[string]interface{}{"role": "janitor"}, entity.RoleUser},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, RoleFromClaims(tc.claims))
		})
	}
}

func TestResolve(t *testing.T) {
	client := NewIdentityClient(stubVerifier{
		"good": {UID: "T1", Claims: map[string]interface{}{"role": "teacher"}},
	})

	id, err := client.Resolve(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, entity.Identity{UID: "T1", Role: entity.RoleTeacher}, id)

	_, err = client.Resolve(context.Background(), "bad")
	assert.True(t, errors.Is(err, errors.CodeUnauthorized))
}

func TestDevIdentityResolver(t *testing.T) {
	var resolver DevIdentityResolver

	identity, err := resolver.Resolve(context.Background(), "dev:T1:teacher")
	require.NoError(t, err)
	assert.Equal(t, entity.Identity{UID: "T1", Role: entity.RoleTeacher}, identity)

	identity, err = resolver.Resolve(context.Background(), "dev:P1:janitor")
	require.NoError(t, err)
	assert.Equal(t, entity.RoleUser, identity.Role)

	for _, bad := range []string{"", "T1", "dev::parent", "prod:T1:teacher", "dev:T1"} {
		_, err := resolver.Resolve(context.Background(), bad)
		assert.True(t, errors.Is(err, errors.CodeUnauthorized), bad)
	}
}
