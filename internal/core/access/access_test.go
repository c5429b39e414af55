package access_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-gin-gorm-accounts/internal/core/access"
	"go-gin-gorm-accounts/internal/core/auth"
	"go-gin-gorm-accounts/internal/core/errs"
	"go-gin-gorm-accounts/internal/domain"
)

func setup(t *testing.T) (*access.Gate, string, string) {
	t.Helper()
	j := &auth.JWTer{Secret: []byte("gate-secret"), TTL: time.Hour}
	userTok, err := j.Issue("u@x.com", domain.RoleUser)
	require.NoError(t, err)
	adminTok, err := j.Issue("a@x.com", domain.RoleAdmin)
	require.NoError(t, err)
	return access.NewGate(j), "Bearer " + userTok, "Bearer " + adminTok
}

func TestDecide(t *testing.T) {
	gate, user, admin := setup(t)
	adminOnly := access.RequireRoles(domain.RoleAdmin)
	either := access.RequireRoles(domain.RoleUser, domain.RoleAdmin)

	tests := []struct {
		name   string
		header string
		policy access.Policy
		want   access.Decision
	}{
		{"public without token", "", access.Public(), access.Allowed},
		{"public with garbage token", "Bearer nope", access.Public(), access.Allowed},
		{"authenticated without token", "", access.Authenticated(), access.Unauthorized},
		{"authenticated wrong scheme", "Basic dTpw", access.Authenticated(), access.Unauthorized},
		{"authenticated invalid token", "Bearer nope", access.Authenticated(), access.Unauthorized},
		{"authenticated user", user, access.Authenticated(), access.Allowed},
		{"role gate no token", "", adminOnly, access.Unauthorized},
		{"role gate wrong role", user, adminOnly, access.Forbidden},
		{"role gate right role", admin, adminOnly, access.Allowed},
		{"role set membership", user, either, access.Allowed},
		{"public with roles", admin, access.Policy{Public: true, Roles: []domain.Role{domain.RoleAdmin}}, access.Forbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, who := gate.Decide(tt.header, tt.policy)
			assert.Equal(t, tt.want, got, got.String())
			if got != access.Allowed || tt.policy.Public {
				assert.Nil(t, who)
			} else {
				assert.NotNil(t, who)
			}
		})
	}
}

func TestCheckMapsErrors(t *testing.T) {
	gate, user, admin := setup(t)

	_, err := gate.Check("", access.Authenticated())
	assert.Equal(t, http.StatusUnauthorized, errs.CodeOf(err))
	assert.EqualError(t, err, "missing token")

	_, err = gate.Check("Bearer x.y.z", access.Authenticated())
	assert.EqualError(t, err, "invalid token")

	_, err = gate.Check(user, access.RequireRoles(domain.RoleAdmin))
	assert.Equal(t, http.StatusForbidden, errs.CodeOf(err))

	who, err := gate.Check(admin, access.RequireRoles(domain.RoleAdmin))
	require.NoError(t, err)
	assert.Equal(t, &access.Principal{Email: "a@x.com", Role: domain.RoleAdmin}, who)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"BEARER  abc ", "abc", true},
		{"Bearer", "", false},
		{"Bearer ", "", false},
		{"Token abc", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := access.BearerToken(tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestPrincipalContext(t *testing.T) {
	_, ok := access.PrincipalFrom(context.Background())
	assert.False(t, ok)

	ctx := access.WithPrincipal(context.Background(), &access.Principal{Email: "a@x.com", Role: domain.RoleUser})
	who, ok := access.PrincipalFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, "a@x.com", who.Email)

	_, ok = access.PrincipalFrom(access.WithPrincipal(context.Background(), nil))
	assert.False(t, ok)
}
