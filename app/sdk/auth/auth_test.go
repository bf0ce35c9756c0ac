package auth_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/jcpaschoal/gymhub/app/sdk/auth"
	"github.com/jcpaschoal/gymhub/business/sdk/tenantstore"
	"github.com/jcpaschoal/gymhub/business/types/actions"
	"github.com/jcpaschoal/gymhub/business/types/resource"
	"github.com/jcpaschoal/gymhub/business/types/role"
	"github.com/jcpaschoal/gymhub/business/types/slug"
	"github.com/jcpaschoal/gymhub/foundation/keystore"
	"github.com/jcpaschoal/gymhub/foundation/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const kid = "s4sKIjD9kIRjxs2tulPqGLdxSfgPErRN1Mu3Hd9k9NQ"

func newAuth(t *testing.T, issuer string, ks *keystore.KeyStore) *auth.Auth {
	t.Helper()

	a, err := auth.New(auth.Config{
		Log:       logger.New(io.Discard, logger.LevelInfo, "TEST", nil),
		KeyLookup: ks,
		ActiveKID: kid,
		Issuer:    issuer,
	})
	require.NoError(t, err)

	return a
}

func newKeyStore(t *testing.T) *keystore.KeyStore {
	t.Helper()

	pk, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	ks := keystore.New()
	require.NoError(t, ks.Add(kid, pk))

	return ks
}

func Test_TokenRoundTrip(t *testing.T) {
	ks := newKeyStore(t)
	a := newAuth(t, "gymhub", ks)
	ctx := context.Background()

	staffID := uuid.New()
	gym := slug.MustParse("iron-temple")

	token, err := a.GenerateToken(staffID, gym, role.Staff)
	require.NoError(t, err)

	claims, err := a.Authenticate(ctx, "Bearer "+token)
	require.NoError(t, err)

	subject, err := claims.SubjectID()
	require.NoError(t, err)
	assert.Equal(t, staffID, subject)
	assert.Equal(t, "iron-temple", claims.Tenant)
	assert.Equal(t, role.Staff.String(), claims.Role)

	require.NoError(t, a.BindTenant(ctx, claims, tenantstore.Handle{Slug: gym}))

	err = a.BindTenant(ctx, claims, tenantstore.Handle{Slug: slug.MustParse("other-gym")})
	assert.True(t, errors.Is(err, auth.ErrTenantMismatch))

	err = a.CheckPlatform(ctx, claims)
	assert.True(t, errors.Is(err, auth.ErrForbidden))
}

func Test_AuthenticateRejects(t *testing.T) {
	ks := newKeyStore(t)
	a := newAuth(t, "gymhub", ks)
	ctx := context.Background()

	token, err := a.GenerateToken(uuid.New(), slug.MustParse("iron-temple"), role.Admin)
	require.NoError(t, err)

	_, err = a.Authenticate(ctx, token)
	assert.Error(t, err, "missing bearer prefix")

	_, err = a.Authenticate(ctx, "Bearer "+token+"x")
	assert.Error(t, err, "tampered signature")

	other := newAuth(t, "someone-else", ks)
	_, err = other.Authenticate(ctx, "Bearer "+token)
	assert.Error(t, err, "foreign issuer")

	platform, err := a.GenerateToken(uuid.New(), slug.Slug{}, role.Platform)
	require.NoError(t, err)

	claims, err := a.Authenticate(ctx, "Bearer "+platform)
	require.NoError(t, err)
	assert.Empty(t, claims.Tenant)
	assert.NoError(t, a.CheckPlatform(ctx, claims))

	unbound, err := a.GenerateToken(uuid.New(), slug.Slug{}, role.Staff)
	require.NoError(t, err)

	_, err = a.Authenticate(ctx, "Bearer "+unbound)
	assert.True(t, errors.Is(err, auth.ErrInvalidRole))
}

func Test_Authorize(t *testing.T) {
	a := newAuth(t, "gymhub", newKeyStore(t))

	staff := auth.Claims{Role: role.Staff.String()}
	admin := auth.Claims{Role: role.Admin.String()}
	platform := auth.Claims{Role: role.Platform.String()}

	table := []struct {
		name    string
		claims  auth.Claims
		res     resource.Resource
		act     actions.Action
		allowed bool
	}{
		{"staff scans", staff, resource.Pass, actions.Scan, true},
		{"staff consumes", staff, resource.Pass, actions.Consume, true},
		{"staff cannot revoke", staff, resource.Pass, actions.Revoke, false},
		{"staff cannot read usage", staff, resource.Usage, actions.Get, false},
		{"admin inherits scan", admin, resource.Pass, actions.Scan, true},
		{"admin revokes", admin, resource.Pass, actions.Revoke, true},
		{"admin cannot manage tenants", admin, resource.Tenant, actions.Update, false},
		{"platform manages tenants", platform, resource.Tenant, actions.Delete, true},
		{"platform cannot scan", platform, resource.Pass, actions.Scan, false},
	}

	for _, tt := range table {
		t.Run(tt.name, func(t *testing.T) {
			err := a.Authorize(tt.claims, tt.res, tt.act)
			if tt.allowed {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, auth.ErrForbidden))
		})
	}
}
