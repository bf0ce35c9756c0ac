package staffbus_test

import (
	"context"
	"net/mail"
	"testing"

	"github.com/jcpaschoal/gymhub/business/domain/staffbus"
	"github.com/jcpaschoal/gymhub/business/domain/staffbus/stores/staffdb"
	"github.com/jcpaschoal/gymhub/business/sdk/dbtest"
	"github.com/jcpaschoal/gymhub/business/types/name"
	"github.com/jcpaschoal/gymhub/business/types/password"
	"github.com/jcpaschoal/gymhub/business/types/role"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCore(t *testing.T) *staffbus.Core {
	db := dbtest.New(t)
	tdb := db.NewTenant(t, "iron-temple")
	return staffbus.NewCore(staffdb.NewStore(db.Log, tdb))
}

func Test_Authenticate(t *testing.T) {
	core := newCore(t)
	ctx := context.Background()
	email := mail.Address{Address: "desk@irontemple.test"}

	st, err := core.Create(ctx, staffbus.NewStaff{
		Name:     name.MustParse("Front Desk"),
		Email:    email,
		Role:     role.Staff,
		Password: password.MustParse("correct-horse"),
	})
	require.NoError(t, err)
	assert.True(t, st.Enabled)

	_, err = core.Authenticate(ctx, email, "correct-horse")
	require.NoError(t, err)

	_, err = core.Authenticate(ctx, email, "wrong")
	assert.ErrorIs(t, err, staffbus.ErrAuthenticationFailure)

	_, err = core.Authenticate(ctx, mail.Address{Address: "nobody@irontemple.test"}, "x")
	assert.ErrorIs(t, err, staffbus.ErrNotFound)

	disabled := false
	_, err = core.Update(ctx, st, staffbus.UpdateStaff{Enabled: &disabled})
	require.NoError(t, err)

	_, err = core.Authenticate(ctx, email, "correct-horse")
	assert.ErrorIs(t, err, staffbus.ErrDisabled)
}

func Test_ResetPasswordAndRoles(t *testing.T) {
	core := newCore(t)
	ctx := context.Background()
	email := mail.Address{Address: "owner@irontemple.test"}

	_, err := core.Create(ctx, staffbus.NewStaff{
		Name:     name.MustParse("Owner"),
		Email:    email,
		Role:     role.Platform,
		Password: password.MustParse("temporary-1"),
	})
	assert.ErrorIs(t, err, staffbus.ErrInvalidRole)

	st, err := core.Create(ctx, staffbus.NewStaff{
		Name:               name.MustParse("Owner"),
		Email:              email,
		Role:               role.Admin,
		Password:           password.MustParse("temporary-1"),
		MustChangePassword: true,
	})
	require.NoError(t, err)

	_, err = core.Create(ctx, staffbus.NewStaff{
		Name:     name.MustParse("Owner Twin"),
		Email:    email,
		Role:     role.Staff,
		Password: password.MustParse("temporary-2"),
	})
	assert.ErrorIs(t, err, staffbus.ErrUniqueEmail)

	_, err = core.ResetPassword(ctx, st, password.MustParse("brand-new-secret"), false)
	require.NoError(t, err)

	got, err := core.Authenticate(ctx, email, "brand-new-secret")
	require.NoError(t, err)
	assert.False(t, got.MustChangePassword)
	assert.Equal(t, role.Admin, got.Role)
}
