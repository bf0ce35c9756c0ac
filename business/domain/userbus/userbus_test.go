package userbus_test

import (
	"context"
	"net/mail"
	"testing"

	"github.com/jcpaschoal/gymhub/business/domain/offeringbus"
	"github.com/jcpaschoal/gymhub/business/domain/offeringbus/stores/legacydb"
	"github.com/jcpaschoal/gymhub/business/domain/offeringbus/stores/offeringdb"
	"github.com/jcpaschoal/gymhub/business/domain/passbus"
	"github.com/jcpaschoal/gymhub/business/domain/passbus/stores/passdb"
	"github.com/jcpaschoal/gymhub/business/domain/userbus"
	"github.com/jcpaschoal/gymhub/business/domain/userbus/stores/userdb"
	"github.com/jcpaschoal/gymhub/business/sdk/dbtest"
	"github.com/jcpaschoal/gymhub/business/sdk/order"
	"github.com/jcpaschoal/gymhub/business/sdk/page"
	"github.com/jcpaschoal/gymhub/business/sdk/sqldb"
	"github.com/jcpaschoal/gymhub/business/types/name"
	"github.com/jcpaschoal/gymhub/business/types/phone"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUser(n string, email string) userbus.NewUser {
	return userbus.NewUser{
		Name:  name.MustParse(n),
		Email: mail.Address{Address: email},
		Phone: phone.MustParseNull("+351 912 345 678"),
	}
}

func Test_CreateQueryUpdate(t *testing.T) {
	db := dbtest.New(t)
	tdb := db.NewTenant(t, "iron-temple")
	core := userbus.NewCore(userdb.NewStore(db.Log, tdb))
	ctx := context.Background()

	ada, err := core.Create(ctx, newUser("Ada Lovelace", "ada@example.com"))
	require.NoError(t, err)

	_, err = core.Create(ctx, newUser("Ada Again", "ada@example.com"))
	assert.ErrorIs(t, err, userbus.ErrUniqueEmail)

	_, err = core.Create(ctx, newUser("Bob Builder", "bob@example.com"))
	require.NoError(t, err)

	got, err := core.QueryByEmail(ctx, mail.Address{Address: "ada@example.com"})
	require.NoError(t, err)
	assert.Equal(t, ada.ID, got.ID)
	assert.Equal(t, "+351912345678", got.Phone.String())

	blocked := true
	_, err = core.Update(ctx, ada, userbus.UpdateUser{Blocked: &blocked})
	require.NoError(t, err)

	n, err := core.Count(ctx, userbus.QueryFilter{Blocked: &blocked})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	users, err := core.Query(ctx, userbus.QueryFilter{}, order.NewBy(userbus.OrderByName, order.DESC), page.MustParse("1", "1"))
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Bob Builder", users[0].Name.String())
}

func Test_DeleteCascadesPasses(t *testing.T) {
	db := dbtest.New(t)
	tdb := db.NewTenant(t, "iron-temple")
	ctx := context.Background()

	users := userbus.NewCore(userdb.NewStore(db.Log, tdb))
	offerings := offeringbus.NewCore(db.Log, offeringdb.NewStore(db.Log, tdb), legacydb.NewStore(db.Log, tdb))
	passes := passbus.NewCore(db.Log, passdb.NewStore(db.Log, tdb), sqldb.NewBeginner(tdb), users, offerings)

	_, err := offerings.SeedDefaults(ctx)
	require.NoError(t, err)

	catalog, err := offerings.Query(ctx, true)
	require.NoError(t, err)
	require.NotEmpty(t, catalog)

	usr, err := users.Create(ctx, newUser("Ada Lovelace", "ada@example.com"))
	require.NoError(t, err)

	p, tkn, err := passes.Purchase(ctx, usr.ID, catalog[0].ID)
	require.NoError(t, err)

	require.NoError(t, users.Delete(ctx, usr))

	_, err = users.QueryByID(ctx, usr.ID)
	assert.ErrorIs(t, err, userbus.ErrNotFound)

	_, err = passes.QueryByID(ctx, p.ID)
	assert.ErrorIs(t, err, passbus.ErrNotFound)

	v, err := passes.Validate(ctx, tkn.Token, false, nil)
	require.NoError(t, err)
	assert.False(t, v.Valid())
}
