package tenantbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/jcpaschoal/gymhub/business/domain/tenantbus"
	"github.com/jcpaschoal/gymhub/business/domain/tenantbus/stores/tenantcache"
	"github.com/jcpaschoal/gymhub/business/domain/tenantbus/stores/tenantdb"
	"github.com/jcpaschoal/gymhub/business/sdk/dbtest"
	"github.com/jcpaschoal/gymhub/business/types/name"
	"github.com/jcpaschoal/gymhub/business/types/slug"
	"github.com/jcpaschoal/gymhub/business/types/tenantstatus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCore(t *testing.T) *tenantbus.Core {
	db := dbtest.New(t)
	store := tenantcache.NewStore(db.Log, tenantdb.NewStore(db.Log, db.DB), tenantcache.DefaultConfig)
	return tenantbus.NewCore(db.Log, store)
}

func create(t *testing.T, core *tenantbus.Core, slg string) tenantbus.Tenant {
	t.Helper()

	tn, err := core.Create(context.Background(), tenantbus.NewTenant{
		Slug: slug.MustParse(slg),
		Name: name.MustParse("Iron Temple"),
	})
	require.NoError(t, err)

	return tn
}

func Test_CreateStartsPending(t *testing.T) {
	core := newCore(t)
	ctx := context.Background()

	tn := create(t, core, "iron-temple")
	assert.Equal(t, tenantstatus.Pending, tn.Status)
	assert.NotEmpty(t, tn.StaffAccessSecret)

	got, err := core.QueryBySlug(ctx, slug.MustParse("iron-temple"))
	require.NoError(t, err)
	assert.Equal(t, tn.ID, got.ID)

	st, found, err := core.LookupStatus(ctx, slug.MustParse("iron-temple"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, tenantstatus.Pending, st)
}

func Test_CreateDuplicateSlug(t *testing.T) {
	core := newCore(t)

	create(t, core, "iron-temple")

	_, err := core.Create(context.Background(), tenantbus.NewTenant{
		Slug: slug.MustParse("iron-temple"),
		Name: name.MustParse("Other Gym"),
	})
	assert.ErrorIs(t, err, tenantbus.ErrUniqueSlug)
}

func Test_StatusTransitions(t *testing.T) {
	core := newCore(t)
	ctx := context.Background()

	tn := create(t, core, "iron-temple")

	_, err := core.SetStatus(ctx, tn.ID, tenantstatus.Blocked)
	assert.ErrorIs(t, err, tenantbus.ErrInvalidTransition)

	steps := []tenantstatus.Status{
		tenantstatus.Active,
		tenantstatus.Blocked,
		tenantstatus.Active,
		tenantstatus.Deleted,
	}
	for _, st := range steps {
		tn, err = core.SetStatus(ctx, tn.ID, st)
		require.NoError(t, err, st.String())
		assert.Equal(t, st, tn.Status)
	}
	assert.NotNil(t, tn.DeletedAt)

	_, err = core.SetStatus(ctx, tn.ID, tenantstatus.Active)
	assert.ErrorIs(t, err, tenantbus.ErrInvalidTransition)
}

func Test_DeletedSlugIsReusable(t *testing.T) {
	core := newCore(t)
	ctx := context.Background()

	old := create(t, core, "iron-temple")
	_, err := core.SetStatus(ctx, old.ID, tenantstatus.Deleted)
	require.NoError(t, err)

	taken, err := core.IsSlugTaken(ctx, slug.MustParse("iron-temple"))
	require.NoError(t, err)
	assert.False(t, taken)

	fresh := create(t, core, "iron-temple")

	got, err := core.QueryBySlug(ctx, slug.MustParse("iron-temple"))
	require.NoError(t, err)
	assert.Equal(t, fresh.ID, got.ID)

	all, err := core.QueryActive(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	all, err = core.QueryActive(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func Test_UpdateSubscription(t *testing.T) {
	core := newCore(t)
	ctx := context.Background()

	tn := create(t, core, "iron-temple")

	subID := "sub_123"
	status := "active"
	_, err := core.UpdateSubscription(ctx, tn.ID, tenantbus.UpdateSubscription{
		SubscriptionID: &subID,
		Status:         &status,
	})
	require.NoError(t, err)

	got, err := core.QueryBySubscriptionID(ctx, subID)
	require.NoError(t, err)
	assert.Equal(t, tn.ID, got.ID)
	assert.Equal(t, "active", got.Subscription.Status)

	_, err = core.QueryBySubscriptionID(ctx, "sub_missing")
	assert.ErrorIs(t, err, tenantbus.ErrNotFound)
}

func Test_LookupUnknownSlug(t *testing.T) {
	core := newCore(t)

	_, found, err := core.LookupStatus(context.Background(), slug.MustParse("nowhere"))
	require.NoError(t, err)
	assert.False(t, found)
}

func Test_ArchiveSuffix(t *testing.T) {
	deleted := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	tn := tenantbus.Tenant{DeletedAt: &deleted}
	assert.Equal(t, "deleted-20260304050607", tn.ArchiveSuffix())
}
