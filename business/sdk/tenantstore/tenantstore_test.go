package tenantstore_test

import (
	"context"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/jcpaschoal/gymhub/business/sdk/tenantstore"
	"github.com/jcpaschoal/gymhub/business/sdk/tenantstore/sqlitestore"
	"github.com/jcpaschoal/gymhub/business/types/slug"
	"github.com/jcpaschoal/gymhub/business/types/tenantstatus"
	"github.com/jcpaschoal/gymhub/foundation/logger"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingBackend struct {
	*sqlitestore.Backend
	opens   atomic.Int32
	creates atomic.Int32
}

func (b *countingBackend) Open(ctx context.Context, slg slug.Slug) (*sqlx.DB, bool, error) {
	b.opens.Add(1)
	db, created, err := b.Backend.Open(ctx, slg)
	if created {
		b.creates.Add(1)
	}
	return db, created, err
}

type registry struct {
	mu       sync.Mutex
	statuses map[string]tenantstatus.Status
}

func (r *registry) set(slg string, st tenantstatus.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[slg] = st
}

func (r *registry) LookupStatus(ctx context.Context, slg slug.Slug) (tenantstatus.Status, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.statuses[slg.String()]
	return st, ok, nil
}

// deletedAfterFirstLookup admits the first lookup and reports the tenant
// deleted from then on.
type deletedAfterFirstLookup struct {
	lookups atomic.Int32
}

func (r *deletedAfterFirstLookup) LookupStatus(ctx context.Context, slg slug.Slug) (tenantstatus.Status, bool, error) {
	if r.lookups.Add(1) == 1 {
		return tenantstatus.Active, true, nil
	}
	return tenantstatus.Deleted, true, nil
}

func newRouter(t *testing.T) (*tenantstore.Router, *countingBackend, *registry) {
	log := logger.New(io.Discard, logger.LevelInfo, "TEST", nil)

	backend := &countingBackend{Backend: sqlitestore.New(t.TempDir())}
	reg := &registry{statuses: make(map[string]tenantstatus.Status)}

	router := tenantstore.New(log, backend, reg, tenantstore.Config{
		DefaultSlug: slug.MustParse("default"),
	})
	t.Cleanup(func() { router.Close() })

	return router, backend, reg
}

func Test_ConcurrentFirstAccessOpensOnce(t *testing.T) {
	router, backend, reg := newRouter(t)
	reg.set("iron-temple", tenantstatus.Active)

	const n = 32
	handles := make([]tenantstore.Handle, n)

	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := router.Resolve(context.Background(), slug.MustParse("iron-temple"))
			assert.NoError(t, err)
			handles[i] = h
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), backend.opens.Load())
	assert.Equal(t, int32(1), backend.creates.Load())
	for _, h := range handles {
		assert.Same(t, handles[0].DB, h.DB)
	}
}

func Test_RefusedStatusesTouchNoStorage(t *testing.T) {
	router, backend, reg := newRouter(t)
	reg.set("blocked-gym", tenantstatus.Blocked)
	reg.set("pending-gym", tenantstatus.Pending)
	reg.set("deleted-gym", tenantstatus.Deleted)

	ctx := context.Background()

	_, err := router.Resolve(ctx, slug.MustParse("blocked-gym"))
	assert.ErrorIs(t, err, tenantstore.ErrTenantBlocked)

	_, err = router.Resolve(ctx, slug.MustParse("pending-gym"))
	assert.ErrorIs(t, err, tenantstore.ErrTenantPending)

	_, err = router.Resolve(ctx, slug.MustParse("deleted-gym"))
	assert.ErrorIs(t, err, tenantstore.ErrTenantDeleted)

	_, err = router.Resolve(ctx, slug.MustParse("nobody"))
	assert.ErrorIs(t, err, tenantstore.ErrTenantNotFound)

	assert.Zero(t, backend.opens.Load())

	_, err = os.Stat(backend.Path(slug.MustParse("blocked-gym")))
	assert.True(t, os.IsNotExist(err))
}

func Test_BlockAfterCacheStillRefuses(t *testing.T) {
	router, _, reg := newRouter(t)
	reg.set("iron-temple", tenantstatus.Active)

	ctx := context.Background()

	_, err := router.Resolve(ctx, slug.MustParse("iron-temple"))
	require.NoError(t, err)

	reg.set("iron-temple", tenantstatus.Blocked)

	_, err = router.Resolve(ctx, slug.MustParse("iron-temple"))
	assert.ErrorIs(t, err, tenantstore.ErrTenantBlocked)

	_, err = router.ResolveForAdmin(ctx, slug.MustParse("iron-temple"))
	assert.NoError(t, err)
}

func Test_DefaultTenantNeedsNoRecord(t *testing.T) {
	router, backend, _ := newRouter(t)

	h, err := router.Resolve(context.Background(), router.DefaultSlug())
	require.NoError(t, err)
	assert.Equal(t, "default", h.Slug.String())
	assert.Equal(t, int32(1), backend.opens.Load())
}

func Test_ArchiveInvalidatesAndFreesSlug(t *testing.T) {
	router, backend, reg := newRouter(t)
	reg.set("iron-temple", tenantstatus.Active)

	ctx := context.Background()
	slg := slug.MustParse("iron-temple")

	h, err := router.Resolve(ctx, slg)
	require.NoError(t, err)

	_, err = h.DB.ExecContext(ctx, `INSERT INTO users (user_id, name, email, blocked, created_at, updated_at) VALUES ('u1', 'Ann', 'ann@example.com', 0, '2026-01-01 00:00:00', '2026-01-01 00:00:00')`)
	require.NoError(t, err)

	require.NoError(t, router.Archive(ctx, slg, "archived"))

	assert.Error(t, h.DB.PingContext(ctx))

	h2, err := router.Resolve(ctx, slg)
	require.NoError(t, err)
	assert.NotSame(t, h.DB, h2.DB)
	assert.Equal(t, int32(2), backend.creates.Load())

	var n int
	require.NoError(t, h2.DB.GetContext(ctx, &n, `SELECT count(*) FROM users`))
	assert.Zero(t, n)
}

func Test_DeleteDuringResolveOpensNothing(t *testing.T) {
	log := logger.New(io.Discard, logger.LevelInfo, "TEST", nil)

	backend := &countingBackend{Backend: sqlitestore.New(t.TempDir())}
	reg := &deletedAfterFirstLookup{}

	router := tenantstore.New(log, backend, reg, tenantstore.Config{})
	t.Cleanup(func() { router.Close() })

	_, err := router.Resolve(context.Background(), slug.MustParse("iron-temple"))
	assert.ErrorIs(t, err, tenantstore.ErrTenantDeleted)
	assert.Equal(t, int32(2), reg.lookups.Load())
	assert.Zero(t, backend.opens.Load())
}

func Test_WarmUpOpensEveryTenant(t *testing.T) {
	router, backend, reg := newRouter(t)

	slugs := []slug.Slug{
		slug.MustParse("gym-one"),
		slug.MustParse("gym-two"),
		slug.MustParse("gym-three"),
	}
	for _, s := range slugs {
		reg.set(s.String(), tenantstatus.Active)
	}

	require.NoError(t, router.WarmUp(context.Background(), slugs))
	assert.Equal(t, int32(3), backend.opens.Load())

	reg.set("gym-four", tenantstatus.Blocked)
	err := router.WarmUp(context.Background(), append(slugs, slug.MustParse("gym-four")))
	assert.ErrorIs(t, err, tenantstore.ErrTenantBlocked)
	assert.Equal(t, int32(3), backend.opens.Load())
}
