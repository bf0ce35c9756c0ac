// Package tenantcache contains a write-through cache in front of the
// tenant registry store.
package tenantcache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jcpaschoal/gymhub/business/domain/tenantbus"
	"github.com/jcpaschoal/gymhub/business/sdk/sqldb"
	"github.com/jcpaschoal/gymhub/business/types/slug"
	"github.com/jcpaschoal/gymhub/business/types/tenantstatus"
	"github.com/jcpaschoal/gymhub/foundation/logger"
	"github.com/viccon/sturdyc"
)

// Config tunes the in-memory cache.
type Config struct {
	Capacity int
	Shards   int
	TTL      time.Duration
}

// DefaultConfig keeps entries short lived so status changes made by other
// instances become visible quickly.
var DefaultConfig = Config{
	Capacity: 10_000,
	Shards:   10,
	TTL:      30 * time.Second,
}

// Store implements the tenantbus.Storer interface caching tenants by id
// and by slug.
type Store struct {
	log    *logger.Logger
	storer tenantbus.Storer
	cache  *sturdyc.Client[tenantbus.Tenant]
	inTx   bool
}

// NewStore constructs the api for data access.
func NewStore(log *logger.Logger, storer tenantbus.Storer, cfg Config) *Store {
	return &Store{
		log:    log,
		storer: storer,
		cache:  sturdyc.New[tenantbus.Tenant](cfg.Capacity, cfg.Shards, cfg.TTL, 10),
	}
}

// NewWithTx constructs a new Store value replacing the underlying storer
// with one inside a transaction. Inside a transaction reads bypass the
// cache and writes only evict, so a rollback cannot leave phantom entries.
func (s *Store) NewWithTx(tx sqldb.CommitRollbacker) (tenantbus.Storer, error) {
	storer, err := s.storer.NewWithTx(tx)
	if err != nil {
		return nil, err
	}

	return &Store{
		log:    s.log,
		storer: storer,
		cache:  s.cache,
		inTx:   true,
	}, nil
}

// Create inserts a new tenant and caches it.
func (s *Store) Create(ctx context.Context, t tenantbus.Tenant) error {
	if err := s.storer.Create(ctx, t); err != nil {
		return err
	}

	s.writeCache(t)

	return nil
}

// Update replaces the tenant and refreshes the cached copies.
func (s *Store) Update(ctx context.Context, t tenantbus.Tenant) error {
	if err := s.storer.Update(ctx, t); err != nil {
		return err
	}

	s.writeCache(t)

	return nil
}

// QueryByID gets the tenant by id, serving from memory when possible.
func (s *Store) QueryByID(ctx context.Context, tenantID uuid.UUID) (tenantbus.Tenant, error) {
	if s.inTx {
		return s.storer.QueryByID(ctx, tenantID)
	}

	return s.cache.GetOrFetch(ctx, idKey(tenantID), func(ctx context.Context) (tenantbus.Tenant, error) {
		return s.storer.QueryByID(ctx, tenantID)
	})
}

// QueryBySlug gets the tenant owning the slug, serving from memory when possible.
func (s *Store) QueryBySlug(ctx context.Context, slg slug.Slug) (tenantbus.Tenant, error) {
	if s.inTx {
		return s.storer.QueryBySlug(ctx, slg)
	}

	return s.cache.GetOrFetch(ctx, slugKey(slg), func(ctx context.Context) (tenantbus.Tenant, error) {
		return s.storer.QueryBySlug(ctx, slg)
	})
}

// QueryBySubscriptionID always reads through to the store.
func (s *Store) QueryBySubscriptionID(ctx context.Context, subscriptionID string) (tenantbus.Tenant, error) {
	return s.storer.QueryBySubscriptionID(ctx, subscriptionID)
}

// Query always reads through to the store.
func (s *Store) Query(ctx context.Context, includeDeleted bool) ([]tenantbus.Tenant, error) {
	return s.storer.Query(ctx, includeDeleted)
}

// =============================================================================

func (s *Store) writeCache(t tenantbus.Tenant) {
	if s.inTx {
		s.cache.Delete(idKey(t.ID))
		s.cache.Delete(slugKey(t.Slug))
		return
	}

	s.cache.Set(idKey(t.ID), t)

	// A deleted tenant no longer owns its slug; the next lookup decides
	// between it and any newer registration.
	if t.Status.Equal(tenantstatus.Deleted) {
		s.cache.Delete(slugKey(t.Slug))
		return
	}

	s.cache.Set(slugKey(t.Slug), t)
}

func idKey(id uuid.UUID) string {
	return "id:" + id.String()
}

func slugKey(slg slug.Slug) string {
	return "slug:" + slg.String()
}
