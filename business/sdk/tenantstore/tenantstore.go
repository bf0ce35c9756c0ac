// Package tenantstore routes tenant scoped work to the tenant's own storage
// unit. Handles are opened and migrated on first use and cached for the life
// of the process.
package tenantstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jcpaschoal/gymhub/business/sdk/migrate"
	"github.com/jcpaschoal/gymhub/business/sdk/sqldb"
	"github.com/jcpaschoal/gymhub/business/types/slug"
	"github.com/jcpaschoal/gymhub/business/types/tenantstatus"
	"github.com/jcpaschoal/gymhub/foundation/keylock"
	"github.com/jcpaschoal/gymhub/foundation/logger"
	"github.com/jcpaschoal/gymhub/foundation/otel"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"
)

// Set of error variables for tenant resolution.
var (
	ErrTenantNotFound     = errors.New("tenant not found")
	ErrTenantPending      = errors.New("tenant is pending activation")
	ErrTenantBlocked      = errors.New("tenant is blocked")
	ErrTenantDeleted      = errors.New("tenant is deleted")
	ErrStorageUnavailable = errors.New("tenant storage unavailable")
)

// Backend materializes and opens tenant storage units.
type Backend interface {
	Name() string
	Open(ctx context.Context, slg slug.Slug) (db *sqlx.DB, created bool, err error)
	Archive(ctx context.Context, slg slug.Slug, suffix string) error
}

// Registry reports the registry status of a tenant.
type Registry interface {
	LookupStatus(ctx context.Context, slg slug.Slug) (tenantstatus.Status, bool, error)
}

// Handle is the storage of one tenant. It is the only way tenant scoped
// cores reach tenant data, and it must not be kept beyond one operation.
type Handle struct {
	Slug slug.Slug
	DB   *sqlx.DB
}

// Beginner returns a transaction starter over the tenant's storage.
func (h Handle) Beginner() sqldb.Beginner {
	return sqldb.NewBeginner(h.DB)
}

// Config holds the router settings.
type Config struct {
	DefaultSlug slug.Slug
	WarmUpLimit int
}

// Router owns the process wide slug to handle cache.
type Router struct {
	log         *logger.Logger
	backend     Backend
	registry    Registry
	defaultSlug slug.Slug
	warmUpLimit int
	handles     sync.Map
	locks       *keylock.Locker
}

// New constructs a router over the backend.
func New(log *logger.Logger, backend Backend, registry Registry, cfg Config) *Router {
	limit := cfg.WarmUpLimit
	if limit <= 0 {
		limit = 4
	}

	return &Router{
		log:         log,
		backend:     backend,
		registry:    registry,
		defaultSlug: cfg.DefaultSlug,
		warmUpLimit: limit,
		locks:       keylock.New(),
	}
}

// DefaultSlug returns the slug used when a request names no tenant.
func (r *Router) DefaultSlug() slug.Slug {
	return r.defaultSlug
}

// Resolve returns the storage of an ACTIVE tenant. Tenants in any other
// status are refused before storage is touched.
func (r *Router) Resolve(ctx context.Context, slg slug.Slug) (Handle, error) {
	return r.resolve(ctx, slg, false)
}

// ResolveForAdmin returns the storage of a tenant that is not deleted. It
// serves provisioning and administration, which work on PENDING and BLOCKED
// tenants.
func (r *Router) ResolveForAdmin(ctx context.Context, slg slug.Slug) (Handle, error) {
	return r.resolve(ctx, slg, true)
}

func (r *Router) resolve(ctx context.Context, slg slug.Slug, admin bool) (Handle, error) {
	ctx, span := otel.AddSpan(ctx, "business.tenantstore.resolve")
	defer span.End()

	if err := r.admit(ctx, slg, admin); err != nil {
		return Handle{}, err
	}

	key := slg.String()

	if h, ok := r.handles.Load(key); ok {
		return h.(Handle), nil
	}

	unlock := r.locks.Lock(key)
	defer unlock()

	if h, ok := r.handles.Load(key); ok {
		return h.(Handle), nil
	}

	// Archive may have run while this call waited for the lock.
	if err := r.admit(ctx, slg, admin); err != nil {
		return Handle{}, err
	}

	h, err := r.open(ctx, slg)
	if err != nil {
		return Handle{}, err
	}

	r.handles.Store(key, h)

	return h, nil
}

// Invalidate drops the cached handle for the slug and closes it. Later
// calls reopen the storage.
func (r *Router) Invalidate(ctx context.Context, slg slug.Slug) error {
	unlock := r.locks.Lock(slg.String())
	defer unlock()

	return r.drop(ctx, slg)
}

// Archive invalidates the slug and renames its storage unit out of the way
// so the slug can be claimed by a new tenant.
func (r *Router) Archive(ctx context.Context, slg slug.Slug, suffix string) error {
	ctx, span := otel.AddSpan(ctx, "business.tenantstore.archive")
	defer span.End()

	unlock := r.locks.Lock(slg.String())
	defer unlock()

	if err := r.drop(ctx, slg); err != nil {
		return err
	}

	if err := r.backend.Archive(ctx, slg, suffix); err != nil {
		return fmt.Errorf("archive[%s]: %w", slg, err)
	}

	r.log.Info(ctx, "tenant storage archived", "slug", slg, "backend", r.backend.Name(), "suffix", suffix)

	return nil
}

// WarmUp opens and migrates the storage of every slug with bounded
// parallelism. Failures are logged and reported together; they never stop
// the other tenants from warming up.
func (r *Router) WarmUp(ctx context.Context, slugs []slug.Slug) error {
	var (
		mu     sync.Mutex
		failed []error
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.warmUpLimit)

	for _, slg := range slugs {
		g.Go(func() error {
			if _, err := r.Resolve(ctx, slg); err != nil {
				r.log.Error(ctx, "tenant warm up", "slug", slg, "ERROR", err)

				mu.Lock()
				failed = append(failed, fmt.Errorf("%s: %w", slg, err))
				mu.Unlock()
			}
			return nil
		})
	}

	g.Wait()

	return errors.Join(failed...)
}

// Close closes every cached handle.
func (r *Router) Close() error {
	var errs []error

	r.handles.Range(func(key, value any) bool {
		r.handles.Delete(key)
		if err := value.(Handle).DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close[%s]: %w", key, err))
		}
		return true
	})

	return errors.Join(errs...)
}

// =============================================================================

func (r *Router) admit(ctx context.Context, slg slug.Slug, admin bool) error {
	status, found, err := r.registry.LookupStatus(ctx, slg)
	if err != nil {
		return fmt.Errorf("lookup status[%s]: %w", slg, err)
	}

	if !found {
		if slg.Equal(r.defaultSlug) {
			return nil
		}
		return fmt.Errorf("slug[%s]: %w", slg, ErrTenantNotFound)
	}

	switch status {
	case tenantstatus.Active:
		return nil

	case tenantstatus.Pending:
		if admin {
			return nil
		}
		return fmt.Errorf("slug[%s]: %w", slg, ErrTenantPending)

	case tenantstatus.Blocked:
		if admin {
			return nil
		}
		return fmt.Errorf("slug[%s]: %w", slg, ErrTenantBlocked)

	default:
		return fmt.Errorf("slug[%s]: %w", slg, ErrTenantDeleted)
	}
}

// open materializes the storage unit and brings it to the latest schema.
// A unit that does not answer a ping is reopened once.
func (r *Router) open(ctx context.Context, slg slug.Slug) (Handle, error) {
	var lastErr error

	for attempt := 1; attempt <= 2; attempt++ {
		db, created, err := r.backend.Open(ctx, slg)
		if err != nil {
			lastErr = err
			continue
		}

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = db.PingContext(pingCtx)
		cancel()
		if err != nil {
			db.Close()
			lastErr = err
			r.log.Warn(ctx, "tenant storage ping", "slug", slg, "attempt", attempt, "ERROR", err)
			continue
		}

		applied, err := migrate.Migrate(ctx, r.log, db, migrate.Tenant)
		if err != nil {
			db.Close()
			return Handle{}, fmt.Errorf("migrate[%s]: %w: %w", slg, ErrStorageUnavailable, err)
		}

		r.log.Info(ctx, "tenant storage opened", "slug", slg, "backend", r.backend.Name(), "created", created, "migrations", applied)

		return Handle{Slug: slg, DB: db}, nil
	}

	return Handle{}, fmt.Errorf("open[%s]: %w: %w", slg, ErrStorageUnavailable, lastErr)
}

func (r *Router) drop(ctx context.Context, slg slug.Slug) error {
	v, ok := r.handles.LoadAndDelete(slg.String())
	if !ok {
		return nil
	}

	if err := v.(Handle).DB.Close(); err != nil {
		return fmt.Errorf("close[%s]: %w", slg, err)
	}

	r.log.Info(ctx, "tenant storage released", "slug", slg)

	return nil
}
