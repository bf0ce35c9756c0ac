// Package tenantdb contains tenant registry related CRUD functionality.
package tenantdb

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jcpaschoal/gymhub/business/domain/tenantbus"
	"github.com/jcpaschoal/gymhub/business/sdk/sqldb"
	"github.com/jcpaschoal/gymhub/business/types/slug"
	"github.com/jcpaschoal/gymhub/foundation/logger"
	"github.com/jmoiron/sqlx"
)

const columns = `
	gym_id, slug, name, status, sub_customer_id, sub_subscription_id, sub_status,
	sub_plan_id, sub_period_end, contact_name, email, phone, address, city,
	staff_access_secret, opening_hours, created_at, updated_at, deleted_at`

// Store manages the set of APIs for tenant database access.
type Store struct {
	log *logger.Logger
	db  sqlx.ExtContext
}

// NewStore constructs the api for data access.
func NewStore(log *logger.Logger, db *sqlx.DB) *Store {
	return &Store{
		log: log,
		db:  db,
	}
}

// NewWithTx constructs a new Store value replacing the sqlx DB
// value with a sqlx DB value that is currently inside a transaction.
func (s *Store) NewWithTx(tx sqldb.CommitRollbacker) (tenantbus.Storer, error) {
	ec, err := sqldb.GetExtContext(tx)
	if err != nil {
		return nil, err
	}

	store := Store{
		log: s.log,
		db:  ec,
	}

	return &store, nil
}

// Create inserts a new tenant into the database.
func (s *Store) Create(ctx context.Context, t tenantbus.Tenant) error {
	const q = `
	INSERT INTO gyms
		(gym_id, slug, name, status, sub_customer_id, sub_subscription_id, sub_status,
		sub_plan_id, sub_period_end, contact_name, email, phone, address, city,
		staff_access_secret, opening_hours, created_at, updated_at, deleted_at)
	VALUES
		(:gym_id, :slug, :name, :status, :sub_customer_id, :sub_subscription_id, :sub_status,
		:sub_plan_id, :sub_period_end, :contact_name, :email, :phone, :address, :city,
		:staff_access_secret, :opening_hours, :created_at, :updated_at, :deleted_at)`

	if err := sqldb.NamedExecContext(ctx, s.log, s.db, q, toDBGym(t)); err != nil {
		var dupErr sqldb.ErrDBDuplicatedEntry
		if errors.As(err, &dupErr) {
			if dupErr.Column == "slug" || dupErr.Column == "uq_gyms_slug_live" {
				return fmt.Errorf("namedexeccontext: %w", tenantbus.ErrUniqueSlug)
			}
		}
		return fmt.Errorf("namedexeccontext: %w", err)
	}

	return nil
}

// Update replaces a tenant document in the database.
func (s *Store) Update(ctx context.Context, t tenantbus.Tenant) error {
	const q = `
	UPDATE
		gyms
	SET
		name = :name,
		status = :status,
		sub_customer_id = :sub_customer_id,
		sub_subscription_id = :sub_subscription_id,
		sub_status = :sub_status,
		sub_plan_id = :sub_plan_id,
		sub_period_end = :sub_period_end,
		contact_name = :contact_name,
		email = :email,
		phone = :phone,
		address = :address,
		city = :city,
		opening_hours = :opening_hours,
		updated_at = :updated_at,
		deleted_at = :deleted_at
	WHERE
		gym_id = :gym_id`

	if err := sqldb.NamedExecContext(ctx, s.log, s.db, q, toDBGym(t)); err != nil {
		var dupErr sqldb.ErrDBDuplicatedEntry
		if errors.As(err, &dupErr) {
			if dupErr.Column == "slug" || dupErr.Column == "uq_gyms_slug_live" {
				return fmt.Errorf("namedexeccontext: %w", tenantbus.ErrUniqueSlug)
			}
		}
		return fmt.Errorf("namedexeccontext: %w", err)
	}

	return nil
}

// QueryByID gets the specified tenant from the database.
func (s *Store) QueryByID(ctx context.Context, tenantID uuid.UUID) (tenantbus.Tenant, error) {
	data := struct {
		ID string `db:"gym_id"`
	}{
		ID: tenantID.String(),
	}

	q := `
	SELECT` + columns + `
	FROM
		gyms
	WHERE
		gym_id = :gym_id`

	var dbGym gymDB
	if err := sqldb.NamedQueryStruct(ctx, s.log, s.db, q, data, &dbGym); err != nil {
		if errors.Is(err, sqldb.ErrDBNotFound) {
			return tenantbus.Tenant{}, fmt.Errorf("db: %w", tenantbus.ErrNotFound)
		}
		return tenantbus.Tenant{}, fmt.Errorf("db: %w", err)
	}

	return toBusGym(dbGym)
}

// QueryBySlug gets the live tenant owning the slug. Deleted tenants are
// only returned when no live one exists.
func (s *Store) QueryBySlug(ctx context.Context, slg slug.Slug) (tenantbus.Tenant, error) {
	data := struct {
		Slug string `db:"slug"`
	}{
		Slug: slg.String(),
	}

	q := `
	SELECT` + columns + `
	FROM
		gyms
	WHERE
		slug = :slug`

	var dbGyms []gymDB
	if err := sqldb.NamedQuerySlice(ctx, s.log, s.db, q, data, &dbGyms); err != nil {
		return tenantbus.Tenant{}, fmt.Errorf("db: %w", err)
	}

	if len(dbGyms) == 0 {
		return tenantbus.Tenant{}, fmt.Errorf("db: %w", tenantbus.ErrNotFound)
	}

	ts, err := toBusGyms(dbGyms)
	if err != nil {
		return tenantbus.Tenant{}, err
	}

	return pickCurrent(ts), nil
}

// QueryBySubscriptionID gets the tenant billed by the subscription.
func (s *Store) QueryBySubscriptionID(ctx context.Context, subscriptionID string) (tenantbus.Tenant, error) {
	data := struct {
		SubscriptionID string `db:"sub_subscription_id"`
	}{
		SubscriptionID: subscriptionID,
	}

	q := `
	SELECT` + columns + `
	FROM
		gyms
	WHERE
		sub_subscription_id = :sub_subscription_id`

	var dbGyms []gymDB
	if err := sqldb.NamedQuerySlice(ctx, s.log, s.db, q, data, &dbGyms); err != nil {
		return tenantbus.Tenant{}, fmt.Errorf("db: %w", err)
	}

	if len(dbGyms) == 0 {
		return tenantbus.Tenant{}, fmt.Errorf("db: %w", tenantbus.ErrNotFound)
	}

	ts, err := toBusGyms(dbGyms)
	if err != nil {
		return tenantbus.Tenant{}, err
	}

	return pickCurrent(ts), nil
}

// Query retrieves the registered tenants ordered by slug.
func (s *Store) Query(ctx context.Context, includeDeleted bool) ([]tenantbus.Tenant, error) {
	data := struct {
		Deleted string `db:"deleted"`
	}{
		Deleted: "DELETED",
	}

	q := `
	SELECT` + columns + `
	FROM
		gyms`

	if !includeDeleted {
		q += `
	WHERE
		status <> :deleted`
	}

	q += `
	ORDER BY
		slug, gym_id`

	var dbGyms []gymDB
	if err := sqldb.NamedQuerySlice(ctx, s.log, s.db, q, data, &dbGyms); err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}

	return toBusGyms(dbGyms)
}

// =============================================================================

// pickCurrent prefers the tenant that is not deleted, then the one deleted
// most recently.
func pickCurrent(ts []tenantbus.Tenant) tenantbus.Tenant {
	sort.SliceStable(ts, func(i, j int) bool {
		di, dj := ts[i].DeletedAt, ts[j].DeletedAt
		switch {
		case di == nil:
			return dj != nil
		case dj == nil:
			return false
		default:
			return di.After(*dj)
		}
	})

	return ts[0]
}
