// Package offeringdb contains configurable offering related CRUD
// functionality.
package offeringdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jcpaschoal/gymhub/business/domain/offeringbus"
	"github.com/jcpaschoal/gymhub/business/sdk/sqldb"
	"github.com/jcpaschoal/gymhub/foundation/logger"
	"github.com/jmoiron/sqlx"
)

const columns = `
	offering_id, name, description, price_cents, currency, duration_value,
	duration_unit, visits_count, never_expires, expiry_value, expiry_unit,
	active, legacy_code, created_at, updated_at`

// Store manages the set of APIs for offering database access.
type Store struct {
	log *logger.Logger
	db  sqlx.ExtContext
}

// NewStore constructs the api for data access.
func NewStore(log *logger.Logger, db sqlx.ExtContext) *Store {
	return &Store{
		log: log,
		db:  db,
	}
}

// Create inserts a new offering into the database.
func (s *Store) Create(ctx context.Context, o offeringbus.Offering) error {
	q := `
	INSERT INTO pass_offerings
		(` + columns + `)
	VALUES
		(:offering_id, :name, :description, :price_cents, :currency, :duration_value,
		:duration_unit, :visits_count, :never_expires, :expiry_value, :expiry_unit,
		:active, :legacy_code, :created_at, :updated_at)`

	if err := sqldb.NamedExecContext(ctx, s.log, s.db, q, toDBOffering(o)); err != nil {
		var dupErr sqldb.ErrDBDuplicatedEntry
		if errors.As(err, &dupErr) && o.LegacyCode != "" {
			return fmt.Errorf("namedexeccontext: %w", offeringbus.ErrUniqueLegacy)
		}
		return fmt.Errorf("namedexeccontext: %w", err)
	}

	return nil
}

// QueryByID gets the specified offering from the database.
func (s *Store) QueryByID(ctx context.Context, offeringID uuid.UUID) (offeringbus.Offering, error) {
	data := struct {
		ID string `db:"offering_id"`
	}{
		ID: offeringID.String(),
	}

	q := `
	SELECT` + columns + `
	FROM
		pass_offerings
	WHERE
		offering_id = :offering_id`

	var dbO offeringDB
	if err := sqldb.NamedQueryStruct(ctx, s.log, s.db, q, data, &dbO); err != nil {
		if errors.Is(err, sqldb.ErrDBNotFound) {
			return offeringbus.Offering{}, fmt.Errorf("db: %w", offeringbus.ErrNotFound)
		}
		return offeringbus.Offering{}, fmt.Errorf("db: %w", err)
	}

	return toBusOffering(dbO)
}

// Query retrieves the offerings ordered by name.
func (s *Store) Query(ctx context.Context, activeOnly bool) ([]offeringbus.Offering, error) {
	data := struct {
		Active bool `db:"active"`
	}{
		Active: true,
	}

	q := `
	SELECT` + columns + `
	FROM
		pass_offerings`

	if activeOnly {
		q += `
	WHERE
		active = :active`
	}

	q += `
	ORDER BY
		name`

	var dbOs []offeringDB
	if err := sqldb.NamedQuerySlice(ctx, s.log, s.db, q, data, &dbOs); err != nil {
		return nil, fmt.Errorf("namedqueryslice: %w", err)
	}

	return toBusOfferings(dbOs)
}

// Count returns the number of offerings in the database.
func (s *Store) Count(ctx context.Context) (int, error) {
	const q = `
	SELECT
		count(1) AS count
	FROM
		pass_offerings`

	var count struct {
		Count int `db:"count"`
	}
	if err := sqldb.NamedQueryStruct(ctx, s.log, s.db, q, struct{}{}, &count); err != nil {
		return 0, fmt.Errorf("db: %w", err)
	}

	return count.Count, nil
}
