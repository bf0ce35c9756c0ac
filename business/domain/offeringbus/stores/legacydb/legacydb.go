// Package legacydb reads the fixed pass type catalog older tenants were
// created with.
package legacydb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jcpaschoal/gymhub/business/domain/offeringbus"
	"github.com/jcpaschoal/gymhub/business/sdk/sqldb"
	"github.com/jcpaschoal/gymhub/foundation/logger"
	"github.com/jmoiron/sqlx"
)

type passTypeDB struct {
	Code         string        `db:"code"`
	Name         string        `db:"name"`
	DurationDays sql.NullInt64 `db:"duration_days"`
	Entries      sql.NullInt64 `db:"entries"`
	PriceCents   int64         `db:"price_cents"`
	Currency     string        `db:"currency"`
	Active       bool          `db:"active"`
}

func toBusPassType(db passTypeDB) offeringbus.LegacyPassType {
	bus := offeringbus.LegacyPassType{
		Code:       db.Code,
		Name:       db.Name,
		PriceCents: db.PriceCents,
		Currency:   db.Currency,
		Active:     db.Active,
	}

	if db.DurationDays.Valid {
		n := int(db.DurationDays.Int64)
		bus.DurationDays = &n
	}

	if db.Entries.Valid {
		n := int(db.Entries.Int64)
		bus.Entries = &n
	}

	return bus
}

// Store manages the set of APIs for legacy catalog access.
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

// Query retrieves every legacy pass type ordered by code.
func (s *Store) Query(ctx context.Context) ([]offeringbus.LegacyPassType, error) {
	const q = `
	SELECT
		code, name, duration_days, entries, price_cents, currency, active
	FROM
		pass_types
	ORDER BY
		code`

	var dbPTs []passTypeDB
	if err := sqldb.NamedQuerySlice(ctx, s.log, s.db, q, struct{}{}, &dbPTs); err != nil {
		return nil, fmt.Errorf("namedqueryslice: %w", err)
	}

	bus := make([]offeringbus.LegacyPassType, len(dbPTs))
	for i, db := range dbPTs {
		bus[i] = toBusPassType(db)
	}

	return bus, nil
}
