package offeringdb

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jcpaschoal/gymhub/business/domain/offeringbus"
	"github.com/jcpaschoal/gymhub/business/types/durationunit"
)

type offeringDB struct {
	ID            uuid.UUID      `db:"offering_id"`
	Name          string         `db:"name"`
	Description   string         `db:"description"`
	PriceCents    int64          `db:"price_cents"`
	Currency      string         `db:"currency"`
	DurationValue sql.NullInt64  `db:"duration_value"`
	DurationUnit  sql.NullString `db:"duration_unit"`
	VisitsCount   sql.NullInt64  `db:"visits_count"`
	NeverExpires  bool           `db:"never_expires"`
	ExpiryValue   sql.NullInt64  `db:"expiry_value"`
	ExpiryUnit    sql.NullString `db:"expiry_unit"`
	Active        bool           `db:"active"`
	LegacyCode    sql.NullString `db:"legacy_code"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

func toDBOffering(bus offeringbus.Offering) offeringDB {
	db := offeringDB{
		ID:           bus.ID,
		Name:         bus.Name,
		Description:  bus.Description,
		PriceCents:   bus.PriceCents,
		Currency:     bus.Currency,
		NeverExpires: bus.Expiry.NeverExpires,
		Active:       bus.Active,
		LegacyCode:   sql.NullString{String: bus.LegacyCode, Valid: bus.LegacyCode != ""},
		CreatedAt:    bus.CreatedAt.UTC(),
		UpdatedAt:    bus.UpdatedAt.UTC(),
	}

	if bus.Duration != nil {
		db.DurationValue = sql.NullInt64{Int64: int64(bus.Duration.Value), Valid: true}
		db.DurationUnit = sql.NullString{String: bus.Duration.Unit.String(), Valid: true}
	}

	if bus.VisitsCount != nil {
		db.VisitsCount = sql.NullInt64{Int64: int64(*bus.VisitsCount), Valid: true}
	}

	if bus.Expiry.AfterValue > 0 {
		db.ExpiryValue = sql.NullInt64{Int64: int64(bus.Expiry.AfterValue), Valid: true}
		db.ExpiryUnit = sql.NullString{String: bus.Expiry.AfterUnit.String(), Valid: true}
	}

	return db
}

func toBusOffering(db offeringDB) (offeringbus.Offering, error) {
	bus := offeringbus.Offering{
		ID:          db.ID,
		Name:        db.Name,
		Description: db.Description,
		PriceCents:  db.PriceCents,
		Currency:    db.Currency,
		Expiry:      offeringbus.Expiry{NeverExpires: db.NeverExpires},
		Active:      db.Active,
		LegacyCode:  db.LegacyCode.String,
		CreatedAt:   db.CreatedAt.In(time.Local),
		UpdatedAt:   db.UpdatedAt.In(time.Local),
	}

	if db.DurationValue.Valid && db.DurationUnit.Valid {
		unit, err := durationunit.Parse(db.DurationUnit.String)
		if err != nil {
			return offeringbus.Offering{}, fmt.Errorf("parse duration unit: %w", err)
		}
		bus.Duration = &offeringbus.Duration{Value: int(db.DurationValue.Int64), Unit: unit}
	}

	if db.VisitsCount.Valid {
		n := int(db.VisitsCount.Int64)
		bus.VisitsCount = &n
	}

	if db.ExpiryValue.Valid && db.ExpiryUnit.Valid {
		unit, err := durationunit.Parse(db.ExpiryUnit.String)
		if err != nil {
			return offeringbus.Offering{}, fmt.Errorf("parse expiry unit: %w", err)
		}
		bus.Expiry.AfterValue = int(db.ExpiryValue.Int64)
		bus.Expiry.AfterUnit = unit
	}

	return bus, nil
}

func toBusOfferings(dbs []offeringDB) ([]offeringbus.Offering, error) {
	bus := make([]offeringbus.Offering, len(dbs))

	for i, db := range dbs {
		var err error
		bus[i], err = toBusOffering(db)
		if err != nil {
			return nil, err
		}
	}

	return bus, nil
}
