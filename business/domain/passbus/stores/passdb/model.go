package passdb

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jcpaschoal/gymhub/business/domain/passbus"
	"github.com/jcpaschoal/gymhub/business/types/passstatus"
	"github.com/jcpaschoal/gymhub/business/types/usageaction"
)

type passDB struct {
	ID               uuid.UUID     `db:"pass_id"`
	UserID           uuid.UUID     `db:"user_id"`
	OfferingID       uuid.UUID     `db:"offering_id"`
	Status           string        `db:"status"`
	ValidFrom        time.Time     `db:"valid_from"`
	ValidUntil       sql.NullTime  `db:"valid_until"`
	TotalEntries     sql.NullInt64 `db:"total_entries"`
	RemainingEntries sql.NullInt64 `db:"remaining_entries"`
	SerialNumber     string        `db:"serial_number"`
	Name             string        `db:"name"`
	Description      string        `db:"description"`
	PriceCents       int64         `db:"price_cents"`
	Currency         string        `db:"currency"`
	CreatedAt        time.Time     `db:"created_at"`
	UpdatedAt        time.Time     `db:"updated_at"`
}

func toDBPass(bus passbus.Pass) passDB {
	db := passDB{
		ID:               bus.ID,
		UserID:           bus.UserID,
		OfferingID:       bus.OfferingID,
		Status:           bus.Status.String(),
		ValidFrom:        bus.ValidFrom.UTC(),
		TotalEntries:     nullInt(bus.TotalEntries),
		RemainingEntries: nullInt(bus.RemainingEntries),
		SerialNumber:     bus.SerialNumber,
		Name:             bus.Name,
		Description:      bus.Description,
		PriceCents:       bus.PriceCents,
		Currency:         bus.Currency,
		CreatedAt:        bus.CreatedAt.UTC(),
		UpdatedAt:        bus.UpdatedAt.UTC(),
	}

	if bus.ValidUntil != nil {
		db.ValidUntil = sql.NullTime{Time: bus.ValidUntil.UTC(), Valid: true}
	}

	return db
}

func toBusPass(db passDB) (passbus.Pass, error) {
	status, err := passstatus.Parse(db.Status)
	if err != nil {
		return passbus.Pass{}, fmt.Errorf("parse status: %w", err)
	}

	bus := passbus.Pass{
		ID:               db.ID,
		UserID:           db.UserID,
		OfferingID:       db.OfferingID,
		Status:           status,
		ValidFrom:        db.ValidFrom.In(time.Local),
		TotalEntries:     intPtr(db.TotalEntries),
		RemainingEntries: intPtr(db.RemainingEntries),
		SerialNumber:     db.SerialNumber,
		Name:             db.Name,
		Description:      db.Description,
		PriceCents:       db.PriceCents,
		Currency:         db.Currency,
		CreatedAt:        db.CreatedAt.In(time.Local),
		UpdatedAt:        db.UpdatedAt.In(time.Local),
	}

	if db.ValidUntil.Valid {
		t := db.ValidUntil.Time.In(time.Local)
		bus.ValidUntil = &t
	}

	return bus, nil
}

func toBusPasses(dbs []passDB) ([]passbus.Pass, error) {
	bus := make([]passbus.Pass, len(dbs))

	for i, db := range dbs {
		var err error
		bus[i], err = toBusPass(db)
		if err != nil {
			return nil, err
		}
	}

	return bus, nil
}

// =============================================================================

type tokenDB struct {
	ID        uuid.UUID `db:"token_id"`
	PassID    uuid.UUID `db:"pass_id"`
	Token     string    `db:"token"`
	Active    bool      `db:"active"`
	CreatedAt time.Time `db:"created_at"`
}

func toDBToken(bus passbus.Token) tokenDB {
	return tokenDB{
		ID:        bus.ID,
		PassID:    bus.PassID,
		Token:     bus.Token,
		Active:    bus.Active,
		CreatedAt: bus.CreatedAt.UTC(),
	}
}

func toBusToken(db tokenDB) passbus.Token {
	return passbus.Token{
		ID:        db.ID,
		PassID:    db.PassID,
		Token:     db.Token,
		Active:    db.Active,
		CreatedAt: db.CreatedAt.In(time.Local),
	}
}

func toBusTokens(dbs []tokenDB) []passbus.Token {
	bus := make([]passbus.Token, len(dbs))
	for i, db := range dbs {
		bus[i] = toBusToken(db)
	}
	return bus
}

// =============================================================================

type usageDB struct {
	ID        uuid.UUID     `db:"log_id"`
	PassID    uuid.UUID     `db:"pass_id"`
	Action    string        `db:"action"`
	Entries   int           `db:"entries"`
	StaffID   uuid.NullUUID `db:"staff_id"`
	CreatedAt time.Time     `db:"created_at"`
}

func toDBUsage(bus passbus.UsageLog) usageDB {
	db := usageDB{
		ID:        bus.ID,
		PassID:    bus.PassID,
		Action:    bus.Action.String(),
		Entries:   bus.Entries,
		CreatedAt: bus.CreatedAt.UTC(),
	}

	if bus.StaffID != nil {
		db.StaffID = uuid.NullUUID{UUID: *bus.StaffID, Valid: true}
	}

	return db
}

func toBusUsages(dbs []usageDB) ([]passbus.UsageLog, error) {
	bus := make([]passbus.UsageLog, len(dbs))

	for i, db := range dbs {
		action, err := usageaction.Parse(db.Action)
		if err != nil {
			return nil, fmt.Errorf("parse action: %w", err)
		}

		bus[i] = passbus.UsageLog{
			ID:        db.ID,
			PassID:    db.PassID,
			Action:    action,
			Entries:   db.Entries,
			CreatedAt: db.CreatedAt.In(time.Local),
		}

		if db.StaffID.Valid {
			id := db.StaffID.UUID
			bus[i].StaffID = &id
		}
	}

	return bus, nil
}

// =============================================================================

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
