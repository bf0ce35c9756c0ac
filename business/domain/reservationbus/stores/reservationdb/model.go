package reservationdb

import (
	"database/sql"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/jcpaschoal/gymhub/business/domain/reservationbus"
	"github.com/jcpaschoal/gymhub/business/types/phone"
	"github.com/jcpaschoal/gymhub/business/types/reservationstatus"
	"github.com/jcpaschoal/gymhub/business/types/slug"
)

type reservationDB struct {
	ID           uuid.UUID      `db:"reservation_id"`
	Slug         string         `db:"slug"`
	BusinessName string         `db:"business_name"`
	ContactName  string         `db:"contact_name"`
	Email        string         `db:"email"`
	Phone        sql.NullString `db:"phone"`
	PlanID       string         `db:"plan_id"`
	Status       string         `db:"status"`
	CheckoutID   sql.NullString `db:"checkout_id"`
	TenantID     uuid.NullUUID  `db:"gym_id"`
	CreatedAt    time.Time      `db:"created_at"`
	ExpiresAt    time.Time      `db:"expires_at"`
	CompletedAt  sql.NullTime   `db:"completed_at"`
}

func toDBReservation(bus reservationbus.Reservation) reservationDB {
	db := reservationDB{
		ID:           bus.ID,
		Slug:         bus.Slug.String(),
		BusinessName: bus.Applicant.BusinessName,
		ContactName:  bus.Applicant.ContactName,
		Email:        bus.Applicant.Email.Address,
		Phone:        phone.ToSQLNullString(bus.Applicant.Phone),
		PlanID:       bus.Applicant.PlanID,
		Status:       bus.Status.String(),
		CheckoutID:   sql.NullString{String: bus.CheckoutID, Valid: bus.CheckoutID != ""},
		CreatedAt:    bus.CreatedAt.UTC(),
		ExpiresAt:    bus.ExpiresAt.UTC(),
	}

	if bus.TenantID != nil {
		db.TenantID = uuid.NullUUID{UUID: *bus.TenantID, Valid: true}
	}

	if bus.CompletedAt != nil {
		db.CompletedAt = sql.NullTime{Time: bus.CompletedAt.UTC(), Valid: true}
	}

	return db
}

func toBusReservation(db reservationDB) (reservationbus.Reservation, error) {
	slg, err := slug.Parse(db.Slug)
	if err != nil {
		return reservationbus.Reservation{}, fmt.Errorf("parse slug: %w", err)
	}

	status, err := reservationstatus.Parse(db.Status)
	if err != nil {
		return reservationbus.Reservation{}, fmt.Errorf("parse status: %w", err)
	}

	phn, err := phone.ParseNull(db.Phone.String)
	if err != nil {
		return reservationbus.Reservation{}, fmt.Errorf("parse phone: %w", err)
	}

	bus := reservationbus.Reservation{
		ID:   db.ID,
		Slug: slg,
		Applicant: reservationbus.Applicant{
			BusinessName: db.BusinessName,
			ContactName:  db.ContactName,
			Email:        mail.Address{Address: db.Email},
			Phone:        phn,
			PlanID:       db.PlanID,
		},
		Status:     status,
		CheckoutID: db.CheckoutID.String,
		CreatedAt:  db.CreatedAt.In(time.Local),
		ExpiresAt:  db.ExpiresAt.In(time.Local),
	}

	if db.TenantID.Valid {
		id := db.TenantID.UUID
		bus.TenantID = &id
	}

	if db.CompletedAt.Valid {
		t := db.CompletedAt.Time.In(time.Local)
		bus.CompletedAt = &t
	}

	return bus, nil
}

func toBusReservations(dbs []reservationDB) ([]reservationbus.Reservation, error) {
	bus := make([]reservationbus.Reservation, len(dbs))

	for i, db := range dbs {
		var err error
		bus[i], err = toBusReservation(db)
		if err != nil {
			return nil, err
		}
	}

	return bus, nil
}
