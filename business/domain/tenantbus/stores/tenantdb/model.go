package tenantdb

import (
	"database/sql"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/jcpaschoal/gymhub/business/domain/tenantbus"
	"github.com/jcpaschoal/gymhub/business/types/name"
	"github.com/jcpaschoal/gymhub/business/types/phone"
	"github.com/jcpaschoal/gymhub/business/types/slug"
	"github.com/jcpaschoal/gymhub/business/types/tenantstatus"
)

type gymDB struct {
	ID                uuid.UUID      `db:"gym_id"`
	Slug              string         `db:"slug"`
	Name              string         `db:"name"`
	Status            string         `db:"status"`
	SubCustomerID     sql.NullString `db:"sub_customer_id"`
	SubSubscriptionID sql.NullString `db:"sub_subscription_id"`
	SubStatus         sql.NullString `db:"sub_status"`
	SubPlanID         sql.NullString `db:"sub_plan_id"`
	SubPeriodEnd      sql.NullTime   `db:"sub_period_end"`
	ContactName       sql.NullString `db:"contact_name"`
	Email             sql.NullString `db:"email"`
	Phone             sql.NullString `db:"phone"`
	Address           sql.NullString `db:"address"`
	City              sql.NullString `db:"city"`
	StaffAccessSecret string         `db:"staff_access_secret"`
	OpeningHours      sql.NullString `db:"opening_hours"`
	CreatedAt         time.Time      `db:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at"`
	DeletedAt         sql.NullTime   `db:"deleted_at"`
}

func toDBGym(bus tenantbus.Tenant) gymDB {
	return gymDB{
		ID:                bus.ID,
		Slug:              bus.Slug.String(),
		Name:              bus.Name.String(),
		Status:            bus.Status.String(),
		SubCustomerID:     nullString(bus.Subscription.CustomerID),
		SubSubscriptionID: nullString(bus.Subscription.SubscriptionID),
		SubStatus:         nullString(bus.Subscription.Status),
		SubPlanID:         nullString(bus.Subscription.PlanID),
		SubPeriodEnd:      nullTime(bus.Subscription.PeriodEnd),
		ContactName:       nullString(bus.Business.ContactName),
		Email:             nullString(bus.Business.Email.Address),
		Phone:             phone.ToSQLNullString(bus.Business.Phone),
		Address:           nullString(bus.Business.Address),
		City:              nullString(bus.Business.City),
		StaffAccessSecret: bus.StaffAccessSecret,
		OpeningHours:      nullString(bus.OpeningHours),
		CreatedAt:         bus.CreatedAt.UTC(),
		UpdatedAt:         bus.UpdatedAt.UTC(),
		DeletedAt:         nullTime(bus.DeletedAt),
	}
}

func toBusGym(db gymDB) (tenantbus.Tenant, error) {
	slg, err := slug.Parse(db.Slug)
	if err != nil {
		return tenantbus.Tenant{}, fmt.Errorf("parse slug: %w", err)
	}

	nme, err := name.Parse(db.Name)
	if err != nil {
		return tenantbus.Tenant{}, fmt.Errorf("parse name: %w", err)
	}

	status, err := tenantstatus.Parse(db.Status)
	if err != nil {
		return tenantbus.Tenant{}, fmt.Errorf("parse status: %w", err)
	}

	phn, err := phone.ParseNull(db.Phone.String)
	if err != nil {
		return tenantbus.Tenant{}, fmt.Errorf("parse phone: %w", err)
	}

	bus := tenantbus.Tenant{
		ID:     db.ID,
		Slug:   slg,
		Name:   nme,
		Status: status,
		Subscription: tenantbus.Subscription{
			CustomerID:     db.SubCustomerID.String,
			SubscriptionID: db.SubSubscriptionID.String,
			Status:         db.SubStatus.String,
			PlanID:         db.SubPlanID.String,
			PeriodEnd:      localTime(db.SubPeriodEnd),
		},
		Business: tenantbus.Business{
			ContactName: db.ContactName.String,
			Email:       mail.Address{Address: db.Email.String},
			Phone:       phn,
			Address:     db.Address.String,
			City:        db.City.String,
		},
		StaffAccessSecret: db.StaffAccessSecret,
		OpeningHours:      db.OpeningHours.String,
		CreatedAt:         db.CreatedAt.In(time.Local),
		UpdatedAt:         db.UpdatedAt.In(time.Local),
		DeletedAt:         localTime(db.DeletedAt),
	}

	return bus, nil
}

func toBusGyms(dbs []gymDB) ([]tenantbus.Tenant, error) {
	bus := make([]tenantbus.Tenant, len(dbs))

	for i, db := range dbs {
		var err error
		bus[i], err = toBusGym(db)
		if err != nil {
			return nil, err
		}
	}

	return bus, nil
}

// =============================================================================

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func localTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.In(time.Local)
	return &t
}
