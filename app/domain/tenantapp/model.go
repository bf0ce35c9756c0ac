package tenantapp

import (
	"encoding/json"
	"fmt"
	"net/mail"
	"time"

	"github.com/jcpaschoal/gymhub/app/sdk/errs"
	"github.com/jcpaschoal/gymhub/business/domain/tenantbus"
	"github.com/jcpaschoal/gymhub/business/types/name"
	"github.com/jcpaschoal/gymhub/business/types/phone"
)

// Tenant represents a gym as seen by a platform administrator. The staff
// access secret is never exposed.
type Tenant struct {
	ID                 string  `json:"id"`
	Slug               string  `json:"slug"`
	Name               string  `json:"name"`
	Status             string  `json:"status"`
	ContactName        string  `json:"contactName"`
	Email              string  `json:"email"`
	Phone              string  `json:"phone,omitempty"`
	Address            string  `json:"address,omitempty"`
	City               string  `json:"city,omitempty"`
	OpeningHours       string  `json:"openingHours,omitempty"`
	SubscriptionID     string  `json:"subscriptionId,omitempty"`
	SubscriptionStatus string  `json:"subscriptionStatus,omitempty"`
	PlanID             string  `json:"planId,omitempty"`
	PeriodEnd          *string `json:"periodEnd,omitempty"`
	DateCreated        string  `json:"dateCreated"`
	DateUpdated        string  `json:"dateUpdated"`
	DateDeleted        *string `json:"dateDeleted,omitempty"`
}

// Encode implements the web.Encoder interface.
func (app Tenant) Encode() ([]byte, string, error) {
	data, err := json.Marshal(app)
	return data, "application/json", err
}

func toAppTenant(bus tenantbus.Tenant) Tenant {
	app := Tenant{
		ID:                 bus.ID.String(),
		Slug:               bus.Slug.String(),
		Name:               bus.Name.String(),
		Status:             bus.Status.String(),
		ContactName:        bus.Business.ContactName,
		Email:              bus.Business.Email.Address,
		Phone:              bus.Business.Phone.String(),
		Address:            bus.Business.Address,
		City:               bus.Business.City,
		OpeningHours:       bus.OpeningHours,
		SubscriptionID:     bus.Subscription.SubscriptionID,
		SubscriptionStatus: bus.Subscription.Status,
		PlanID:             bus.Subscription.PlanID,
		DateCreated:        bus.CreatedAt.Format(time.RFC3339),
		DateUpdated:        bus.UpdatedAt.Format(time.RFC3339),
	}

	if bus.Subscription.PeriodEnd != nil {
		s := bus.Subscription.PeriodEnd.Format(time.RFC3339)
		app.PeriodEnd = &s
	}

	if bus.DeletedAt != nil {
		s := bus.DeletedAt.Format(time.RFC3339)
		app.DateDeleted = &s
	}

	return app
}

// Tenants is a collection wrapper that implements the Encoder interface.
type Tenants []Tenant

// Encode implements the web.Encoder interface.
func (app Tenants) Encode() ([]byte, string, error) {
	data, err := json.Marshal(app)
	return data, "application/json", err
}

func toAppTenants(ts []tenantbus.Tenant) []Tenant {
	app := make([]Tenant, len(ts))
	for i, t := range ts {
		app[i] = toAppTenant(t)
	}

	return app
}

// =============================================================================

// UpdateBusiness defines the data needed to update a gym's business details.
type UpdateBusiness struct {
	Name         *string `json:"name"`
	ContactName  *string `json:"contactName"`
	Email        *string `json:"email" validate:"omitempty,email"`
	Phone        *string `json:"phone"`
	Address      *string `json:"address"`
	City         *string `json:"city"`
	OpeningHours *string `json:"openingHours"`
}

// Decode implements the web.Decoder interface.
func (app *UpdateBusiness) Decode(data []byte) error {
	return json.Unmarshal(data, app)
}

// Validate checks the data in the model is considered clean.
func (app UpdateBusiness) Validate() error {
	if err := errs.Check(app); err != nil {
		return errs.New(errs.InvalidArgument, fmt.Errorf("validate: %w", err))
	}
	return nil
}

func toBusUpdateBusiness(app UpdateBusiness) (tenantbus.UpdateBusiness, error) {
	var fieldErrors errs.FieldErrors

	var nme *name.Name
	if app.Name != nil {
		nm, err := name.Parse(*app.Name)
		if err != nil {
			fieldErrors.Add("name", err)
		}
		nme = &nm
	}

	var addr *mail.Address
	if app.Email != nil {
		a, err := mail.ParseAddress(*app.Email)
		if err != nil {
			fieldErrors.Add("email", err)
		}
		addr = a
	}

	var ph *phone.Null
	if app.Phone != nil {
		p, err := phone.ParseNull(*app.Phone)
		if err != nil {
			fieldErrors.Add("phone", err)
		}
		ph = &p
	}

	if fieldErrors != nil {
		return tenantbus.UpdateBusiness{}, fieldErrors
	}

	ub := tenantbus.UpdateBusiness{
		Name:         nme,
		ContactName:  app.ContactName,
		Email:        addr,
		Phone:        ph,
		Address:      app.Address,
		City:         app.City,
		OpeningHours: app.OpeningHours,
	}

	return ub, nil
}
