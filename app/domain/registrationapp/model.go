package registrationapp

import (
	"encoding/json"
	"fmt"
	"net/mail"
	"time"

	"github.com/jcpaschoal/gymhub/app/sdk/errs"
	"github.com/jcpaschoal/gymhub/business/domain/provisionbus"
	"github.com/jcpaschoal/gymhub/business/domain/reservationbus"
	"github.com/jcpaschoal/gymhub/business/types/name"
	"github.com/jcpaschoal/gymhub/business/types/phone"
	"github.com/jcpaschoal/gymhub/business/types/slug"
)

// NewRegistration is the form a gym owner submits.
type NewRegistration struct {
	Slug         string `json:"slug" validate:"required"`
	BusinessName string `json:"businessName" validate:"required"`
	ContactName  string `json:"contactName" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone"`
	PlanID       string `json:"planId" validate:"required"`
}

// Decode implements the web.Decoder interface.
func (app *NewRegistration) Decode(data []byte) error {
	return json.Unmarshal(data, app)
}

// Validate checks the data in the model is considered clean.
func (app NewRegistration) Validate() error {
	if err := errs.Check(app); err != nil {
		return errs.New(errs.InvalidArgument, fmt.Errorf("validate: %w", err))
	}
	return nil
}

func toBusNewRegistration(app NewRegistration) (provisionbus.NewRegistration, error) {
	var fieldErrors errs.FieldErrors

	slg, err := slug.Parse(app.Slug)
	if err != nil {
		fieldErrors.Add("slug", err)
	}

	bn, err := name.Parse(app.BusinessName)
	if err != nil {
		fieldErrors.Add("businessName", err)
	}

	addr, err := mail.ParseAddress(app.Email)
	if err != nil {
		fieldErrors.Add("email", err)
	}

	ph, err := phone.ParseNull(app.Phone)
	if err != nil {
		fieldErrors.Add("phone", err)
	}

	if fieldErrors != nil {
		return provisionbus.NewRegistration{}, fieldErrors
	}

	nr := provisionbus.NewRegistration{
		Slug: slg,
		Applicant: reservationbus.Applicant{
			BusinessName: bn.String(),
			ContactName:  app.ContactName,
			Email:        *addr,
			Phone:        ph,
			PlanID:       app.PlanID,
		},
	}

	return nr, nil
}

// =============================================================================

// Registration is a reservation waiting for payment.
type Registration struct {
	ID          string `json:"id"`
	Slug        string `json:"slug"`
	Status      string `json:"status"`
	CheckoutURL string `json:"checkoutUrl,omitempty"`
	ExpiresAt   string `json:"expiresAt"`
	DateCreated string `json:"dateCreated"`
}

// Encode implements the web.Encoder interface.
func (app Registration) Encode() ([]byte, string, error) {
	data, err := json.Marshal(app)
	return data, "application/json", err
}

func toAppRegistration(bus reservationbus.Reservation, checkoutURL string) Registration {
	return Registration{
		ID:          bus.ID.String(),
		Slug:        bus.Slug.String(),
		Status:      bus.Status.String(),
		CheckoutURL: checkoutURL,
		ExpiresAt:   bus.ExpiresAt.Format(time.RFC3339),
		DateCreated: bus.CreatedAt.Format(time.RFC3339),
	}
}

// Received acknowledges a provider event.
type Received struct {
	Received           bool   `json:"received"`
	Tenant             string `json:"tenant,omitempty"`
	AlreadyProvisioned bool   `json:"alreadyProvisioned,omitempty"`
}

// Encode implements the web.Encoder interface.
func (app Received) Encode() ([]byte, string, error) {
	data, err := json.Marshal(app)
	return data, "application/json", err
}

// Provisioned shows the new gym and its initial admin login.
type Provisioned struct {
	TenantID      string `json:"tenantId"`
	Slug          string `json:"slug"`
	Status        string `json:"status"`
	AdminEmail    string `json:"adminEmail,omitempty"`
	AdminPassword string `json:"adminPassword,omitempty"`
}

// Encode implements the web.Encoder interface.
func (app Provisioned) Encode() ([]byte, string, error) {
	data, err := json.Marshal(app)
	return data, "application/json", err
}

func toAppProvisioned(bus provisionbus.Result) Provisioned {
	app := Provisioned{
		TenantID: bus.Tenant.ID.String(),
		Slug:     bus.Tenant.Slug.String(),
		Status:   bus.Tenant.Status.String(),
	}

	if bus.Credential != nil {
		app.AdminEmail = bus.Credential.Email.Address
		app.AdminPassword = bus.Credential.Password.String()
	}

	return app
}
