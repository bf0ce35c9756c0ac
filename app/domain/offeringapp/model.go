package offeringapp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jcpaschoal/gymhub/app/sdk/errs"
	"github.com/jcpaschoal/gymhub/business/domain/offeringbus"
	"github.com/jcpaschoal/gymhub/business/types/durationunit"
)

// Duration is a validity period in calendar units.
type Duration struct {
	Value int    `json:"value" validate:"min=1"`
	Unit  string `json:"unit" validate:"required"`
}

// Offering represents a pass that can be sold.
type Offering struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	PriceCents   int64     `json:"priceCents"`
	Currency     string    `json:"currency"`
	Duration     *Duration `json:"duration,omitempty"`
	VisitsCount  *int      `json:"visitsCount,omitempty"`
	NeverExpires bool      `json:"neverExpires"`
	ExpiresAfter *Duration `json:"expiresAfter,omitempty"`
	Active       bool      `json:"active"`
	LegacyCode   string    `json:"legacyCode,omitempty"`
	DateCreated  string    `json:"dateCreated,omitempty"`
}

// Encode implements the web.Encoder interface.
func (app Offering) Encode() ([]byte, string, error) {
	data, err := json.Marshal(app)
	return data, "application/json", err
}

func toAppOffering(bus offeringbus.Offering) Offering {
	app := Offering{
		ID:           bus.ID.String(),
		Name:         bus.Name,
		Description:  bus.Description,
		PriceCents:   bus.PriceCents,
		Currency:     bus.Currency,
		VisitsCount:  bus.VisitsCount,
		NeverExpires: bus.Expiry.NeverExpires,
		Active:       bus.Active,
		LegacyCode:   bus.LegacyCode,
	}

	if bus.Duration != nil {
		app.Duration = &Duration{Value: bus.Duration.Value, Unit: bus.Duration.Unit.String()}
	}

	if bus.Expiry.AfterValue > 0 {
		app.ExpiresAfter = &Duration{Value: bus.Expiry.AfterValue, Unit: bus.Expiry.AfterUnit.String()}
	}

	if !bus.CreatedAt.IsZero() {
		app.DateCreated = bus.CreatedAt.Format(time.RFC3339)
	}

	return app
}

// Offerings is a collection wrapper that implements the Encoder interface.
type Offerings []Offering

// Encode implements the web.Encoder interface.
func (app Offerings) Encode() ([]byte, string, error) {
	data, err := json.Marshal(app)
	return data, "application/json", err
}

func toAppOfferings(os []offeringbus.Offering) []Offering {
	app := make([]Offering, len(os))
	for i, o := range os {
		app[i] = toAppOffering(o)
	}
	return app
}

// Migrated reports how many legacy pass types were copied.
type Migrated struct {
	Migrated int `json:"migrated"`
}

// Encode implements the web.Encoder interface.
func (app Migrated) Encode() ([]byte, string, error) {
	data, err := json.Marshal(app)
	return data, "application/json", err
}

// =============================================================================

// NewOffering defines the data needed to add a pass to the catalog.
type NewOffering struct {
	Name         string    `json:"name" validate:"required"`
	Description  string    `json:"description"`
	PriceCents   int64     `json:"priceCents" validate:"min=0"`
	Currency     string    `json:"currency" validate:"required,len=3"`
	Duration     *Duration `json:"duration" validate:"omitempty"`
	VisitsCount  *int      `json:"visitsCount" validate:"omitempty,min=1"`
	NeverExpires bool      `json:"neverExpires"`
	ExpiresAfter *Duration `json:"expiresAfter" validate:"omitempty"`
}

// Decode implements the web.Decoder interface.
func (app *NewOffering) Decode(data []byte) error {
	return json.Unmarshal(data, app)
}

// Validate checks the data in the model is considered clean.
func (app NewOffering) Validate() error {
	if err := errs.Check(app); err != nil {
		return errs.New(errs.InvalidArgument, fmt.Errorf("validate: %w", err))
	}
	return nil
}

func toBusNewOffering(app NewOffering) (offeringbus.NewOffering, error) {
	var fieldErrors errs.FieldErrors

	bus := offeringbus.NewOffering{
		Name:        app.Name,
		Description: app.Description,
		PriceCents:  app.PriceCents,
		Currency:    app.Currency,
		VisitsCount: app.VisitsCount,
		Expiry:      offeringbus.Expiry{NeverExpires: app.NeverExpires},
	}

	if app.Duration != nil {
		unit, err := durationunit.Parse(app.Duration.Unit)
		if err != nil {
			fieldErrors.Add("duration.unit", err)
		}
		bus.Duration = &offeringbus.Duration{Value: app.Duration.Value, Unit: unit}
	}

	if app.ExpiresAfter != nil {
		unit, err := durationunit.Parse(app.ExpiresAfter.Unit)
		if err != nil {
			fieldErrors.Add("expiresAfter.unit", err)
		}
		bus.Expiry.AfterValue = app.ExpiresAfter.Value
		bus.Expiry.AfterUnit = unit
	}

	if fieldErrors != nil {
		return offeringbus.NewOffering{}, fieldErrors
	}

	return bus, nil
}
