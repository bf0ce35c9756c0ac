package passapp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jcpaschoal/gymhub/app/sdk/errs"
	"github.com/jcpaschoal/gymhub/business/domain/passbus"
)

// Pass represents a member's pass.
type Pass struct {
	ID               string  `json:"id"`
	UserID           string  `json:"userId"`
	OfferingID       string  `json:"offeringId"`
	Status           string  `json:"status"`
	SerialNumber     string  `json:"serialNumber"`
	Name             string  `json:"name"`
	Description      string  `json:"description"`
	PriceCents       int64   `json:"priceCents"`
	Currency         string  `json:"currency"`
	ValidFrom        string  `json:"validFrom"`
	ValidUntil       *string `json:"validUntil"`
	TotalEntries     *int    `json:"totalEntries"`
	RemainingEntries *int    `json:"remainingEntries"`
	DateCreated      string  `json:"dateCreated"`
	DateUpdated      string  `json:"dateUpdated"`
}

// Encode implements the web.Encoder interface.
func (app Pass) Encode() ([]byte, string, error) {
	data, err := json.Marshal(app)
	return data, "application/json", err
}

func toAppPass(bus passbus.Pass) Pass {
	app := Pass{
		ID:               bus.ID.String(),
		UserID:           bus.UserID.String(),
		OfferingID:       bus.OfferingID.String(),
		Status:           bus.Status.String(),
		SerialNumber:     bus.SerialNumber,
		Name:             bus.Name,
		Description:      bus.Description,
		PriceCents:       bus.PriceCents,
		Currency:         bus.Currency,
		ValidFrom:        bus.ValidFrom.Format(time.RFC3339),
		TotalEntries:     bus.TotalEntries,
		RemainingEntries: bus.RemainingEntries,
		DateCreated:      bus.CreatedAt.Format(time.RFC3339),
		DateUpdated:      bus.UpdatedAt.Format(time.RFC3339),
	}

	if bus.ValidUntil != nil {
		s := bus.ValidUntil.Format(time.RFC3339)
		app.ValidUntil = &s
	}

	return app
}

func toAppPasses(ps []passbus.Pass) []Pass {
	app := make([]Pass, len(ps))
	for i, p := range ps {
		app[i] = toAppPass(p)
	}
	return app
}

// Passes is a list of passes.
type Passes []Pass

// Encode implements the web.Encoder interface.
func (app Passes) Encode() ([]byte, string, error) {
	data, err := json.Marshal(app)
	return data, "application/json", err
}

// Purchased is returned on purchase. The token is only shown here.
type Purchased struct {
	Pass  Pass   `json:"pass"`
	Token string `json:"token"`
}

// Encode implements the web.Encoder interface.
func (app Purchased) Encode() ([]byte, string, error) {
	data, err := json.Marshal(app)
	return data, "application/json", err
}

// =============================================================================

// Validation is the answer given at the door.
type Validation struct {
	Valid        bool   `json:"valid"`
	Outcome      string `json:"outcome"`
	AutoConsumed bool   `json:"autoConsumed"`
	Pass         *Pass  `json:"pass,omitempty"`
}

// Encode implements the web.Encoder interface.
func (app Validation) Encode() ([]byte, string, error) {
	data, err := json.Marshal(app)
	return data, "application/json", err
}

func toAppValidation(bus passbus.Validation) Validation {
	app := Validation{
		Valid:        bus.Valid(),
		Outcome:      bus.Outcome.String(),
		AutoConsumed: bus.AutoConsumed,
	}

	if bus.Pass != nil {
		p := toAppPass(*bus.Pass)
		app.Pass = &p
	}

	return app
}

// =============================================================================

// Usage is one entry of a pass's audit trail.
type Usage struct {
	ID          string `json:"id"`
	PassID      string `json:"passId"`
	Action      string `json:"action"`
	Entries     int    `json:"entries"`
	StaffID     string `json:"staffId,omitempty"`
	DateCreated string `json:"dateCreated"`
}

func toAppUsage(bus passbus.UsageLog) Usage {
	app := Usage{
		ID:          bus.ID.String(),
		PassID:      bus.PassID.String(),
		Action:      bus.Action.String(),
		Entries:     bus.Entries,
		DateCreated: bus.CreatedAt.Format(time.RFC3339),
	}

	if bus.StaffID != nil {
		app.StaffID = bus.StaffID.String()
	}

	return app
}

func toAppUsages(logs []passbus.UsageLog) []Usage {
	app := make([]Usage, len(logs))
	for i, l := range logs {
		app[i] = toAppUsage(l)
	}
	return app
}

// Usages is a list of usage entries.
type Usages []Usage

// Encode implements the web.Encoder interface.
func (app Usages) Encode() ([]byte, string, error) {
	data, err := json.Marshal(app)
	return data, "application/json", err
}

// =============================================================================

// NewPass defines the data needed to sell a pass.
type NewPass struct {
	UserID     string `json:"userId" validate:"required,uuid"`
	OfferingID string `json:"offeringId" validate:"required,uuid"`
}

// Decode implements the web.Decoder interface.
func (app *NewPass) Decode(data []byte) error {
	return json.Unmarshal(data, app)
}

// Validate checks the data in the model is considered clean.
func (app NewPass) Validate() error {
	if err := errs.Check(app); err != nil {
		return errs.New(errs.InvalidArgument, fmt.Errorf("validate: %w", err))
	}
	return nil
}

func toBusNewPass(app NewPass) (uuid.UUID, uuid.UUID, error) {
	userID, err := uuid.Parse(app.UserID)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("parse userId: %w", err)
	}

	offeringID, err := uuid.Parse(app.OfferingID)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("parse offeringId: %w", err)
	}

	return userID, offeringID, nil
}

// Scan carries a scanned token or serial number.
type Scan struct {
	Token       string `json:"token" validate:"required"`
	AutoConsume bool   `json:"autoConsume"`
}

// Decode implements the web.Decoder interface.
func (app *Scan) Decode(data []byte) error {
	return json.Unmarshal(data, app)
}

// Validate checks the data in the model is considered clean.
func (app Scan) Validate() error {
	if err := errs.Check(app); err != nil {
		return errs.New(errs.InvalidArgument, fmt.Errorf("validate: %w", err))
	}
	return nil
}

// Consume uses up entries of the pass behind the token.
type Consume struct {
	Token string `json:"token" validate:"required"`
	Count int    `json:"count" validate:"required,min=1"`
}

// Decode implements the web.Decoder interface.
func (app *Consume) Decode(data []byte) error {
	return json.Unmarshal(data, app)
}

// Validate checks the data in the model is considered clean.
func (app Consume) Validate() error {
	if err := errs.Check(app); err != nil {
		return errs.New(errs.InvalidArgument, fmt.Errorf("validate: %w", err))
	}
	return nil
}

// DeactivateToken retires a token.
type DeactivateToken struct {
	Token string `json:"token" validate:"required"`
}

// Decode implements the web.Decoder interface.
func (app *DeactivateToken) Decode(data []byte) error {
	return json.Unmarshal(data, app)
}

// Validate checks the data in the model is considered clean.
func (app DeactivateToken) Validate() error {
	if err := errs.Check(app); err != nil {
		return errs.New(errs.InvalidArgument, fmt.Errorf("validate: %w", err))
	}
	return nil
}
