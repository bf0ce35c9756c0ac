// Package devpay implements a payment provider for local development. It
// never talks to a real provider: checkouts point at the simulate endpoint
// and events are accepted unsigned.
package devpay

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/jcpaschoal/gymhub/business/sdk/payment"
)

// Provider is the development payment provider.
type Provider struct {
	baseURL string
	failing atomic.Bool
}

// New constructs a development provider. Checkout URLs are built on baseURL.
func New(baseURL string) *Provider {
	return &Provider{
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "dev"
}

// SetFailing makes every following checkout creation fail until reset.
func (p *Provider) SetFailing(fail bool) {
	p.failing.Store(fail)
}

// CreateCheckout returns a fake session whose URL fires the simulation.
func (p *Provider) CreateCheckout(ctx context.Context, req payment.CheckoutRequest) (payment.Checkout, error) {
	if p.failing.Load() {
		return payment.Checkout{}, fmt.Errorf("dev: checkout unavailable")
	}

	return payment.Checkout{
		ID:  CheckoutID(req.ReservationID),
		URL: fmt.Sprintf("%s/v1/registrations/%s/simulate", p.baseURL, req.ReservationID),
	}, nil
}

// ParseEvent decodes an unsigned JSON event.
func (p *Provider) ParseEvent(payload []byte, signature string) (payment.Event, error) {
	var e payment.Event
	if err := json.Unmarshal(payload, &e); err != nil {
		return payment.Event{}, fmt.Errorf("%w: %w", payment.ErrInvalidSignature, err)
	}

	return e, nil
}

// CheckoutID is the session id handed out for a reservation.
func CheckoutID(reservationID uuid.UUID) string {
	return "cs_dev_" + reservationID.String()
}

// Completed builds the event the provider would send once the checkout of
// the reservation is paid.
func Completed(reservationID uuid.UUID) payment.Event {
	return payment.Event{
		ID:                 "evt_dev_" + uuid.NewString(),
		Kind:               payment.EventCheckoutCompleted,
		CheckoutID:         CheckoutID(reservationID),
		ReservationID:      reservationID,
		CustomerID:         "cus_dev_" + reservationID.String()[:8],
		SubscriptionID:     "sub_dev_" + reservationID.String(),
		SubscriptionStatus: "active",
	}
}
