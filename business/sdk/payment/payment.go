// Package payment defines the boundary with the external payment provider
// that sells gym subscriptions.
package payment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidSignature is returned when a webhook payload fails verification.
var ErrInvalidSignature = errors.New("invalid event signature")

// EventKind identifies the events the platform acts on.
type EventKind int

// Set of event kinds.
const (
	EventIgnored EventKind = iota
	EventCheckoutCompleted
	EventSubscriptionChanged
)

func (k EventKind) String() string {
	switch k {
	case EventCheckoutCompleted:
		return "checkout.completed"
	case EventSubscriptionChanged:
		return "subscription.changed"
	}
	return "ignored"
}

// CheckoutRequest describes a subscription checkout for a reservation.
type CheckoutRequest struct {
	ReservationID uuid.UUID
	Slug          string
	Email         string
	PlanID        string
	SuccessURL    string
	CancelURL     string
}

// Checkout is a session created at the provider.
type Checkout struct {
	ID  string
	URL string
}

// Event is a verified provider event reduced to the fields the platform
// needs. ReservationID is empty when the provider lost the metadata.
type Event struct {
	ID                 string
	Kind               EventKind
	CheckoutID         string
	ReservationID      uuid.UUID
	CustomerID         string
	SubscriptionID     string
	SubscriptionStatus string
	PlanID             string
	PeriodEnd          *time.Time
}

// Provider is the behavior required from a payment provider.
type Provider interface {
	Name() string
	CreateCheckout(ctx context.Context, req CheckoutRequest) (Checkout, error)
	ParseEvent(payload []byte, signature string) (Event, error)
}
