// Package stripepay implements the payment provider on Stripe Checkout.
package stripepay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jcpaschoal/gymhub/business/sdk/payment"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"
)

const metaReservation = "reservation_id"

// Config holds the Stripe credentials.
type Config struct {
	SecretKey     string
	WebhookSecret string
}

// Provider creates Stripe checkout sessions and verifies Stripe webhooks.
type Provider struct {
	sessions      session.Client
	webhookSecret string
}

// New constructs a Stripe backed provider.
func New(cfg Config) *Provider {
	return &Provider{
		sessions: session.Client{
			B:   stripe.GetBackend(stripe.APIBackend),
			Key: cfg.SecretKey,
		},
		webhookSecret: cfg.WebhookSecret,
	}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "stripe"
}

// CreateCheckout creates a subscription checkout session carrying the
// reservation id as client reference and metadata.
func (p *Provider) CreateCheckout(ctx context.Context, req payment.CheckoutRequest) (payment.Checkout, error) {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(req.PlanID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		CustomerEmail:     stripe.String(req.Email),
		ClientReferenceID: stripe.String(req.ReservationID.String()),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{
				metaReservation: req.ReservationID.String(),
				"slug":          req.Slug,
			},
		},
	}
	params.Context = ctx
	params.AddMetadata(metaReservation, req.ReservationID.String())
	params.AddMetadata("slug", req.Slug)

	s, err := p.sessions.New(params)
	if err != nil {
		return payment.Checkout{}, fmt.Errorf("stripe: create session: %w", err)
	}

	return payment.Checkout{ID: s.ID, URL: s.URL}, nil
}

// ParseEvent verifies the Stripe-Signature header and decodes the events
// the platform acts on. Other event types come back as EventIgnored.
func (p *Provider) ParseEvent(payload []byte, signature string) (payment.Event, error) {
	evt, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return payment.Event{}, fmt.Errorf("%w: %w", payment.ErrInvalidSignature, err)
	}

	switch evt.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var s stripe.CheckoutSession
		if err := json.Unmarshal(evt.Data.Raw, &s); err != nil {
			return payment.Event{}, fmt.Errorf("decode session: %w", err)
		}
		return fromSession(evt.ID, s), nil

	case stripe.EventTypeCustomerSubscriptionUpdated, stripe.EventTypeCustomerSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(evt.Data.Raw, &sub); err != nil {
			return payment.Event{}, fmt.Errorf("decode subscription: %w", err)
		}
		return fromSubscription(evt.ID, sub), nil
	}

	return payment.Event{ID: evt.ID, Kind: payment.EventIgnored}, nil
}

// =============================================================================

func fromSession(eventID string, s stripe.CheckoutSession) payment.Event {
	e := payment.Event{
		ID:         eventID,
		Kind:       payment.EventCheckoutCompleted,
		CheckoutID: s.ID,
	}

	ref := s.Metadata[metaReservation]
	if ref == "" {
		ref = s.ClientReferenceID
	}
	if id, err := uuid.Parse(ref); err == nil {
		e.ReservationID = id
	}

	if s.Customer != nil {
		e.CustomerID = s.Customer.ID
	}

	if s.Subscription != nil {
		e.SubscriptionID = s.Subscription.ID
		e.SubscriptionStatus = string(s.Subscription.Status)
	}

	return e
}

func fromSubscription(eventID string, sub stripe.Subscription) payment.Event {
	e := payment.Event{
		ID:                 eventID,
		Kind:               payment.EventSubscriptionChanged,
		SubscriptionID:     sub.ID,
		SubscriptionStatus: string(sub.Status),
	}

	if sub.Customer != nil {
		e.CustomerID = sub.Customer.ID
	}

	if sub.Items != nil && len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]
		if item.Price != nil {
			e.PlanID = item.Price.ID
		}
		if item.CurrentPeriodEnd > 0 {
			t := time.Unix(item.CurrentPeriodEnd, 0)
			e.PeriodEnd = &t
		}
	}

	return e
}
