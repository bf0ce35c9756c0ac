package stripepay

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jcpaschoal/gymhub/business/sdk/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"
)

const secret = "whsec_test"

func sign(payload string) string {
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    secret,
		Timestamp: time.Now(),
	})
	return signed.Header
}

func Test_ParseCheckoutCompleted(t *testing.T) {
	p := New(Config{WebhookSecret: secret})
	resID := uuid.New()

	payload := `{
		"id": "evt_1", "object": "event", "type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_test_1", "object": "checkout.session",
			"client_reference_id": "` + resID.String() + `",
			"customer": "cus_1", "subscription": "sub_1"
		}}
	}`

	e, err := p.ParseEvent([]byte(payload), sign(payload))
	require.NoError(t, err)
	assert.Equal(t, payment.EventCheckoutCompleted, e.Kind)
	assert.Equal(t, "cs_test_1", e.CheckoutID)
	assert.Equal(t, resID, e.ReservationID)
	assert.Equal(t, "cus_1", e.CustomerID)
	assert.Equal(t, "sub_1", e.SubscriptionID)
}

func Test_ParseSubscriptionUpdated(t *testing.T) {
	p := New(Config{WebhookSecret: secret})

	payload := `{
		"id": "evt_2", "object": "event", "type": "customer.subscription.updated",
		"data": {"object": {
			"id": "sub_1", "object": "subscription", "status": "past_due", "customer": "cus_1",
			"items": {"object": "list", "data": [{"id": "si_1", "current_period_end": 1790000000, "price": {"id": "price_pro"}}]}
		}}
	}`

	e, err := p.ParseEvent([]byte(payload), sign(payload))
	require.NoError(t, err)
	assert.Equal(t, payment.EventSubscriptionChanged, e.Kind)
	assert.Equal(t, "past_due", e.SubscriptionStatus)
	assert.Equal(t, "price_pro", e.PlanID)
	require.NotNil(t, e.PeriodEnd)
	assert.Equal(t, int64(1790000000), e.PeriodEnd.Unix())
}

func Test_ParseRejectsBadSignature(t *testing.T) {
	p := New(Config{WebhookSecret: secret})

	_, err := p.ParseEvent([]byte(`{"id":"evt_3","object":"event","type":"checkout.session.completed"}`), "t=1,v1=deadbeef")
	assert.ErrorIs(t, err, payment.ErrInvalidSignature)
}

func Test_ParseIgnoresOtherEvents(t *testing.T) {
	p := New(Config{WebhookSecret: secret})

	payload := `{"id": "evt_4", "object": "event", "type": "invoice.paid", "data": {"object": {"id": "in_1"}}}`

	e, err := p.ParseEvent([]byte(payload), sign(payload))
	require.NoError(t, err)
	assert.Equal(t, payment.EventIgnored, e.Kind)
}
