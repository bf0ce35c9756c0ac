package offeringapp

import (
	"testing"

	"github.com/jcpaschoal/gymhub/app/sdk/errs"
	"github.com/jcpaschoal/gymhub/business/types/durationunit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ToBusNewOffering(t *testing.T) {
	visits := 10

	app := NewOffering{
		Name:         "Ten visits",
		PriceCents:   9000,
		Currency:     "EUR",
		Duration:     &Duration{Value: 3, Unit: "month"},
		VisitsCount:  &visits,
		ExpiresAfter: &Duration{Value: 1, Unit: "YEAR"},
	}

	bus, err := toBusNewOffering(app)
	require.NoError(t, err)

	require.NotNil(t, bus.Duration)
	assert.Equal(t, durationunit.Month, bus.Duration.Unit)
	assert.Equal(t, 1, bus.Expiry.AfterValue)
	assert.Equal(t, durationunit.Year, bus.Expiry.AfterUnit)
	assert.Equal(t, 10, *bus.VisitsCount)
}

func Test_ToBusNewOfferingBadUnit(t *testing.T) {
	app := NewOffering{
		Name:     "Broken",
		Currency: "EUR",
		Duration: &Duration{Value: 3, Unit: "fortnight"},
	}

	_, err := toBusNewOffering(app)
	require.Error(t, err)

	fields := errs.GetFieldErrors(err).Fields()
	assert.Contains(t, fields, "duration.unit")
}

func Test_NewOfferingValidate(t *testing.T) {
	app := NewOffering{Name: "Day pass", Currency: "EURO"}
	assert.Error(t, app.Validate())

	app.Currency = "EUR"
	assert.NoError(t, app.Validate())
}
