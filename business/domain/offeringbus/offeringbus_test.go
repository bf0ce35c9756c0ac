package offeringbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/jcpaschoal/gymhub/business/domain/offeringbus"
	"github.com/jcpaschoal/gymhub/business/domain/offeringbus/stores/legacydb"
	"github.com/jcpaschoal/gymhub/business/domain/offeringbus/stores/offeringdb"
	"github.com/jcpaschoal/gymhub/business/sdk/dbtest"
	"github.com/jcpaschoal/gymhub/business/types/durationunit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Validity(t *testing.T) {
	from := time.Date(2026, 1, 31, 9, 0, 0, 0, time.UTC)
	five := 5

	tt := []struct {
		name     string
		offering offeringbus.Offering
		until    *time.Time
		entries  *int
	}{
		{
			name:     "never expires wins",
			offering: offeringbus.Offering{Duration: &offeringbus.Duration{Value: 1, Unit: durationunit.Month}, Expiry: offeringbus.Expiry{NeverExpires: true, AfterValue: 2, AfterUnit: durationunit.Week}},
		},
		{
			name:     "explicit expiry beats duration",
			offering: offeringbus.Offering{Duration: &offeringbus.Duration{Value: 1, Unit: durationunit.Year}, Expiry: offeringbus.Expiry{AfterValue: 2, AfterUnit: durationunit.Week}},
			until:    ptr(from.AddDate(0, 0, 14)),
		},
		{
			name:     "duration fallback",
			offering: offeringbus.Offering{Duration: &offeringbus.Duration{Value: 30, Unit: durationunit.Day}},
			until:    ptr(from.AddDate(0, 0, 30)),
		},
		{
			name:     "visits only",
			offering: offeringbus.Offering{VisitsCount: &five},
			entries:  &five,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			until, entries := tc.offering.Validity(from)
			assert.Equal(t, tc.until, until)
			assert.Equal(t, tc.entries, entries)
		})
	}
}

func newCore(t *testing.T) (*offeringbus.Core, func(q string)) {
	db := dbtest.New(t)
	tdb := db.NewTenant(t, "iron-temple")

	core := offeringbus.NewCore(db.Log, offeringdb.NewStore(db.Log, tdb), legacydb.NewStore(db.Log, tdb))

	exec := func(q string) {
		_, err := tdb.Exec(q)
		require.NoError(t, err)
	}

	return core, exec
}

func Test_LegacyFallbackAndMigration(t *testing.T) {
	core, exec := newCore(t)
	ctx := context.Background()

	exec(`INSERT INTO pass_types (code, name, duration_days, entries, price_cents, currency, active) VALUES ('MONTH', 'Month', 30, NULL, 4000, 'EUR', 1)`)
	exec(`INSERT INTO pass_types (code, name, duration_days, entries, price_cents, currency, active) VALUES ('TEN', 'Ten Visits', NULL, 10, 9000, 'EUR', 1)`)

	o, err := core.QueryByID(ctx, offeringbus.LegacyID("MONTH"))
	require.NoError(t, err)
	assert.Equal(t, "Month", o.Name)
	require.NotNil(t, o.Duration)
	assert.Equal(t, 30, o.Duration.Value)
	assert.Equal(t, durationunit.Day, o.Duration.Unit)

	n, err := core.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	migrated, err := core.MigrateLegacy(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, migrated)

	migrated, err = core.MigrateLegacy(ctx)
	require.NoError(t, err)
	assert.Zero(t, migrated)

	all, err := core.Query(ctx, true)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Month", all[0].Name)
	assert.Equal(t, "TEN", all[1].LegacyCode)
	require.NotNil(t, all[1].VisitsCount)
	assert.Equal(t, 10, *all[1].VisitsCount)

	seeded, err := core.SeedDefaults(ctx)
	require.NoError(t, err)
	assert.Zero(t, seeded)
}

func Test_SeedDefaultsOnEmptyTenant(t *testing.T) {
	core, _ := newCore(t)
	ctx := context.Background()

	seeded, err := core.SeedDefaults(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(offeringbus.DefaultCatalog()), seeded)

	seeded, err = core.SeedDefaults(ctx)
	require.NoError(t, err)
	assert.Zero(t, seeded)
}

func Test_CreateRejectsInvalid(t *testing.T) {
	core, _ := newCore(t)
	zero := 0

	_, err := core.Create(context.Background(), offeringbus.NewOffering{Name: "Broken", VisitsCount: &zero})
	assert.ErrorIs(t, err, offeringbus.ErrInvalidOffering)

	_, err = core.Create(context.Background(), offeringbus.NewOffering{
		Name:     "No Expiry Unit",
		Currency: "EUR",
		Expiry:   offeringbus.Expiry{AfterValue: 30},
	})
	assert.ErrorIs(t, err, offeringbus.ErrInvalidOffering)

	_, err = core.Create(context.Background(), offeringbus.NewOffering{
		Name:     "No Duration Unit",
		Currency: "EUR",
		Duration: &offeringbus.Duration{Value: 1},
	})
	assert.ErrorIs(t, err, offeringbus.ErrInvalidOffering)
}

func ptr(t time.Time) *time.Time {
	return &t
}
