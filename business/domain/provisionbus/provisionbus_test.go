package provisionbus_test

import (
	"context"
	"errors"
	"net/mail"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jcpaschoal/gymhub/business/domain/offeringbus"
	"github.com/jcpaschoal/gymhub/business/domain/offeringbus/stores/legacydb"
	"github.com/jcpaschoal/gymhub/business/domain/offeringbus/stores/offeringdb"
	"github.com/jcpaschoal/gymhub/business/domain/provisionbus"
	"github.com/jcpaschoal/gymhub/business/domain/reservationbus"
	"github.com/jcpaschoal/gymhub/business/domain/reservationbus/stores/reservationdb"
	"github.com/jcpaschoal/gymhub/business/domain/staffbus"
	"github.com/jcpaschoal/gymhub/business/domain/staffbus/stores/staffdb"
	"github.com/jcpaschoal/gymhub/business/domain/tenantbus"
	"github.com/jcpaschoal/gymhub/business/domain/tenantbus/stores/tenantcache"
	"github.com/jcpaschoal/gymhub/business/domain/tenantbus/stores/tenantdb"
	"github.com/jcpaschoal/gymhub/business/sdk/dbtest"
	"github.com/jcpaschoal/gymhub/business/sdk/payment"
	"github.com/jcpaschoal/gymhub/business/sdk/payment/devpay"
	"github.com/jcpaschoal/gymhub/business/sdk/sqldb"
	"github.com/jcpaschoal/gymhub/business/sdk/tenantstore"
	"github.com/jcpaschoal/gymhub/business/sdk/tenantstore/sqlitestore"
	"github.com/jcpaschoal/gymhub/business/types/reservationstatus"
	"github.com/jcpaschoal/gymhub/business/types/slug"
	"github.com/jcpaschoal/gymhub/business/types/tenantstatus"
	"github.com/jcpaschoal/gymhub/foundation/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cores struct {
	log       *logger.Logger
	seedFails atomic.Int32
}

type failingSeeder struct{}

func (failingSeeder) SeedDefaults(ctx context.Context) (int, error) {
	return 0, errors.New("disk full")
}

func (c *cores) Offerings(h tenantstore.Handle) provisionbus.OfferingSeeder {
	if c.seedFails.Load() > 0 {
		c.seedFails.Add(-1)
		return failingSeeder{}
	}
	return offeringbus.NewCore(c.log, offeringdb.NewStore(c.log, h.DB), legacydb.NewStore(c.log, h.DB))
}

func (c *cores) Staff(h tenantstore.Handle) provisionbus.StaffManager {
	return c.staffCore(h)
}

func (c *cores) staffCore(h tenantstore.Handle) *staffbus.Core {
	return staffbus.NewCore(staffdb.NewStore(c.log, h.DB))
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type env struct {
	core         *provisionbus.Core
	tenants      *tenantbus.Core
	reservations *reservationbus.Core
	router       *tenantstore.Router
	provider     *devpay.Provider
	cores        *cores
	clock        *clock
}

func newEnv(t *testing.T) env {
	db := dbtest.New(t)

	clk := &clock{now: time.Now()}

	tenants := tenantbus.NewCore(db.Log, tenantcache.NewStore(db.Log, tenantdb.NewStore(db.Log, db.DB), tenantcache.DefaultConfig))
	reservations := reservationbus.NewCore(db.Log, reservationdb.NewStore(db.Log, db.DB), tenants, reservationbus.WithClock(clk.Now))

	router := tenantstore.New(db.Log, sqlitestore.New(db.Dir), tenants, tenantstore.Config{})
	t.Cleanup(func() { router.Close() })

	provider := devpay.New("http://localhost:3000")
	c := &cores{log: db.Log}

	core := provisionbus.NewCore(provisionbus.Config{
		Log:          db.Log,
		Central:      sqldb.NewBeginner(db.DB),
		Tenants:      tenants,
		Reservations: reservations,
		Router:       router,
		Provider:     provider,
		Cores:        c,
	})

	return env{
		core:         core,
		tenants:      tenants,
		reservations: reservations,
		router:       router,
		provider:     provider,
		cores:        c,
		clock:        clk,
	}
}

func registration(slg string) provisionbus.NewRegistration {
	return provisionbus.NewRegistration{
		Slug: slug.MustParse(slg),
		Applicant: reservationbus.Applicant{
			BusinessName: "Iron Temple",
			ContactName:  "Ann Smith",
			Email:        mail.Address{Address: "ann@irontemple.test"},
			PlanID:       "price_basic",
		},
	}
}

// =============================================================================

func Test_RegisterProviderFailureReservesNothing(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.provider.SetFailing(true)

	_, err := e.core.Register(ctx, registration("iron-temple"))
	assert.ErrorIs(t, err, provisionbus.ErrCheckoutFailed)

	_, err = e.reservations.QueryActiveBySlug(ctx, slug.MustParse("iron-temple"))
	assert.ErrorIs(t, err, reservationbus.ErrNotFound)

	e.provider.SetFailing(false)

	reg, err := e.core.Register(ctx, registration("iron-temple"))
	require.NoError(t, err)
	assert.Equal(t, devpay.CheckoutID(reg.Reservation.ID), reg.Reservation.CheckoutID)
	assert.Contains(t, reg.CheckoutURL, reg.Reservation.ID.String())

	_, err = e.core.Register(ctx, registration("iron-temple"))
	assert.ErrorIs(t, err, reservationbus.ErrSlugReserved)
}

func Test_ProvisionIsIdempotent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	reg, err := e.core.Register(ctx, registration("iron-temple"))
	require.NoError(t, err)

	evt := devpay.Completed(reg.Reservation.ID)

	const deliveries = 4

	var wg sync.WaitGroup
	results := make([]provisionbus.Result, deliveries)
	errs := make([]error, deliveries)

	for i := range deliveries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = e.core.ProvisionFromCompletedPayment(ctx, evt)
		}()
	}
	wg.Wait()

	var creds []*provisionbus.Credential
	for i := range deliveries {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0].Tenant.ID, results[i].Tenant.ID)
		if results[i].Credential != nil {
			creds = append(creds, results[i].Credential)
			assert.False(t, results[i].AlreadyProvisioned)
			continue
		}
		assert.True(t, results[i].AlreadyProvisioned)
	}
	require.Len(t, creds, 1)

	all, err := e.tenants.QueryActive(ctx, true)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, tenantstatus.Active, all[0].Status)
	assert.Equal(t, evt.SubscriptionID, all[0].Subscription.SubscriptionID)
	assert.Equal(t, "price_basic", all[0].Subscription.PlanID)

	r, err := e.reservations.QueryByID(ctx, reg.Reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, reservationstatus.Completed, r.Status)
	assert.Equal(t, all[0].ID, *r.TenantID)

	h, err := e.router.Resolve(ctx, slug.MustParse("iron-temple"))
	require.NoError(t, err)

	st, err := e.cores.staffCore(h).Authenticate(ctx, creds[0].Email, creds[0].Password.String())
	require.NoError(t, err)
	assert.True(t, st.MustChangePassword)

	offerings := offeringbus.NewCore(e.cores.log, offeringdb.NewStore(e.cores.log, h.DB), legacydb.NewStore(e.cores.log, h.DB))
	n, err := offerings.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(offeringbus.DefaultCatalog()), n)
}

func Test_ProvisionFallsBackToCheckoutID(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	reg, err := e.core.Register(ctx, registration("iron-temple"))
	require.NoError(t, err)

	evt := devpay.Completed(reg.Reservation.ID)
	evt.ReservationID = uuid.New()

	res, err := e.core.ProvisionFromCompletedPayment(ctx, evt)
	require.NoError(t, err)
	assert.Equal(t, slug.MustParse("iron-temple"), res.Tenant.Slug)
	assert.NotNil(t, res.Credential)

	_, err = e.core.ProvisionFromCompletedPayment(ctx, payment.Event{Kind: payment.EventCheckoutCompleted})
	assert.ErrorIs(t, err, provisionbus.ErrMissingReference)
}

func Test_ProvisionRejectsExpiredReservation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	reg, err := e.core.Register(ctx, registration("iron-temple"))
	require.NoError(t, err)

	e.clock.Advance(reservationbus.DefaultTTL + time.Second)

	_, err = e.core.ProvisionFromCompletedPayment(ctx, devpay.Completed(reg.Reservation.ID))
	assert.ErrorIs(t, err, provisionbus.ErrReservationExpired)

	all, err := e.tenants.QueryActive(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, all)

	ids, err := e.core.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{reg.Reservation.ID}, ids)
}

func Test_ProvisionResumesAfterPartialFailure(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	reg, err := e.core.Register(ctx, registration("iron-temple"))
	require.NoError(t, err)

	e.cores.seedFails.Store(1)

	evt := devpay.Completed(reg.Reservation.ID)

	_, err = e.core.ProvisionFromCompletedPayment(ctx, evt)
	require.Error(t, err)

	r, err := e.reservations.QueryByID(ctx, reg.Reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, reservationstatus.PendingPayment, r.Status)
	require.NotNil(t, r.TenantID)

	tn, err := e.tenants.QueryByID(ctx, *r.TenantID)
	require.NoError(t, err)
	assert.Equal(t, tenantstatus.Pending, tn.Status)

	_, err = e.router.Resolve(ctx, tn.Slug)
	assert.ErrorIs(t, err, tenantstore.ErrTenantPending)

	res, err := e.core.ProvisionFromCompletedPayment(ctx, evt)
	require.NoError(t, err)
	assert.Equal(t, tn.ID, res.Tenant.ID)
	assert.NotNil(t, res.Credential)

	all, err := e.tenants.QueryActive(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func Test_ProvisionResumesAfterReservationTTL(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	reg, err := e.core.Register(ctx, registration("iron-temple"))
	require.NoError(t, err)

	e.cores.seedFails.Store(1)

	evt := devpay.Completed(reg.Reservation.ID)

	_, err = e.core.ProvisionFromCompletedPayment(ctx, evt)
	require.Error(t, err)

	e.clock.Advance(reservationbus.DefaultTTL + time.Second)

	ids, err := e.core.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, e.reservations.MarkExpired(ctx, reg.Reservation.ID))

	r, err := e.reservations.QueryByID(ctx, reg.Reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, reservationstatus.PendingPayment, r.Status)

	_, err = e.core.Register(ctx, registration("iron-temple"))
	assert.ErrorIs(t, err, reservationbus.ErrSlugTaken)

	res, err := e.core.ProvisionFromCompletedPayment(ctx, evt)
	require.NoError(t, err)
	assert.Equal(t, tenantstatus.Active, res.Tenant.Status)
	assert.NotNil(t, res.Credential)

	r, err = e.reservations.QueryByID(ctx, reg.Reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, reservationstatus.Completed, r.Status)

	_, err = e.router.Resolve(ctx, res.Tenant.Slug)
	assert.NoError(t, err)
}

func Test_ApplySubscriptionChange(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	reg, err := e.core.Register(ctx, registration("iron-temple"))
	require.NoError(t, err)

	evt := devpay.Completed(reg.Reservation.ID)

	_, err = e.core.ProvisionFromCompletedPayment(ctx, evt)
	require.NoError(t, err)

	end := time.Now().Add(30 * 24 * time.Hour).Truncate(time.Second)

	tn, err := e.core.ApplySubscriptionChange(ctx, payment.Event{
		Kind:               payment.EventSubscriptionChanged,
		SubscriptionID:     evt.SubscriptionID,
		SubscriptionStatus: "past_due",
		PlanID:             "price_pro",
		PeriodEnd:          &end,
	})
	require.NoError(t, err)
	assert.Equal(t, "past_due", tn.Subscription.Status)
	assert.Equal(t, "price_pro", tn.Subscription.PlanID)
	assert.Equal(t, tenantstatus.Active, tn.Status)

	_, err = e.core.ApplySubscriptionChange(ctx, payment.Event{SubscriptionID: "sub_unknown"})
	assert.ErrorIs(t, err, tenantbus.ErrNotFound)
}
