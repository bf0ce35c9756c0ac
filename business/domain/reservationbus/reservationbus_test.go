package reservationbus_test

import (
	"context"
	"net/mail"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jcpaschoal/gymhub/business/domain/reservationbus"
	"github.com/jcpaschoal/gymhub/business/domain/reservationbus/stores/reservationdb"
	"github.com/jcpaschoal/gymhub/business/sdk/dbtest"
	"github.com/jcpaschoal/gymhub/business/types/reservationstatus"
	"github.com/jcpaschoal/gymhub/business/types/slug"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type takenSlugs map[string]bool

func (t takenSlugs) IsSlugTaken(ctx context.Context, slg slug.Slug) (bool, error) {
	return t[slg.String()], nil
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

func newCore(t *testing.T, taken takenSlugs) (*reservationbus.Core, *clock) {
	db := dbtest.New(t)
	clk := &clock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}

	core := reservationbus.NewCore(db.Log, reservationdb.NewStore(db.Log, db.DB), taken,
		reservationbus.WithClock(clk.Now),
		reservationbus.WithTTL(time.Hour),
	)

	return core, clk
}

func newReservation(slg string) reservationbus.NewReservation {
	return reservationbus.NewReservation{
		Slug: slug.MustParse(slg),
		Applicant: reservationbus.Applicant{
			BusinessName: "Iron Temple",
			ContactName:  "Ann Smith",
			Email:        mail.Address{Address: "ann@example.com"},
			PlanID:       "price_basic",
		},
		CheckoutID: "cs_" + uuid.NewString(),
	}
}

func Test_ReserveTakenSlug(t *testing.T) {
	core, _ := newCore(t, takenSlugs{"iron-temple": true})

	_, err := core.Reserve(context.Background(), newReservation("iron-temple"))
	assert.ErrorIs(t, err, reservationbus.ErrSlugTaken)
}

func Test_ConcurrentReserveOneWins(t *testing.T) {
	core, _ := newCore(t, takenSlugs{})

	const n = 8
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = core.Reserve(context.Background(), newReservation("iron-temple"))
		}()
	}
	wg.Wait()

	var ok, reserved int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		default:
			assert.ErrorIs(t, err, reservationbus.ErrSlugReserved)
			reserved++
		}
	}

	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, reserved)
}

func Test_ExpiryIsLazy(t *testing.T) {
	core, clk := newCore(t, takenSlugs{})
	ctx := context.Background()

	r, err := core.Reserve(ctx, newReservation("iron-temple"))
	require.NoError(t, err)

	got, err := core.QueryActiveBySlug(ctx, r.Slug)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)

	clk.Advance(3601 * time.Second)

	_, err = core.QueryActiveBySlug(ctx, r.Slug)
	assert.ErrorIs(t, err, reservationbus.ErrNotFound)

	got, err = core.QueryByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, reservationstatus.Expired, got.Status)

	again, err := core.Reserve(ctx, newReservation("iron-temple"))
	require.NoError(t, err)
	assert.NotEqual(t, r.ID, again.ID)

	ids, err := core.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func Test_SweepExpired(t *testing.T) {
	core, clk := newCore(t, takenSlugs{})
	ctx := context.Background()

	old, err := core.Reserve(ctx, newReservation("gym-one"))
	require.NoError(t, err)

	clk.Advance(30 * time.Minute)

	fresh, err := core.Reserve(ctx, newReservation("gym-two"))
	require.NoError(t, err)

	clk.Advance(31 * time.Minute)

	ids, err := core.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{old.ID}, ids)

	got, err := core.QueryByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, reservationstatus.PendingPayment, got.Status)
}

func Test_MarkCompletedOnce(t *testing.T) {
	core, _ := newCore(t, takenSlugs{})
	ctx := context.Background()

	nr := newReservation("iron-temple")
	r, err := core.Reserve(ctx, nr)
	require.NoError(t, err)

	byCheckout, err := core.QueryByCheckoutID(ctx, nr.CheckoutID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, byCheckout.ID)

	done, err := core.MarkCompleted(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, reservationstatus.Completed, done.Status)
	assert.NotNil(t, done.CompletedAt)

	_, err = core.MarkCompleted(ctx, r.ID)
	assert.ErrorIs(t, err, reservationbus.ErrNotPending)

	_, err = core.QueryActiveBySlug(ctx, r.Slug)
	assert.ErrorIs(t, err, reservationbus.ErrNotFound)
}
