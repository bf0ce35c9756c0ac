package passbus_test

import (
	"context"
	"net/mail"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jcpaschoal/gymhub/business/domain/offeringbus"
	"github.com/jcpaschoal/gymhub/business/domain/offeringbus/stores/legacydb"
	"github.com/jcpaschoal/gymhub/business/domain/offeringbus/stores/offeringdb"
	"github.com/jcpaschoal/gymhub/business/domain/passbus"
	"github.com/jcpaschoal/gymhub/business/domain/passbus/stores/passdb"
	"github.com/jcpaschoal/gymhub/business/domain/userbus"
	"github.com/jcpaschoal/gymhub/business/domain/userbus/stores/userdb"
	"github.com/jcpaschoal/gymhub/business/sdk/dbtest"
	"github.com/jcpaschoal/gymhub/business/sdk/sqldb"
	"github.com/jcpaschoal/gymhub/business/types/durationunit"
	"github.com/jcpaschoal/gymhub/business/types/name"
	"github.com/jcpaschoal/gymhub/business/types/outcome"
	"github.com/jcpaschoal/gymhub/business/types/passstatus"
	"github.com/jcpaschoal/gymhub/business/types/usageaction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Add(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type env struct {
	passes    *passbus.Core
	users     *userbus.Core
	offerings *offeringbus.Core
	clock     *clock
}

func newEnv(t *testing.T) env {
	return newEnvWithStore(t, nil)
}

// newEnvWithStore builds the env with the pass store passed through wrap.
func newEnvWithStore(t *testing.T, wrap func(passbus.Storer) passbus.Storer) env {
	db := dbtest.New(t)
	tdb := db.NewTenant(t, "iron-temple")

	users := userbus.NewCore(userdb.NewStore(db.Log, tdb))
	offerings := offeringbus.NewCore(db.Log, offeringdb.NewStore(db.Log, tdb), legacydb.NewStore(db.Log, tdb))

	clk := clock{now: time.Now().Truncate(time.Second)}

	var storer passbus.Storer = passdb.NewStore(db.Log, tdb)
	if wrap != nil {
		storer = wrap(storer)
	}

	passes := passbus.NewCore(db.Log, storer, sqldb.NewBeginner(tdb), users, offerings).WithClock(clk.Now)

	return env{
		passes:    passes,
		users:     users,
		offerings: offerings,
		clock:     &clk,
	}
}

func (e env) member(t *testing.T, email string) userbus.User {
	usr, err := e.users.Create(context.Background(), userbus.NewUser{
		Name:  name.MustParse("Ada Member"),
		Email: mail.Address{Address: email},
	})
	require.NoError(t, err)

	return usr
}

func (e env) offering(t *testing.T, visits *int, duration *offeringbus.Duration) offeringbus.Offering {
	o, err := e.offerings.Create(context.Background(), offeringbus.NewOffering{
		Name:        "Test Pass",
		PriceCents:  1000,
		Currency:    "EUR",
		VisitsCount: visits,
		Duration:    duration,
	})
	require.NoError(t, err)

	return o
}

func ptr[T any](v T) *T {
	return &v
}

// revokeBeforeDecrement revokes the pass inside the decrement transaction,
// the way a concurrent revoke lands between the checks and the write.
type revokeBeforeDecrement struct {
	passbus.Storer
}

func (s revokeBeforeDecrement) NewWithTx(tx sqldb.CommitRollbacker) (passbus.Storer, error) {
	storer, err := s.Storer.NewWithTx(tx)
	if err != nil {
		return nil, err
	}

	return revokeBeforeDecrement{Storer: storer}, nil
}

func (s revokeBeforeDecrement) Decrement(ctx context.Context, passID uuid.UUID, count int, now time.Time) (bool, error) {
	if err := s.Storer.SetStatus(ctx, passID, passstatus.Revoked, now); err != nil {
		return false, err
	}

	return s.Storer.Decrement(ctx, passID, count, now)
}

// =============================================================================

func Test_SingleVisitPass(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	usr := e.member(t, "ada@example.com")
	off := e.offering(t, ptr(1), nil)

	p, tkn, err := e.passes.Purchase(ctx, usr.ID, off.ID)
	require.NoError(t, err)
	assert.Equal(t, passstatus.Active, p.Status)
	assert.Equal(t, 1, *p.RemainingEntries)
	assert.Nil(t, p.ValidUntil)
	assert.NotEmpty(t, tkn.Token)

	v, err := e.passes.Validate(ctx, tkn.Token, true, nil)
	require.NoError(t, err)
	assert.Equal(t, outcome.Valid, v.Outcome)
	assert.True(t, v.AutoConsumed)
	assert.Equal(t, 0, *v.Pass.RemainingEntries)
	assert.Equal(t, passstatus.Depleted, v.Pass.Status)

	v, err = e.passes.Validate(ctx, tkn.Token, true, nil)
	require.NoError(t, err)
	assert.Equal(t, outcome.Depleted, v.Outcome)

	logs, err := e.passes.UsageHistoryByPass(ctx, p.ID, 0)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, usageaction.Consume, logs[0].Action)
	assert.Equal(t, 1, logs[0].Entries)
	assert.Equal(t, usageaction.Scan, logs[1].Action)
}

func Test_ConcurrentValidationNeverOverspends(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	usr := e.member(t, "ada@example.com")
	off := e.offering(t, ptr(3), nil)

	p, tkn, err := e.passes.Purchase(ctx, usr.ID, off.ID)
	require.NoError(t, err)

	const scans = 10

	var wg sync.WaitGroup
	results := make([]passbus.Validation, scans)
	errs := make([]error, scans)

	for i := range scans {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = e.passes.Validate(ctx, tkn.Token, true, nil)
		}()
	}
	wg.Wait()

	var valid int
	for i := range scans {
		require.NoError(t, errs[i])
		if results[i].Valid() {
			valid++
			continue
		}
		assert.Equal(t, outcome.Depleted, results[i].Outcome)
	}
	assert.Equal(t, 3, valid)

	got, err := e.passes.QueryByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, *got.RemainingEntries)
	assert.Equal(t, passstatus.Depleted, got.Status)

	logs, err := e.passes.UsageHistoryByPass(ctx, p.ID, passbus.MaxHistoryLimit)
	require.NoError(t, err)

	var consumed int
	for _, l := range logs {
		if l.Action == usageaction.Consume {
			consumed += l.Entries
		}
	}
	assert.Equal(t, 3, consumed)
}

func Test_ValidationPrecedence(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	off := e.offering(t, ptr(5), &offeringbus.Duration{Value: 1, Unit: durationunit.Day})

	// A blocked member's revoked pass reports REVOKED.
	blocked := e.member(t, "blocked@example.com")
	_, tkn, err := e.passes.Purchase(ctx, blocked.ID, off.ID)
	require.NoError(t, err)

	_, err = e.users.Update(ctx, blocked, userbus.UpdateUser{Blocked: ptr(true)})
	require.NoError(t, err)

	v, err := e.passes.Validate(ctx, tkn.Token, false, nil)
	require.NoError(t, err)
	assert.Equal(t, outcome.Revoked, v.Outcome)

	// Revoked wins over an expired date.
	usr := e.member(t, "ada@example.com")
	revoked, rTkn, err := e.passes.Purchase(ctx, usr.ID, off.ID)
	require.NoError(t, err)

	_, err = e.passes.Revoke(ctx, revoked.ID)
	require.NoError(t, err)

	live, lTkn, err := e.passes.Purchase(ctx, usr.ID, off.ID)
	require.NoError(t, err)

	e.clock.Add(48 * time.Hour)

	v, err = e.passes.Validate(ctx, rTkn.Token, false, nil)
	require.NoError(t, err)
	assert.Equal(t, outcome.Revoked, v.Outcome)

	v, err = e.passes.Validate(ctx, lTkn.Token, false, nil)
	require.NoError(t, err)
	assert.Equal(t, outcome.Expired, v.Outcome)

	got, err := e.passes.QueryByID(ctx, live.ID)
	require.NoError(t, err)
	assert.Equal(t, passstatus.Expired, got.Status)

	// Unknown and deactivated tokens are NOT_FOUND.
	v, err = e.passes.Validate(ctx, "no-such-token", false, nil)
	require.NoError(t, err)
	assert.Equal(t, outcome.NotFound, v.Outcome)
	assert.Nil(t, v.Pass)

	require.NoError(t, e.passes.DeactivateToken(ctx, lTkn.Token))

	v, err = e.passes.Validate(ctx, lTkn.Token, false, nil)
	require.NoError(t, err)
	assert.Equal(t, outcome.NotFound, v.Outcome)
}

func Test_DepletedBeatsExpired(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	usr := e.member(t, "ada@example.com")
	off := e.offering(t, ptr(1), &offeringbus.Duration{Value: 1, Unit: durationunit.Day})

	p, tkn, err := e.passes.Purchase(ctx, usr.ID, off.ID)
	require.NoError(t, err)

	v, err := e.passes.Validate(ctx, tkn.Token, true, nil)
	require.NoError(t, err)
	require.Equal(t, outcome.Valid, v.Outcome)

	e.clock.Add(48 * time.Hour)

	v, err = e.passes.Validate(ctx, tkn.Token, false, nil)
	require.NoError(t, err)
	assert.Equal(t, outcome.Depleted, v.Outcome)

	got, err := e.passes.QueryByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, passstatus.Depleted, got.Status)
}

func Test_ConcurrentRevokeDuringConsume(t *testing.T) {
	e := newEnvWithStore(t, func(s passbus.Storer) passbus.Storer {
		return revokeBeforeDecrement{Storer: s}
	})
	ctx := context.Background()

	usr := e.member(t, "ada@example.com")
	off := e.offering(t, ptr(5), nil)

	p, tkn, err := e.passes.Purchase(ctx, usr.ID, off.ID)
	require.NoError(t, err)

	v, err := e.passes.Validate(ctx, tkn.Token, true, nil)
	require.NoError(t, err)
	assert.Equal(t, outcome.Revoked, v.Outcome)
	assert.False(t, v.AutoConsumed)

	got, err := e.passes.QueryByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, passstatus.Revoked, got.Status)
	assert.Equal(t, 5, *got.RemainingEntries)
}

func Test_ValidateBySerial(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	usr := e.member(t, "ada@example.com")
	off := e.offering(t, nil, &offeringbus.Duration{Value: 1, Unit: durationunit.Month})

	p, _, err := e.passes.Purchase(ctx, usr.ID, off.ID)
	require.NoError(t, err)
	require.NotNil(t, p.ValidUntil)
	assert.True(t, p.ValidUntil.Equal(p.ValidFrom.AddDate(0, 1, 0)))

	v, err := e.passes.Validate(ctx, p.SerialNumber, true, nil)
	require.NoError(t, err)
	assert.Equal(t, outcome.Valid, v.Outcome)
	assert.False(t, v.AutoConsumed)
	assert.Equal(t, p.ID, v.Pass.ID)
	assert.True(t, p.ValidUntil.Equal(*v.Pass.ValidUntil))
}

func Test_PurchaseThenValidate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	usr := e.member(t, "ada@example.com")
	off := e.offering(t, ptr(2), &offeringbus.Duration{Value: 1, Unit: durationunit.Week})

	p, tkn, err := e.passes.Purchase(ctx, usr.ID, off.ID)
	require.NoError(t, err)
	require.NotNil(t, p.ValidUntil)

	v, err := e.passes.Validate(ctx, tkn.Token, false, nil)
	require.NoError(t, err)
	assert.Equal(t, outcome.Valid, v.Outcome)
	assert.False(t, v.AutoConsumed)
	require.NotNil(t, v.Pass)
	assert.Equal(t, *p.RemainingEntries, *v.Pass.RemainingEntries)
	require.NotNil(t, v.Pass.ValidUntil)
	assert.True(t, p.ValidUntil.Equal(*v.Pass.ValidUntil))
}

func Test_ConsumeEntry(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	usr := e.member(t, "ada@example.com")
	staffID := uuid.New()

	tenVisits := e.offering(t, ptr(10), nil)
	_, tkn, err := e.passes.Purchase(ctx, usr.ID, tenVisits.ID)
	require.NoError(t, err)

	_, err = e.passes.ConsumeEntry(ctx, tkn.Token, 0, &staffID)
	assert.ErrorIs(t, err, passbus.ErrInvalidCount)

	p, err := e.passes.ConsumeEntry(ctx, tkn.Token, 4, &staffID)
	require.NoError(t, err)
	assert.Equal(t, 6, *p.RemainingEntries)

	_, err = e.passes.ConsumeEntry(ctx, tkn.Token, 7, &staffID)
	assert.ErrorIs(t, err, passbus.ErrInsufficientEntries)

	p, err = e.passes.ConsumeEntry(ctx, tkn.Token, 6, &staffID)
	require.NoError(t, err)
	assert.Equal(t, passstatus.Depleted, p.Status)

	_, err = e.passes.ConsumeEntry(ctx, tkn.Token, 1, &staffID)
	assert.ErrorIs(t, err, passbus.ErrPassDepleted)

	logs, err := e.passes.UsageHistory(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, 6, logs[0].Entries)
	assert.Equal(t, staffID, *logs[0].StaffID)

	monthly := e.offering(t, nil, &offeringbus.Duration{Value: 1, Unit: durationunit.Month})
	_, mTkn, err := e.passes.Purchase(ctx, usr.ID, monthly.ID)
	require.NoError(t, err)

	_, err = e.passes.ConsumeEntry(ctx, mTkn.Token, 1, nil)
	assert.ErrorIs(t, err, passbus.ErrNotEntryBased)

	_, err = e.passes.ConsumeEntry(ctx, "unknown", 1, nil)
	assert.ErrorIs(t, err, passbus.ErrTokenNotFound)
}

func Test_RevokeRestore(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	usr := e.member(t, "ada@example.com")
	off := e.offering(t, ptr(2), &offeringbus.Duration{Value: 1, Unit: durationunit.Week})

	p, tkn, err := e.passes.Purchase(ctx, usr.ID, off.ID)
	require.NoError(t, err)

	_, err = e.passes.Restore(ctx, p.ID)
	assert.ErrorIs(t, err, passbus.ErrNotRevoked)

	_, err = e.passes.Revoke(ctx, p.ID)
	require.NoError(t, err)

	again, err := e.passes.Revoke(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, passstatus.Revoked, again.Status)

	_, err = e.passes.ConsumeEntry(ctx, tkn.Token, 1, nil)
	assert.ErrorIs(t, err, passbus.ErrPassRevoked)

	restored, err := e.passes.Restore(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, passstatus.Active, restored.Status)

	_, err = e.passes.Revoke(ctx, p.ID)
	require.NoError(t, err)

	e.clock.Add(8 * 24 * time.Hour)

	restored, err = e.passes.Restore(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, passstatus.Expired, restored.Status)
}

func Test_PurchaseRefusals(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	usr := e.member(t, "ada@example.com")
	off := e.offering(t, ptr(1), nil)

	_, _, err := e.passes.Purchase(ctx, usr.ID, uuid.New())
	assert.ErrorIs(t, err, passbus.ErrOfferingNotFound)

	_, err = e.users.Update(ctx, usr, userbus.UpdateUser{Blocked: ptr(true)})
	require.NoError(t, err)

	_, _, err = e.passes.Purchase(ctx, usr.ID, off.ID)
	assert.ErrorIs(t, err, passbus.ErrAccountBlocked)

	passes, err := e.passes.QueryByUser(ctx, usr.ID)
	require.NoError(t, err)
	assert.Empty(t, passes)
}
