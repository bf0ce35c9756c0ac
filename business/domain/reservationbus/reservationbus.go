// Package reservationbus provides business access to slug reservations
// held while a registration waits for payment.
package reservationbus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jcpaschoal/gymhub/business/sdk/sqldb"
	"github.com/jcpaschoal/gymhub/business/types/reservationstatus"
	"github.com/jcpaschoal/gymhub/business/types/slug"
	"github.com/jcpaschoal/gymhub/foundation/logger"
	"github.com/jcpaschoal/gymhub/foundation/otel"
)

// DefaultTTL is how long a reservation holds its slug.
const DefaultTTL = 60 * time.Minute

// Set of error variables for CRUD operations.
var (
	ErrNotFound       = errors.New("reservation not found")
	ErrSlugTaken      = errors.New("slug already taken")
	ErrSlugReserved   = errors.New("slug currently reserved")
	ErrNotPending     = errors.New("reservation is not pending payment")
	ErrUniqueCheckout = errors.New("checkout already attached to another reservation")
)

// Storer defines the behavior required by the reservationbus to interact
// with the database.
type Storer interface {
	NewWithTx(tx sqldb.CommitRollbacker) (Storer, error)
	Create(ctx context.Context, r Reservation) error
	Update(ctx context.Context, r Reservation) error
	UpdateStatusIf(ctx context.Context, r Reservation, from reservationstatus.Status) (bool, error)
	QueryByID(ctx context.Context, reservationID uuid.UUID) (Reservation, error)
	QueryByCheckoutID(ctx context.Context, checkoutID string) (Reservation, error)
	QueryPending(ctx context.Context) ([]Reservation, error)
	QueryPendingBySlug(ctx context.Context, slg slug.Slug) ([]Reservation, error)
}

// SlugChecker reports whether a live tenant already owns a slug.
type SlugChecker interface {
	IsSlugTaken(ctx context.Context, slg slug.Slug) (bool, error)
}

// Option changes how the core behaves.
type Option func(*Core)

// WithTTL sets how long new reservations hold their slug.
func WithTTL(ttl time.Duration) Option {
	return func(c *Core) {
		c.ttl = ttl
	}
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(c *Core) {
		c.now = now
	}
}

// Core manages the set of APIs for reservation access.
type Core struct {
	log     *logger.Logger
	storer  Storer
	tenants SlugChecker
	ttl     time.Duration
	now     func() time.Time
}

// NewCore constructs a core for reservation api access.
func NewCore(log *logger.Logger, storer Storer, tenants SlugChecker, opts ...Option) *Core {
	c := Core{
		log:     log,
		storer:  storer,
		tenants: tenants,
		ttl:     DefaultTTL,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(&c)
	}

	return &c
}

// NewWithTx constructs a new Core value replacing the Storer
// value with a Storer value that is currently inside a transaction.
func (c *Core) NewWithTx(tx sqldb.CommitRollbacker) (*Core, error) {
	storer, err := c.storer.NewWithTx(tx)
	if err != nil {
		return nil, fmt.Errorf("newWithTx: %w", err)
	}

	return &Core{
		log:     c.log,
		storer:  storer,
		tenants: c.tenants,
		ttl:     c.ttl,
		now:     c.now,
	}, nil
}

// Reserve claims the slug for the TTL. It fails with ErrSlugTaken when a
// live tenant owns the slug and with ErrSlugReserved when another
// reservation still holds it.
func (c *Core) Reserve(ctx context.Context, nr NewReservation) (Reservation, error) {
	ctx, span := otel.AddSpan(ctx, "business.reservationbus.reserve")
	defer span.End()

	taken, err := c.tenants.IsSlugTaken(ctx, nr.Slug)
	if err != nil {
		return Reservation{}, fmt.Errorf("slug taken: %w", err)
	}
	if taken {
		return Reservation{}, ErrSlugTaken
	}

	now := c.now()

	pending, err := c.storer.QueryPendingBySlug(ctx, nr.Slug)
	if err != nil {
		return Reservation{}, fmt.Errorf("query pending: %w", err)
	}

	for _, r := range pending {
		if r.Live(now) {
			return Reservation{}, ErrSlugReserved
		}

		if err := c.expire(ctx, r); err != nil {
			return Reservation{}, err
		}
	}

	id := nr.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	r := Reservation{
		ID:         id,
		Slug:       nr.Slug,
		Applicant:  nr.Applicant,
		Status:     reservationstatus.PendingPayment,
		CheckoutID: nr.CheckoutID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(c.ttl),
	}

	if err := c.storer.Create(ctx, r); err != nil {
		return Reservation{}, fmt.Errorf("create: %w", err)
	}

	c.log.Info(ctx, "slug reserved", "reservation_id", r.ID, "slug", r.Slug, "expires_at", r.ExpiresAt)

	return r, nil
}

// AttachCheckoutID records the payment provider's session id.
func (c *Core) AttachCheckoutID(ctx context.Context, reservationID uuid.UUID, checkoutID string) (Reservation, error) {
	ctx, span := otel.AddSpan(ctx, "business.reservationbus.attachCheckoutID")
	defer span.End()

	r, err := c.storer.QueryByID(ctx, reservationID)
	if err != nil {
		return Reservation{}, fmt.Errorf("query: reservationID[%s]: %w", reservationID, err)
	}

	r.CheckoutID = checkoutID

	if err := c.storer.Update(ctx, r); err != nil {
		return Reservation{}, fmt.Errorf("update: %w", err)
	}

	return c.effective(r), nil
}

// AttachTenant records the tenant created for the reservation, so a retried
// provisioning resumes instead of creating a second tenant.
func (c *Core) AttachTenant(ctx context.Context, reservationID uuid.UUID, tenantID uuid.UUID) (Reservation, error) {
	ctx, span := otel.AddSpan(ctx, "business.reservationbus.attachTenant")
	defer span.End()

	r, err := c.storer.QueryByID(ctx, reservationID)
	if err != nil {
		return Reservation{}, fmt.Errorf("query: reservationID[%s]: %w", reservationID, err)
	}

	r.TenantID = &tenantID

	if err := c.storer.Update(ctx, r); err != nil {
		return Reservation{}, fmt.Errorf("update: %w", err)
	}

	return c.effective(r), nil
}

// QueryByID finds the reservation by id. A pending reservation past its
// expiry is reported EXPIRED whether or not a sweep has run.
func (c *Core) QueryByID(ctx context.Context, reservationID uuid.UUID) (Reservation, error) {
	ctx, span := otel.AddSpan(ctx, "business.reservationbus.queryByID")
	defer span.End()

	r, err := c.storer.QueryByID(ctx, reservationID)
	if err != nil {
		return Reservation{}, fmt.Errorf("query: reservationID[%s]: %w", reservationID, err)
	}

	return c.effective(r), nil
}

// QueryByCheckoutID finds the reservation by the payment provider's
// session id.
func (c *Core) QueryByCheckoutID(ctx context.Context, checkoutID string) (Reservation, error) {
	ctx, span := otel.AddSpan(ctx, "business.reservationbus.queryByCheckoutID")
	defer span.End()

	r, err := c.storer.QueryByCheckoutID(ctx, checkoutID)
	if err != nil {
		return Reservation{}, fmt.Errorf("query: checkoutID[%s]: %w", checkoutID, err)
	}

	return c.effective(r), nil
}

// QueryActiveBySlug returns the live reservation holding the slug.
func (c *Core) QueryActiveBySlug(ctx context.Context, slg slug.Slug) (Reservation, error) {
	ctx, span := otel.AddSpan(ctx, "business.reservationbus.queryActiveBySlug")
	defer span.End()

	pending, err := c.storer.QueryPendingBySlug(ctx, slg)
	if err != nil {
		return Reservation{}, fmt.Errorf("query: slug[%s]: %w", slg, err)
	}

	now := c.now()
	for _, r := range pending {
		if r.Live(now) {
			return r, nil
		}
	}

	return Reservation{}, fmt.Errorf("query: slug[%s]: %w", slg, ErrNotFound)
}

// MarkCompleted moves a pending reservation to COMPLETED. It is a compare
// and set: only one caller can complete a reservation.
func (c *Core) MarkCompleted(ctx context.Context, reservationID uuid.UUID) (Reservation, error) {
	ctx, span := otel.AddSpan(ctx, "business.reservationbus.markCompleted")
	defer span.End()

	r, err := c.storer.QueryByID(ctx, reservationID)
	if err != nil {
		return Reservation{}, fmt.Errorf("query: reservationID[%s]: %w", reservationID, err)
	}

	from := reservationstatus.PendingPayment
	if r.Provisioning() && r.Status.Equal(reservationstatus.Expired) {
		from = reservationstatus.Expired
	}

	now := c.now()
	r.Status = reservationstatus.Completed
	r.CompletedAt = &now

	ok, err := c.storer.UpdateStatusIf(ctx, r, from)
	if err != nil {
		return Reservation{}, fmt.Errorf("update status: %w", err)
	}
	if !ok {
		return Reservation{}, fmt.Errorf("complete: reservationID[%s]: %w", reservationID, ErrNotPending)
	}

	return r, nil
}

// MarkExpired moves a pending reservation to EXPIRED. A reservation with a
// tenant attached is left pending.
func (c *Core) MarkExpired(ctx context.Context, reservationID uuid.UUID) error {
	ctx, span := otel.AddSpan(ctx, "business.reservationbus.markExpired")
	defer span.End()

	r, err := c.storer.QueryByID(ctx, reservationID)
	if err != nil {
		return fmt.Errorf("query: reservationID[%s]: %w", reservationID, err)
	}

	if r.Provisioning() {
		return nil
	}

	return c.expire(ctx, r)
}

// SweepExpired marks every pending reservation past its expiry as EXPIRED
// and returns their ids. Reads never depend on it having run.
func (c *Core) SweepExpired(ctx context.Context) ([]uuid.UUID, error) {
	ctx, span := otel.AddSpan(ctx, "business.reservationbus.sweepExpired")
	defer span.End()

	pending, err := c.storer.QueryPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("query pending: %w", err)
	}

	now := c.now()

	var ids []uuid.UUID
	for _, r := range pending {
		if r.Live(now) || r.Provisioning() {
			continue
		}

		if err := c.expire(ctx, r); err != nil {
			return ids, err
		}
		ids = append(ids, r.ID)
	}

	if len(ids) > 0 {
		c.log.Info(ctx, "reservations swept", "count", len(ids))
	}

	return ids, nil
}

// =============================================================================

func (c *Core) expire(ctx context.Context, r Reservation) error {
	r.Status = reservationstatus.Expired

	if _, err := c.storer.UpdateStatusIf(ctx, r, reservationstatus.PendingPayment); err != nil {
		return fmt.Errorf("expire: reservationID[%s]: %w", r.ID, err)
	}

	return nil
}

func (c *Core) effective(r Reservation) Reservation {
	if r.Status.Equal(reservationstatus.PendingPayment) && !r.Provisioning() && !r.Live(c.now()) {
		r.Status = reservationstatus.Expired
	}
	return r
}
