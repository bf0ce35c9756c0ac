// Package provisionbus turns a paid registration into a live tenant. Every
// step can be replayed: provider redeliveries and retries after a partial
// failure converge on one tenant and one administrative credential.
package provisionbus

import (
	"context"
	"errors"
	"fmt"
	"net/mail"

	"github.com/google/uuid"
	"github.com/jcpaschoal/gymhub/business/domain/reservationbus"
	"github.com/jcpaschoal/gymhub/business/domain/staffbus"
	"github.com/jcpaschoal/gymhub/business/domain/tenantbus"
	"github.com/jcpaschoal/gymhub/business/sdk/payment"
	"github.com/jcpaschoal/gymhub/business/sdk/sqldb"
	"github.com/jcpaschoal/gymhub/business/sdk/tenantstore"
	"github.com/jcpaschoal/gymhub/business/types/name"
	"github.com/jcpaschoal/gymhub/business/types/password"
	"github.com/jcpaschoal/gymhub/business/types/reservationstatus"
	"github.com/jcpaschoal/gymhub/business/types/role"
	"github.com/jcpaschoal/gymhub/business/types/tenantstatus"
	"github.com/jcpaschoal/gymhub/foundation/keylock"
	"github.com/jcpaschoal/gymhub/foundation/logger"
	"github.com/jcpaschoal/gymhub/foundation/otel"
)

// Set of error variables for provisioning.
var (
	ErrReservationExpired = errors.New("reservation expired")
	ErrCheckoutFailed     = errors.New("checkout session could not be created")
	ErrMissingReference   = errors.New("event carries no reservation reference")
	ErrNotActivated       = errors.New("tenant did not reach ACTIVE")
)

// TempPasswordLength is the length of the generated admin password.
const TempPasswordLength = 16

// OfferingSeeder seeds a tenant's default catalog.
type OfferingSeeder interface {
	SeedDefaults(ctx context.Context) (int, error)
}

// StaffManager manages a tenant's staff credentials.
type StaffManager interface {
	QueryByEmail(ctx context.Context, email mail.Address) (staffbus.Staff, error)
	Create(ctx context.Context, ns staffbus.NewStaff) (staffbus.Staff, error)
	ResetPassword(ctx context.Context, st staffbus.Staff, pw password.Password, mustChange bool) (staffbus.Staff, error)
}

// TenantCores builds the tenant scoped cores used for seeding over the
// tenant's storage handle.
type TenantCores interface {
	Offerings(h tenantstore.Handle) OfferingSeeder
	Staff(h tenantstore.Handle) StaffManager
}

// URLs are the browser destinations after checkout.
type URLs struct {
	Success string
	Cancel  string
}

// Config holds the collaborators of the workflow.
type Config struct {
	Log          *logger.Logger
	Central      sqldb.Beginner
	Tenants      *tenantbus.Core
	Reservations *reservationbus.Core
	Router       *tenantstore.Router
	Provider     payment.Provider
	Cores        TenantCores
	URLs         URLs
}

// Core manages the registration and provisioning workflow.
type Core struct {
	log          *logger.Logger
	central      sqldb.Beginner
	tenants      *tenantbus.Core
	reservations *reservationbus.Core
	router       *tenantstore.Router
	provider     payment.Provider
	cores        TenantCores
	urls         URLs
	locks        *keylock.Locker
}

// NewCore constructs the provisioning workflow.
func NewCore(cfg Config) *Core {
	return &Core{
		log:          cfg.Log,
		central:      cfg.Central,
		tenants:      cfg.Tenants,
		reservations: cfg.Reservations,
		router:       cfg.Router,
		provider:     cfg.Provider,
		cores:        cfg.Cores,
		urls:         cfg.URLs,
		locks:        keylock.New(),
	}
}

// Register reserves the slug for the applicant once the provider has
// accepted a checkout session. When the provider fails nothing is reserved.
func (c *Core) Register(ctx context.Context, nr NewRegistration) (Registration, error) {
	ctx, span := otel.AddSpan(ctx, "business.provisionbus.register")
	defer span.End()

	taken, err := c.tenants.IsSlugTaken(ctx, nr.Slug)
	if err != nil {
		return Registration{}, fmt.Errorf("slug taken: %w", err)
	}
	if taken {
		return Registration{}, fmt.Errorf("slug[%s]: %w", nr.Slug, reservationbus.ErrSlugTaken)
	}

	switch _, err := c.reservations.QueryActiveBySlug(ctx, nr.Slug); {
	case err == nil:
		return Registration{}, fmt.Errorf("slug[%s]: %w", nr.Slug, reservationbus.ErrSlugReserved)
	case !errors.Is(err, reservationbus.ErrNotFound):
		return Registration{}, fmt.Errorf("active reservation: %w", err)
	}

	reservationID := uuid.New()

	chk, err := c.provider.CreateCheckout(ctx, payment.CheckoutRequest{
		ReservationID: reservationID,
		Slug:          nr.Slug.String(),
		Email:         nr.Applicant.Email.Address,
		PlanID:        nr.Applicant.PlanID,
		SuccessURL:    c.urls.Success,
		CancelURL:     c.urls.Cancel,
	})
	if err != nil {
		c.log.Error(ctx, "checkout creation failed", "provider", c.provider.Name(), "slug", nr.Slug, "err", err)
		return Registration{}, fmt.Errorf("%w: %w", ErrCheckoutFailed, err)
	}

	r, err := c.reservations.Reserve(ctx, reservationbus.NewReservation{
		ID:         reservationID,
		Slug:       nr.Slug,
		Applicant:  nr.Applicant,
		CheckoutID: chk.ID,
	})
	if err != nil {
		return Registration{}, fmt.Errorf("reserve: %w", err)
	}

	return Registration{
		Reservation: r,
		CheckoutURL: chk.URL,
	}, nil
}

// ProvisionFromCompletedPayment creates and activates the tenant paid for
// by the event. A reservation that already produced a tenant returns that
// tenant untouched. The reservation is marked COMPLETED only after the
// tenant reads back ACTIVE, so any failure before that point is retried by
// replaying the event.
func (c *Core) ProvisionFromCompletedPayment(ctx context.Context, e payment.Event) (Result, error) {
	ctx, span := otel.AddSpan(ctx, "business.provisionbus.provisionFromCompletedPayment")
	defer span.End()

	r, err := c.findReservation(ctx, e)
	if err != nil {
		c.log.Error(ctx, "provisioning: reservation lookup failed", "event_id", e.ID, "reservation_id", e.ReservationID, "checkout_id", e.CheckoutID, "err", err)
		return Result{}, err
	}

	unlock := c.locks.Lock(r.ID.String())
	defer unlock()

	res, err := c.provision(ctx, r.ID, e)
	if err != nil {
		c.log.Error(ctx, "provisioning failed", "event_id", e.ID, "reservation_id", r.ID, "checkout_id", r.CheckoutID, "slug", r.Slug, "err", err)
		return Result{}, err
	}

	return res, nil
}

// ApplySubscriptionChange records a provider-side change of the tenant's
// subscription.
func (c *Core) ApplySubscriptionChange(ctx context.Context, e payment.Event) (tenantbus.Tenant, error) {
	ctx, span := otel.AddSpan(ctx, "business.provisionbus.applySubscriptionChange")
	defer span.End()

	t, err := c.tenants.QueryBySubscriptionID(ctx, e.SubscriptionID)
	if err != nil {
		return tenantbus.Tenant{}, fmt.Errorf("query: subscriptionID[%s]: %w", e.SubscriptionID, err)
	}

	us := tenantbus.UpdateSubscription{
		Status:    &e.SubscriptionStatus,
		PeriodEnd: e.PeriodEnd,
	}
	if e.PlanID != "" {
		us.PlanID = &e.PlanID
	}
	if e.CustomerID != "" {
		us.CustomerID = &e.CustomerID
	}

	t, err = c.tenants.UpdateSubscription(ctx, t.ID, us)
	if err != nil {
		return tenantbus.Tenant{}, fmt.Errorf("update subscription: %w", err)
	}

	c.log.Info(ctx, "subscription changed", "tenant_id", t.ID, "slug", t.Slug, "status", e.SubscriptionStatus)

	return t, nil
}

// SweepExpired expires every reservation past its TTL.
func (c *Core) SweepExpired(ctx context.Context) ([]uuid.UUID, error) {
	ctx, span := otel.AddSpan(ctx, "business.provisionbus.sweepExpired")
	defer span.End()

	ids, err := c.reservations.SweepExpired(ctx)
	if err != nil {
		return nil, fmt.Errorf("sweep: %w", err)
	}

	if len(ids) > 0 {
		c.log.Info(ctx, "reservations expired", "count", len(ids))
	}

	return ids, nil
}

// =============================================================================

// findReservation resolves the reservation by id and falls back to the
// checkout id when the id is missing or unknown.
func (c *Core) findReservation(ctx context.Context, e payment.Event) (reservationbus.Reservation, error) {
	if e.ReservationID != uuid.Nil {
		r, err := c.reservations.QueryByID(ctx, e.ReservationID)
		switch {
		case err == nil:
			return r, nil
		case !errors.Is(err, reservationbus.ErrNotFound):
			return reservationbus.Reservation{}, err
		}
	}

	if e.CheckoutID == "" {
		if e.ReservationID == uuid.Nil {
			return reservationbus.Reservation{}, ErrMissingReference
		}
		return reservationbus.Reservation{}, fmt.Errorf("reservationID[%s]: %w", e.ReservationID, reservationbus.ErrNotFound)
	}

	return c.reservations.QueryByCheckoutID(ctx, e.CheckoutID)
}

func (c *Core) provision(ctx context.Context, reservationID uuid.UUID, e payment.Event) (Result, error) {
	// Reread under the lock so a concurrent completion is observed.
	r, err := c.reservations.QueryByID(ctx, reservationID)
	if err != nil {
		return Result{}, err
	}

	switch {
	case r.Status.Equal(reservationstatus.Completed):
		t, err := c.reservedTenant(ctx, r)
		if err != nil {
			return Result{}, err
		}
		c.log.Info(ctx, "provisioning replayed", "reservation_id", r.ID, "tenant_id", t.ID)
		return Result{Tenant: t, AlreadyProvisioned: true}, nil

	case r.Status.Equal(reservationstatus.Expired) && !r.Provisioning():
		return Result{}, fmt.Errorf("reservationID[%s]: %w", r.ID, ErrReservationExpired)
	}

	t, err := c.createTenant(ctx, r)
	if err != nil {
		return Result{}, err
	}

	h, err := c.router.ResolveForAdmin(ctx, t.Slug)
	if err != nil {
		return Result{}, fmt.Errorf("resolve storage: %w", err)
	}

	seeded, err := c.cores.Offerings(h).SeedDefaults(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("seed offerings: %w", err)
	}

	cred, err := c.seedAdmin(ctx, c.cores.Staff(h), r.Applicant)
	if err != nil {
		return Result{}, err
	}

	if _, err := c.tenants.UpdateSubscription(ctx, t.ID, subscriptionOf(e, r)); err != nil {
		return Result{}, fmt.Errorf("record subscription: %w", err)
	}

	if _, err := c.tenants.SetStatus(ctx, t.ID, tenantstatus.Active); err != nil {
		return Result{}, fmt.Errorf("activate: %w", err)
	}

	t, err = c.tenants.QueryByID(ctx, t.ID)
	if err != nil {
		return Result{}, fmt.Errorf("confirm: %w", err)
	}
	if !t.Status.Equal(tenantstatus.Active) {
		return Result{}, fmt.Errorf("tenantID[%s] status[%s]: %w", t.ID, t.Status, ErrNotActivated)
	}

	if _, err := c.reservations.MarkCompleted(ctx, r.ID); err != nil {
		if errors.Is(err, reservationbus.ErrNotPending) {
			c.log.Info(ctx, "provisioning: reservation completed concurrently", "reservation_id", r.ID, "tenant_id", t.ID)
			return Result{Tenant: t, AlreadyProvisioned: true}, nil
		}
		return Result{}, fmt.Errorf("mark completed: %w", err)
	}

	c.log.Info(ctx, "tenant provisioned", "reservation_id", r.ID, "tenant_id", t.ID, "slug", t.Slug, "offerings_seeded", seeded)

	return Result{Tenant: t, Credential: &cred}, nil
}

// createTenant returns the tenant attached to the reservation, creating it
// and attaching it in one central transaction on the first attempt.
func (c *Core) createTenant(ctx context.Context, r reservationbus.Reservation) (tenantbus.Tenant, error) {
	if r.TenantID != nil {
		t, err := c.tenants.QueryByID(ctx, *r.TenantID)
		if err != nil {
			return tenantbus.Tenant{}, fmt.Errorf("attached tenant: %w", err)
		}
		c.log.Info(ctx, "provisioning resumed", "reservation_id", r.ID, "tenant_id", t.ID)
		return t, nil
	}

	tenantName, err := name.Parse(r.Applicant.BusinessName)
	if err != nil {
		return tenantbus.Tenant{}, fmt.Errorf("business name: %w", err)
	}

	nt := tenantbus.NewTenant{
		Slug: r.Slug,
		Name: tenantName,
		Business: tenantbus.Business{
			ContactName: r.Applicant.ContactName,
			Email:       r.Applicant.Email,
			Phone:       r.Applicant.Phone,
		},
	}

	var t tenantbus.Tenant

	err = sqldb.WithinTran(ctx, c.log, c.central, func(tx sqldb.CommitRollbacker) error {
		tenants, err := c.tenants.NewWithTx(tx)
		if err != nil {
			return err
		}

		reservations, err := c.reservations.NewWithTx(tx)
		if err != nil {
			return err
		}

		t, err = tenants.Create(ctx, nt)
		if err != nil {
			return fmt.Errorf("create tenant: %w", err)
		}

		if _, err := reservations.AttachTenant(ctx, r.ID, t.ID); err != nil {
			return fmt.Errorf("attach tenant: %w", err)
		}

		return nil
	})
	if err != nil {
		return tenantbus.Tenant{}, err
	}

	return t, nil
}

// seedAdmin creates the initial ADMIN staff credential. On a resumed run
// the account already exists and only gets a fresh temporary password,
// since the earlier one was never handed out.
func (c *Core) seedAdmin(ctx context.Context, staff StaffManager, a reservationbus.Applicant) (Credential, error) {
	pw, err := password.Generate(TempPasswordLength)
	if err != nil {
		return Credential{}, err
	}

	st, err := staff.QueryByEmail(ctx, a.Email)
	switch {
	case err == nil:
		if _, err := staff.ResetPassword(ctx, st, pw, true); err != nil {
			return Credential{}, fmt.Errorf("reset admin: %w", err)
		}

	case errors.Is(err, staffbus.ErrNotFound):
		adminName, err := name.Parse(a.ContactName)
		if err != nil {
			adminName = name.MustParse("Administrator")
		}

		_, err = staff.Create(ctx, staffbus.NewStaff{
			Name:               adminName,
			Email:              a.Email,
			Role:               role.Admin,
			Password:           pw,
			MustChangePassword: true,
		})
		if err != nil {
			return Credential{}, fmt.Errorf("create admin: %w", err)
		}

	default:
		return Credential{}, fmt.Errorf("query admin: %w", err)
	}

	return Credential{Email: a.Email, Password: pw}, nil
}

func (c *Core) reservedTenant(ctx context.Context, r reservationbus.Reservation) (tenantbus.Tenant, error) {
	if r.TenantID != nil {
		return c.tenants.QueryByID(ctx, *r.TenantID)
	}
	return c.tenants.QueryBySlug(ctx, r.Slug)
}

func subscriptionOf(e payment.Event, r reservationbus.Reservation) tenantbus.UpdateSubscription {
	us := tenantbus.UpdateSubscription{
		PlanID:    &r.Applicant.PlanID,
		PeriodEnd: e.PeriodEnd,
	}

	if e.CustomerID != "" {
		us.CustomerID = &e.CustomerID
	}
	if e.SubscriptionID != "" {
		us.SubscriptionID = &e.SubscriptionID
	}

	status := e.SubscriptionStatus
	if status == "" {
		status = "active"
	}
	us.Status = &status

	return us
}
