// Package registrationapp maintains the app layer api for opening a gym:
// slug registration, the payment webhook and the development simulation.
package registrationapp

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/jcpaschoal/gymhub/app/sdk/errs"
	"github.com/jcpaschoal/gymhub/app/sdk/metrics"
	"github.com/jcpaschoal/gymhub/business/domain/provisionbus"
	"github.com/jcpaschoal/gymhub/business/domain/reservationbus"
	"github.com/jcpaschoal/gymhub/business/domain/tenantbus"
	"github.com/jcpaschoal/gymhub/business/sdk/payment"
	"github.com/jcpaschoal/gymhub/business/sdk/payment/devpay"
	"github.com/jcpaschoal/gymhub/business/sdk/web"
	"github.com/jcpaschoal/gymhub/foundation/logger"
)

// SignatureHeader carries the provider's webhook signature.
const SignatureHeader = "Stripe-Signature"

type app struct {
	log            *logger.Logger
	provisionBus   *provisionbus.Core
	reservationBus *reservationbus.Core
	provider       payment.Provider
}

func newApp(log *logger.Logger, provisionBus *provisionbus.Core, reservationBus *reservationbus.Core, provider payment.Provider) *app {
	return &app{
		log:            log,
		provisionBus:   provisionBus,
		reservationBus: reservationBus,
		provider:       provider,
	}
}

func (a *app) register(ctx context.Context, r *http.Request) web.Encoder {
	var app NewRegistration
	if err := web.Decode(r, &app); err != nil {
		return errs.New(errs.InvalidArgument, err)
	}

	nr, err := toBusNewRegistration(app)
	if err != nil {
		return errs.New(errs.InvalidArgument, err)
	}

	reg, err := a.provisionBus.Register(ctx, nr)
	if err != nil {
		switch {
		case errors.Is(err, reservationbus.ErrSlugTaken), errors.Is(err, tenantbus.ErrUniqueSlug):
			return errs.NewWithReason(errs.Aborted, "slug_taken", err)
		case errors.Is(err, reservationbus.ErrSlugReserved):
			return errs.NewWithReason(errs.Aborted, "slug_reserved", err)
		case errors.Is(err, provisionbus.ErrCheckoutFailed):
			return errs.New(errs.Unavailable, provisionbus.ErrCheckoutFailed)
		}
		return errs.Errorf(errs.InternalOnlyLog, "register: slug[%s]: %s", nr.Slug, err)
	}

	return toAppRegistration(reg.Reservation, reg.CheckoutURL)
}

func (a *app) queryByID(ctx context.Context, r *http.Request) web.Encoder {
	reservationID, err := uuid.Parse(web.Param(r, "reservation_id"))
	if err != nil {
		return errs.NewFieldErrors("reservation_id", err)
	}

	res, err := a.reservationBus.QueryByID(ctx, reservationID)
	if err != nil {
		if errors.Is(err, reservationbus.ErrNotFound) {
			return errs.New(errs.NotFound, err)
		}
		return errs.Errorf(errs.InternalOnlyLog, "query: reservationID[%s]: %s", reservationID, err)
	}

	return toAppRegistration(res, "")
}

// webhook receives provider events. Any failure answers with an error
// status so the provider redelivers the event.
func (a *app) webhook(ctx context.Context, r *http.Request) web.Encoder {
	payload, err := web.RawBody(r)
	if err != nil {
		return errs.New(errs.InvalidArgument, err)
	}

	e, err := a.provider.ParseEvent(payload, r.Header.Get(SignatureHeader))
	if err != nil {
		return errs.New(errs.InvalidArgument, err)
	}

	switch e.Kind {
	case payment.EventCheckoutCompleted:
		res, appErr := a.provision(ctx, e)
		if appErr != nil {
			return appErr
		}

		return Received{Received: true, Tenant: res.Tenant.Slug.String(), AlreadyProvisioned: res.AlreadyProvisioned}

	case payment.EventSubscriptionChanged:
		t, err := a.provisionBus.ApplySubscriptionChange(ctx, e)
		if err != nil {
			if errors.Is(err, tenantbus.ErrNotFound) {
				return errs.New(errs.NotFound, err)
			}
			return errs.Errorf(errs.InternalOnlyLog, "subscription change: event[%s]: %s", e.ID, err)
		}

		return Received{Received: true, Tenant: t.Slug.String()}
	}

	a.log.Info(ctx, "payment event ignored", "event_id", e.ID, "provider", a.provider.Name())

	return Received{Received: true}
}

// simulate fires the completion event of a development checkout twice, the
// way a provider redelivers, and shows the credential of the new gym.
func (a *app) simulate(ctx context.Context, r *http.Request) web.Encoder {
	reservationID, err := uuid.Parse(web.Param(r, "reservation_id"))
	if err != nil {
		return errs.NewFieldErrors("reservation_id", err)
	}

	e := devpay.Completed(reservationID)

	first, appErr := a.provision(ctx, e)
	if appErr != nil {
		return appErr
	}

	if _, appErr := a.provision(ctx, e); appErr != nil {
		return appErr
	}

	return toAppProvisioned(first)
}

func (a *app) provision(ctx context.Context, e payment.Event) (provisionbus.Result, *errs.Error) {
	res, err := a.provisionBus.ProvisionFromCompletedPayment(ctx, e)
	if err != nil {
		metrics.AddProvisioning(ctx, "failed")

		switch {
		case errors.Is(err, provisionbus.ErrMissingReference):
			return provisionbus.Result{}, errs.New(errs.InvalidArgument, err)
		case errors.Is(err, reservationbus.ErrNotFound):
			return provisionbus.Result{}, errs.New(errs.NotFound, err)
		case errors.Is(err, provisionbus.ErrReservationExpired):
			return provisionbus.Result{}, errs.NewWithReason(errs.FailedPrecondition, "reservation_expired", err)
		}
		return provisionbus.Result{}, errs.Errorf(errs.InternalOnlyLog, "provision: event[%s]: %s", e.ID, err)
	}

	if res.AlreadyProvisioned {
		metrics.AddProvisioning(ctx, "replayed")
		return res, nil
	}

	metrics.AddProvisioning(ctx, "provisioned")

	if res.Credential != nil {
		a.log.Info(ctx, "tenant provisioned", "tenant_id", res.Tenant.ID, "slug", res.Tenant.Slug, "admin_email", res.Credential.Email.Address)
	}

	return res, nil
}
