// Package offeringapp maintains the app layer api for the pass catalog of
// a gym.
package offeringapp

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/jcpaschoal/gymhub/app/sdk/errs"
	"github.com/jcpaschoal/gymhub/app/sdk/mid"
	"github.com/jcpaschoal/gymhub/app/sdk/tenantcore"
	"github.com/jcpaschoal/gymhub/business/domain/offeringbus"
	"github.com/jcpaschoal/gymhub/business/sdk/web"
)

type app struct {
	cores tenantcore.Factory
}

func newApp(cores tenantcore.Factory) *app {
	return &app{
		cores: cores,
	}
}

func (a *app) create(ctx context.Context, r *http.Request) web.Encoder {
	var app NewOffering
	if err := web.Decode(r, &app); err != nil {
		return errs.New(errs.InvalidArgument, err)
	}

	no, err := toBusNewOffering(app)
	if err != nil {
		return errs.New(errs.InvalidArgument, err)
	}

	offeringBus, appErr := a.offeringBus(ctx)
	if appErr != nil {
		return appErr
	}

	o, err := offeringBus.Create(ctx, no)
	if err != nil {
		if errors.Is(err, offeringbus.ErrInvalidOffering) {
			return errs.New(errs.InvalidArgument, err)
		}
		return errs.Errorf(errs.InternalOnlyLog, "create: name[%s]: %s", no.Name, err)
	}

	return toAppOffering(o)
}

func (a *app) query(ctx context.Context, r *http.Request) web.Encoder {
	activeOnly := true
	if v := r.URL.Query().Get("active"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errs.NewFieldErrors("active", err)
		}
		activeOnly = b
	}

	offeringBus, appErr := a.offeringBus(ctx)
	if appErr != nil {
		return appErr
	}

	offerings, err := offeringBus.Query(ctx, activeOnly)
	if err != nil {
		return errs.Errorf(errs.Internal, "query: %s", err)
	}

	return Offerings(toAppOfferings(offerings))
}

func (a *app) queryByID(ctx context.Context, r *http.Request) web.Encoder {
	offeringID, err := uuid.Parse(web.Param(r, "offering_id"))
	if err != nil {
		return errs.NewFieldErrors("offering_id", err)
	}

	offeringBus, appErr := a.offeringBus(ctx)
	if appErr != nil {
		return appErr
	}

	o, err := offeringBus.QueryByID(ctx, offeringID)
	if err != nil {
		if errors.Is(err, offeringbus.ErrNotFound) {
			return errs.New(errs.NotFound, err)
		}
		return errs.Errorf(errs.InternalOnlyLog, "query: offeringID[%s]: %s", offeringID, err)
	}

	return toAppOffering(o)
}

// migrateLegacy copies the fixed legacy catalog into configurable
// offerings. Running it again copies nothing.
func (a *app) migrateLegacy(ctx context.Context, _ *http.Request) web.Encoder {
	offeringBus, appErr := a.offeringBus(ctx)
	if appErr != nil {
		return appErr
	}

	n, err := offeringBus.MigrateLegacy(ctx)
	if err != nil {
		return errs.Errorf(errs.InternalOnlyLog, "migratelegacy: %s", err)
	}

	return Migrated{Migrated: n}
}

func (a *app) offeringBus(ctx context.Context) (*offeringbus.Core, *errs.Error) {
	th, err := mid.GetTenant(ctx)
	if err != nil {
		return nil, errs.Errorf(errs.Internal, "tenant missing in context: %s", err)
	}

	return a.cores.Offerings(th), nil
}
