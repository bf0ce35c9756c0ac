// Package tenantapp maintains the app layer api for platform administration
// of the tenant registry.
package tenantapp

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/jcpaschoal/gymhub/app/sdk/errs"
	"github.com/jcpaschoal/gymhub/business/domain/tenantbus"
	"github.com/jcpaschoal/gymhub/business/sdk/tenantstore"
	"github.com/jcpaschoal/gymhub/business/sdk/web"
	"github.com/jcpaschoal/gymhub/business/types/tenantstatus"
)

type app struct {
	tenantBus *tenantbus.Core
	router    *tenantstore.Router
}

func newApp(tenantBus *tenantbus.Core, router *tenantstore.Router) *app {
	return &app{
		tenantBus: tenantBus,
		router:    router,
	}
}

func (a *app) query(ctx context.Context, r *http.Request) web.Encoder {
	var includeDeleted bool
	if v := r.URL.Query().Get("include_deleted"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errs.NewFieldErrors("include_deleted", err)
		}
		includeDeleted = b
	}

	ts, err := a.tenantBus.QueryActive(ctx, includeDeleted)
	if err != nil {
		return errs.Errorf(errs.InternalOnlyLog, "query: %s", err)
	}

	return Tenants(toAppTenants(ts))
}

func (a *app) queryByID(ctx context.Context, r *http.Request) web.Encoder {
	t, appErr := a.tenant(ctx, r)
	if appErr != nil {
		return appErr
	}

	return toAppTenant(t)
}

func (a *app) updateBusiness(ctx context.Context, r *http.Request) web.Encoder {
	var app UpdateBusiness
	if err := web.Decode(r, &app); err != nil {
		return errs.New(errs.InvalidArgument, err)
	}

	ub, err := toBusUpdateBusiness(app)
	if err != nil {
		return errs.New(errs.InvalidArgument, err)
	}

	t, appErr := a.tenant(ctx, r)
	if appErr != nil {
		return appErr
	}

	updTenant, err := a.tenantBus.UpdateBusinessInfo(ctx, t.ID, ub)
	if err != nil {
		return errs.Errorf(errs.InternalOnlyLog, "updatebusinessinfo: tenantID[%s]: %s", t.ID, err)
	}

	return toAppTenant(updTenant)
}

func (a *app) block(ctx context.Context, r *http.Request) web.Encoder {
	t, appErr := a.setStatus(ctx, r, tenantstatus.Blocked)
	if appErr != nil {
		return appErr
	}

	if err := a.router.Invalidate(ctx, t.Slug); err != nil {
		return errs.Errorf(errs.InternalOnlyLog, "invalidate: slug[%s]: %s", t.Slug, err)
	}

	return toAppTenant(t)
}

func (a *app) unblock(ctx context.Context, r *http.Request) web.Encoder {
	t, appErr := a.setStatus(ctx, r, tenantstatus.Active)
	if appErr != nil {
		return appErr
	}

	return toAppTenant(t)
}

// delete soft deletes the tenant and archives its storage. The registry
// row stays for audit.
func (a *app) delete(ctx context.Context, r *http.Request) web.Encoder {
	t, appErr := a.setStatus(ctx, r, tenantstatus.Deleted)
	if appErr != nil {
		return appErr
	}

	if err := a.router.Archive(ctx, t.Slug, t.ArchiveSuffix()); err != nil {
		return errs.Errorf(errs.InternalOnlyLog, "archive: slug[%s]: %s", t.Slug, err)
	}

	return nil
}

// =============================================================================

func (a *app) tenant(ctx context.Context, r *http.Request) (tenantbus.Tenant, *errs.Error) {
	tenantID, err := uuid.Parse(web.Param(r, "tenant_id"))
	if err != nil {
		return tenantbus.Tenant{}, errs.NewFieldErrors("tenant_id", err)
	}

	t, err := a.tenantBus.QueryByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, tenantbus.ErrNotFound) {
			return tenantbus.Tenant{}, errs.New(errs.NotFound, err)
		}
		return tenantbus.Tenant{}, errs.Errorf(errs.InternalOnlyLog, "query: tenantID[%s]: %s", tenantID, err)
	}

	return t, nil
}

func (a *app) setStatus(ctx context.Context, r *http.Request, status tenantstatus.Status) (tenantbus.Tenant, *errs.Error) {
	t, appErr := a.tenant(ctx, r)
	if appErr != nil {
		return tenantbus.Tenant{}, appErr
	}

	updTenant, err := a.tenantBus.SetStatus(ctx, t.ID, status)
	if err != nil {
		if errors.Is(err, tenantbus.ErrInvalidTransition) {
			return tenantbus.Tenant{}, errs.New(errs.FailedPrecondition, err)
		}
		return tenantbus.Tenant{}, errs.Errorf(errs.InternalOnlyLog, "setstatus: tenantID[%s]: %s", t.ID, err)
	}

	return updTenant, nil
}
