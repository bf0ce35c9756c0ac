// Package userapp maintains the app layer api for the members of a gym.
package userapp

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/jcpaschoal/gymhub/app/sdk/errs"
	"github.com/jcpaschoal/gymhub/app/sdk/mid"
	"github.com/jcpaschoal/gymhub/app/sdk/query"
	"github.com/jcpaschoal/gymhub/app/sdk/tenantcore"
	"github.com/jcpaschoal/gymhub/business/domain/userbus"
	"github.com/jcpaschoal/gymhub/business/sdk/order"
	"github.com/jcpaschoal/gymhub/business/sdk/page"
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
	var app NewUser
	if err := web.Decode(r, &app); err != nil {
		return errs.New(errs.InvalidArgument, err)
	}

	nu, err := toBusNewUser(app)
	if err != nil {
		return errs.New(errs.InvalidArgument, err)
	}

	userBus, appErr := a.userBus(ctx)
	if appErr != nil {
		return appErr
	}

	usr, err := userBus.Create(ctx, nu)
	if err != nil {
		if errors.Is(err, userbus.ErrUniqueEmail) {
			return errs.NewWithReason(errs.Aborted, "email_taken", userbus.ErrUniqueEmail)
		}
		return errs.Errorf(errs.InternalOnlyLog, "create: email[%s]: %s", nu.Email.Address, err)
	}

	return toAppUser(usr)
}

func (a *app) update(ctx context.Context, r *http.Request) web.Encoder {
	var app UpdateUser
	if err := web.Decode(r, &app); err != nil {
		return errs.New(errs.InvalidArgument, err)
	}

	uu, err := toBusUpdateUser(app)
	if err != nil {
		return errs.New(errs.InvalidArgument, err)
	}

	userBus, appErr := a.userBus(ctx)
	if appErr != nil {
		return appErr
	}

	usr, appErr := a.user(ctx, userBus, r)
	if appErr != nil {
		return appErr
	}

	updUsr, err := userBus.Update(ctx, usr, uu)
	if err != nil {
		if errors.Is(err, userbus.ErrUniqueEmail) {
			return errs.NewWithReason(errs.Aborted, "email_taken", userbus.ErrUniqueEmail)
		}
		return errs.Errorf(errs.InternalOnlyLog, "update: userID[%s]: %s", usr.ID, err)
	}

	return toAppUser(updUsr)
}

func (a *app) delete(ctx context.Context, r *http.Request) web.Encoder {
	userBus, appErr := a.userBus(ctx)
	if appErr != nil {
		return appErr
	}

	usr, appErr := a.user(ctx, userBus, r)
	if appErr != nil {
		return appErr
	}

	if err := userBus.Delete(ctx, usr); err != nil {
		return errs.Errorf(errs.InternalOnlyLog, "delete: userID[%s]: %s", usr.ID, err)
	}

	return nil
}

func (a *app) query(ctx context.Context, r *http.Request) web.Encoder {
	qp := parseQueryParams(r)

	pg, err := page.Parse(qp.Page, qp.Rows)
	if err != nil {
		return errs.NewFieldErrors("page", err)
	}

	filter, err := parseFilter(qp)
	if err != nil {
		if v, ok := err.(*errs.Error); ok {
			return v
		}
		return errs.NewFieldErrors("filter", err)
	}

	orderBy, err := order.Parse(orderByFields, qp.OrderBy, userbus.DefaultOrderBy)
	if err != nil {
		return errs.NewFieldErrors("order", err)
	}

	userBus, appErr := a.userBus(ctx)
	if appErr != nil {
		return appErr
	}

	usrs, err := userBus.Query(ctx, filter, orderBy, pg)
	if err != nil {
		return errs.Errorf(errs.Internal, "query: %s", err)
	}

	total, err := userBus.Count(ctx, filter)
	if err != nil {
		return errs.Errorf(errs.Internal, "count: %s", err)
	}

	return query.NewResult(toAppUsers(usrs), total, pg)
}

func (a *app) queryByID(ctx context.Context, r *http.Request) web.Encoder {
	userBus, appErr := a.userBus(ctx)
	if appErr != nil {
		return appErr
	}

	usr, appErr := a.user(ctx, userBus, r)
	if appErr != nil {
		return appErr
	}

	return toAppUser(usr)
}

// =============================================================================

func (a *app) userBus(ctx context.Context) (*userbus.Core, *errs.Error) {
	th, err := mid.GetTenant(ctx)
	if err != nil {
		return nil, errs.Errorf(errs.Internal, "tenant missing in context: %s", err)
	}

	return a.cores.Users(th), nil
}

func (a *app) user(ctx context.Context, userBus *userbus.Core, r *http.Request) (userbus.User, *errs.Error) {
	userID, err := uuid.Parse(web.Param(r, "user_id"))
	if err != nil {
		return userbus.User{}, errs.NewFieldErrors("user_id", err)
	}

	usr, err := userBus.QueryByID(ctx, userID)
	if err != nil {
		if errors.Is(err, userbus.ErrNotFound) {
			return userbus.User{}, errs.New(errs.NotFound, err)
		}
		return userbus.User{}, errs.Errorf(errs.InternalOnlyLog, "query: userID[%s]: %s", userID, err)
	}

	return usr, nil
}
