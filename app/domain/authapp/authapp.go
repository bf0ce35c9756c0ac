// Package authapp maintains the app layer api for signing in.
package authapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"

	"github.com/jcpaschoal/gymhub/app/sdk/auth"
	"github.com/jcpaschoal/gymhub/app/sdk/errs"
	"github.com/jcpaschoal/gymhub/app/sdk/mid"
	"github.com/jcpaschoal/gymhub/app/sdk/tenantcore"
	"github.com/jcpaschoal/gymhub/business/domain/adminbus"
	"github.com/jcpaschoal/gymhub/business/domain/staffbus"
	"github.com/jcpaschoal/gymhub/business/sdk/web"
	"github.com/jcpaschoal/gymhub/business/types/role"
	"github.com/jcpaschoal/gymhub/business/types/slug"
)

type app struct {
	auth     *auth.Auth
	adminBus *adminbus.Core
	cores    tenantcore.Factory
}

func newApp(auth *auth.Auth, adminBus *adminbus.Core, cores tenantcore.Factory) *app {
	return &app{
		auth:     auth,
		adminBus: adminBus,
		cores:    cores,
	}
}

// login signs a staff member in to the resolved gym.
func (a *app) login(ctx context.Context, r *http.Request) web.Encoder {
	var req Login
	if err := web.Decode(r, &req); err != nil {
		return errs.New(errs.InvalidArgument, err)
	}

	addr, err := mail.ParseAddress(req.Email)
	if err != nil {
		return errs.New(errs.InvalidArgument, fmt.Errorf("parsing email: %w", err))
	}

	th, err := mid.GetTenant(ctx)
	if err != nil {
		return errs.New(errs.Internal, err)
	}

	st, err := a.cores.Staff(th).Authenticate(ctx, *addr, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, staffbus.ErrNotFound),
			errors.Is(err, staffbus.ErrAuthenticationFailure),
			errors.Is(err, staffbus.ErrDisabled):
			return errs.New(errs.Unauthenticated, staffbus.ErrAuthenticationFailure)
		}
		return errs.Errorf(errs.InternalOnlyLog, "authenticate: tenant[%s]: %s", th.Slug, err)
	}

	token, err := a.auth.GenerateToken(st.ID, th.Slug, st.Role)
	if err != nil {
		return errs.New(errs.Internal, err)
	}

	return Token{
		Token:              token,
		Role:               st.Role.String(),
		Tenant:             th.Slug.String(),
		MustChangePassword: st.MustChangePassword,
	}
}

// changePassword replaces the caller's password, clearing the must change
// flag set by provisioning.
func (a *app) changePassword(ctx context.Context, r *http.Request) web.Encoder {
	var req ChangePassword
	if err := web.Decode(r, &req); err != nil {
		return errs.New(errs.InvalidArgument, err)
	}

	pw, err := toBusPassword(req)
	if err != nil {
		return errs.NewFieldErrors("newPassword", err)
	}

	th, err := mid.GetTenant(ctx)
	if err != nil {
		return errs.New(errs.Internal, err)
	}

	staffBus := a.cores.Staff(th)

	st, err := staffBus.QueryByID(ctx, mid.GetSubjectID(ctx))
	if err != nil {
		if errors.Is(err, staffbus.ErrNotFound) {
			return errs.New(errs.Unauthenticated, err)
		}
		return errs.Errorf(errs.InternalOnlyLog, "query staff: %s", err)
	}

	if _, err := staffBus.Authenticate(ctx, st.Email, req.Password); err != nil {
		return errs.New(errs.Unauthenticated, staffbus.ErrAuthenticationFailure)
	}

	if _, err := staffBus.ResetPassword(ctx, st, pw, false); err != nil {
		return errs.Errorf(errs.InternalOnlyLog, "resetpassword: staffID[%s]: %s", st.ID, err)
	}

	return nil
}

// adminLogin signs a platform admin in.
func (a *app) adminLogin(ctx context.Context, r *http.Request) web.Encoder {
	var req Login
	if err := web.Decode(r, &req); err != nil {
		return errs.New(errs.InvalidArgument, err)
	}

	addr, err := mail.ParseAddress(req.Email)
	if err != nil {
		return errs.New(errs.InvalidArgument, fmt.Errorf("parsing email: %w", err))
	}

	adm, err := a.adminBus.Authenticate(ctx, *addr, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, adminbus.ErrNotFound), errors.Is(err, adminbus.ErrAuthenticationFailure):
			return errs.New(errs.Unauthenticated, adminbus.ErrAuthenticationFailure)
		}
		return errs.Errorf(errs.InternalOnlyLog, "authenticate admin: %s", err)
	}

	token, err := a.auth.GenerateToken(adm.ID, slug.Slug{}, role.Platform)
	if err != nil {
		return errs.New(errs.Internal, err)
	}

	return Token{
		Token: token,
		Role:  role.Platform.String(),
	}
}
