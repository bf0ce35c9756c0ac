package mid

import (
	"context"
	"errors"
	"net/http"

	"github.com/jcpaschoal/gymhub/app/sdk/auth"
	"github.com/jcpaschoal/gymhub/app/sdk/errs"
	"github.com/jcpaschoal/gymhub/business/sdk/web"
)

// Authenticate validates a tenant token. It runs after ResolveTenant and
// refuses tokens issued for another gym.
func Authenticate(a *auth.Auth) web.MidFunc {
	m := func(next web.HandlerFunc) web.HandlerFunc {
		h := func(ctx context.Context, r *http.Request) web.Encoder {
			claims, appErr := bearer(ctx, a, r)
			if appErr != nil {
				return appErr
			}

			th, err := GetTenant(ctx)
			if err != nil {
				return errs.New(errs.Internal, err)
			}

			if err := a.BindTenant(ctx, claims, th); err != nil {
				return errs.New(errs.Unauthenticated, err)
			}

			return next(setClaims(ctx, claims), r)
		}

		return h
	}

	return m
}

// AuthenticatePlatform validates a platform admin token.
func AuthenticatePlatform(a *auth.Auth) web.MidFunc {
	m := func(next web.HandlerFunc) web.HandlerFunc {
		h := func(ctx context.Context, r *http.Request) web.Encoder {
			claims, appErr := bearer(ctx, a, r)
			if appErr != nil {
				return appErr
			}

			if err := a.CheckPlatform(ctx, claims); err != nil {
				if errors.Is(err, auth.ErrForbidden) {
					return errs.New(errs.PermissionDenied, err)
				}
				return errs.New(errs.Unauthenticated, err)
			}

			return next(setClaims(ctx, claims), r)
		}

		return h
	}

	return m
}

func bearer(ctx context.Context, a *auth.Auth, r *http.Request) (auth.Claims, *errs.Error) {
	authStr := r.Header.Get("authorization")
	if authStr == "" {
		return auth.Claims{}, errs.New(errs.Unauthenticated, errors.New("missing authorization header"))
	}

	claims, err := a.Authenticate(ctx, authStr)
	if err != nil {
		return auth.Claims{}, errs.New(errs.Unauthenticated, err)
	}

	return claims, nil
}
