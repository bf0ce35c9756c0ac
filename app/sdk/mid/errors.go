package mid

import (
	"context"
	"errors"
	"net/http"
	"path"

	"github.com/jcpaschoal/gymhub/app/sdk/errs"
	"github.com/jcpaschoal/gymhub/business/sdk/web"
	"github.com/jcpaschoal/gymhub/foundation/logger"
)

// Errors handles errors coming out of the call chain. Errors that are not
// app errors are hidden behind a generic internal error.
func Errors(log *logger.Logger) web.MidFunc {
	m := func(next web.HandlerFunc) web.HandlerFunc {
		h := func(ctx context.Context, r *http.Request) web.Encoder {
			resp := next(ctx, r)
			err := checkIsError(resp)
			if err == nil {
				return resp
			}

			var appErr *errs.Error
			if !errors.As(err, &appErr) {
				appErr = errs.Errorf(errs.Internal, "internal server error, try again")
			}

			log.Error(ctx, "handled error during request",
				"err", err,
				"code", appErr.Code,
				"source_err_file", path.Base(appErr.FileName),
				"source_err_func", path.Base(appErr.FuncName))

			if appErr.Code == errs.InternalOnlyLog || appErr.Code == errs.Internal {
				appErr = errs.Errorf(errs.Internal, "internal server error, try again")
			}

			return appErr
		}

		return h
	}

	return m
}
