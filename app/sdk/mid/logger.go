package mid

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jcpaschoal/gymhub/app/sdk/errs"
	"github.com/jcpaschoal/gymhub/business/sdk/web"
	"github.com/jcpaschoal/gymhub/foundation/logger"
)

// Logger writes information about the request to the logs. Query strings
// are left out since tokens travel in them.
func Logger(log *logger.Logger) web.MidFunc {
	m := func(next web.HandlerFunc) web.HandlerFunc {
		h := func(ctx context.Context, r *http.Request) web.Encoder {
			now := time.Now()

			log.Info(ctx, "request started", "method", r.Method, "path", r.URL.Path, "remoteaddr", r.RemoteAddr)

			resp := next(ctx, r)

			code := errs.OK
			if err := checkIsError(resp); err != nil {
				code = errs.Internal

				var appErr *errs.Error
				if errors.As(err, &appErr) {
					code = appErr.Code
				}
			}

			log.Info(ctx, "request completed", "method", r.Method, "path", r.URL.Path, "remoteaddr", r.RemoteAddr,
				"code", code, "since", time.Since(now).String())

			return resp
		}

		return h
	}

	return m
}
