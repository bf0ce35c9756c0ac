package mid

import (
	"context"
	"net/http"

	"github.com/jcpaschoal/gymhub/business/sdk/web"
	"github.com/jcpaschoal/gymhub/foundation/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Otel starts the otel tracing, stores the trace id in the context and
// tags the request span with the route that matched.
func Otel(tracer trace.Tracer) web.MidFunc {
	m := func(next web.HandlerFunc) web.HandlerFunc {
		h := func(ctx context.Context, r *http.Request) web.Encoder {
			ctx = otel.InjectTracing(ctx, tracer)

			if r.Pattern != "" {
				trace.SpanFromContext(ctx).SetAttributes(attribute.String("http.route", r.Pattern))
			}

			return next(ctx, r)
		}

		return h
	}

	return m
}
