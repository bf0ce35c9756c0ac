// Package mux provides support to bind domain level routes
// to the application mux.
package mux

import (
	"net/http"

	"github.com/jcpaschoal/gymhub/app/sdk/auth"
	"github.com/jcpaschoal/gymhub/app/sdk/mid"
	"github.com/jcpaschoal/gymhub/app/sdk/tenantcore"
	"github.com/jcpaschoal/gymhub/business/domain/adminbus"
	"github.com/jcpaschoal/gymhub/business/domain/provisionbus"
	"github.com/jcpaschoal/gymhub/business/domain/reservationbus"
	"github.com/jcpaschoal/gymhub/business/domain/tenantbus"
	"github.com/jcpaschoal/gymhub/business/sdk/payment"
	"github.com/jcpaschoal/gymhub/business/sdk/tenantstore"
	"github.com/jcpaschoal/gymhub/business/sdk/web"
	"github.com/jcpaschoal/gymhub/foundation/logger"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/trace"
)

// BusConfig holds the central business cores shared by the routes.
type BusConfig struct {
	TenantBus      *tenantbus.Core
	AdminBus       *adminbus.Core
	ReservationBus *reservationbus.Core
	ProvisionBus   *provisionbus.Core
}

// TenancyConfig holds how requests are mapped to tenants.
type TenancyConfig struct {
	Router     *tenantstore.Router
	Cores      tenantcore.Factory
	BaseDomain string
}

// PaymentConfig holds the payment provider settings.
type PaymentConfig struct {
	Provider payment.Provider
	DevMode  bool
}

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Build         string
	Log           *logger.Logger
	DB            *sqlx.DB
	Tracer        trace.Tracer
	Auth          *auth.Auth
	BusConfig     BusConfig
	TenancyConfig TenancyConfig
	PaymentConfig PaymentConfig
}

// RouteAdder defines behavior that sets the routes to bind for an instance
// of the service.
type RouteAdder interface {
	Add(app *web.App, cfg Config)
}

// WebAPI constructs a http.Handler with all application routes bound.
func WebAPI(cfg Config, routeAdder RouteAdder) http.Handler {
	app := web.NewApp(
		cfg.Log.Info,
		cfg.Tracer,
		mid.Otel(cfg.Tracer),
		mid.Logger(cfg.Log),
		mid.Errors(cfg.Log),
		mid.Metrics(),
		mid.Panics(),
	)

	routeAdder.Add(app, cfg)

	return app
}
