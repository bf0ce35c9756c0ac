package registrationapp

import (
	"net/http"

	"github.com/jcpaschoal/gymhub/business/domain/provisionbus"
	"github.com/jcpaschoal/gymhub/business/domain/reservationbus"
	"github.com/jcpaschoal/gymhub/business/sdk/payment"
	"github.com/jcpaschoal/gymhub/business/sdk/web"
	"github.com/jcpaschoal/gymhub/foundation/logger"
)

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log            *logger.Logger
	ProvisionBus   *provisionbus.Core
	ReservationBus *reservationbus.Core
	Provider       payment.Provider
	DevMode        bool
}

// Routes adds specific routes for this group.
func Routes(app *web.App, cfg Config) {
	const version = "v1"

	api := newApp(cfg.Log, cfg.ProvisionBus, cfg.ReservationBus, cfg.Provider)

	app.HandlerFunc(http.MethodPost, version, "/registrations", api.register)
	app.HandlerFunc(http.MethodGet, version, "/registrations/{reservation_id}", api.queryByID)
	app.HandlerFunc(http.MethodPost, version, "/webhooks/payment", api.webhook)

	if cfg.DevMode {
		app.HandlerFunc(http.MethodPost, version, "/registrations/{reservation_id}/simulate", api.simulate)
		app.HandlerFunc(http.MethodGet, version, "/registrations/{reservation_id}/simulate", api.simulate)
	}
}
