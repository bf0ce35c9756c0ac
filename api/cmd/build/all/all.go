// Package all binds all the routes into the specified app.
package all

import (
	"github.com/jcpaschoal/gymhub/app/domain/authapp"
	"github.com/jcpaschoal/gymhub/app/domain/checkapp"
	"github.com/jcpaschoal/gymhub/app/domain/offeringapp"
	"github.com/jcpaschoal/gymhub/app/domain/passapp"
	"github.com/jcpaschoal/gymhub/app/domain/registrationapp"
	"github.com/jcpaschoal/gymhub/app/domain/tenantapp"
	"github.com/jcpaschoal/gymhub/app/domain/userapp"
	"github.com/jcpaschoal/gymhub/app/sdk/mux"
	"github.com/jcpaschoal/gymhub/business/sdk/web"
)

// Routes constructs the add value which provides the implementation of
// RouteAdder for specifying what routes to bind to this instance.
func Routes() add {
	return add{}
}

type add struct{}

// Add implements the RouterAdder interface.
func (add) Add(app *web.App, cfg mux.Config) {
	tenancy := cfg.TenancyConfig

	checkapp.Routes(app, checkapp.Config{
		Build: cfg.Build,
		Log:   cfg.Log,
		DB:    cfg.DB,
	})

	authapp.Routes(app, authapp.Config{
		Auth:       cfg.Auth,
		AdminBus:   cfg.BusConfig.AdminBus,
		Router:     tenancy.Router,
		Cores:      tenancy.Cores,
		BaseDomain: tenancy.BaseDomain,
	})

	registrationapp.Routes(app, registrationapp.Config{
		Log:            cfg.Log,
		ProvisionBus:   cfg.BusConfig.ProvisionBus,
		ReservationBus: cfg.BusConfig.ReservationBus,
		Provider:       cfg.PaymentConfig.Provider,
		DevMode:        cfg.PaymentConfig.DevMode,
	})

	tenantapp.Routes(app, tenantapp.Config{
		Auth:      cfg.Auth,
		TenantBus: cfg.BusConfig.TenantBus,
		Router:    tenancy.Router,
	})

	passapp.Routes(app, passapp.Config{
		Auth:       cfg.Auth,
		Router:     tenancy.Router,
		Cores:      tenancy.Cores,
		BaseDomain: tenancy.BaseDomain,
	})

	userapp.Routes(app, userapp.Config{
		Auth:       cfg.Auth,
		Router:     tenancy.Router,
		Cores:      tenancy.Cores,
		BaseDomain: tenancy.BaseDomain,
	})

	offeringapp.Routes(app, offeringapp.Config{
		Auth:       cfg.Auth,
		Router:     tenancy.Router,
		Cores:      tenancy.Cores,
		BaseDomain: tenancy.BaseDomain,
	})
}
