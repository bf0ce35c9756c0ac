package offeringapp

import (
	"net/http"

	"github.com/jcpaschoal/gymhub/app/sdk/auth"
	"github.com/jcpaschoal/gymhub/app/sdk/mid"
	"github.com/jcpaschoal/gymhub/app/sdk/tenantcore"
	"github.com/jcpaschoal/gymhub/business/sdk/tenantstore"
	"github.com/jcpaschoal/gymhub/business/sdk/web"
	"github.com/jcpaschoal/gymhub/business/types/actions"
	"github.com/jcpaschoal/gymhub/business/types/resource"
)

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Auth       *auth.Auth
	Router     *tenantstore.Router
	Cores      tenantcore.Factory
	BaseDomain string
}

// Routes adds specific routes for this group.
func Routes(app *web.App, cfg Config) {
	const version = "v1"

	tenant := mid.ResolveTenant(cfg.Router, cfg.BaseDomain)
	authen := mid.Authenticate(cfg.Auth)

	api := newApp(cfg.Cores)

	app.HandlerFunc(http.MethodGet, version, "/offerings", api.query, tenant, authen,
		mid.Authorize(cfg.Auth, resource.Offering, actions.Get))
	app.HandlerFunc(http.MethodGet, version, "/offerings/{offering_id}", api.queryByID, tenant, authen,
		mid.Authorize(cfg.Auth, resource.Offering, actions.Get))
	app.HandlerFunc(http.MethodPost, version, "/offerings", api.create, tenant, authen,
		mid.Authorize(cfg.Auth, resource.Offering, actions.Create))
	app.HandlerFunc(http.MethodPost, version, "/offerings/legacy/migrate", api.migrateLegacy, tenant, authen,
		mid.Authorize(cfg.Auth, resource.Offering, actions.Update))
}
