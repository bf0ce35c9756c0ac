package userapp

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

	ruleCreate := mid.Authorize(cfg.Auth, resource.Member, actions.Create)
	ruleGet := mid.Authorize(cfg.Auth, resource.Member, actions.Get)
	ruleUpdate := mid.Authorize(cfg.Auth, resource.Member, actions.Update)
	ruleDelete := mid.Authorize(cfg.Auth, resource.Member, actions.Delete)

	api := newApp(cfg.Cores)

	app.HandlerFunc(http.MethodGet, version, "/users", api.query, tenant, authen, ruleGet)
	app.HandlerFunc(http.MethodGet, version, "/users/{user_id}", api.queryByID, tenant, authen, ruleGet)
	app.HandlerFunc(http.MethodPost, version, "/users", api.create, tenant, authen, ruleCreate)
	app.HandlerFunc(http.MethodPut, version, "/users/{user_id}", api.update, tenant, authen, ruleUpdate)
	app.HandlerFunc(http.MethodDelete, version, "/users/{user_id}", api.delete, tenant, authen, ruleDelete)
}
