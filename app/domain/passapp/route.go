package passapp

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
	ruleOf := func(res resource.Resource, act actions.Action) web.MidFunc {
		return mid.Authorize(cfg.Auth, res, act)
	}

	api := newApp(cfg.Cores)

	app.HandlerFunc(http.MethodPost, version, "/passes", api.purchase, tenant, authen, ruleOf(resource.Pass, actions.Create))
	app.HandlerFunc(http.MethodPost, version, "/passes/validate", api.validate, tenant, authen, ruleOf(resource.Pass, actions.Scan))
	app.HandlerFunc(http.MethodPost, version, "/passes/consume", api.consume, tenant, authen, ruleOf(resource.Pass, actions.Consume))
	app.HandlerFunc(http.MethodPost, version, "/passes/tokens/deactivate", api.deactivateToken, tenant, authen, ruleOf(resource.Pass, actions.Revoke))
	app.HandlerFunc(http.MethodGet, version, "/passes/usage", api.usage, tenant, authen, ruleOf(resource.Usage, actions.Get))
	app.HandlerFunc(http.MethodGet, version, "/passes/{pass_id}", api.queryByID, tenant, authen, ruleOf(resource.Pass, actions.Get))
	app.HandlerFunc(http.MethodGet, version, "/passes/{pass_id}/usage", api.usageByPass, tenant, authen, ruleOf(resource.Usage, actions.Get))
	app.HandlerFunc(http.MethodPost, version, "/passes/{pass_id}/revoke", api.revoke, tenant, authen, ruleOf(resource.Pass, actions.Revoke))
	app.HandlerFunc(http.MethodPost, version, "/passes/{pass_id}/restore", api.restore, tenant, authen, ruleOf(resource.Pass, actions.Revoke))
	app.HandlerFunc(http.MethodGet, version, "/users/{user_id}/passes", api.queryByUser, tenant, authen, ruleOf(resource.Pass, actions.Get))
}
