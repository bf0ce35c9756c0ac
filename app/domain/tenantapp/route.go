package tenantapp

import (
	"net/http"

	"github.com/jcpaschoal/gymhub/app/sdk/auth"
	"github.com/jcpaschoal/gymhub/app/sdk/mid"
	"github.com/jcpaschoal/gymhub/business/domain/tenantbus"
	"github.com/jcpaschoal/gymhub/business/sdk/tenantstore"
	"github.com/jcpaschoal/gymhub/business/sdk/web"
	"github.com/jcpaschoal/gymhub/business/types/actions"
	"github.com/jcpaschoal/gymhub/business/types/resource"
)

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Auth      *auth.Auth
	TenantBus *tenantbus.Core
	Router    *tenantstore.Router
}

// Routes adds specific routes for this group.
func Routes(app *web.App, cfg Config) {
	const version = "v1"

	authen := mid.AuthenticatePlatform(cfg.Auth)
	ruleGet := mid.Authorize(cfg.Auth, resource.Tenant, actions.Get)
	ruleUpdate := mid.Authorize(cfg.Auth, resource.Tenant, actions.Update)
	ruleDelete := mid.Authorize(cfg.Auth, resource.Tenant, actions.Delete)

	api := newApp(cfg.TenantBus, cfg.Router)

	app.HandlerFunc(http.MethodGet, version, "/admin/tenants", api.query, authen, ruleGet)
	app.HandlerFunc(http.MethodGet, version, "/admin/tenants/{tenant_id}", api.queryByID, authen, ruleGet)
	app.HandlerFunc(http.MethodPut, version, "/admin/tenants/{tenant_id}", api.updateBusiness, authen, ruleUpdate)
	app.HandlerFunc(http.MethodPost, version, "/admin/tenants/{tenant_id}/block", api.block, authen, ruleUpdate)
	app.HandlerFunc(http.MethodPost, version, "/admin/tenants/{tenant_id}/unblock", api.unblock, authen, ruleUpdate)
	app.HandlerFunc(http.MethodDelete, version, "/admin/tenants/{tenant_id}", api.delete, authen, ruleDelete)
}
