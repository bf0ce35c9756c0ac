package authapp

import (
	"net/http"

	"github.com/jcpaschoal/gymhub/app/sdk/auth"
	"github.com/jcpaschoal/gymhub/app/sdk/mid"
	"github.com/jcpaschoal/gymhub/app/sdk/tenantcore"
	"github.com/jcpaschoal/gymhub/business/domain/adminbus"
	"github.com/jcpaschoal/gymhub/business/sdk/tenantstore"
	"github.com/jcpaschoal/gymhub/business/sdk/web"
)

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Auth       *auth.Auth
	AdminBus   *adminbus.Core
	Router     *tenantstore.Router
	Cores      tenantcore.Factory
	BaseDomain string
}

// Routes adds specific routes for this group.
func Routes(app *web.App, cfg Config) {
	const version = "v1"

	tenant := mid.ResolveTenant(cfg.Router, cfg.BaseDomain)
	authen := mid.Authenticate(cfg.Auth)

	api := newApp(cfg.Auth, cfg.AdminBus, cfg.Cores)

	app.HandlerFunc(http.MethodPost, version, "/auth/login", api.login, tenant)
	app.HandlerFunc(http.MethodPut, version, "/auth/password", api.changePassword, tenant, authen)
	app.HandlerFunc(http.MethodPost, version, "/admin/auth/login", api.adminLogin)
}
