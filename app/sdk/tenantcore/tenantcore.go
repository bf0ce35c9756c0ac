// Package tenantcore builds the tenant scoped business cores over one
// tenant's storage handle.
package tenantcore

import (
	"github.com/jcpaschoal/gymhub/app/sdk/auth"
	"github.com/jcpaschoal/gymhub/business/domain/offeringbus"
	"github.com/jcpaschoal/gymhub/business/domain/offeringbus/stores/legacydb"
	"github.com/jcpaschoal/gymhub/business/domain/offeringbus/stores/offeringdb"
	"github.com/jcpaschoal/gymhub/business/domain/passbus"
	"github.com/jcpaschoal/gymhub/business/domain/passbus/stores/passdb"
	"github.com/jcpaschoal/gymhub/business/domain/provisionbus"
	"github.com/jcpaschoal/gymhub/business/domain/staffbus"
	"github.com/jcpaschoal/gymhub/business/domain/staffbus/stores/staffdb"
	"github.com/jcpaschoal/gymhub/business/domain/userbus"
	"github.com/jcpaschoal/gymhub/business/domain/userbus/stores/userdb"
	"github.com/jcpaschoal/gymhub/business/sdk/tenantstore"
	"github.com/jcpaschoal/gymhub/foundation/logger"
)

// Factory constructs cores bound to a handle. The cores must not outlive
// the operation that resolved the handle.
type Factory struct {
	log *logger.Logger
}

// New constructs a factory.
func New(log *logger.Logger) Factory {
	return Factory{log: log}
}

// Users returns the member core of the tenant.
func (f Factory) Users(h tenantstore.Handle) *userbus.Core {
	return userbus.NewCore(userdb.NewStore(f.log, h.DB))
}

// Staff returns the staff core of the tenant.
func (f Factory) Staff(h tenantstore.Handle) *staffbus.Core {
	return staffbus.NewCore(staffdb.NewStore(f.log, h.DB))
}

// Offerings returns the offering core of the tenant.
func (f Factory) Offerings(h tenantstore.Handle) *offeringbus.Core {
	return offeringbus.NewCore(f.log, offeringdb.NewStore(f.log, h.DB), legacydb.NewStore(f.log, h.DB))
}

// Passes returns the pass lifecycle core of the tenant.
func (f Factory) Passes(h tenantstore.Handle) *passbus.Core {
	return passbus.NewCore(f.log, passdb.NewStore(f.log, h.DB), h.Beginner(), f.Users(h), f.Offerings(h))
}

// StaffFinder adapts the factory for the auth package.
func (f Factory) StaffFinder(h tenantstore.Handle) auth.StaffFinder {
	return f.Staff(h)
}

// Provisioning adapts the factory for the provisioning workflow.
func (f Factory) Provisioning() provisionbus.TenantCores {
	return seeding{f: f}
}

type seeding struct {
	f Factory
}

func (s seeding) Offerings(h tenantstore.Handle) provisionbus.OfferingSeeder {
	return s.f.Offerings(h)
}

func (s seeding) Staff(h tenantstore.Handle) provisionbus.StaffManager {
	return s.f.Staff(h)
}
