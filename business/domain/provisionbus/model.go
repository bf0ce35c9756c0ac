package provisionbus

import (
	"net/mail"

	"github.com/jcpaschoal/gymhub/business/domain/reservationbus"
	"github.com/jcpaschoal/gymhub/business/domain/tenantbus"
	"github.com/jcpaschoal/gymhub/business/types/password"
	"github.com/jcpaschoal/gymhub/business/types/slug"
)

// NewRegistration is a gym owner's request to open a tenant.
type NewRegistration struct {
	Slug      slug.Slug
	Applicant reservationbus.Applicant
}

// Registration is a reservation waiting for payment at the provider.
type Registration struct {
	Reservation reservationbus.Reservation
	CheckoutURL string
}

// Credential is the initial administrative login of a provisioned tenant.
// Delivering it to the owner is the caller's concern.
type Credential struct {
	Email    mail.Address
	Password password.Password
}

// Result is the outcome of a provisioning call. Credential is only set by
// the call that actually provisioned the tenant.
type Result struct {
	Tenant             tenantbus.Tenant
	Credential         *Credential
	AlreadyProvisioned bool
}
