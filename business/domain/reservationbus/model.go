package reservationbus

import (
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/jcpaschoal/gymhub/business/types/phone"
	"github.com/jcpaschoal/gymhub/business/types/reservationstatus"
	"github.com/jcpaschoal/gymhub/business/types/slug"
)

// Applicant holds what the registrant typed into the form.
type Applicant struct {
	BusinessName string
	ContactName  string
	Email        mail.Address
	Phone        phone.Null
	PlanID       string
}

// Reservation is a temporary claim on a slug while payment is pending.
type Reservation struct {
	ID          uuid.UUID
	Slug        slug.Slug
	Applicant   Applicant
	Status      reservationstatus.Status
	CheckoutID  string
	TenantID    *uuid.UUID
	CreatedAt   time.Time
	ExpiresAt   time.Time
	CompletedAt *time.Time
}

// Live reports whether the reservation still holds its slug at now.
func (r Reservation) Live(now time.Time) bool {
	return r.Status.Equal(reservationstatus.PendingPayment) && now.Before(r.ExpiresAt)
}

// Provisioning reports whether a tenant is already attached. Such a
// reservation never expires since its tenant holds the slug.
func (r Reservation) Provisioning() bool {
	return r.TenantID != nil
}

// NewReservation contains information needed to reserve a slug. The id is
// chosen by the caller so it can be handed to the payment provider first.
type NewReservation struct {
	ID         uuid.UUID
	Slug       slug.Slug
	Applicant  Applicant
	CheckoutID string
}
