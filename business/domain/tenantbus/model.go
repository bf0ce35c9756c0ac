package tenantbus

import (
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/jcpaschoal/gymhub/business/types/name"
	"github.com/jcpaschoal/gymhub/business/types/phone"
	"github.com/jcpaschoal/gymhub/business/types/slug"
	"github.com/jcpaschoal/gymhub/business/types/tenantstatus"
)

// Tenant represents a gym registered on the platform.
type Tenant struct {
	ID                uuid.UUID
	Slug              slug.Slug
	Name              name.Name
	Status            tenantstatus.Status
	Subscription      Subscription
	Business          Business
	StaffAccessSecret string
	OpeningHours      string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	DeletedAt         *time.Time
}

// Subscription mirrors the payment provider's view of the gym's plan.
type Subscription struct {
	CustomerID     string
	SubscriptionID string
	Status         string
	PlanID         string
	PeriodEnd      *time.Time
}

// Business holds the contact details of the gym.
type Business struct {
	ContactName string
	Email       mail.Address
	Phone       phone.Null
	Address     string
	City        string
}

// NewTenant contains information needed to create a new tenant.
type NewTenant struct {
	Slug     slug.Slug
	Name     name.Name
	Business Business
}

// UpdateBusiness contains the business fields an administrator may change.
type UpdateBusiness struct {
	Name         *name.Name
	ContactName  *string
	Email        *mail.Address
	Phone        *phone.Null
	Address      *string
	City         *string
	OpeningHours *string
}

// UpdateSubscription contains the subscription fields reported by the
// payment provider.
type UpdateSubscription struct {
	CustomerID     *string
	SubscriptionID *string
	Status         *string
	PlanID         *string
	PeriodEnd      *time.Time
}

// ArchiveSuffix names the archived storage unit of a deleted tenant so its
// slug can be claimed again.
func (t Tenant) ArchiveSuffix() string {
	if t.DeletedAt == nil {
		return "archived-" + t.ID.String()[:8]
	}
	return "deleted-" + t.DeletedAt.UTC().Format("20060102150405")
}
