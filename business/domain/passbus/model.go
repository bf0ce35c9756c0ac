package passbus

import (
	"time"

	"github.com/google/uuid"
	"github.com/jcpaschoal/gymhub/business/types/outcome"
	"github.com/jcpaschoal/gymhub/business/types/passstatus"
	"github.com/jcpaschoal/gymhub/business/types/usageaction"
)

// Pass is a member's purchased entitlement. Display fields are copied from
// the offering at purchase time.
type Pass struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	OfferingID       uuid.UUID
	Status           passstatus.Status
	ValidFrom        time.Time
	ValidUntil       *time.Time
	TotalEntries     *int
	RemainingEntries *int
	SerialNumber     string
	Name             string
	Description      string
	PriceCents       int64
	Currency         string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// EntryBased reports whether the pass counts entries.
func (p Pass) EntryBased() bool {
	return p.RemainingEntries != nil
}

// ExpiredAt reports whether the pass is past its expiry date at now.
func (p Pass) ExpiredAt(now time.Time) bool {
	return p.ValidUntil != nil && !now.Before(*p.ValidUntil)
}

// EffectiveStatus derives the status from revocation, the expiry date and
// the entry counter. Stored EXPIRED and DEPLETED are kept since neither
// can be undone by the holder.
func (p Pass) EffectiveStatus(now time.Time) passstatus.Status {
	switch {
	case p.Status.Equal(passstatus.Revoked):
		return passstatus.Revoked
	case p.Status.Equal(passstatus.Depleted):
		return passstatus.Depleted
	case p.Status.Equal(passstatus.Expired), p.ExpiredAt(now):
		return passstatus.Expired
	case p.RemainingEntries != nil && *p.RemainingEntries <= 0:
		return passstatus.Depleted
	}

	return passstatus.Active
}

// Token is the opaque credential a scanner presents for a pass.
type Token struct {
	ID        uuid.UUID
	PassID    uuid.UUID
	Token     string
	Active    bool
	CreatedAt time.Time
}

// UsageLog is one entry of a pass's append-only audit trail.
type UsageLog struct {
	ID        uuid.UUID
	PassID    uuid.UUID
	Action    usageaction.Action
	Entries   int
	StaffID   *uuid.UUID
	CreatedAt time.Time
}

// Validation is the result of presenting a token at the door.
type Validation struct {
	Outcome      outcome.Outcome
	Pass         *Pass
	AutoConsumed bool
}

// Valid reports whether the holder may enter.
func (v Validation) Valid() bool {
	return v.Outcome.Equal(outcome.Valid)
}
