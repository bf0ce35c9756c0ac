package offeringbus

import (
	"time"

	"github.com/google/uuid"
	"github.com/jcpaschoal/gymhub/business/types/durationunit"
)

// Duration is a validity period measured in calendar units.
type Duration struct {
	Value int
	Unit  durationunit.Unit
}

// AddTo returns t moved forward by the duration.
func (d Duration) AddTo(t time.Time) time.Time {
	return d.Unit.AddTo(t, d.Value)
}

// Expiry is the explicit expiry rule of an offering. A zero AfterValue
// means no rule is configured.
type Expiry struct {
	NeverExpires bool
	AfterValue   int
	AfterUnit    durationunit.Unit
}

// Offering is a purchasable pass definition. Offerings coming from the
// legacy fixed catalog carry their code in LegacyCode.
type Offering struct {
	ID          uuid.UUID
	Name        string
	Description string
	PriceCents  int64
	Currency    string
	Duration    *Duration
	VisitsCount *int
	Expiry      Expiry
	Active      bool
	LegacyCode  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validity computes the expiry date and entry counter of a pass bought at
// from. NeverExpires wins over everything, an explicit expiry rule wins over
// the duration, and with neither the pass never expires by date. A nil
// entry count means unlimited entries.
func (o Offering) Validity(from time.Time) (validUntil *time.Time, totalEntries *int) {
	if o.VisitsCount != nil {
		n := *o.VisitsCount
		totalEntries = &n
	}

	switch {
	case o.Expiry.NeverExpires:
		return nil, totalEntries

	case o.Expiry.AfterValue > 0:
		t := o.Expiry.AfterUnit.AddTo(from, o.Expiry.AfterValue)
		return &t, totalEntries

	case o.Duration != nil && o.Duration.Value > 0:
		t := o.Duration.AddTo(from)
		return &t, totalEntries
	}

	return nil, totalEntries
}

// NewOffering contains information needed to create a new offering.
type NewOffering struct {
	Name        string
	Description string
	PriceCents  int64
	Currency    string
	Duration    *Duration
	VisitsCount *int
	Expiry      Expiry
}

// LegacyPassType is a row of the fixed catalog older tenants were created
// with.
type LegacyPassType struct {
	Code         string
	Name         string
	DurationDays *int
	Entries      *int
	PriceCents   int64
	Currency     string
	Active       bool
}
