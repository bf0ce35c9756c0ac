// Package offeringbus provides one normalized view over the purchasable
// offerings of a tenant, whether they live in the configurable catalog or
// in the legacy fixed catalog.
package offeringbus

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jcpaschoal/gymhub/business/types/durationunit"
	"github.com/jcpaschoal/gymhub/foundation/logger"
	"github.com/jcpaschoal/gymhub/foundation/otel"
)

// Set of error variables for CRUD operations.
var (
	ErrNotFound        = errors.New("offering not found")
	ErrInvalidOffering = errors.New("invalid offering")
	ErrUniqueLegacy    = errors.New("legacy pass type already migrated")
)

// legacyNamespace derives stable offering ids from legacy codes, so a pass
// bought before and after migration points at the same offering.
var legacyNamespace = uuid.MustParse("6f1b7c3e-8d1a-4c55-9a57-2f0d8f3b1e64")

// LegacyID returns the offering id of the legacy pass type code.
func LegacyID(code string) uuid.UUID {
	return uuid.NewSHA1(legacyNamespace, []byte(code))
}

// Storer defines the behavior required to reach the configurable catalog.
type Storer interface {
	Create(ctx context.Context, o Offering) error
	QueryByID(ctx context.Context, offeringID uuid.UUID) (Offering, error)
	Query(ctx context.Context, activeOnly bool) ([]Offering, error)
	Count(ctx context.Context) (int, error)
}

// LegacyStorer defines the behavior required to read the legacy catalog.
type LegacyStorer interface {
	Query(ctx context.Context) ([]LegacyPassType, error)
}

// Core manages the set of APIs for offering access.
type Core struct {
	log    *logger.Logger
	storer Storer
	legacy LegacyStorer
	now    func() time.Time
}

// NewCore constructs a core for offering api access over one tenant's
// storage.
func NewCore(log *logger.Logger, storer Storer, legacy LegacyStorer) *Core {
	return &Core{
		log:    log,
		storer: storer,
		legacy: legacy,
		now:    time.Now,
	}
}

// Create adds a new offering to the configurable catalog.
func (c *Core) Create(ctx context.Context, no NewOffering) (Offering, error) {
	ctx, span := otel.AddSpan(ctx, "business.offeringbus.create")
	defer span.End()

	if err := check(no); err != nil {
		return Offering{}, err
	}

	return c.create(ctx, uuid.New(), "", no)
}

// QueryByID finds the offering by id in either catalog.
func (c *Core) QueryByID(ctx context.Context, offeringID uuid.UUID) (Offering, error) {
	ctx, span := otel.AddSpan(ctx, "business.offeringbus.queryByID")
	defer span.End()

	o, err := c.storer.QueryByID(ctx, offeringID)
	if err == nil {
		return o, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Offering{}, fmt.Errorf("query: offeringID[%s]: %w", offeringID, err)
	}

	legacy, err := c.legacy.Query(ctx)
	if err != nil {
		return Offering{}, fmt.Errorf("query legacy: %w", err)
	}

	for _, lpt := range legacy {
		if LegacyID(lpt.Code) == offeringID {
			return fromLegacy(lpt), nil
		}
	}

	return Offering{}, fmt.Errorf("query: offeringID[%s]: %w", offeringID, ErrNotFound)
}

// Query returns the offerings of both catalogs ordered by name. Legacy rows
// already migrated appear once.
func (c *Core) Query(ctx context.Context, activeOnly bool) ([]Offering, error) {
	ctx, span := otel.AddSpan(ctx, "business.offeringbus.query")
	defer span.End()

	offerings, err := c.storer.Query(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	pending, err := c.unmigrated(ctx)
	if err != nil {
		return nil, err
	}

	for _, lpt := range pending {
		if activeOnly && !lpt.Active {
			continue
		}
		offerings = append(offerings, fromLegacy(lpt))
	}

	sort.SliceStable(offerings, func(i, j int) bool {
		return strings.ToLower(offerings[i].Name) < strings.ToLower(offerings[j].Name)
	})

	return offerings, nil
}

// Count returns how many offerings the tenant has across both catalogs.
func (c *Core) Count(ctx context.Context) (int, error) {
	n, err := c.storer.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}

	pending, err := c.unmigrated(ctx)
	if err != nil {
		return 0, err
	}

	return n + len(pending), nil
}

// MigrateLegacy copies every legacy pass type not yet migrated into the
// configurable catalog, keeping its derived id. It returns how many rows
// were copied.
func (c *Core) MigrateLegacy(ctx context.Context) (int, error) {
	ctx, span := otel.AddSpan(ctx, "business.offeringbus.migrateLegacy")
	defer span.End()

	pending, err := c.unmigrated(ctx)
	if err != nil {
		return 0, err
	}

	var migrated int
	for _, lpt := range pending {
		o := fromLegacy(lpt)

		no := NewOffering{
			Name:        o.Name,
			Description: o.Description,
			PriceCents:  o.PriceCents,
			Currency:    o.Currency,
			Duration:    o.Duration,
			VisitsCount: o.VisitsCount,
			Expiry:      o.Expiry,
		}

		created, err := c.create(ctx, o.ID, lpt.Code, no)
		if err != nil {
			if errors.Is(err, ErrUniqueLegacy) {
				continue
			}
			return migrated, fmt.Errorf("migrate code[%s]: %w", lpt.Code, err)
		}

		if !lpt.Active {
			c.log.Info(ctx, "legacy pass type migrated inactive", "code", lpt.Code, "offering_id", created.ID)
		}
		migrated++
	}

	return migrated, nil
}

// SeedDefaults creates the default catalog when the tenant has no
// offerings at all. It returns how many offerings were created.
func (c *Core) SeedDefaults(ctx context.Context) (int, error) {
	ctx, span := otel.AddSpan(ctx, "business.offeringbus.seedDefaults")
	defer span.End()

	n, err := c.Count(ctx)
	if err != nil {
		return 0, err
	}

	if n > 0 {
		return 0, nil
	}

	catalog := DefaultCatalog()
	for _, no := range catalog {
		if _, err := c.Create(ctx, no); err != nil {
			return 0, fmt.Errorf("seed[%s]: %w", no.Name, err)
		}
	}

	return len(catalog), nil
}

// DefaultCatalog returns the offerings every new gym starts with.
func DefaultCatalog() []NewOffering {
	one := 1
	ten := 10

	return []NewOffering{
		{
			Name:        "Single Entry",
			Description: "One visit, valid for a month",
			PriceCents:  1000,
			Currency:    "EUR",
			VisitsCount: &one,
			Expiry:      Expiry{AfterValue: 1, AfterUnit: durationunit.Month},
		},
		{
			Name:        "10 Entry Card",
			Description: "Ten visits, valid for six months",
			PriceCents:  8500,
			Currency:    "EUR",
			VisitsCount: &ten,
			Expiry:      Expiry{AfterValue: 6, AfterUnit: durationunit.Month},
		},
		{
			Name:        "Monthly Pass",
			Description: "Unlimited visits for one month",
			PriceCents:  4500,
			Currency:    "EUR",
			Duration:    &Duration{Value: 1, Unit: durationunit.Month},
		},
		{
			Name:        "Annual Pass",
			Description: "Unlimited visits for one year",
			PriceCents:  42000,
			Currency:    "EUR",
			Duration:    &Duration{Value: 1, Unit: durationunit.Year},
		},
	}
}

// =============================================================================

func (c *Core) create(ctx context.Context, id uuid.UUID, legacyCode string, no NewOffering) (Offering, error) {
	now := c.now()

	currency := strings.ToUpper(strings.TrimSpace(no.Currency))
	if currency == "" {
		currency = "EUR"
	}

	o := Offering{
		ID:          id,
		Name:        strings.TrimSpace(no.Name),
		Description: no.Description,
		PriceCents:  no.PriceCents,
		Currency:    currency,
		Duration:    no.Duration,
		VisitsCount: no.VisitsCount,
		Expiry:      no.Expiry,
		Active:      true,
		LegacyCode:  legacyCode,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := c.storer.Create(ctx, o); err != nil {
		return Offering{}, fmt.Errorf("create: %w", err)
	}

	return o, nil
}

func (c *Core) unmigrated(ctx context.Context) ([]LegacyPassType, error) {
	legacy, err := c.legacy.Query(ctx)
	if err != nil {
		return nil, fmt.Errorf("query legacy: %w", err)
	}

	var pending []LegacyPassType
	for _, lpt := range legacy {
		_, err := c.storer.QueryByID(ctx, LegacyID(lpt.Code))
		switch {
		case err == nil:
			continue
		case errors.Is(err, ErrNotFound):
			pending = append(pending, lpt)
		default:
			return nil, fmt.Errorf("query migrated code[%s]: %w", lpt.Code, err)
		}
	}

	return pending, nil
}

func fromLegacy(lpt LegacyPassType) Offering {
	o := Offering{
		ID:          LegacyID(lpt.Code),
		Name:        lpt.Name,
		PriceCents:  lpt.PriceCents,
		Currency:    lpt.Currency,
		VisitsCount: lpt.Entries,
		Active:      lpt.Active,
		LegacyCode:  lpt.Code,
	}

	if lpt.DurationDays != nil && *lpt.DurationDays > 0 {
		o.Duration = &Duration{Value: *lpt.DurationDays, Unit: durationunit.Day}
	}

	return o
}

func check(no NewOffering) error {
	switch {
	case strings.TrimSpace(no.Name) == "":
		return fmt.Errorf("name required: %w", ErrInvalidOffering)
	case no.PriceCents < 0:
		return fmt.Errorf("negative price: %w", ErrInvalidOffering)
	case no.Duration != nil && no.Duration.Value <= 0:
		return fmt.Errorf("duration must be positive: %w", ErrInvalidOffering)
	case no.Duration != nil && no.Duration.Unit.IsZero():
		return fmt.Errorf("duration unit required: %w", ErrInvalidOffering)
	case no.VisitsCount != nil && *no.VisitsCount <= 0:
		return fmt.Errorf("visits count must be positive: %w", ErrInvalidOffering)
	case no.Expiry.AfterValue < 0:
		return fmt.Errorf("expiry must be positive: %w", ErrInvalidOffering)
	case no.Expiry.AfterValue > 0 && no.Expiry.AfterUnit.IsZero():
		return fmt.Errorf("expiry unit required: %w", ErrInvalidOffering)
	}

	return nil
}
