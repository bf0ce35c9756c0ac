// Package tenantbus provides business access to the tenant registry.
package tenantbus

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jcpaschoal/gymhub/business/sdk/sqldb"
	"github.com/jcpaschoal/gymhub/business/types/slug"
	"github.com/jcpaschoal/gymhub/business/types/tenantstatus"
	"github.com/jcpaschoal/gymhub/foundation/logger"
	"github.com/jcpaschoal/gymhub/foundation/otel"
)

// Set of error variables for CRUD operations.
var (
	ErrNotFound          = errors.New("tenant not found")
	ErrUniqueSlug        = errors.New("slug already taken")
	ErrInvalidTransition = errors.New("invalid tenant status transition")
)

// transitions lists the statuses reachable from each status. DELETED is final.
var transitions = map[tenantstatus.Status][]tenantstatus.Status{
	tenantstatus.Pending: {tenantstatus.Active, tenantstatus.Deleted},
	tenantstatus.Active:  {tenantstatus.Blocked, tenantstatus.Deleted},
	tenantstatus.Blocked: {tenantstatus.Active, tenantstatus.Deleted},
}

// Storer defines the behavior required by the tenantbus to interact with the database.
type Storer interface {
	NewWithTx(tx sqldb.CommitRollbacker) (Storer, error)
	Create(ctx context.Context, t Tenant) error
	Update(ctx context.Context, t Tenant) error
	QueryByID(ctx context.Context, tenantID uuid.UUID) (Tenant, error)
	QueryBySlug(ctx context.Context, slg slug.Slug) (Tenant, error)
	QueryBySubscriptionID(ctx context.Context, subscriptionID string) (Tenant, error)
	Query(ctx context.Context, includeDeleted bool) ([]Tenant, error)
}

// Core manages the set of APIs for tenant access.
type Core struct {
	log    *logger.Logger
	storer Storer
	now    func() time.Time
}

// NewCore constructs a core for tenant api access.
func NewCore(log *logger.Logger, storer Storer) *Core {
	return &Core{
		log:    log,
		storer: storer,
		now:    time.Now,
	}
}

// NewWithTx constructs a new Core value replacing the Storer
// value with a Storer value that is currently inside a transaction.
func (c *Core) NewWithTx(tx sqldb.CommitRollbacker) (*Core, error) {
	storer, err := c.storer.NewWithTx(tx)
	if err != nil {
		return nil, fmt.Errorf("newWithTx: %w", err)
	}

	return &Core{
		log:    c.log,
		storer: storer,
		now:    c.now,
	}, nil
}

// Create registers a new tenant in the PENDING status.
func (c *Core) Create(ctx context.Context, nt NewTenant) (Tenant, error) {
	ctx, span := otel.AddSpan(ctx, "business.tenantbus.create")
	defer span.End()

	secret, err := newSecret()
	if err != nil {
		return Tenant{}, fmt.Errorf("secret: %w", err)
	}

	now := c.now()

	t := Tenant{
		ID:                uuid.New(),
		Slug:              nt.Slug,
		Name:              nt.Name,
		Status:            tenantstatus.Pending,
		Business:          nt.Business,
		StaffAccessSecret: secret,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := c.storer.Create(ctx, t); err != nil {
		return Tenant{}, fmt.Errorf("create: %w", err)
	}

	return t, nil
}

// SetStatus moves the tenant to the given status. Setting the current
// status again is a no-op.
func (c *Core) SetStatus(ctx context.Context, tenantID uuid.UUID, status tenantstatus.Status) (Tenant, error) {
	ctx, span := otel.AddSpan(ctx, "business.tenantbus.setStatus")
	defer span.End()

	t, err := c.QueryByID(ctx, tenantID)
	if err != nil {
		return Tenant{}, err
	}

	if t.Status.Equal(status) {
		return t, nil
	}

	if !canTransition(t.Status, status) {
		return Tenant{}, fmt.Errorf("%s -> %s: %w", t.Status, status, ErrInvalidTransition)
	}

	now := c.now()

	t.Status = status
	t.UpdatedAt = now
	if status.Equal(tenantstatus.Deleted) {
		t.DeletedAt = &now
	}

	if err := c.storer.Update(ctx, t); err != nil {
		return Tenant{}, fmt.Errorf("update: %w", err)
	}

	c.log.Info(ctx, "tenant status changed", "tenant_id", t.ID, "slug", t.Slug, "status", status)

	return t, nil
}

// UpdateSubscription records the subscription fields reported by the
// payment provider.
func (c *Core) UpdateSubscription(ctx context.Context, tenantID uuid.UUID, us UpdateSubscription) (Tenant, error) {
	ctx, span := otel.AddSpan(ctx, "business.tenantbus.updateSubscription")
	defer span.End()

	t, err := c.QueryByID(ctx, tenantID)
	if err != nil {
		return Tenant{}, err
	}

	if us.CustomerID != nil {
		t.Subscription.CustomerID = *us.CustomerID
	}

	if us.SubscriptionID != nil {
		t.Subscription.SubscriptionID = *us.SubscriptionID
	}

	if us.Status != nil {
		t.Subscription.Status = *us.Status
	}

	if us.PlanID != nil {
		t.Subscription.PlanID = *us.PlanID
	}

	if us.PeriodEnd != nil {
		t.Subscription.PeriodEnd = us.PeriodEnd
	}

	t.UpdatedAt = c.now()

	if err := c.storer.Update(ctx, t); err != nil {
		return Tenant{}, fmt.Errorf("update: %w", err)
	}

	return t, nil
}

// UpdateBusinessInfo changes the gym's display and contact details.
func (c *Core) UpdateBusinessInfo(ctx context.Context, tenantID uuid.UUID, ub UpdateBusiness) (Tenant, error) {
	ctx, span := otel.AddSpan(ctx, "business.tenantbus.updateBusinessInfo")
	defer span.End()

	t, err := c.QueryByID(ctx, tenantID)
	if err != nil {
		return Tenant{}, err
	}

	if ub.Name != nil {
		t.Name = *ub.Name
	}

	if ub.ContactName != nil {
		t.Business.ContactName = *ub.ContactName
	}

	if ub.Email != nil {
		t.Business.Email = *ub.Email
	}

	if ub.Phone != nil {
		t.Business.Phone = *ub.Phone
	}

	if ub.Address != nil {
		t.Business.Address = *ub.Address
	}

	if ub.City != nil {
		t.Business.City = *ub.City
	}

	if ub.OpeningHours != nil {
		t.OpeningHours = *ub.OpeningHours
	}

	t.UpdatedAt = c.now()

	if err := c.storer.Update(ctx, t); err != nil {
		return Tenant{}, fmt.Errorf("update: %w", err)
	}

	return t, nil
}

// QueryByID finds the tenant by the specified ID.
func (c *Core) QueryByID(ctx context.Context, tenantID uuid.UUID) (Tenant, error) {
	ctx, span := otel.AddSpan(ctx, "business.tenantbus.queryByID")
	defer span.End()

	t, err := c.storer.QueryByID(ctx, tenantID)
	if err != nil {
		return Tenant{}, fmt.Errorf("query: tenantID[%s]: %w", tenantID, err)
	}

	return t, nil
}

// QueryBySlug finds the tenant currently owning the slug. When only deleted
// tenants ever used it, the most recently deleted one is returned.
func (c *Core) QueryBySlug(ctx context.Context, slg slug.Slug) (Tenant, error) {
	ctx, span := otel.AddSpan(ctx, "business.tenantbus.queryBySlug")
	defer span.End()

	t, err := c.storer.QueryBySlug(ctx, slg)
	if err != nil {
		return Tenant{}, fmt.Errorf("query: slug[%s]: %w", slg, err)
	}

	return t, nil
}

// QueryBySubscriptionID finds the tenant billed by the provider subscription.
func (c *Core) QueryBySubscriptionID(ctx context.Context, subscriptionID string) (Tenant, error) {
	ctx, span := otel.AddSpan(ctx, "business.tenantbus.queryBySubscriptionID")
	defer span.End()

	t, err := c.storer.QueryBySubscriptionID(ctx, subscriptionID)
	if err != nil {
		return Tenant{}, fmt.Errorf("query: subscriptionID[%s]: %w", subscriptionID, err)
	}

	return t, nil
}

// QueryActive returns every tenant that has not been deleted, ordered by
// slug. includeDeleted widens the result to deleted tenants too.
func (c *Core) QueryActive(ctx context.Context, includeDeleted bool) ([]Tenant, error) {
	ctx, span := otel.AddSpan(ctx, "business.tenantbus.queryActive")
	defer span.End()

	ts, err := c.storer.Query(ctx, includeDeleted)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	return ts, nil
}

// IsSlugTaken reports whether a non-deleted tenant owns the slug.
func (c *Core) IsSlugTaken(ctx context.Context, slg slug.Slug) (bool, error) {
	st, found, err := c.LookupStatus(ctx, slg)
	if err != nil {
		return false, err
	}

	return found && !st.Equal(tenantstatus.Deleted), nil
}

// LookupStatus returns the status of the tenant owning the slug and whether
// such a tenant exists at all.
func (c *Core) LookupStatus(ctx context.Context, slg slug.Slug) (tenantstatus.Status, bool, error) {
	t, err := c.storer.QueryBySlug(ctx, slg)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return tenantstatus.Status{}, false, nil
		}
		return tenantstatus.Status{}, false, fmt.Errorf("lookup: slug[%s]: %w", slg, err)
	}

	return t.Status, true, nil
}

// =============================================================================

func canTransition(from tenantstatus.Status, to tenantstatus.Status) bool {
	for _, s := range transitions[from] {
		if s.Equal(to) {
			return true
		}
	}
	return false
}

func newSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
