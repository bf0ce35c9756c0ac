// Package adminbus provides business access to platform administrators.
package adminbus

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/jcpaschoal/gymhub/foundation/otel"
	"golang.org/x/crypto/bcrypt"
)

// Set of error variables for CRUD operations.
var (
	ErrNotFound              = errors.New("admin not found")
	ErrUniqueEmail           = errors.New("email is not unique")
	ErrAuthenticationFailure = errors.New("authentication failed")
)

// Storer interface declares the behavior this package needs to persist and
// retrieve data.
type Storer interface {
	Create(ctx context.Context, adm Admin) error
	QueryByID(ctx context.Context, adminID uuid.UUID) (Admin, error)
	QueryByEmail(ctx context.Context, email mail.Address) (Admin, error)
}

// Core manages the set of APIs for admin access.
type Core struct {
	storer Storer
}

// NewCore constructs a core for admin api access.
func NewCore(storer Storer) *Core {
	return &Core{
		storer: storer,
	}
}

// Create adds a new platform admin.
func (c *Core) Create(ctx context.Context, na NewAdmin) (Admin, error) {
	ctx, span := otel.AddSpan(ctx, "business.adminbus.create")
	defer span.End()

	hash, err := bcrypt.GenerateFromPassword([]byte(na.Password.String()), bcrypt.DefaultCost)
	if err != nil {
		return Admin{}, fmt.Errorf("generatefrompassword: %w", err)
	}

	now := time.Now()

	adm := Admin{
		ID:           uuid.New(),
		Name:         na.Name,
		Email:        na.Email,
		PasswordHash: hash,
		Enabled:      true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := c.storer.Create(ctx, adm); err != nil {
		return Admin{}, fmt.Errorf("create: %w", err)
	}

	return adm, nil
}

// QueryByID finds the admin by the specified ID.
func (c *Core) QueryByID(ctx context.Context, adminID uuid.UUID) (Admin, error) {
	ctx, span := otel.AddSpan(ctx, "business.adminbus.queryByID")
	defer span.End()

	adm, err := c.storer.QueryByID(ctx, adminID)
	if err != nil {
		return Admin{}, fmt.Errorf("query: adminID[%s]: %w", adminID, err)
	}

	return adm, nil
}

// Authenticate finds an enabled admin by email and verifies the password.
func (c *Core) Authenticate(ctx context.Context, email mail.Address, password string) (Admin, error) {
	ctx, span := otel.AddSpan(ctx, "business.adminbus.authenticate")
	defer span.End()

	adm, err := c.storer.QueryByEmail(ctx, email)
	if err != nil {
		return Admin{}, fmt.Errorf("query: email[%s]: %w", email.Address, err)
	}

	if err := bcrypt.CompareHashAndPassword(adm.PasswordHash, []byte(password)); err != nil {
		return Admin{}, fmt.Errorf("comparehashandpassword: %w", ErrAuthenticationFailure)
	}

	if !adm.Enabled {
		return Admin{}, fmt.Errorf("adminID[%s]: %w", adm.ID, ErrAuthenticationFailure)
	}

	return adm, nil
}
