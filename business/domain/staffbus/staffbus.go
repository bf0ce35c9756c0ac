// Package staffbus provides business access to the staff accounts of a gym.
package staffbus

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/jcpaschoal/gymhub/business/types/password"
	"github.com/jcpaschoal/gymhub/business/types/role"
	"github.com/jcpaschoal/gymhub/foundation/otel"
	"golang.org/x/crypto/bcrypt"
)

// Set of error variables for CRUD operations.
var (
	ErrNotFound              = errors.New("staff not found")
	ErrUniqueEmail           = errors.New("email is not unique")
	ErrAuthenticationFailure = errors.New("authentication failed")
	ErrDisabled              = errors.New("staff account disabled")
	ErrInvalidRole           = errors.New("role not allowed for staff")
)

// Storer interface declares the behavior this package needs to persist and
// retrieve data.
type Storer interface {
	Create(ctx context.Context, st Staff) error
	Update(ctx context.Context, st Staff) error
	QueryByID(ctx context.Context, staffID uuid.UUID) (Staff, error)
	QueryByEmail(ctx context.Context, email mail.Address) (Staff, error)
}

// Core manages the set of APIs for staff access.
type Core struct {
	storer Storer
}

// NewCore constructs a core for staff api access over one tenant's storage.
func NewCore(storer Storer) *Core {
	return &Core{
		storer: storer,
	}
}

// Create adds a new staff member.
func (c *Core) Create(ctx context.Context, ns NewStaff) (Staff, error) {
	ctx, span := otel.AddSpan(ctx, "business.staffbus.create")
	defer span.End()

	if !ns.Role.Equal(role.Admin) && !ns.Role.Equal(role.Staff) {
		return Staff{}, fmt.Errorf("role[%s]: %w", ns.Role, ErrInvalidRole)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(ns.Password.String()), bcrypt.DefaultCost)
	if err != nil {
		return Staff{}, fmt.Errorf("generatefrompassword: %w", err)
	}

	now := time.Now()

	st := Staff{
		ID:                 uuid.New(),
		Name:               ns.Name,
		Email:              ns.Email,
		Role:               ns.Role,
		PasswordHash:       hash,
		MustChangePassword: ns.MustChangePassword,
		Enabled:            true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := c.storer.Create(ctx, st); err != nil {
		return Staff{}, fmt.Errorf("create: %w", err)
	}

	return st, nil
}

// Update modifies information about a staff member.
func (c *Core) Update(ctx context.Context, st Staff, us UpdateStaff) (Staff, error) {
	ctx, span := otel.AddSpan(ctx, "business.staffbus.update")
	defer span.End()

	if us.Name != nil {
		st.Name = *us.Name
	}

	if us.Role != nil {
		if !us.Role.Equal(role.Admin) && !us.Role.Equal(role.Staff) {
			return Staff{}, fmt.Errorf("role[%s]: %w", us.Role, ErrInvalidRole)
		}
		st.Role = *us.Role
	}

	if us.Enabled != nil {
		st.Enabled = *us.Enabled
	}

	st.UpdatedAt = time.Now()

	if err := c.storer.Update(ctx, st); err != nil {
		return Staff{}, fmt.Errorf("update: %w", err)
	}

	return st, nil
}

// ResetPassword replaces the password. mustChange forces the holder to
// pick a new one at next sign in.
func (c *Core) ResetPassword(ctx context.Context, st Staff, pw password.Password, mustChange bool) (Staff, error) {
	ctx, span := otel.AddSpan(ctx, "business.staffbus.resetPassword")
	defer span.End()

	hash, err := bcrypt.GenerateFromPassword([]byte(pw.String()), bcrypt.DefaultCost)
	if err != nil {
		return Staff{}, fmt.Errorf("generatefrompassword: %w", err)
	}

	st.PasswordHash = hash
	st.MustChangePassword = mustChange
	st.UpdatedAt = time.Now()

	if err := c.storer.Update(ctx, st); err != nil {
		return Staff{}, fmt.Errorf("update: %w", err)
	}

	return st, nil
}

// QueryByID finds the staff member by the specified ID.
func (c *Core) QueryByID(ctx context.Context, staffID uuid.UUID) (Staff, error) {
	ctx, span := otel.AddSpan(ctx, "business.staffbus.queryByID")
	defer span.End()

	st, err := c.storer.QueryByID(ctx, staffID)
	if err != nil {
		return Staff{}, fmt.Errorf("query: staffID[%s]: %w", staffID, err)
	}

	return st, nil
}

// QueryByEmail finds the staff member by email.
func (c *Core) QueryByEmail(ctx context.Context, email mail.Address) (Staff, error) {
	ctx, span := otel.AddSpan(ctx, "business.staffbus.queryByEmail")
	defer span.End()

	st, err := c.storer.QueryByEmail(ctx, email)
	if err != nil {
		return Staff{}, fmt.Errorf("query: email[%s]: %w", email.Address, err)
	}

	return st, nil
}

// Authenticate finds a staff member by their email and verifies their
// password.
func (c *Core) Authenticate(ctx context.Context, email mail.Address, password string) (Staff, error) {
	ctx, span := otel.AddSpan(ctx, "business.staffbus.authenticate")
	defer span.End()

	st, err := c.QueryByEmail(ctx, email)
	if err != nil {
		return Staff{}, err
	}

	if err := bcrypt.CompareHashAndPassword(st.PasswordHash, []byte(password)); err != nil {
		return Staff{}, fmt.Errorf("comparehashandpassword: %w", ErrAuthenticationFailure)
	}

	if !st.Enabled {
		return Staff{}, fmt.Errorf("staffID[%s]: %w", st.ID, ErrDisabled)
	}

	return st, nil
}
