// Package passbus provides the lifecycle of passes: purchase, token
// issuance, validation at the door, entry consumption, expiry and
// revocation.
package passbus

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jcpaschoal/gymhub/business/domain/offeringbus"
	"github.com/jcpaschoal/gymhub/business/domain/userbus"
	"github.com/jcpaschoal/gymhub/business/sdk/sqldb"
	"github.com/jcpaschoal/gymhub/business/types/outcome"
	"github.com/jcpaschoal/gymhub/business/types/passstatus"
	"github.com/jcpaschoal/gymhub/business/types/usageaction"
	"github.com/jcpaschoal/gymhub/foundation/logger"
	"github.com/jcpaschoal/gymhub/foundation/otel"
)

// Set of error variables for pass operations.
var (
	ErrNotFound            = errors.New("pass not found")
	ErrTokenNotFound       = errors.New("token not found")
	ErrAccountBlocked      = errors.New("account blocked")
	ErrOfferingNotFound    = errors.New("offering not found")
	ErrInsufficientEntries = errors.New("insufficient entries")
	ErrNotEntryBased       = errors.New("pass is not entry based")
	ErrInvalidCount        = errors.New("count must be positive")
	ErrPassRevoked         = errors.New("pass revoked")
	ErrPassExpired         = errors.New("pass expired")
	ErrPassDepleted        = errors.New("pass depleted")
	ErrNotRevoked          = errors.New("pass is not revoked")
)

// Usage history bounds.
const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

// Storer defines the behavior required by the passbus to interact with a
// tenant's storage.
type Storer interface {
	NewWithTx(tx sqldb.CommitRollbacker) (Storer, error)
	Create(ctx context.Context, p Pass) error
	SetStatusIf(ctx context.Context, passID uuid.UUID, from passstatus.Status, to passstatus.Status, now time.Time) (bool, error)
	SetStatus(ctx context.Context, passID uuid.UUID, to passstatus.Status, now time.Time) error
	Decrement(ctx context.Context, passID uuid.UUID, count int, now time.Time) (bool, error)
	QueryByID(ctx context.Context, passID uuid.UUID) (Pass, error)
	QueryBySerial(ctx context.Context, serial string) (Pass, error)
	QueryByUser(ctx context.Context, userID uuid.UUID) ([]Pass, error)
	CreateToken(ctx context.Context, t Token) error
	DeactivateToken(ctx context.Context, tokenID uuid.UUID) error
	QueryToken(ctx context.Context, token string) (Token, error)
	QueryTokensByPass(ctx context.Context, passID uuid.UUID) ([]Token, error)
	AddUsage(ctx context.Context, ul UsageLog) error
	QueryUsage(ctx context.Context, limit int) ([]UsageLog, error)
	QueryUsageByPass(ctx context.Context, passID uuid.UUID, limit int) ([]UsageLog, error)
}

// UserFinder finds the owner of a pass.
type UserFinder interface {
	QueryByID(ctx context.Context, userID uuid.UUID) (userbus.User, error)
}

// OfferingFinder finds the offering a pass is bought from.
type OfferingFinder interface {
	QueryByID(ctx context.Context, offeringID uuid.UUID) (offeringbus.Offering, error)
}

// Core manages the set of APIs for pass access over one tenant's storage.
type Core struct {
	log       *logger.Logger
	storer    Storer
	bgn       sqldb.Beginner
	users     UserFinder
	offerings OfferingFinder
	now       func() time.Time
}

// NewCore constructs a core for pass api access. Lookups through users and
// offerings run outside of the pass transactions.
func NewCore(log *logger.Logger, storer Storer, bgn sqldb.Beginner, users UserFinder, offerings OfferingFinder) *Core {
	return &Core{
		log:       log,
		storer:    storer,
		bgn:       bgn,
		users:     users,
		offerings: offerings,
		now:       time.Now,
	}
}

// WithClock returns a copy of the core reading time from now.
func (c *Core) WithClock(now func() time.Time) *Core {
	cc := *c
	cc.now = now
	return &cc
}

// Purchase creates a pass for the member from the offering and issues its
// token. Both are stored or neither is.
func (c *Core) Purchase(ctx context.Context, userID uuid.UUID, offeringID uuid.UUID) (Pass, Token, error) {
	ctx, span := otel.AddSpan(ctx, "business.passbus.purchase")
	defer span.End()

	usr, err := c.users.QueryByID(ctx, userID)
	if err != nil {
		return Pass{}, Token{}, fmt.Errorf("query user: %w", err)
	}

	if usr.Blocked {
		return Pass{}, Token{}, fmt.Errorf("userID[%s]: %w", userID, ErrAccountBlocked)
	}

	off, err := c.offerings.QueryByID(ctx, offeringID)
	if err != nil {
		if errors.Is(err, offeringbus.ErrNotFound) {
			return Pass{}, Token{}, fmt.Errorf("offeringID[%s]: %w", offeringID, ErrOfferingNotFound)
		}
		return Pass{}, Token{}, fmt.Errorf("query offering: %w", err)
	}

	if !off.Active {
		return Pass{}, Token{}, fmt.Errorf("offeringID[%s] inactive: %w", offeringID, ErrOfferingNotFound)
	}

	now := c.now()
	validUntil, entries := off.Validity(now)

	serial, err := newSerial()
	if err != nil {
		return Pass{}, Token{}, fmt.Errorf("serial: %w", err)
	}

	secret, err := newToken()
	if err != nil {
		return Pass{}, Token{}, fmt.Errorf("token: %w", err)
	}

	p := Pass{
		ID:           uuid.New(),
		UserID:       userID,
		OfferingID:   off.ID,
		Status:       passstatus.Active,
		ValidFrom:    now,
		ValidUntil:   validUntil,
		TotalEntries: entries,
		SerialNumber: serial,
		Name:         off.Name,
		Description:  off.Description,
		PriceCents:   off.PriceCents,
		Currency:     off.Currency,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if entries != nil {
		remaining := *entries
		p.RemainingEntries = &remaining
	}

	tkn := Token{
		ID:        uuid.New(),
		PassID:    p.ID,
		Token:     secret,
		Active:    true,
		CreatedAt: now,
	}

	err = sqldb.WithinTran(ctx, c.log, c.bgn, func(tx sqldb.CommitRollbacker) error {
		storer, err := c.storer.NewWithTx(tx)
		if err != nil {
			return err
		}

		if err := storer.Create(ctx, p); err != nil {
			return fmt.Errorf("create pass: %w", err)
		}

		if err := storer.CreateToken(ctx, tkn); err != nil {
			return fmt.Errorf("create token: %w", err)
		}

		return nil
	})
	if err != nil {
		return Pass{}, Token{}, err
	}

	c.log.Info(ctx, "pass purchased", "pass_id", p.ID, "user_id", userID, "offering_id", off.ID)

	return p, tkn, nil
}

// Validate checks the presented token, or serial number, at the door. The
// outcome follows a fixed precedence: blocked member, revoked, depleted,
// expired by date, out of entries, then valid. A valid scan is logged and,
// with autoConsume, one entry of an entry based pass is used up.
func (c *Core) Validate(ctx context.Context, token string, autoConsume bool, staffID *uuid.UUID) (Validation, error) {
	ctx, span := otel.AddSpan(ctx, "business.passbus.validate")
	defer span.End()

	p, err := c.lookup(ctx, token)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return Validation{Outcome: outcome.NotFound}, nil
		}
		return Validation{}, err
	}

	usr, err := c.users.QueryByID(ctx, p.UserID)
	if err != nil {
		return Validation{}, fmt.Errorf("query user: %w", err)
	}

	now := c.now()

	if res, done, err := c.refuse(ctx, p, usr, now); done || err != nil {
		return res, err
	}

	consume := autoConsume && p.EntryBased()

	var lostRace bool
	err = sqldb.WithinTran(ctx, c.log, c.bgn, func(tx sqldb.CommitRollbacker) error {
		storer, err := c.storer.NewWithTx(tx)
		if err != nil {
			return err
		}

		if consume {
			ok, err := storer.Decrement(ctx, p.ID, 1, now)
			if err != nil {
				return fmt.Errorf("decrement: %w", err)
			}
			if !ok {
				lostRace = true
				return nil
			}
		}

		if err := storer.AddUsage(ctx, newUsage(p.ID, usageaction.Scan, 0, staffID, now)); err != nil {
			return fmt.Errorf("log scan: %w", err)
		}

		if consume {
			if err := storer.AddUsage(ctx, newUsage(p.ID, usageaction.Consume, 1, staffID, now)); err != nil {
				return fmt.Errorf("log consume: %w", err)
			}
		}

		p, err = storer.QueryByID(ctx, p.ID)
		return err
	})
	if err != nil {
		return Validation{}, err
	}

	if lostRace {
		p, err = c.storer.QueryByID(ctx, p.ID)
		if err != nil {
			return Validation{}, fmt.Errorf("reload: %w", err)
		}
		if res, done, err := c.refuse(ctx, p, usr, now); done || err != nil {
			return res, err
		}
		return Validation{Outcome: outcome.Depleted, Pass: &p}, nil
	}

	p.Status = p.EffectiveStatus(now)

	return Validation{Outcome: outcome.Valid, Pass: &p, AutoConsumed: consume}, nil
}

// ConsumeEntry uses up count entries of the pass behind the token.
func (c *Core) ConsumeEntry(ctx context.Context, token string, count int, staffID *uuid.UUID) (Pass, error) {
	ctx, span := otel.AddSpan(ctx, "business.passbus.consumeEntry")
	defer span.End()

	if count <= 0 {
		return Pass{}, ErrInvalidCount
	}

	p, err := c.lookup(ctx, token)
	if err != nil {
		return Pass{}, err
	}

	usr, err := c.users.QueryByID(ctx, p.UserID)
	if err != nil {
		return Pass{}, fmt.Errorf("query user: %w", err)
	}

	now := c.now()

	res, done, err := c.refuse(ctx, p, usr, now)
	if err != nil {
		return Pass{}, err
	}
	if done {
		return Pass{}, outcomeErr(res.Outcome, usr.Blocked)
	}

	if !p.EntryBased() {
		return Pass{}, fmt.Errorf("passID[%s]: %w", p.ID, ErrNotEntryBased)
	}

	if count > *p.RemainingEntries {
		return Pass{}, fmt.Errorf("passID[%s] remaining[%d] count[%d]: %w", p.ID, *p.RemainingEntries, count, ErrInsufficientEntries)
	}

	err = sqldb.WithinTran(ctx, c.log, c.bgn, func(tx sqldb.CommitRollbacker) error {
		storer, err := c.storer.NewWithTx(tx)
		if err != nil {
			return err
		}

		ok, err := storer.Decrement(ctx, p.ID, count, now)
		if err != nil {
			return fmt.Errorf("decrement: %w", err)
		}
		if !ok {
			return fmt.Errorf("passID[%s] count[%d]: %w", p.ID, count, ErrInsufficientEntries)
		}

		if err := storer.AddUsage(ctx, newUsage(p.ID, usageaction.Consume, count, staffID, now)); err != nil {
			return fmt.Errorf("log consume: %w", err)
		}

		p, err = storer.QueryByID(ctx, p.ID)
		return err
	})
	if err != nil {
		return Pass{}, err
	}

	p.Status = p.EffectiveStatus(now)

	return p, nil
}

// Revoke blocks the pass until it is restored.
func (c *Core) Revoke(ctx context.Context, passID uuid.UUID) (Pass, error) {
	ctx, span := otel.AddSpan(ctx, "business.passbus.revoke")
	defer span.End()

	p, err := c.storer.QueryByID(ctx, passID)
	if err != nil {
		return Pass{}, fmt.Errorf("query: passID[%s]: %w", passID, err)
	}

	if p.Status.Equal(passstatus.Revoked) {
		return p, nil
	}

	now := c.now()

	if err := c.storer.SetStatus(ctx, passID, passstatus.Revoked, now); err != nil {
		return Pass{}, fmt.Errorf("set status: %w", err)
	}

	c.log.Info(ctx, "pass revoked", "pass_id", passID)

	p.Status = passstatus.Revoked
	p.UpdatedAt = now

	return p, nil
}

// Restore lifts a revocation. The pass gets whatever status its expiry
// date and entry counter give it.
func (c *Core) Restore(ctx context.Context, passID uuid.UUID) (Pass, error) {
	ctx, span := otel.AddSpan(ctx, "business.passbus.restore")
	defer span.End()

	p, err := c.storer.QueryByID(ctx, passID)
	if err != nil {
		return Pass{}, fmt.Errorf("query: passID[%s]: %w", passID, err)
	}

	if !p.Status.Equal(passstatus.Revoked) {
		return Pass{}, fmt.Errorf("passID[%s] status[%s]: %w", passID, p.Status, ErrNotRevoked)
	}

	now := c.now()

	p.Status = passstatus.Active
	p.Status = p.EffectiveStatus(now)
	p.UpdatedAt = now

	if err := c.storer.SetStatus(ctx, passID, p.Status, now); err != nil {
		return Pass{}, fmt.Errorf("set status: %w", err)
	}

	c.log.Info(ctx, "pass restored", "pass_id", passID, "status", p.Status)

	return p, nil
}

// DeactivateToken retires a token. Scans presenting it report NOT_FOUND.
func (c *Core) DeactivateToken(ctx context.Context, token string) error {
	ctx, span := otel.AddSpan(ctx, "business.passbus.deactivateToken")
	defer span.End()

	tkn, err := c.storer.QueryToken(ctx, token)
	if err != nil {
		return fmt.Errorf("query token: %w", err)
	}

	if err := c.storer.DeactivateToken(ctx, tkn.ID); err != nil {
		return fmt.Errorf("deactivate: %w", err)
	}

	return nil
}

// QueryByID finds the pass by id with its status derived at now.
func (c *Core) QueryByID(ctx context.Context, passID uuid.UUID) (Pass, error) {
	ctx, span := otel.AddSpan(ctx, "business.passbus.queryByID")
	defer span.End()

	p, err := c.storer.QueryByID(ctx, passID)
	if err != nil {
		return Pass{}, fmt.Errorf("query: passID[%s]: %w", passID, err)
	}

	p.Status = p.EffectiveStatus(c.now())

	return p, nil
}

// QueryByUser returns the member's passes, newest first, with statuses
// derived at now.
func (c *Core) QueryByUser(ctx context.Context, userID uuid.UUID) ([]Pass, error) {
	ctx, span := otel.AddSpan(ctx, "business.passbus.queryByUser")
	defer span.End()

	passes, err := c.storer.QueryByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("query: userID[%s]: %w", userID, err)
	}

	now := c.now()
	for i := range passes {
		passes[i].Status = passes[i].EffectiveStatus(now)
	}

	return passes, nil
}

// UsageHistory returns the latest usage entries of the tenant, most recent
// first.
func (c *Core) UsageHistory(ctx context.Context, limit int) ([]UsageLog, error) {
	ctx, span := otel.AddSpan(ctx, "business.passbus.usageHistory")
	defer span.End()

	logs, err := c.storer.QueryUsage(ctx, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query usage: %w", err)
	}

	return logs, nil
}

// UsageHistoryByPass returns the latest usage entries of one pass, most
// recent first.
func (c *Core) UsageHistoryByPass(ctx context.Context, passID uuid.UUID, limit int) ([]UsageLog, error) {
	ctx, span := otel.AddSpan(ctx, "business.passbus.usageHistoryByPass")
	defer span.End()

	logs, err := c.storer.QueryUsageByPass(ctx, passID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query usage: passID[%s]: %w", passID, err)
	}

	return logs, nil
}

// =============================================================================

// lookup finds the pass behind a token, falling back to the serial number
// for manual entry. Unknown or inactive credentials yield ErrTokenNotFound.
func (c *Core) lookup(ctx context.Context, token string) (Pass, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Pass{}, ErrTokenNotFound
	}

	tkn, err := c.storer.QueryToken(ctx, token)
	switch {
	case err == nil:
		if !tkn.Active {
			return Pass{}, ErrTokenNotFound
		}
		p, err := c.storer.QueryByID(ctx, tkn.PassID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return Pass{}, ErrTokenNotFound
			}
			return Pass{}, fmt.Errorf("query pass: %w", err)
		}
		return p, nil

	case !errors.Is(err, ErrTokenNotFound):
		return Pass{}, fmt.Errorf("query token: %w", err)
	}

	p, err := c.storer.QueryBySerial(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Pass{}, ErrTokenNotFound
		}
		return Pass{}, fmt.Errorf("query serial: %w", err)
	}

	tkns, err := c.storer.QueryTokensByPass(ctx, p.ID)
	if err != nil {
		return Pass{}, fmt.Errorf("query tokens: %w", err)
	}

	for _, t := range tkns {
		if t.Active {
			return p, nil
		}
	}

	return Pass{}, ErrTokenNotFound
}

// refuse applies the refusal precedence. It reports done when the pass may
// not be used, persisting the EXPIRED and DEPLETED transitions it finds.
func (c *Core) refuse(ctx context.Context, p Pass, usr userbus.User, now time.Time) (Validation, bool, error) {
	switch {
	case usr.Blocked:
		return Validation{Outcome: outcome.Revoked, Pass: &p}, true, nil

	case p.Status.Equal(passstatus.Revoked):
		return Validation{Outcome: outcome.Revoked, Pass: &p}, true, nil

	case p.Status.Equal(passstatus.Depleted):
		return Validation{Outcome: outcome.Depleted, Pass: &p}, true, nil

	case p.Status.Equal(passstatus.Expired), p.ExpiredAt(now):
		if err := c.transition(ctx, &p, passstatus.Expired, now); err != nil {
			return Validation{}, true, err
		}
		return Validation{Outcome: outcome.Expired, Pass: &p}, true, nil

	case p.RemainingEntries != nil && *p.RemainingEntries <= 0:
		if err := c.transition(ctx, &p, passstatus.Depleted, now); err != nil {
			return Validation{}, true, err
		}
		return Validation{Outcome: outcome.Depleted, Pass: &p}, true, nil
	}

	return Validation{}, false, nil
}

func (c *Core) transition(ctx context.Context, p *Pass, to passstatus.Status, now time.Time) error {
	if p.Status.Equal(to) {
		return nil
	}

	if _, err := c.storer.SetStatusIf(ctx, p.ID, passstatus.Active, to, now); err != nil {
		return fmt.Errorf("transition[%s]: %w", to, err)
	}

	p.Status = to
	p.UpdatedAt = now

	return nil
}

func outcomeErr(o outcome.Outcome, blocked bool) error {
	switch {
	case blocked:
		return ErrAccountBlocked
	case o.Equal(outcome.Revoked):
		return ErrPassRevoked
	case o.Equal(outcome.Expired):
		return ErrPassExpired
	default:
		return ErrPassDepleted
	}
}

func newUsage(passID uuid.UUID, action usageaction.Action, entries int, staffID *uuid.UUID, now time.Time) UsageLog {
	return UsageLog{
		ID:        uuid.New(),
		PassID:    passID,
		Action:    action,
		Entries:   entries,
		StaffID:   staffID,
		CreatedAt: now,
	}
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		return MaxHistoryLimit
	}
	return limit
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func newSerial() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "GH-" + strings.ToUpper(hex.EncodeToString(b)), nil
}
