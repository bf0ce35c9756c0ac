// Package passapp maintains the app layer api for the pass domain.
package passapp

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/jcpaschoal/gymhub/app/sdk/errs"
	"github.com/jcpaschoal/gymhub/app/sdk/metrics"
	"github.com/jcpaschoal/gymhub/app/sdk/mid"
	"github.com/jcpaschoal/gymhub/app/sdk/tenantcore"
	"github.com/jcpaschoal/gymhub/business/domain/passbus"
	"github.com/jcpaschoal/gymhub/business/domain/userbus"
	"github.com/jcpaschoal/gymhub/business/sdk/web"
)

type app struct {
	cores tenantcore.Factory
}

func newApp(cores tenantcore.Factory) *app {
	return &app{
		cores: cores,
	}
}

func (a *app) passBus(ctx context.Context) (*passbus.Core, error) {
	th, err := mid.GetTenant(ctx)
	if err != nil {
		return nil, err
	}

	return a.cores.Passes(th), nil
}

func (a *app) purchase(ctx context.Context, r *http.Request) web.Encoder {
	var app NewPass
	if err := web.Decode(r, &app); err != nil {
		return errs.New(errs.InvalidArgument, err)
	}

	userID, offeringID, err := toBusNewPass(app)
	if err != nil {
		return errs.New(errs.InvalidArgument, err)
	}

	passBus, err := a.passBus(ctx)
	if err != nil {
		return errs.New(errs.Internal, err)
	}

	p, tkn, err := passBus.Purchase(ctx, userID, offeringID)
	if err != nil {
		return toAppErr(err)
	}

	return Purchased{Pass: toAppPass(p), Token: tkn.Token}
}

func (a *app) validate(ctx context.Context, r *http.Request) web.Encoder {
	var app Scan
	if err := web.Decode(r, &app); err != nil {
		return errs.New(errs.InvalidArgument, err)
	}

	passBus, err := a.passBus(ctx)
	if err != nil {
		return errs.New(errs.Internal, err)
	}

	staffID := mid.GetSubjectID(ctx)

	v, err := passBus.Validate(ctx, app.Token, app.AutoConsume, &staffID)
	if err != nil {
		return toAppErr(err)
	}

	metrics.AddPassOutcome(ctx, v.Outcome.String())

	return toAppValidation(v)
}

func (a *app) consume(ctx context.Context, r *http.Request) web.Encoder {
	var app Consume
	if err := web.Decode(r, &app); err != nil {
		return errs.New(errs.InvalidArgument, err)
	}

	passBus, err := a.passBus(ctx)
	if err != nil {
		return errs.New(errs.Internal, err)
	}

	staffID := mid.GetSubjectID(ctx)

	p, err := passBus.ConsumeEntry(ctx, app.Token, app.Count, &staffID)
	if err != nil {
		return toAppErr(err)
	}

	return toAppPass(p)
}

func (a *app) deactivateToken(ctx context.Context, r *http.Request) web.Encoder {
	var app DeactivateToken
	if err := web.Decode(r, &app); err != nil {
		return errs.New(errs.InvalidArgument, err)
	}

	passBus, err := a.passBus(ctx)
	if err != nil {
		return errs.New(errs.Internal, err)
	}

	if err := passBus.DeactivateToken(ctx, app.Token); err != nil {
		return toAppErr(err)
	}

	return nil
}

func (a *app) revoke(ctx context.Context, r *http.Request) web.Encoder {
	passID, err := uuid.Parse(web.Param(r, "pass_id"))
	if err != nil {
		return errs.NewFieldErrors("pass_id", err)
	}

	passBus, err := a.passBus(ctx)
	if err != nil {
		return errs.New(errs.Internal, err)
	}

	p, err := passBus.Revoke(ctx, passID)
	if err != nil {
		return toAppErr(err)
	}

	return toAppPass(p)
}

func (a *app) restore(ctx context.Context, r *http.Request) web.Encoder {
	passID, err := uuid.Parse(web.Param(r, "pass_id"))
	if err != nil {
		return errs.NewFieldErrors("pass_id", err)
	}

	passBus, err := a.passBus(ctx)
	if err != nil {
		return errs.New(errs.Internal, err)
	}

	p, err := passBus.Restore(ctx, passID)
	if err != nil {
		return toAppErr(err)
	}

	return toAppPass(p)
}

func (a *app) queryByID(ctx context.Context, r *http.Request) web.Encoder {
	passID, err := uuid.Parse(web.Param(r, "pass_id"))
	if err != nil {
		return errs.NewFieldErrors("pass_id", err)
	}

	passBus, err := a.passBus(ctx)
	if err != nil {
		return errs.New(errs.Internal, err)
	}

	p, err := passBus.QueryByID(ctx, passID)
	if err != nil {
		return toAppErr(err)
	}

	return toAppPass(p)
}

func (a *app) queryByUser(ctx context.Context, r *http.Request) web.Encoder {
	userID, err := uuid.Parse(web.Param(r, "user_id"))
	if err != nil {
		return errs.NewFieldErrors("user_id", err)
	}

	passBus, err := a.passBus(ctx)
	if err != nil {
		return errs.New(errs.Internal, err)
	}

	ps, err := passBus.QueryByUser(ctx, userID)
	if err != nil {
		return toAppErr(err)
	}

	return Passes(toAppPasses(ps))
}

func (a *app) usage(ctx context.Context, r *http.Request) web.Encoder {
	limit, err := parseLimit(r)
	if err != nil {
		return errs.NewFieldErrors("limit", err)
	}

	passBus, err := a.passBus(ctx)
	if err != nil {
		return errs.New(errs.Internal, err)
	}

	logs, err := passBus.UsageHistory(ctx, limit)
	if err != nil {
		return toAppErr(err)
	}

	return Usages(toAppUsages(logs))
}

func (a *app) usageByPass(ctx context.Context, r *http.Request) web.Encoder {
	passID, err := uuid.Parse(web.Param(r, "pass_id"))
	if err != nil {
		return errs.NewFieldErrors("pass_id", err)
	}

	limit, err := parseLimit(r)
	if err != nil {
		return errs.NewFieldErrors("limit", err)
	}

	passBus, err := a.passBus(ctx)
	if err != nil {
		return errs.New(errs.Internal, err)
	}

	logs, err := passBus.UsageHistoryByPass(ctx, passID, limit)
	if err != nil {
		return toAppErr(err)
	}

	return Usages(toAppUsages(logs))
}

// =============================================================================

func parseLimit(r *http.Request) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return passbus.DefaultHistoryLimit, nil
	}

	return strconv.Atoi(v)
}

func toAppErr(err error) *errs.Error {
	switch {
	case errors.Is(err, passbus.ErrNotFound),
		errors.Is(err, passbus.ErrTokenNotFound),
		errors.Is(err, passbus.ErrOfferingNotFound),
		errors.Is(err, userbus.ErrNotFound):
		return errs.New(errs.NotFound, err)

	case errors.Is(err, passbus.ErrInvalidCount):
		return errs.New(errs.InvalidArgument, err)

	case errors.Is(err, passbus.ErrAccountBlocked):
		return errs.NewWithReason(errs.FailedPrecondition, "account_blocked", err)
	case errors.Is(err, passbus.ErrInsufficientEntries):
		return errs.NewWithReason(errs.FailedPrecondition, "insufficient_entries", err)
	case errors.Is(err, passbus.ErrNotEntryBased):
		return errs.NewWithReason(errs.FailedPrecondition, "not_entry_based", err)
	case errors.Is(err, passbus.ErrPassRevoked):
		return errs.NewWithReason(errs.FailedPrecondition, "revoked", err)
	case errors.Is(err, passbus.ErrPassExpired):
		return errs.NewWithReason(errs.FailedPrecondition, "expired", err)
	case errors.Is(err, passbus.ErrPassDepleted):
		return errs.NewWithReason(errs.FailedPrecondition, "depleted", err)
	case errors.Is(err, passbus.ErrNotRevoked):
		return errs.NewWithReason(errs.FailedPrecondition, "not_revoked", err)
	}

	return errs.Errorf(errs.InternalOnlyLog, "pass: %s", err)
}
