// Package mid contains the set of middleware functions.
package mid

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jcpaschoal/gymhub/app/sdk/auth"
	"github.com/jcpaschoal/gymhub/business/sdk/tenantstore"
	"github.com/jcpaschoal/gymhub/business/sdk/web"
)

func checkIsError(e web.Encoder) error {
	err, hasError := e.(error)
	if hasError {
		return err
	}

	return nil
}

// =============================================================================

type ctxKey int

const (
	claimKey ctxKey = iota + 1
	tenantKey
)

func setClaims(ctx context.Context, claims auth.Claims) context.Context {
	return context.WithValue(ctx, claimKey, claims)
}

// GetClaims returns the claims from the context.
func GetClaims(ctx context.Context) auth.Claims {
	v, ok := ctx.Value(claimKey).(auth.Claims)
	if !ok {
		return auth.Claims{}
	}
	return v
}

// GetSubjectID returns the subject id from the claims.
func GetSubjectID(ctx context.Context) uuid.UUID {
	v := GetClaims(ctx)

	subjectID, err := uuid.Parse(v.Subject)
	if err != nil {
		return uuid.UUID{}
	}

	return subjectID
}

func setTenant(ctx context.Context, h tenantstore.Handle) context.Context {
	return context.WithValue(ctx, tenantKey, h)
}

// GetTenant returns the storage handle of the tenant resolved for the
// request.
func GetTenant(ctx context.Context) (tenantstore.Handle, error) {
	v, ok := ctx.Value(tenantKey).(tenantstore.Handle)
	if !ok {
		return tenantstore.Handle{}, errors.New("tenant not found in context")
	}

	return v, nil
}
