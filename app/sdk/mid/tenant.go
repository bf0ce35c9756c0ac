package mid

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/jcpaschoal/gymhub/app/sdk/errs"
	"github.com/jcpaschoal/gymhub/business/sdk/tenantstore"
	"github.com/jcpaschoal/gymhub/business/sdk/web"
	"github.com/jcpaschoal/gymhub/business/types/slug"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TenantHeader names the header that selects a tenant explicitly.
const TenantHeader = "X-Tenant-Slug"

// TenantSlug picks the tenant slug for the request. The header beats the
// host, and a host that is not a single label under the base domain names
// no tenant, so the default slug applies.
func TenantSlug(r *http.Request, baseDomain string, def slug.Slug) (slug.Slug, error) {
	if v := strings.TrimSpace(r.Header.Get(TenantHeader)); v != "" {
		slg, err := slug.Parse(v)
		if err != nil {
			return slug.Slug{}, fmt.Errorf("header: %w", err)
		}
		return slg, nil
	}

	if label, ok := subdomain(r.Host, baseDomain); ok {
		if slg, err := slug.Parse(label); err == nil {
			return slg, nil
		}
	}

	return def, nil
}

func subdomain(host string, baseDomain string) (string, bool) {
	if baseDomain == "" {
		return "", false
	}

	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	host = strings.ToLower(strings.TrimSuffix(host, "."))
	baseDomain = strings.ToLower(strings.TrimPrefix(baseDomain, "."))

	label, found := strings.CutSuffix(host, "."+baseDomain)
	if !found || label == "" || strings.Contains(label, ".") || slug.IsReserved(label) {
		return "", false
	}

	return label, true
}

// ResolveTenant resolves the request's tenant to its storage handle and
// stores it in the context. Tenants that are not ACTIVE are refused.
func ResolveTenant(router *tenantstore.Router, baseDomain string) web.MidFunc {
	m := func(next web.HandlerFunc) web.HandlerFunc {
		h := func(ctx context.Context, r *http.Request) web.Encoder {
			slg, err := TenantSlug(r, baseDomain, router.DefaultSlug())
			if err != nil {
				return errs.New(errs.InvalidArgument, err)
			}

			if slg.IsZero() {
				return errs.Errorf(errs.NotFound, "no tenant named by the request")
			}

			th, err := router.Resolve(ctx, slg)
			if err != nil {
				return tenantError(slg, err)
			}

			trace.SpanFromContext(ctx).SetAttributes(attribute.String("tenant", th.Slug.String()))

			return next(setTenant(ctx, th), r)
		}

		return h
	}

	return m
}

func tenantError(slg slug.Slug, err error) *errs.Error {
	switch {
	case errors.Is(err, tenantstore.ErrTenantNotFound):
		return errs.NewWithReason(errs.NotFound, "tenant_not_found", fmt.Errorf("tenant[%s]: %w", slg, err))
	case errors.Is(err, tenantstore.ErrTenantPending):
		return errs.NewWithReason(errs.FailedPrecondition, "tenant_pending", fmt.Errorf("tenant[%s]: %w", slg, err))
	case errors.Is(err, tenantstore.ErrTenantBlocked):
		return errs.NewWithReason(errs.FailedPrecondition, "tenant_blocked", fmt.Errorf("tenant[%s]: %w", slg, err))
	case errors.Is(err, tenantstore.ErrTenantDeleted):
		return errs.NewWithReason(errs.FailedPrecondition, "tenant_deleted", fmt.Errorf("tenant[%s]: %w", slg, err))
	default:
		return errs.New(errs.Internal, fmt.Errorf("tenant[%s]: %w", slg, err))
	}
}
