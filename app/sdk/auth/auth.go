// Package auth provides authentication and authorization support. Tokens are
// RS256 JWTs bound to one tenant, and role permissions are decided by a
// casbin enforcer.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/casbin/casbin/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jcpaschoal/gymhub/business/domain/adminbus"
	"github.com/jcpaschoal/gymhub/business/domain/staffbus"
	"github.com/jcpaschoal/gymhub/business/sdk/tenantstore"
	"github.com/jcpaschoal/gymhub/business/types/actions"
	"github.com/jcpaschoal/gymhub/business/types/resource"
	"github.com/jcpaschoal/gymhub/business/types/role"
	"github.com/jcpaschoal/gymhub/business/types/slug"
	"github.com/jcpaschoal/gymhub/foundation/logger"
)

// Set of error variables for authentication.
var (
	ErrForbidden       = errors.New("attempted action is not allowed")
	ErrKIDMissing      = errors.New("kid missing from token header")
	ErrKIDMalformed    = errors.New("kid in token header is malformed")
	ErrAccountDisabled = errors.New("account is disabled")
	ErrInvalidRole     = errors.New("token contains an invalid role")
	ErrTenantMismatch  = errors.New("token was issued for another tenant")
)

// TokenTTL is how long an issued token stays valid.
const TokenTTL = 12 * time.Hour

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.RegisteredClaims
	Tenant string `json:"tenant,omitempty"`
	Role   string `json:"role"`
}

// SubjectID returns the subject of the claims as an id.
func (c Claims) SubjectID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// KeyLookup declares a method set of behavior for looking up
// private and public keys for JWT use.
type KeyLookup interface {
	PrivateKey(kid string) (key string, err error)
	PublicKey(kid string) (key string, err error)
}

// StaffFinder finds the staff of one tenant.
type StaffFinder interface {
	QueryByID(ctx context.Context, staffID uuid.UUID) (staffbus.Staff, error)
}

// Config represents information required to initialize auth.
type Config struct {
	Log       *logger.Logger
	KeyLookup KeyLookup
	ActiveKID string
	Issuer    string
	Admins    *adminbus.Core
	Staff     func(h tenantstore.Handle) StaffFinder
}

// Auth is used to authenticate clients.
type Auth struct {
	log       *logger.Logger
	keyLookup KeyLookup
	activeKID string
	admins    *adminbus.Core
	staff     func(h tenantstore.Handle) StaffFinder
	enforcer  *casbin.Enforcer
	method    jwt.SigningMethod
	parser    *jwt.Parser
	issuer    string
}

// New creates an Auth to support authentication/authorization.
func New(cfg Config) (*Auth, error) {
	enforcer, err := newEnforcer()
	if err != nil {
		return nil, fmt.Errorf("enforcer: %w", err)
	}

	a := Auth{
		log:       cfg.Log,
		keyLookup: cfg.KeyLookup,
		activeKID: cfg.ActiveKID,
		admins:    cfg.Admins,
		staff:     cfg.Staff,
		enforcer:  enforcer,
		method:    jwt.GetSigningMethod(jwt.SigningMethodRS256.Name),
		parser:    jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Name})),
		issuer:    cfg.Issuer,
	}

	return &a, nil
}

// Issuer provides the configured issuer used to authenticate tokens.
func (a *Auth) Issuer() string {
	return a.issuer
}

// GenerateToken signs a token for the subject. A zero tenant slug issues a
// platform token that is not bound to any gym.
func (a *Auth) GenerateToken(subjectID uuid.UUID, tenant slug.Slug, r role.Role) (string, error) {
	now := time.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID.String(),
			Issuer:    a.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Tenant: tenant.String(),
		Role:   r.String(),
	}

	token := jwt.NewWithClaims(a.method, claims)
	token.Header["kid"] = a.activeKID

	privateKeyPEM, err := a.keyLookup.PrivateKey(a.activeKID)
	if err != nil {
		return "", fmt.Errorf("private key: %w", err)
	}

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(privateKeyPEM))
	if err != nil {
		return "", fmt.Errorf("parsing private key from PEM: %w", err)
	}

	str, err := token.SignedString(privateKey)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}

	return str, nil
}

// Authenticate processes the token to validate the sender's token is valid.
func (a *Auth) Authenticate(ctx context.Context, bearerToken string) (Claims, error) {
	prefix, jwtUnverified, ok := strings.Cut(bearerToken, " ")
	if !ok || !strings.EqualFold(prefix, "bearer") {
		return Claims{}, errors.New("expected authorization header format: Bearer <token>")
	}

	var claims Claims
	token, _, err := a.parser.ParseUnverified(jwtUnverified, &claims)
	if err != nil {
		return Claims{}, fmt.Errorf("error parsing token: %w", err)
	}

	kidRaw, exists := token.Header["kid"]
	if !exists {
		return Claims{}, ErrKIDMissing
	}

	kid, ok := kidRaw.(string)
	if !ok {
		return Claims{}, ErrKIDMalformed
	}

	pem, err := a.keyLookup.PublicKey(kid)
	if err != nil {
		return Claims{}, fmt.Errorf("fetching public key for kid %q: %w", kid, err)
	}

	if err := a.verifySignatureAndClaims(jwtUnverified, pem); err != nil {
		a.log.Info(ctx, "authenticate failed", "subject", claims.Subject, "err", err)
		return Claims{}, fmt.Errorf("authentication failed: %w", err)
	}

	r, err := role.Parse(claims.Role)
	if err != nil {
		return Claims{}, ErrInvalidRole
	}

	if r.Equal(role.Platform) != (claims.Tenant == "") {
		return Claims{}, ErrInvalidRole
	}

	return claims, nil
}

// Authorize checks the role policy for the action on the resource.
func (a *Auth) Authorize(claims Claims, res resource.Resource, act actions.Action) error {
	ok, err := a.enforcer.Enforce(claims.Role, res.String(), act.String())
	if err != nil {
		return fmt.Errorf("enforce: %w", err)
	}

	if !ok {
		return fmt.Errorf("%w: role[%s] resource[%s] action[%s]", ErrForbidden, claims.Role, res, act)
	}

	return nil
}

// BindTenant confirms a tenant token belongs to the resolved tenant and its
// staff account is still enabled.
func (a *Auth) BindTenant(ctx context.Context, claims Claims, h tenantstore.Handle) error {
	if claims.Tenant != h.Slug.String() {
		return fmt.Errorf("token[%s] tenant[%s]: %w", claims.Tenant, h.Slug, ErrTenantMismatch)
	}

	if a.staff == nil {
		return nil
	}

	staffID, err := claims.SubjectID()
	if err != nil {
		return fmt.Errorf("parsing subject %q: %w", claims.Subject, err)
	}

	st, err := a.staff(h).QueryByID(ctx, staffID)
	if err != nil {
		return fmt.Errorf("query staff: %w", err)
	}

	if !st.Enabled {
		return ErrAccountDisabled
	}

	return nil
}

// CheckPlatform confirms the claims belong to an enabled platform admin.
func (a *Auth) CheckPlatform(ctx context.Context, claims Claims) error {
	if claims.Role != role.Platform.String() {
		return fmt.Errorf("%w: platform role required", ErrForbidden)
	}

	if a.admins == nil {
		return nil
	}

	adminID, err := claims.SubjectID()
	if err != nil {
		return fmt.Errorf("parsing subject %q: %w", claims.Subject, err)
	}

	adm, err := a.admins.QueryByID(ctx, adminID)
	if err != nil {
		return fmt.Errorf("query admin: %w", err)
	}

	if !adm.Enabled {
		return ErrAccountDisabled
	}

	return nil
}

// verifySignatureAndClaims parses the token with the public key, validates
// the signature, and checks the issuer claim.
func (a *Auth) verifySignatureAndClaims(tokenStr, pemStr string) error {
	publicKey, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pemStr))
	if err != nil {
		return fmt.Errorf("parsing public key: %w", err)
	}

	var claims Claims
	token, err := a.parser.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		return publicKey, nil
	})
	if err != nil {
		return fmt.Errorf("validating token signature: %w", err)
	}

	if !token.Valid {
		return errors.New("token is invalid")
	}

	if claims.Issuer != a.issuer {
		return fmt.Errorf("invalid issuer: expected %q, got %q", a.issuer, claims.Issuer)
	}

	return nil
}
