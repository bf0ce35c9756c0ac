// Package slug represents the URL-safe tenant identifier used for routing.
package slug

import (
	"fmt"
	"regexp"
	"strings"
)

// Slug represents a tenant slug in the system.
type Slug struct {
	value string
}

// String returns the value of the slug.
func (s Slug) String() string {
	return s.value
}

// Equal provides support for the go-cmp package and testing.
func (s Slug) Equal(s2 Slug) bool {
	return s.value == s2.value
}

// IsZero reports whether the slug was never set.
func (s Slug) IsZero() bool {
	return s.value == ""
}

// MarshalText provides support for logging and any marshal needs.
func (s Slug) MarshalText() ([]byte, error) {
	return []byte(s.value), nil
}

// =============================================================================

// A slug is a single DNS label: lower case letters, digits and inner hyphens.
var slugRegEx = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{1,61}[a-z0-9])$`)

// reserved labels can never name a tenant since they route elsewhere.
var reserved = map[string]struct{}{
	"www":    {},
	"api":    {},
	"admin":  {},
	"app":    {},
	"mail":   {},
	"static": {},
	"assets": {},
	"status": {},
}

// Parse parses the string value and returns a slug if the value complies
// with the rules for a slug. Input is trimmed and lower cased first.
func Parse(value string) (Slug, error) {
	v := strings.ToLower(strings.TrimSpace(value))

	if !slugRegEx.MatchString(v) {
		return Slug{}, fmt.Errorf("invalid slug %q", value)
	}

	if strings.Contains(v, "--") {
		return Slug{}, fmt.Errorf("invalid slug %q: consecutive hyphens", value)
	}

	if _, ok := reserved[v]; ok {
		return Slug{}, fmt.Errorf("invalid slug %q: reserved", value)
	}

	return Slug{v}, nil
}

// MustParse parses the string value and returns a slug if the value
// complies with the rules for a slug. If an error occurs the function panics.
func MustParse(value string) Slug {
	s, err := Parse(value)
	if err != nil {
		panic(err)
	}

	return s
}

// IsReserved reports whether the label is kept for non-tenant hosts.
func IsReserved(label string) bool {
	_, ok := reserved[strings.ToLower(label)]
	return ok
}
