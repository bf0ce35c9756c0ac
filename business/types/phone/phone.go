// Package phone represents a contact phone number in the system.
package phone

import (
	"database/sql"
	"fmt"
	"strings"
	"unicode"
)

// Phone is a phone number normalized to an optional leading + followed by
// digits only.
type Phone struct {
	value string
}

// String returns the normalized number.
func (p Phone) String() string {
	return p.value
}

// Equal provides support for the go-cmp package and testing.
func (p Phone) Equal(p2 Phone) bool {
	return p.value == p2.value
}

// MarshalText provides support for logging and any marshal needs.
func (p Phone) MarshalText() ([]byte, error) {
	return []byte(p.value), nil
}

// Parse normalizes value, dropping spaces, dots, hyphens and parentheses.
// The result must hold between 6 and 15 digits.
func Parse(value string) (Phone, error) {
	v, err := normalize(value)
	if err != nil {
		return Phone{}, err
	}

	return Phone{v}, nil
}

// MustParse is Parse that panics on error.
func MustParse(value string) Phone {
	p, err := Parse(value)
	if err != nil {
		panic(err)
	}

	return p
}

// =============================================================================

// Null is an optional phone number. Registration and member records do
// not require one.
type Null struct {
	value string
	valid bool
}

// ParseNull is Parse where an empty value yields the null number.
func ParseNull(value string) (Null, error) {
	if strings.TrimSpace(value) == "" {
		return Null{}, nil
	}

	v, err := normalize(value)
	if err != nil {
		return Null{}, err
	}

	return Null{value: v, valid: true}, nil
}

// MustParseNull is ParseNull that panics on error.
func MustParseNull(value string) Null {
	n, err := ParseNull(value)
	if err != nil {
		panic(err)
	}

	return n
}

// ToSQLNullString converts a Null value to a sql NullString.
func ToSQLNullString(n Null) sql.NullString {
	return sql.NullString{
		String: n.value,
		Valid:  n.valid,
	}
}

// Valid reports whether a number is present.
func (n Null) Valid() bool {
	return n.valid
}

// String returns the number or the empty string.
func (n Null) String() string {
	return n.value
}

// Equal provides support for the go-cmp package and testing.
func (n Null) Equal(n2 Null) bool {
	return n.value == n2.value && n.valid == n2.valid
}

// MarshalText provides support for logging and any marshal needs.
func (n Null) MarshalText() ([]byte, error) {
	return []byte(n.value), nil
}

// =============================================================================

func normalize(value string) (string, error) {
	var b strings.Builder

	for i, r := range strings.TrimSpace(value) {
		switch {
		case r == '+' && i == 0:
			b.WriteRune(r)
		case unicode.IsDigit(r):
			b.WriteRune(r)
		case r == ' ', r == '-', r == '.', r == '(', r == ')':
		default:
			return "", fmt.Errorf("invalid phone %q", value)
		}
	}

	v := b.String()
	digits := len(strings.TrimPrefix(v, "+"))
	if digits < 6 || digits > 15 {
		return "", fmt.Errorf("invalid phone %q", value)
	}

	return v, nil
}
