// Package durationunit represents the calendar unit of a pass validity rule.
package durationunit

import (
	"fmt"
	"time"
)

// The set of units that can be used.
var (
	Day   = newUnit("DAY")
	Week  = newUnit("WEEK")
	Month = newUnit("MONTH")
	Year  = newUnit("YEAR")
)

// =============================================================================

// Set of known units.
var units = make(map[string]Unit)

// Unit represents a calendar unit in the system.
type Unit struct {
	value string
}

func newUnit(unit string) Unit {
	u := Unit{unit}
	units[unit] = u
	return u
}

// String returns the name of the unit.
func (u Unit) String() string {
	return u.value
}

// Equal provides support for the go-cmp package and testing.
func (u Unit) Equal(u2 Unit) bool {
	return u.value == u2.value
}

// IsZero reports whether the unit was never set.
func (u Unit) IsZero() bool {
	return u.value == ""
}

// MarshalText provides support for logging and any marshal needs.
func (u Unit) MarshalText() ([]byte, error) {
	return []byte(u.value), nil
}

// AddTo moves t forward by n units using calendar arithmetic.
func (u Unit) AddTo(t time.Time, n int) time.Time {
	switch u {
	case Day:
		return t.AddDate(0, 0, n)
	case Week:
		return t.AddDate(0, 0, 7*n)
	case Month:
		return t.AddDate(0, n, 0)
	case Year:
		return t.AddDate(n, 0, 0)
	}
	return t
}

// =============================================================================

// Parse parses the string value and returns a unit if one exists. Plural
// and lower case spellings are accepted.
func Parse(value string) (Unit, error) {
	u, exists := units[normalize(value)]
	if !exists {
		return Unit{}, fmt.Errorf("invalid duration unit %q", value)
	}

	return u, nil
}

// MustParse parses the string value and returns a unit if one exists. If
// an error occurs the function panics.
func MustParse(value string) Unit {
	u, err := Parse(value)
	if err != nil {
		panic(err)
	}

	return u
}

func normalize(value string) string {
	b := []byte(value)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}

	s := string(b)
	if len(s) > 1 && s[len(s)-1] == 'S' {
		s = s[:len(s)-1]
	}

	return s
}
