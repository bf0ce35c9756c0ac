// Package outcome represents the validation outcome in the system.
package outcome

import "fmt"

// The set of validation outcomes that can be used.
var (
	Valid    = newOutcome("VALID")
	NotFound = newOutcome("NOT_FOUND")
	Revoked  = newOutcome("REVOKED")
	Depleted = newOutcome("DEPLETED")
	Expired  = newOutcome("EXPIRED")
)

// =============================================================================

// Set of known validation outcomes.
var outcomes = make(map[string]Outcome)

// Outcome represents a validation outcome in the system.
type Outcome struct {
	value string
}

func newOutcome(v string) Outcome {
	x := Outcome{v}
	outcomes[v] = x
	return x
}

// String returns the name of the validation outcome.
func (x Outcome) String() string {
	return x.value
}

// Equal provides support for the go-cmp package and testing.
func (x Outcome) Equal(x2 Outcome) bool {
	return x.value == x2.value
}

// MarshalText provides support for logging and any marshal needs.
func (x Outcome) MarshalText() ([]byte, error) {
	return []byte(x.value), nil
}

// =============================================================================

// Parse parses the string value and returns a validation outcome if one exists.
func Parse(value string) (Outcome, error) {
	x, exists := outcomes[value]
	if !exists {
		return Outcome{}, fmt.Errorf("invalid validation outcome %q", value)
	}

	return x, nil
}

// MustParse parses the string value and returns a validation outcome if one exists. If
// an error occurs the function panics.
func MustParse(value string) Outcome {
	x, err := Parse(value)
	if err != nil {
		panic(err)
	}

	return x
}
