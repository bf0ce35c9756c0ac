// Package passstatus represents the pass status in the system.
package passstatus

import "fmt"

// The set of pass statuses that can be used.
var (
	Active   = newStatus("ACTIVE")
	Expired  = newStatus("EXPIRED")
	Depleted = newStatus("DEPLETED")
	Revoked  = newStatus("REVOKED")
)

// =============================================================================

// Set of known pass statuses.
var statuses = make(map[string]Status)

// Status represents a pass status in the system.
type Status struct {
	value string
}

func newStatus(v string) Status {
	x := Status{v}
	statuses[v] = x
	return x
}

// String returns the name of the pass status.
func (x Status) String() string {
	return x.value
}

// Equal provides support for the go-cmp package and testing.
func (x Status) Equal(x2 Status) bool {
	return x.value == x2.value
}

// MarshalText provides support for logging and any marshal needs.
func (x Status) MarshalText() ([]byte, error) {
	return []byte(x.value), nil
}

// =============================================================================

// Parse parses the string value and returns a pass status if one exists.
func Parse(value string) (Status, error) {
	x, exists := statuses[value]
	if !exists {
		return Status{}, fmt.Errorf("invalid pass status %q", value)
	}

	return x, nil
}

// MustParse parses the string value and returns a pass status if one exists. If
// an error occurs the function panics.
func MustParse(value string) Status {
	x, err := Parse(value)
	if err != nil {
		panic(err)
	}

	return x
}
