// Package reservationstatus represents the reservation status in the system.
package reservationstatus

import "fmt"

// The set of reservation statuses that can be used.
var (
	PendingPayment = newStatus("PENDING_PAYMENT")
	Completed      = newStatus("COMPLETED")
	Expired        = newStatus("EXPIRED")
)

// =============================================================================

// Set of known reservation statuses.
var statuses = make(map[string]Status)

// Status represents a reservation status in the system.
type Status struct {
	value string
}

func newStatus(v string) Status {
	x := Status{v}
	statuses[v] = x
	return x
}

// String returns the name of the reservation status.
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

// Parse parses the string value and returns a reservation status if one exists.
func Parse(value string) (Status, error) {
	x, exists := statuses[value]
	if !exists {
		return Status{}, fmt.Errorf("invalid reservation status %q", value)
	}

	return x, nil
}

// MustParse parses the string value and returns a reservation status if one exists. If
// an error occurs the function panics.
func MustParse(value string) Status {
	x, err := Parse(value)
	if err != nil {
		panic(err)
	}

	return x
}
