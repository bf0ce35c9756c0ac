// Package usageaction represents the usage action in the system.
package usageaction

import "fmt"

// The set of usage actions that can be used.
var (
	Scan    = newAction("SCAN")
	Consume = newAction("CONSUME")
)

// =============================================================================

// Set of known usage actions.
var actions = make(map[string]Action)

// Action represents a usage action in the system.
type Action struct {
	value string
}

func newAction(v string) Action {
	x := Action{v}
	actions[v] = x
	return x
}

// String returns the name of the usage action.
func (x Action) String() string {
	return x.value
}

// Equal provides support for the go-cmp package and testing.
func (x Action) Equal(x2 Action) bool {
	return x.value == x2.value
}

// MarshalText provides support for logging and any marshal needs.
func (x Action) MarshalText() ([]byte, error) {
	return []byte(x.value), nil
}

// =============================================================================

// Parse parses the string value and returns a usage action if one exists.
func Parse(value string) (Action, error) {
	x, exists := actions[value]
	if !exists {
		return Action{}, fmt.Errorf("invalid usage action %q", value)
	}

	return x, nil
}

// MustParse parses the string value and returns a usage action if one exists. If
// an error occurs the function panics.
func MustParse(value string) Action {
	x, err := Parse(value)
	if err != nil {
		panic(err)
	}

	return x
}
