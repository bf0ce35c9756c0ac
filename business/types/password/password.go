// Package password represents a clear text password in the system.
package password

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"unicode/utf8"
)

// Password represents a password in the system.
type Password struct {
	value string
}

// String returns the value of the password.
func (p Password) String() string {
	return p.value
}

// Equal provides support for the go-cmp package and testing.
func (p Password) Equal(p2 Password) bool {
	return p.value == p2.value
}

// MarshalText never leaks the secret.
func (p Password) MarshalText() ([]byte, error) {
	return []byte("[MASKED]"), nil
}

// =============================================================================

// Parse parses the string value and returns a password if the value
// complies with the rules for a password.
func Parse(value string) (Password, error) {
	if l := utf8.RuneCountInString(value); l < 8 || l > 72 {
		return Password{}, errors.New("invalid password: length must be between 8 and 72")
	}

	return Password{value}, nil
}

// MustParse parses the string value and returns a password if the value
// complies with the rules for a password. If an error occurs the function panics.
func MustParse(value string) Password {
	pass, err := Parse(value)
	if err != nil {
		panic(err)
	}

	return pass
}

// alphabet drops characters that are easy to misread when a temporary
// password is delivered out of band.
const alphabet = "abcdefghjkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Generate creates a random password of the given length from crypto/rand.
func Generate(length int) (Password, error) {
	if length < 8 {
		length = 8
	}

	max := big.NewInt(int64(len(alphabet)))

	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return Password{}, fmt.Errorf("generate: %w", err)
		}
		b[i] = alphabet[n.Int64()]
	}

	return Password{string(b)}, nil
}
