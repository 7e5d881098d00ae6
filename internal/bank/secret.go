package bank

import (
	"fmt"

	"github.com/jaevor/go-nanoid"
)

const (
	DefaultSecretLength = 10
	secretAlphabet      = "abcdefghijklmnopqrstuvwxyz"
)

// SecretGenerator produces account secrets. Secrets are not checked for
// uniqueness.
type SecretGenerator func() string

// NewSecretGenerator returns a generator of lowercase secrets of the given
// length.
func NewSecretGenerator(length int) (SecretGenerator, error) {
	gen, err := nanoid.CustomASCII(secretAlphabet, length)
	if err != nil {
		return nil, fmt.Errorf("secret generator: %w", err)
	}
	return SecretGenerator(gen), nil
}
