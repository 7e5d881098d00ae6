package bank

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGuardCheck(t *testing.T) {
	g := NewGuard("abcdefghij")

	assert.NoError(t, g.Check("abcdefghij"))
	assert.ErrorIs(t, g.Check(""), ErrAuthentication)
	assert.ErrorIs(t, g.Check("abcdefghik"), ErrAuthentication)
	assert.ErrorIs(t, g.Check("abc"), ErrAuthentication)
	assert.Equal(t, "abcdefghij", g.Secret())
}

func TestSecretGenerator(t *testing.T) {
	gen, err := NewSecretGenerator(DefaultSecretLength)
	assert.NoError(t, err)

	secret := gen()
	assert.Len(t, secret, DefaultSecretLength)
	assert.Regexp(t, "^[a-z]+$", secret)
}

func TestAccountAuthenticate(t *testing.T) {
	acc := &account{guard: NewGuard("secretpass")}

	assert.NoError(t, acc.Authenticate("secretpass"))
	assert.ErrorIs(t, acc.Authenticate("nope"), ErrAuthentication)
	assert.ErrorIs(t, acc.Authenticate(""), ErrAuthentication)
}
