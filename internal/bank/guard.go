package bank

import (
	"crypto/subtle"
	"fmt"
)

// Guard holds an account secret and authorizes callers against it.
type Guard struct {
	secret string
}

func NewGuard(secret string) Guard {
	return Guard{secret: secret}
}

// Check fails with ErrAuthentication unless secret matches the stored one.
func (g Guard) Check(secret string) error {
	if secret == "" {
		return fmt.Errorf("%w: no secret provided", ErrAuthentication)
	}
	if subtle.ConstantTimeCompare([]byte(secret), []byte(g.secret)) != 1 {
		return fmt.Errorf("%w: incorrect identifier/secret combination", ErrAuthentication)
	}
	return nil
}

func (g Guard) Secret() string {
	return g.secret
}
