package currency

import (
	"errors"
	"fmt"
	"strings"
)

// Currency is one of the closed set of currencies known to the bank and the
// rate publisher.
type Currency string

const (
	EUR Currency = "EUR"
	USD Currency = "USD"
	GBP Currency = "GBP"
	PLN Currency = "PLN"
)

var ErrUnknownCurrency = errors.New("unknown currency")

// All lists every known currency in a stable order.
func All() []Currency {
	return []Currency{EUR, USD, GBP, PLN}
}

func (c Currency) String() string {
	return string(c)
}

func (c Currency) Valid() bool {
	switch c {
	case EUR, USD, GBP, PLN:
		return true
	}
	return false
}

// Parse accepts a currency code in any letter case.
func Parse(code string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(code)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCurrency, code)
	}
	return c, nil
}

// ParseList parses a comma separated list, dropping duplicates and blanks.
func ParseList(list string) ([]Currency, error) {
	var out []Currency
	seen := make(map[Currency]bool)
	for _, part := range strings.Split(list, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		c, err := Parse(part)
		if err != nil {
			return nil, err
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out, nil
}
