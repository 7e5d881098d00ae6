package rates

import (
	"errors"
	"fmt"

	"github.com/Krchnk/gw-bank/internal/currency"
	"github.com/patrickmn/go-cache"
)

var ErrRateUnavailable = errors.New("exchange rate not available")

// Table is a latest-value cache of exchange rates keyed by currency. Entries
// never expire; an absent entry means the rate is unknown.
type Table struct {
	cache *cache.Cache
}

func NewTable() *Table {
	return &Table{cache: cache.New(cache.NoExpiration, 0)}
}

func (t *Table) Set(c currency.Currency, value float64) {
	t.cache.Set(c.String(), value, cache.NoExpiration)
}

func (t *Table) Get(c currency.Currency) (float64, error) {
	v, found := t.cache.Get(c.String())
	if !found {
		return 0, fmt.Errorf("%w: %s", ErrRateUnavailable, c)
	}
	return v.(float64), nil
}

// Snapshot copies every known rate.
func (t *Table) Snapshot() map[currency.Currency]float64 {
	items := t.cache.Items()
	out := make(map[currency.Currency]float64, len(items))
	for k, item := range items {
		out[currency.Currency(k)] = item.Object.(float64)
	}
	return out
}
