package rates

import (
	"sync"
	"testing"

	"github.com/Krchnk/gw-bank/internal/currency"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableGetUnknown(t *testing.T) {
	table := NewTable()

	v, err := table.Get(currency.EUR)
	assert.ErrorIs(t, err, ErrRateUnavailable)
	assert.Zero(t, v)
}

func TestTableLastWriteWins(t *testing.T) {
	table := NewTable()
	table.Set(currency.EUR, 4.3)
	table.Set(currency.EUR, 4.5)

	v, err := table.Get(currency.EUR)
	require.NoError(t, err)
	assert.Equal(t, 4.5, v)

	_, err = table.Get(currency.USD)
	assert.ErrorIs(t, err, ErrRateUnavailable)
}

func TestTableSnapshot(t *testing.T) {
	table := NewTable()
	table.Set(currency.EUR, 4.3)
	table.Set(currency.GBP, 5.1)

	snap := table.Snapshot()
	assert.Equal(t, map[currency.Currency]float64{currency.EUR: 4.3, currency.GBP: 5.1}, snap)

	snap[currency.EUR] = 1
	v, err := table.Get(currency.EUR)
	require.NoError(t, err)
	assert.Equal(t, 4.3, v)
}

func TestTableConcurrentAccess(t *testing.T) {
	table := NewTable()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			table.Set(currency.USD, float64(i))
		}(i)
		go func() {
			defer wg.Done()
			_, _ = table.Get(currency.USD)
		}()
	}
	wg.Wait()

	_, err := table.Get(currency.USD)
	assert.NoError(t, err)
}
