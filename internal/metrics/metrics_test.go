package metrics

import (
	"errors"
	"testing"

	"github.com/Krchnk/gw-bank/internal/currency"
	"github.com/Krchnk/gw-bank/internal/rates"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

var _ rates.Observer = (*BankMetrics)(nil)

func TestFeedObserver(t *testing.T) {
	m := NewBankMetrics(prometheus.NewRegistry())

	m.StateChanged(rates.Streaming)
	m.RateUpdated(currency.EUR, 4.3)
	m.RateUpdated(currency.EUR, 4.4)
	m.Reconnecting(errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.FeedState))
	assert.Equal(t, 4.4, testutil.ToFloat64(m.ExchangeRate.WithLabelValues("EUR")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RateUpdatesTotal.WithLabelValues("EUR")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FeedReconnectsTotal))
}

func TestObserveOperation(t *testing.T) {
	m := NewBankMetrics(prometheus.NewRegistry())

	m.ObserveOperation("deposit", nil)
	m.ObserveOperation("deposit", nil)
	m.ObserveOperation("deposit", errors.New("nope"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AccountOperations.WithLabelValues("deposit", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AccountOperations.WithLabelValues("deposit", "error")))
}
