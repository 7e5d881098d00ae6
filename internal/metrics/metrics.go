package metrics

import (
	"github.com/Krchnk/gw-bank/internal/currency"
	"github.com/Krchnk/gw-bank/internal/rates"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BankMetrics holds the collectors of the bank server. It also observes the
// rate feed.
type BankMetrics struct {
	AccountsRegistered  *prometheus.CounterVec
	AccountOperations   *prometheus.CounterVec
	RequestDuration     *prometheus.HistogramVec
	ExchangeRate        *prometheus.GaugeVec
	RateUpdatesTotal    *prometheus.CounterVec
	FeedState           prometheus.Gauge
	FeedReconnectsTotal prometheus.Counter
}

func NewBankMetrics(reg prometheus.Registerer) *BankMetrics {
	f := promauto.With(reg)
	return &BankMetrics{
		AccountsRegistered: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bank_accounts_registered_total",
				Help: "Accounts registered, by account type",
			},
			[]string{"type"},
		),
		AccountOperations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bank_account_operations_total",
				Help: "Account operations, by operation and result",
			},
			[]string{"operation", "result"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bank_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
			},
			[]string{"method", "route", "status"},
		),
		ExchangeRate: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bank_exchange_rate",
				Help: "Latest exchange rate received per currency",
			},
			[]string{"currency"},
		),
		RateUpdatesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bank_exchange_rate_updates_total",
				Help: "Exchange rate updates received per currency",
			},
			[]string{"currency"},
		),
		FeedState: f.NewGauge(prometheus.GaugeOpts{
			Name: "bank_rate_feed_state",
			Help: "Rate feed state: 0 disconnected, 1 subscribing, 2 streaming",
		}),
		FeedReconnectsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "bank_rate_feed_reconnects_total",
			Help: "Times the rate subscription was lost and retried",
		}),
	}
}

func (m *BankMetrics) StateChanged(s rates.State) {
	m.FeedState.Set(float64(s))
}

func (m *BankMetrics) RateUpdated(c currency.Currency, value float64) {
	m.ExchangeRate.WithLabelValues(c.String()).Set(value)
	m.RateUpdatesTotal.WithLabelValues(c.String()).Inc()
}

func (m *BankMetrics) Reconnecting(error) {
	m.FeedReconnectsTotal.Inc()
}

func (m *BankMetrics) ObserveOperation(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.AccountOperations.WithLabelValues(operation, result).Inc()
}
