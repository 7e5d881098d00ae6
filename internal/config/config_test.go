package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Krchnk/gw-bank/internal/currency"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPPort)
	assert.Equal(t, currency.PLN, cfg.Bank.BaseCurrency)
	assert.Equal(t, currency.All(), cfg.Bank.Currencies)
	assert.Equal(t, "10000", cfg.Bank.PremiumThreshold.String())
	assert.Equal(t, "0.05", cfg.Bank.InterestRate.String())
	assert.Equal(t, 10, cfg.Bank.SecretLength)
	assert.Equal(t, "localhost:50051", cfg.Exchange.Address())
	assert.Equal(t, 5*time.Second, cfg.Exchange.RetryInterval)
	assert.Empty(t, cfg.JournalDSN)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank.env")
	content := "HTTP_PORT=9090\nBASE_CURRENCY=eur\nCURRENCIES=USD,GBP\nPREMIUM_THRESHOLD=5000\nRATE_RETRY_INTERVAL=250ms\nEXCHANGE_HOST=rates\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	keys := []string{"HTTP_PORT", "BASE_CURRENCY", "CURRENCIES", "PREMIUM_THRESHOLD", "RATE_RETRY_INTERVAL", "EXCHANGE_HOST"}
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTPPort)
	assert.Equal(t, currency.EUR, cfg.Bank.BaseCurrency)
	assert.Equal(t, []currency.Currency{currency.USD, currency.GBP}, cfg.Bank.Currencies)
	assert.Equal(t, "5000", cfg.Bank.PremiumThreshold.String())
	assert.Equal(t, 250*time.Millisecond, cfg.Exchange.RetryInterval)
	assert.Equal(t, "rates:50051", cfg.Exchange.Address())
}

func TestLoadConfigInvalid(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.env")
	cases := map[string]string{
		"BASE_CURRENCY":       "XYZ",
		"CURRENCIES":          "EUR,ABC",
		"PREMIUM_THRESHOLD":   "lots",
		"INTEREST_RATE":       "-0.1",
		"SECRET_LENGTH":       "1",
		"RATE_RETRY_INTERVAL": "soon",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := LoadConfig(missing)
			assert.ErrorContains(t, err, key)
		})
	}
}
