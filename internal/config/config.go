package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Krchnk/gw-bank/internal/currency"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type Config struct {
	HTTPPort    string
	CORSOrigins []string
	JournalDSN  string
	Bank        BankConfig
	Exchange    ExchangeConfig
}

type BankConfig struct {
	BaseCurrency     currency.Currency
	Currencies       []currency.Currency
	PremiumThreshold decimal.Decimal
	InterestRate     decimal.Decimal
	SecretLength     int
}

type ExchangeConfig struct {
	Host          string
	Port          string
	RetryInterval time.Duration
}

func (e ExchangeConfig) Address() string {
	return e.Host + ":" + e.Port
}

// LoadConfig reads the dotenv file at path, when present, and resolves every
// setting from the environment.
func LoadConfig(path string) (Config, error) {
	if err := godotenv.Load(path); err != nil {
		logrus.WithError(err).Warn("failed to load config file, using env vars")
	}

	base, err := currency.Parse(getEnv("BASE_CURRENCY", "PLN"))
	if err != nil {
		return Config{}, fmt.Errorf("BASE_CURRENCY: %w", err)
	}
	currencies, err := currency.ParseList(getEnv("CURRENCIES", "EUR,USD,GBP,PLN"))
	if err != nil {
		return Config{}, fmt.Errorf("CURRENCIES: %w", err)
	}
	threshold, err := decimal.NewFromString(getEnv("PREMIUM_THRESHOLD", "10000"))
	if err != nil {
		return Config{}, fmt.Errorf("PREMIUM_THRESHOLD: %w", err)
	}
	interest, err := decimal.NewFromString(getEnv("INTEREST_RATE", "0.05"))
	if err != nil {
		return Config{}, fmt.Errorf("INTEREST_RATE: %w", err)
	}
	if !interest.IsPositive() {
		return Config{}, fmt.Errorf("INTEREST_RATE: must be positive, got %s", interest)
	}
	secretLength, err := strconv.Atoi(getEnv("SECRET_LENGTH", "10"))
	if err != nil {
		return Config{}, fmt.Errorf("SECRET_LENGTH: %w", err)
	}
	if secretLength < 2 {
		return Config{}, fmt.Errorf("SECRET_LENGTH: must be at least 2, got %d", secretLength)
	}
	retry, err := time.ParseDuration(getEnv("RATE_RETRY_INTERVAL", "5s"))
	if err != nil {
		return Config{}, fmt.Errorf("RATE_RETRY_INTERVAL: %w", err)
	}
	if retry <= 0 {
		return Config{}, fmt.Errorf("RATE_RETRY_INTERVAL: must be positive, got %s", retry)
	}

	cfg := Config{
		HTTPPort:    getEnv("HTTP_PORT", ":8080"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		JournalDSN:  getEnv("JOURNAL_DSN", ""),
		Bank: BankConfig{
			BaseCurrency:     base,
			Currencies:       currencies,
			PremiumThreshold: threshold,
			InterestRate:     interest,
			SecretLength:     secretLength,
		},
		Exchange: ExchangeConfig{
			Host:          getEnv("EXCHANGE_HOST", "localhost"),
			Port:          getEnv("EXCHANGE_PORT", "50051"),
			RetryInterval: retry,
		},
	}
	if !strings.Contains(cfg.HTTPPort, ":") {
		cfg.HTTPPort = ":" + cfg.HTTPPort
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
