package bank

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Krchnk/gw-bank/internal/currency"
	"github.com/Krchnk/gw-bank/internal/storages"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var DefaultInterestRate = decimal.RequireFromString("0.05")

type Config struct {
	BaseCurrency     currency.Currency
	Currencies       []currency.Currency
	PremiumThreshold decimal.Decimal
	InterestRate     decimal.Decimal
	Rates            RateSource
	Secrets          SecretGenerator
	Journal          storages.Journal
	Logger           logrus.FieldLogger
}

// Registration is returned by Register and Recover. Account is a
// PremiumAccount when Type is Premium.
type Registration struct {
	FirstName    string
	LastName     string
	Identifier   string
	Secret       string
	BaseCurrency currency.Currency
	Type         Type
	Account      Account
}

// Registry owns every account of the bank, keyed by customer identifier.
type Registry struct {
	bank      *bank
	threshold decimal.Decimal
	secrets   SecretGenerator

	mu       sync.RWMutex
	accounts map[string]*account
}

func NewRegistry(cfg Config) (*Registry, error) {
	if !cfg.BaseCurrency.Valid() {
		return nil, fmt.Errorf("invalid base currency %q", cfg.BaseCurrency)
	}
	if cfg.Rates == nil {
		return nil, errors.New("rate source is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if cfg.Journal == nil {
		cfg.Journal = storages.NewLogJournal(cfg.Logger)
	}
	if cfg.Secrets == nil {
		gen, err := NewSecretGenerator(DefaultSecretLength)
		if err != nil {
			return nil, err
		}
		cfg.Secrets = gen
	}
	if cfg.InterestRate.IsZero() {
		cfg.InterestRate = DefaultInterestRate
	}

	supported := map[currency.Currency]bool{cfg.BaseCurrency: true}
	for _, c := range cfg.Currencies {
		if !c.Valid() {
			return nil, fmt.Errorf("invalid currency %q", c)
		}
		supported[c] = true
	}

	return &Registry{
		bank: &bank{
			base:      cfg.BaseCurrency,
			supported: supported,
			interest:  cfg.InterestRate,
			rates:     cfg.Rates,
			journal:   cfg.Journal,
			log:       cfg.Logger.WithField("component", "bank"),
		},
		threshold: cfg.PremiumThreshold,
		secrets:   cfg.Secrets,
		accounts:  make(map[string]*account),
	}, nil
}

func (r *Registry) BaseCurrency() currency.Currency {
	return r.bank.base
}

// Register opens an account. Declared income at or above the premium
// threshold yields a Premium account.
func (r *Registry) Register(ctx context.Context, firstName, lastName, identifier string, declaredIncome decimal.Decimal) (Registration, error) {
	kind := Standard
	if declaredIncome.GreaterThanOrEqual(r.threshold) {
		kind = Premium
	}
	owner := Owner{
		FirstName:      firstName,
		LastName:       lastName,
		Identifier:     identifier,
		DeclaredIncome: declaredIncome,
	}
	acc := newAccount(r.bank, owner, kind, r.secrets())

	r.mu.Lock()
	if _, exists := r.accounts[identifier]; exists {
		r.mu.Unlock()
		r.bank.log.WithField("identifier", identifier).Warn("account already exists")
		return Registration{}, fmt.Errorf("%w: %s", ErrAccountExists, identifier)
	}
	r.accounts[identifier] = acc
	r.mu.Unlock()

	r.bank.log.WithFields(logrus.Fields{
		"identifier": identifier,
		"first_name": firstName,
		"last_name":  lastName,
		"type":       kind,
	}).Info("registered new account")

	if err := r.bank.journal.Record(ctx, storages.Entry{
		Identifier:  identifier,
		Operation:   storages.OperationRegister,
		AccountType: string(kind),
		Amount:      decimal.Zero,
		At:          time.Now().UTC(),
	}); err != nil {
		r.bank.log.WithError(err).WithField("identifier", identifier).Error("failed to record registration")
	}

	return r.registration(acc), nil
}

// Recover returns the registration of an existing account to a caller that
// knows its secret. Unknown identifiers fail the same way as a bad secret.
func (r *Registry) Recover(_ context.Context, identifier, secret string) (Registration, error) {
	r.mu.RLock()
	acc, ok := r.accounts[identifier]
	r.mu.RUnlock()
	if !ok {
		r.bank.log.WithField("identifier", identifier).Warn("recovery of unknown account")
		return Registration{}, fmt.Errorf("%w: unknown identifier", ErrAuthentication)
	}
	if err := acc.guard.Check(secret); err != nil {
		r.bank.log.WithField("identifier", identifier).Warn("recovery with wrong secret")
		return Registration{}, err
	}

	r.bank.log.WithField("identifier", identifier).Info("account recovered")
	return r.registration(acc), nil
}

// Account returns the handle of a registered account. The handle performs
// its own secret checks.
func (r *Registry) Account(identifier string) (Account, bool) {
	r.mu.RLock()
	acc, ok := r.accounts[identifier]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return acc.handle(), true
}

func (r *Registry) registration(acc *account) Registration {
	return Registration{
		FirstName:    acc.owner.FirstName,
		LastName:     acc.owner.LastName,
		Identifier:   acc.owner.Identifier,
		Secret:       acc.guard.Secret(),
		BaseCurrency: r.bank.base,
		Type:         acc.kind,
		Account:      acc.handle(),
	}
}
