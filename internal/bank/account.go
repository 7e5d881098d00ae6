package bank

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Krchnk/gw-bank/internal/currency"
	"github.com/Krchnk/gw-bank/internal/storages"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type Type string

const (
	Standard Type = "STANDARD"
	Premium  Type = "PREMIUM"
)

// Ledger maps every supported currency to a non-negative balance.
type Ledger map[currency.Currency]decimal.Decimal

// Account is the operation set of every account handle. Each operation
// checks the secret before touching the ledger.
type Account interface {
	Identifier() string
	Type() Type
	Authenticate(secret string) error
	Balance(ctx context.Context, secret string) (Ledger, error)
	Deposit(ctx context.Context, secret string, c currency.Currency, amount decimal.Decimal) error
	Withdraw(ctx context.Context, secret string, c currency.Currency, amount decimal.Decimal) error
}

// PremiumAccount extends Account with credit pricing.
type PremiumAccount interface {
	Account
	CreditOffer(ctx context.Context, secret string, c currency.Currency, amount decimal.Decimal, months int) (CreditOffer, error)
}

type CreditOffer struct {
	ForeignCurrencyCost decimal.Decimal
	BaseCurrencyCost    decimal.Decimal
}

// RateSource looks up the latest rate of a currency against the bank's base.
type RateSource interface {
	Get(c currency.Currency) (float64, error)
}

type Owner struct {
	FirstName      string
	LastName       string
	Identifier     string
	DeclaredIncome decimal.Decimal
}

// bank is the configuration shared by every account of a registry.
type bank struct {
	base      currency.Currency
	supported map[currency.Currency]bool
	interest  decimal.Decimal
	rates     RateSource
	journal   storages.Journal
	log       logrus.FieldLogger
}

type account struct {
	owner Owner
	kind  Type
	guard Guard
	bank  *bank

	mu      sync.Mutex
	balance Ledger
}

func newAccount(b *bank, owner Owner, kind Type, secret string) *account {
	balance := make(Ledger, len(b.supported))
	for c := range b.supported {
		balance[c] = decimal.Zero
	}
	return &account{
		owner:   owner,
		kind:    kind,
		guard:   NewGuard(secret),
		bank:    b,
		balance: balance,
	}
}

// handle returns the caller facing view of the account matching its type.
func (a *account) handle() Account {
	if a.kind == Premium {
		return &premiumAccount{account: a}
	}
	return a
}

func (a *account) Identifier() string {
	return a.owner.Identifier
}

func (a *account) Type() Type {
	return a.kind
}

// Authenticate checks secret without touching the ledger.
func (a *account) Authenticate(secret string) error {
	return a.guard.Check(secret)
}

func (a *account) Balance(_ context.Context, secret string) (Ledger, error) {
	if err := a.guard.Check(secret); err != nil {
		return nil, err
	}

	a.mu.Lock()
	snapshot := make(Ledger, len(a.balance))
	for c, v := range a.balance {
		snapshot[c] = v
	}
	a.mu.Unlock()

	a.bank.log.WithField("identifier", a.owner.Identifier).Info("client requested balance")
	return snapshot, nil
}

func (a *account) Deposit(ctx context.Context, secret string, c currency.Currency, amount decimal.Decimal) error {
	if err := a.authorize(secret, c, amount); err != nil {
		return err
	}

	a.mu.Lock()
	a.balance[c] = a.balance[c].Add(amount)
	a.mu.Unlock()

	a.bank.log.WithFields(logrus.Fields{
		"identifier": a.owner.Identifier,
		"currency":   c,
		"amount":     amount.String(),
	}).Info("deposit completed")
	a.record(ctx, storages.OperationDeposit, c, amount)
	return nil
}

func (a *account) Withdraw(ctx context.Context, secret string, c currency.Currency, amount decimal.Decimal) error {
	if err := a.authorize(secret, c, amount); err != nil {
		return err
	}

	a.mu.Lock()
	current := a.balance[c]
	if current.LessThan(amount) {
		a.mu.Unlock()
		a.bank.log.WithFields(logrus.Fields{
			"identifier":      a.owner.Identifier,
			"currency":        c,
			"current_balance": current.String(),
			"amount":          amount.String(),
		}).Warn("insufficient funds for withdraw")
		return fmt.Errorf("%w: %s balance is lower than %s", ErrInsufficientFunds, c, amount)
	}
	a.balance[c] = current.Sub(amount)
	a.mu.Unlock()

	a.bank.log.WithFields(logrus.Fields{
		"identifier": a.owner.Identifier,
		"currency":   c,
		"amount":     amount.String(),
	}).Info("withdraw completed")
	a.record(ctx, storages.OperationWithdraw, c, amount)
	return nil
}

// authorize runs the checks shared by every ledger operation, the secret
// first.
func (a *account) authorize(secret string, c currency.Currency, amount decimal.Decimal) error {
	if err := a.guard.Check(secret); err != nil {
		return err
	}
	if !a.bank.supported[c] {
		return fmt.Errorf("%w: %s", ErrUnsupportedCurrency, c)
	}
	if amount.IsNegative() {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}
	return nil
}

func (a *account) record(ctx context.Context, op storages.Operation, c currency.Currency, amount decimal.Decimal) {
	err := a.bank.journal.Record(ctx, storages.Entry{
		Identifier:  a.owner.Identifier,
		Operation:   op,
		AccountType: string(a.kind),
		Currency:    c.String(),
		Amount:      amount,
		At:          time.Now().UTC(),
	})
	if err != nil {
		a.bank.log.WithError(err).WithField("identifier", a.owner.Identifier).Error("failed to record operation")
	}
}

type premiumAccount struct {
	*account
}

// CreditOffer prices a loan of amount over months without moving funds.
func (p *premiumAccount) CreditOffer(_ context.Context, secret string, c currency.Currency, amount decimal.Decimal, months int) (CreditOffer, error) {
	if err := p.authorize(secret, c, amount); err != nil {
		return CreditOffer{}, err
	}
	if months < 0 {
		return CreditOffer{}, fmt.Errorf("%w: negative duration %d", ErrInvalidAmount, months)
	}

	cost := amount.Add(amount.Mul(decimal.NewFromInt(int64(months))).Mul(p.bank.interest))

	rate, err := p.bank.rates.Get(c)
	if err != nil {
		return CreditOffer{}, err
	}

	p.bank.log.WithFields(logrus.Fields{
		"identifier": p.owner.Identifier,
		"currency":   c,
		"amount":     amount.String(),
		"months":     months,
	}).Info("client requested credit offer")

	return CreditOffer{
		ForeignCurrencyCost: cost,
		BaseCurrencyCost:    cost.Mul(decimal.NewFromFloat(rate)),
	}, nil
}
