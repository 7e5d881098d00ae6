package storages

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type Operation string

const (
	OperationRegister Operation = "register"
	OperationDeposit  Operation = "deposit"
	OperationWithdraw Operation = "withdraw"
)

// Entry describes one successful account operation.
type Entry struct {
	Identifier  string
	Operation   Operation
	AccountType string
	Currency    string
	Amount      decimal.Decimal
	At          time.Time
}

// Journal receives an Entry after every successful account mutation. It is
// write-only; balances are never rebuilt from it.
type Journal interface {
	Record(ctx context.Context, e Entry) error
}

// LogJournal writes entries to a logger.
type LogJournal struct {
	log logrus.FieldLogger
}

func NewLogJournal(logger logrus.FieldLogger) *LogJournal {
	return &LogJournal{log: logger.WithField("component", "journal")}
}

func (j *LogJournal) Record(_ context.Context, e Entry) error {
	j.log.WithFields(logrus.Fields{
		"identifier":   e.Identifier,
		"operation":    e.Operation,
		"account_type": e.AccountType,
		"currency":     e.Currency,
		"amount":       e.Amount.String(),
		"at":           e.At,
	}).Info("account operation")
	return nil
}
