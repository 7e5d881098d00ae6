package postgres

import (
	"context"
	"database/sql"

	"github.com/Krchnk/gw-bank/internal/storages"
	"github.com/sirupsen/logrus"
)

// Journal appends account operations to the account_operations table.
type Journal struct {
	db *sql.DB
}

func (j *Journal) EnsureSchema() error {
	_, err := j.db.Exec(`
        CREATE TABLE IF NOT EXISTS account_operations (
            id           BIGSERIAL PRIMARY KEY,
            identifier   TEXT        NOT NULL,
            operation    TEXT        NOT NULL,
            account_type TEXT        NOT NULL,
            currency     TEXT        NOT NULL DEFAULT '',
            amount       NUMERIC     NOT NULL DEFAULT 0,
            created_at   TIMESTAMPTZ NOT NULL
        )`)
	if err != nil {
		logrus.WithError(err).Error("failed to create account_operations table")
		return err
	}
	return nil
}

func (j *Journal) Record(ctx context.Context, e storages.Entry) error {
	_, err := j.db.ExecContext(ctx, `
        INSERT INTO account_operations (identifier, operation, account_type, currency, amount, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		e.Identifier, string(e.Operation), e.AccountType, e.Currency, e.Amount.String(), e.At)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"identifier": e.Identifier,
			"operation":  e.Operation,
		}).WithError(err).Error("failed to record account operation")
		return err
	}

	logrus.WithFields(logrus.Fields{
		"identifier": e.Identifier,
		"operation":  e.Operation,
	}).Debug("account operation recorded in database")
	return nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}
