package storages

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogJournalRecord(t *testing.T) {
	logger, hook := test.NewNullLogger()
	j := NewLogJournal(logger)

	err := j.Record(context.Background(), Entry{
		Identifier:  "12345",
		Operation:   OperationWithdraw,
		AccountType: "PREMIUM",
		Currency:    "EUR",
		Amount:      decimal.RequireFromString("12.5"),
		At:          time.Now(),
	})
	require.NoError(t, err)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "account operation", entry.Message)
	assert.Equal(t, "12345", entry.Data["identifier"])
	assert.Equal(t, OperationWithdraw, entry.Data["operation"])
	assert.Equal(t, "12.5", entry.Data["amount"])
	assert.Equal(t, "journal", entry.Data["component"])
}
