package postgres

import (
	"database/sql"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

func NewJournal(dsn string) (*Journal, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		logrus.WithError(err).Error("failed to open journal database connection")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		logrus.WithError(err).Error("failed to ping journal database")
		db.Close()
		return nil, err
	}

	j := &Journal{db: db}
	if err := j.EnsureSchema(); err != nil {
		db.Close()
		return nil, err
	}

	logrus.Info("journal database connection established")
	return j, nil
}
