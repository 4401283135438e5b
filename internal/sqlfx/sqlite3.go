package sqlfx

import (
	"context"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"go.uber.org/fx"

	"github.com/yurykabanov/sftp-backuper/pkg/storage"
)

const (
	ConfigJournalDSN = "journal.dsn"
)

type SqliteConfig struct {
	DSN string
}

func SqliteConfigProvider(v *viper.Viper) (*SqliteConfig, error) {
	return &SqliteConfig{
		DSN: v.GetString(ConfigJournalDSN),
	}, nil
}

// OpenSqliteDatabase returns a nil database when the journal is disabled.
func OpenSqliteDatabase(config *SqliteConfig, logger *logrus.Logger) (*sqlx.DB, error) {
	if config.DSN == "" {
		logger.Info("Run journal is disabled")
		return nil, nil
	}

	logger.WithField("dsn", config.DSN).Debug("Connecting to DB with DSN")

	db, err := sqlx.Open("sqlite3", config.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "Unable to connect to DB")
	}

	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	if err := storage.Migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func CloseSqliteDatabase(lc fx.Lifecycle, db *sqlx.DB) {
	if db == nil {
		return
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return db.Close()
		},
	})
}
