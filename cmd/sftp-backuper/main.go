package main

import (
	"os"
	"time"

	"go.uber.org/fx"

	"github.com/yurykabanov/sftp-backuper/internal/configfx"
	"github.com/yurykabanov/sftp-backuper/internal/domainfx"
	"github.com/yurykabanov/sftp-backuper/internal/loggerfx"
	"github.com/yurykabanov/sftp-backuper/internal/metricsfx"
	"github.com/yurykabanov/sftp-backuper/internal/sqlfx"
	"github.com/yurykabanov/sftp-backuper/pkg/domain"
)

func main() {
	logger := loggerfx.Logger()

	app := fx.New(
		fx.StartTimeout(15*time.Second),
		fx.StopTimeout(15*time.Second),

		fx.WithLogger(loggerfx.NewFxEventLogger),

		loggerfx.Module,
		configfx.Module,
		sqlfx.Module,
		metricsfx.Module,
		domainfx.Module,
	)

	if err := app.Err(); err != nil {
		logger.WithError(err).Error("Unable to start")
		os.Exit(domain.ExitCodeFor(err).Int())
	}

	app.Run()
}
