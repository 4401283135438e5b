package domainfx

import (
	"compress/gzip"
	"context"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"go.uber.org/fx"

	"github.com/yurykabanov/sftp-backuper/internal/configfx"
	"github.com/yurykabanov/sftp-backuper/pkg/archive"
	"github.com/yurykabanov/sftp-backuper/pkg/domain"
	"github.com/yurykabanov/sftp-backuper/pkg/remote"
	"github.com/yurykabanov/sftp-backuper/pkg/staging"
)

const (
	ConfigArchiveCompressionLevel = "archive.compression_level"
)

func NewCron(logger *logrus.Logger) *cron.Cron {
	return cron.New(cron.WithLogger(cronLogger{logger}))
}

func Dialer(logger *logrus.Logger, settings domain.Settings) domain.SessionDialer {
	return remote.NewDialer(logger, remote.ConfigFromSettings(settings), remote.TerminalPrompt)
}

func Archiver(logger *logrus.Logger, v *viper.Viper) domain.Archiver {
	v.SetDefault(ConfigArchiveCompressionLevel, gzip.DefaultCompression)

	return archive.New(logger, v.GetInt(ConfigArchiveCompressionLevel))
}

func StagingArea(logger *logrus.Logger) domain.StagingArea {
	return staging.New(logger)
}

func BackupOrchestrator(
	logger *logrus.Logger,
	settings domain.Settings,
	dialer domain.SessionDialer,
	archiver domain.Archiver,
	stagingArea domain.StagingArea,
) *domain.BackupOrchestrator {
	return domain.NewBackupOrchestrator(logger, settings, dialer, archiver, stagingArea, domain.RealClock{})
}

func BackupManager(
	logger *logrus.Logger,
	orchestrator *domain.BackupOrchestrator,
	repository domain.RunRepository,
	cron *cron.Cron,
) *domain.BackupManager {
	return domain.NewBackupManager(logger, orchestrator, repository, cron, domain.RealClock{}, domain.UUIDGenerator{})
}

// RunBackups runs a single backup and shuts the application down with the
// matching exit code, or keeps running backups on the configured schedule
// until the application stops.
func RunBackups(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	logger *logrus.Logger,
	v *viper.Viper,
	backupManager *domain.BackupManager,
) {
	schedule := v.GetString(configfx.FlagSchedule)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)

				var err error
				if schedule == "" {
					_, err = backupManager.RunOnce(ctx)
				} else {
					logger.WithField("schedule", schedule).Info("Running backups on schedule")
					err = backupManager.Schedule(ctx, schedule)
					if err != nil {
						logger.WithError(err).Error("Unable to schedule backups")
					}
				}

				if schedule == "" || err != nil {
					code := domain.ExitCodeFor(err)
					if err := shutdowner.Shutdown(fx.ExitCode(code.Int())); err != nil {
						logger.WithError(err).Error("Unable to shut down")
					}
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()

			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}

type cronLogger struct {
	logger logrus.FieldLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(fieldsOf(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.WithError(err).WithFields(fieldsOf(keysAndValues)).Error(msg)
}

func fieldsOf(keysAndValues []interface{}) logrus.Fields {
	fields := logrus.Fields{}

	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			fields[key] = keysAndValues[i+1]
		}
	}

	return fields
}
