package domain

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/yurykabanov/sftp-backuper/pkg/appcontext"
)

type RunRepository interface {
	Create(context.Context, Run) (Run, error)
	Update(context.Context, Run) error
}

type backupRunner interface {
	Run(context.Context) (Report, error)
}

type scheduler interface {
	AddFunc(spec string, cmd func()) (cron.EntryID, error)
	Start()
	Stop() context.Context
}

// BackupManager runs the orchestrator either once or on a cron schedule and
// records every run in the journal. Scheduled ticks go through a single slot
// queue, so two runs never overlap on the remote backup directory.
type BackupManager struct {
	logger logrus.FieldLogger

	runner backupRunner
	repo   RunRepository
	cron   scheduler

	clock Clock
	ids   IdGenerator

	queue chan struct{}
}

func NewBackupManager(
	logger logrus.FieldLogger,
	runner backupRunner,
	repo RunRepository,
	cron scheduler,
	clock Clock,
	ids IdGenerator,
) *BackupManager {
	return &BackupManager{
		logger: logger,
		runner: runner,
		repo:   repo,
		cron:   cron,
		clock:  clock,
		ids:    ids,
		queue:  make(chan struct{}, 1),
	}
}

// RunOnce performs a single backup run and returns its journal record along
// with the fatal error, if any.
func (m *BackupManager) RunOnce(ctx context.Context) (Run, error) {
	ctx = appcontext.WithRunId(ctx, m.ids.New())
	logger := appcontext.LoggerFromContext(m.logger, ctx)

	run := Run{
		RunId:     appcontext.RunIdFromContext(ctx),
		Status:    RunStatusStarted,
		LastState: StateIdle.String(),
		StartedAt: m.clock.Now(),
	}

	if created, err := m.repo.Create(ctx, run); err == nil {
		run = created
	} else {
		logger.WithError(err).Warn("Unable to record backup run")
	}

	logger.Info("Starting backup run")
	report, runErr := m.runner.Run(ctx)

	finishedAt := m.clock.Now()
	run.FinishedAt = &finishedAt
	run.LastState = report.LastState().String()
	run.PrunedCount = len(report.Pruned)
	run.Uploaded = report.Uploaded

	if report.Archive != nil {
		run.ArchiveName = report.Archive.Filename
		run.ArchiveSize = report.Archive.SizeBytes
	}

	if runErr != nil {
		run.Status = RunStatusFailed
		run.Error = runErr.Error()
		logger.WithError(runErr).WithField("state", run.LastState).Error("Backup run failed")
	} else {
		run.Status = RunStatusSucceeded
		logger.WithFields(logrus.Fields{
			"archive":  run.ArchiveName,
			"pruned":   run.PrunedCount,
			"uploaded": run.Uploaded,
			"duration": report.Duration().String(),
		}).Info("Backup run finished")
	}

	if run.Id != 0 {
		if err := m.repo.Update(ctx, run); err != nil {
			logger.WithError(err).Warn("Unable to update backup run record")
		}
	}

	return run, runErr
}

// Schedule registers spec and runs backups on every tick until ctx is done.
func (m *BackupManager) Schedule(ctx context.Context, spec string) error {
	ctx = appcontext.WithSchedule(ctx, spec)
	logger := appcontext.LoggerFromContext(m.logger, ctx)

	if _, err := m.cron.AddFunc(spec, m.dispatch); err != nil {
		return &ConfigurationError{Field: "schedule", Reason: "is not a valid cron spec", Err: err}
	}

	logger.Debug("Starting cron")
	m.cron.Start()
	defer m.cron.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Stopping scheduled backups")
			return nil
		case <-m.queue:
			_, _ = m.RunOnce(ctx)
		}
	}
}

func (m *BackupManager) dispatch() {
	fields := logrus.Fields{"dispatched_at": m.clock.Now()}

	select {
	case m.queue <- struct{}{}:
		m.logger.WithFields(fields).Info("Dispatched new backup run")
	default:
		m.logger.WithFields(fields).Warn("Previous backup run is still pending, skipping this tick")
	}
}
