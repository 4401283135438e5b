package domain

import (
	"context"
	"path"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/yurykabanov/sftp-backuper/pkg/appcontext"
)

const megabyte = 1024 * 1024

// RemoteSession is the authenticated channel to the backup host.
type RemoteSession interface {
	ListDirectory(ctx context.Context, dir string) ([]string, error)
	StatModifiedTime(ctx context.Context, p string) (time.Time, error)
	Remove(ctx context.Context, p string) error
	RunCommand(ctx context.Context, cmd string) ([]string, error)
	Upload(ctx context.Context, localPath, remotePath string) error

	// Close must be safe to call more than once and on half-opened sessions.
	Close() error
}

type SessionDialer interface {
	Dial(ctx context.Context) (RemoteSession, error)
}

type Archiver interface {
	Build(ctx context.Context, sources []string, destination string) (ArchiveJob, error)
}

type StagingArea interface {
	Clean(dir string) error
	FreeBytes(dir string) (uint64, error)
}

// BackupOrchestrator drives one backup run: it connects, cleans the staging
// directory, prunes expired remote backups, builds a new archive and uploads
// it when the remote host has enough room. The session is closed on every
// exit path.
type BackupOrchestrator struct {
	logger logrus.FieldLogger

	settings Settings

	dialer   SessionDialer
	archiver Archiver
	staging  StagingArea
	clock    Clock
}

func NewBackupOrchestrator(
	logger logrus.FieldLogger,
	settings Settings,
	dialer SessionDialer,
	archiver Archiver,
	staging StagingArea,
	clock Clock,
) *BackupOrchestrator {
	return &BackupOrchestrator{
		logger:   logger,
		settings: settings,
		dialer:   dialer,
		archiver: archiver,
		staging:  staging,
		clock:    clock,
	}
}

func (o *BackupOrchestrator) Run(ctx context.Context) (report Report, err error) {
	logger := appcontext.LoggerFromContext(o.logger, ctx)
	now := o.clock.Now()
	report.StartedAt = now

	logger.WithFields(logrus.Fields{
		"host":     o.settings.Host,
		"port":     o.settings.Port,
		"username": o.settings.Username,
	}).Info("Connecting to remote host")

	session, err := o.dialer.Dial(ctx)
	defer o.closeSession(logger, session, &report)
	if err != nil {
		return report, NewTransportError("connect", err)
	}
	o.enter(logger, &report, StateConnected, "Connected to remote host")

	if err = o.cleanStaging(logger); err != nil {
		return report, err
	}
	o.enter(logger, &report, StateStagingCleaned, "Staging directory cleaned")

	report.Entries, err = o.listRemote(ctx, logger, session)
	if err != nil {
		return report, err
	}
	o.enter(logger, &report, StateRemoteListed, "Remote backups listed")

	report.Pruned, err = o.prune(ctx, logger, session, report.Entries, now)
	if err != nil {
		return report, err
	}
	o.enter(logger, &report, StatePruned, "Expired backups pruned")

	job, err := o.buildArchive(ctx, logger, now)
	if err != nil {
		return report, err
	}
	report.Archive = &job
	o.enter(logger, &report, StateArchived, "Backup archive created")

	capacity, err := o.evaluateCapacity(ctx, session)
	if err != nil {
		logger.WithError(err).Warn("Unable to determine free space on remote host, upload will be skipped")
	}
	report.Capacity = capacity
	upload := CanUpload(capacity, job.SizeBytes, o.settings.SafetyMargin)
	o.logCapacity(logger, capacity, job, upload)
	o.enter(logger, &report, StateCapacityEvaluated, "Capacity evaluated")

	if !upload {
		o.enter(logger, &report, StateSkipped, "Upload skipped, archive kept in staging")
		return report, nil
	}

	remotePath := path.Join(o.settings.RemoteDirectory, job.Filename)
	logger.WithFields(logrus.Fields{"local": job.LocalPath, "remote": remotePath}).Info("Uploading backup archive")

	if err = session.Upload(ctx, job.LocalPath, remotePath); err != nil {
		return report, NewTransportError("upload "+remotePath, err)
	}
	report.Uploaded = true
	o.enter(logger, &report, StateUploaded, "Backup archive uploaded")

	return report, nil
}

func (o *BackupOrchestrator) enter(logger logrus.FieldLogger, report *Report, state State, msg string) {
	report.enter(state)
	logger.WithField("state", state.String()).Info(msg)
}

func (o *BackupOrchestrator) closeSession(logger logrus.FieldLogger, session RemoteSession, report *Report) {
	logger.Info("Closing remote session")

	if session != nil {
		if err := session.Close(); err != nil {
			logger.WithError(err).Warn("Unable to close remote session cleanly")
		}
	}

	report.FinishedAt = o.clock.Now()
	o.enter(logger, report, StateClosed, "Remote session closed")
}

func (o *BackupOrchestrator) cleanStaging(logger logrus.FieldLogger) error {
	dir := o.settings.StagingDirectory

	logger.WithField("directory", dir).Info("Cleaning staging directory")

	if err := o.staging.Clean(dir); err != nil {
		return NewArchiveError(dir, errors.Wrap(err, "unable to clean staging directory"))
	}

	if free, err := o.staging.FreeBytes(dir); err == nil {
		logger.WithField("free_mb", free/megabyte).Debug("Staging directory free space")
	} else {
		logger.WithError(err).Warn("Unable to determine free space of staging directory")
	}

	return nil
}

func (o *BackupOrchestrator) listRemote(ctx context.Context, logger logrus.FieldLogger, session RemoteSession) ([]RemoteFileEntry, error) {
	dir := o.settings.RemoteDirectory

	logger.WithField("directory", dir).Info("Listing remote directory")

	names, err := session.ListDirectory(ctx, dir)
	if err != nil {
		return nil, NewTransportError("list "+dir, err)
	}

	entries := make([]RemoteFileEntry, 0, len(names))
	for _, name := range names {
		p := path.Join(dir, name)

		modifiedAt, err := session.StatModifiedTime(ctx, p)
		if err != nil {
			return nil, NewTransportError("stat "+p, err)
		}

		logger.WithFields(logrus.Fields{"file": p, "modified_at": modifiedAt}).Info("Found remote backup")

		entries = append(entries, RemoteFileEntry{Path: p, ModifiedAt: modifiedAt})
	}

	return entries, nil
}

func (o *BackupOrchestrator) prune(
	ctx context.Context,
	logger logrus.FieldLogger,
	session RemoteSession,
	entries []RemoteFileEntry,
	now time.Time,
) ([]RemoteFileEntry, error) {
	expired := SelectExpired(entries, now, o.settings.RetentionDays)

	logger.WithFields(logrus.Fields{
		"cutoff":  RetentionCutoff(now, o.settings.RetentionDays),
		"expired": len(expired),
	}).Info("Removing backups older than cutoff")

	pruned := make([]RemoteFileEntry, 0, len(expired))
	for _, entry := range expired {
		if err := session.Remove(ctx, entry.Path); err != nil {
			return pruned, NewTransportError("remove "+entry.Path, err)
		}

		logger.WithField("file", entry.Path).Info("Removed expired backup")
		pruned = append(pruned, entry)
	}

	return pruned, nil
}

func (o *BackupOrchestrator) buildArchive(ctx context.Context, logger logrus.FieldLogger, now time.Time) (ArchiveJob, error) {
	name, err := ArchiveName(o.settings.ArchiveTag, o.settings.TimestampFormat, now)
	if err != nil {
		return ArchiveJob{}, NewArchiveError(o.settings.ArchiveTag, err)
	}

	destination := filepath.Join(o.settings.StagingDirectory, name)
	sources := o.settings.SourcePaths()

	logger.WithFields(logrus.Fields{"archive": name, "sources": sources}).Info("Creating backup archive")

	job, err := o.archiver.Build(ctx, sources, destination)
	if err != nil {
		var archiveErr *ArchiveError
		if errors.As(err, &archiveErr) {
			return ArchiveJob{}, err
		}
		return ArchiveJob{}, NewArchiveError(destination, err)
	}

	return job, nil
}

func (o *BackupOrchestrator) evaluateCapacity(ctx context.Context, session RemoteSession) (*CapacityReport, error) {
	lines, err := session.RunCommand(ctx, o.settings.CapacityCommand)
	if err != nil {
		return nil, &CapacityUnknownError{
			Mountpoint: o.settings.Mountpoint,
			Err:        NewTransportError("run "+o.settings.CapacityCommand, err),
		}
	}

	return ParseCapacityReport(lines, o.settings.Mountpoint)
}

func (o *BackupOrchestrator) logCapacity(logger logrus.FieldLogger, capacity *CapacityReport, job ArchiveJob, upload bool) {
	fields := logrus.Fields{
		"archive_mb":       job.SizeBytes / megabyte,
		"safety_margin_mb": o.settings.SafetyMargin / megabyte,
		"upload":           upload,
	}

	if capacity != nil {
		fields["mountpoint"] = capacity.Mountpoint
		fields["free_mb"] = capacity.FreeBytes / megabyte
	}

	if capacity != nil && !upload {
		logger.WithFields(fields).Warn("Not enough free space on remote host")
		return
	}

	logger.WithFields(fields).Info("Checked free space on remote host")
}
