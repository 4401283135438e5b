package domain

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yurykabanov/sftp-backuper/pkg/appcontext"
)

func TestManager_RunOnce_Success(t *testing.T) {
	repo := &runRepositoryMock{}
	runner := &runnerMock{}

	now := fixedNow()

	repo.On("Create", mock.Anything, Run{
		RunId:     "run-1",
		Status:    RunStatusStarted,
		LastState: "idle",
		StartedAt: now,
	}).Return(Run{Id: 7, RunId: "run-1", Status: RunStatusStarted, StartedAt: now}, nil)

	runner.On("Run", mock.MatchedBy(func(ctx context.Context) bool {
		return appcontext.RunIdFromContext(ctx) == "run-1"
	})).Return(Report{
		States:   []State{StateConnected, StatePruned, StateUploaded, StateClosed},
		Pruned:   []RemoteFileEntry{{Path: "/srv/backups/old.tar.gz"}},
		Archive:  &ArchiveJob{Filename: testArchiveName, SizeBytes: 42},
		Uploaded: true,
	}, nil)

	repo.On("Update", mock.Anything, mock.MatchedBy(func(run Run) bool {
		return run.Id == 7 &&
			run.Status == RunStatusSucceeded &&
			run.LastState == "uploaded" &&
			run.ArchiveName == testArchiveName &&
			run.ArchiveSize == 42 &&
			run.PrunedCount == 1 &&
			run.Uploaded &&
			run.FinishedAt != nil
	})).Return(nil)

	m := NewBackupManager(discardLogger(), runner, repo, &schedulerMock{}, stubClock{now}, stubIds{"run-1"})

	run, err := m.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, RunStatusSucceeded, run.Status)
	repo.AssertExpectations(t)
	runner.AssertExpectations(t)
}

func TestManager_RunOnce_FailureIsJournaled(t *testing.T) {
	repo := &runRepositoryMock{}
	runner := &runnerMock{}

	runErr := NewArchiveError("/var/tmp/staging/a.tar.gz", errors.New("no such file"))

	repo.On("Create", mock.Anything, mock.Anything).Return(Run{Id: 3, RunId: "run-2"}, nil)
	runner.On("Run", mock.Anything).Return(Report{States: []State{StateConnected, StatePruned, StateClosed}}, runErr)
	repo.On("Update", mock.Anything, mock.MatchedBy(func(run Run) bool {
		return run.Status == RunStatusFailed && run.LastState == "pruned" && run.Error == runErr.Error()
	})).Return(nil)

	m := NewBackupManager(discardLogger(), runner, repo, &schedulerMock{}, stubClock{fixedNow()}, stubIds{"run-2"})

	run, err := m.RunOnce(context.Background())

	assert.Equal(t, runErr, err)
	assert.Equal(t, RunStatusFailed, run.Status)
	repo.AssertExpectations(t)
}

func TestManager_RunOnce_JournalFailureIsNotFatal(t *testing.T) {
	repo := &runRepositoryMock{}
	runner := &runnerMock{}

	repo.On("Create", mock.Anything, mock.Anything).Return(Run{}, errors.New("database is locked"))
	runner.On("Run", mock.Anything).Return(Report{States: []State{StateSkipped, StateClosed}}, nil)

	m := NewBackupManager(discardLogger(), runner, repo, &schedulerMock{}, stubClock{fixedNow()}, stubIds{"run-3"})

	run, err := m.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "run-3", run.RunId)
	assert.Equal(t, "skipped", run.LastState)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestManager_Dispatch_DoesNotOverlap(t *testing.T) {
	m := NewBackupManager(discardLogger(), &runnerMock{}, &runRepositoryMock{}, &schedulerMock{}, stubClock{fixedNow()}, stubIds{"x"})

	m.dispatch()
	m.dispatch()
	m.dispatch()

	assert.Len(t, m.queue, 1)
}

func TestManager_Schedule_InvalidSpec(t *testing.T) {
	sched := &schedulerMock{}
	sched.On("AddFunc", "not a spec", mock.Anything).Return(cron0, errors.New("expected 5 fields"))

	m := NewBackupManager(discardLogger(), &runnerMock{}, &runRepositoryMock{}, sched, stubClock{fixedNow()}, stubIds{"x"})

	err := m.Schedule(context.Background(), "not a spec")

	assert.Equal(t, ExitConfigError, ExitCodeFor(err))
	sched.AssertNotCalled(t, "Start")
}

func TestManager_Schedule_RunsDispatchedBackups(t *testing.T) {
	repo := &runRepositoryMock{}
	runner := &runnerMock{}
	sched := &schedulerMock{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var tick func()
	sched.On("AddFunc", "@daily", mock.Anything).Run(func(args mock.Arguments) {
		tick = args.Get(1).(func())
	}).Return(cron0, nil)
	sched.On("Start").Run(func(mock.Arguments) { tick() })
	sched.On("Stop")

	repo.On("Create", mock.Anything, mock.Anything).Return(Run{}, nil)
	runner.On("Run", mock.Anything).Run(func(mock.Arguments) { cancel() }).Return(Report{}, nil)

	m := NewBackupManager(discardLogger(), runner, repo, sched, stubClock{fixedNow()}, stubIds{"x"})

	done := make(chan error, 1)
	go func() { done <- m.Schedule(ctx, "@daily") }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}

	runner.AssertNumberOfCalls(t, "Run", 1)
	sched.AssertCalled(t, "Stop")
}
