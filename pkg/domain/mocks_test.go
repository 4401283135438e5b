package domain

import (
	"context"
	"io/ioutil"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
)

// region sessionMock
type sessionMock struct {
	mock.Mock
}

func (m *sessionMock) ListDirectory(ctx context.Context, dir string) ([]string, error) {
	args := m.Called(ctx, dir)

	if names := args.Get(0); names != nil {
		return names.([]string), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *sessionMock) StatModifiedTime(ctx context.Context, p string) (time.Time, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *sessionMock) Remove(ctx context.Context, p string) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *sessionMock) RunCommand(ctx context.Context, cmd string) ([]string, error) {
	args := m.Called(ctx, cmd)

	if lines := args.Get(0); lines != nil {
		return lines.([]string), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *sessionMock) Upload(ctx context.Context, localPath, remotePath string) error {
	args := m.Called(ctx, localPath, remotePath)
	return args.Error(0)
}

func (m *sessionMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

// endregion

// region dialerMock
type dialerMock struct {
	mock.Mock
}

func (m *dialerMock) Dial(ctx context.Context) (RemoteSession, error) {
	args := m.Called(ctx)

	if s := args.Get(0); s != nil {
		return s.(RemoteSession), args.Error(1)
	}

	return nil, args.Error(1)
}

// endregion

// region archiverMock
type archiverMock struct {
	mock.Mock
}

func (m *archiverMock) Build(ctx context.Context, sources []string, destination string) (ArchiveJob, error) {
	args := m.Called(ctx, sources, destination)
	return args.Get(0).(ArchiveJob), args.Error(1)
}

// endregion

// region stagingMock
type stagingMock struct {
	mock.Mock
}

func (m *stagingMock) Clean(dir string) error {
	args := m.Called(dir)
	return args.Error(0)
}

func (m *stagingMock) FreeBytes(dir string) (uint64, error) {
	args := m.Called(dir)
	return args.Get(0).(uint64), args.Error(1)
}

// endregion

// region runRepositoryMock
type runRepositoryMock struct {
	mock.Mock
}

func (m *runRepositoryMock) Create(ctx context.Context, run Run) (Run, error) {
	args := m.Called(ctx, run)
	return args.Get(0).(Run), args.Error(1)
}

func (m *runRepositoryMock) Update(ctx context.Context, run Run) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

// endregion

// region runnerMock
type runnerMock struct {
	mock.Mock
}

func (m *runnerMock) Run(ctx context.Context) (Report, error) {
	args := m.Called(ctx)
	return args.Get(0).(Report), args.Error(1)
}

// endregion

// region schedulerMock
type schedulerMock struct {
	mock.Mock
}

func (m *schedulerMock) AddFunc(spec string, cmd func()) (cron.EntryID, error) {
	args := m.Called(spec, cmd)
	return args.Get(0).(cron.EntryID), args.Error(1)
}

func (m *schedulerMock) Start() {
	m.Called()
}

func (m *schedulerMock) Stop() context.Context {
	m.Called()
	return context.Background()
}

// endregion

type stubClock struct {
	now time.Time
}

func (c stubClock) Now() time.Time { return c.now }

type stubIds struct {
	id string
}

func (g stubIds) New() string { return g.id }

func fixedNow() time.Time {
	return time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
}

func discardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.Out = ioutil.Discard

	return logger
}

var cron0 cron.EntryID
