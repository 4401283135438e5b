package sqlfx

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yurykabanov/sftp-backuper/pkg/domain"
	"github.com/yurykabanov/sftp-backuper/pkg/storage"
)

func TestOpenSqliteDatabase_Disabled(t *testing.T) {
	logger, _ := test.NewNullLogger()

	db, err := OpenSqliteDatabase(&SqliteConfig{}, logger)

	require.NoError(t, err)
	assert.Nil(t, db)

	repo, _ := RunsRepository(db)
	assert.IsType(t, storage.NopRunRepository{}, repo)
}

func TestOpenSqliteDatabase_MigratesFile(t *testing.T) {
	logger, _ := test.NewNullLogger()
	dsn := filepath.Join(t.TempDir(), "journal.db")

	db, err := OpenSqliteDatabase(&SqliteConfig{DSN: dsn}, logger)
	require.NoError(t, err)
	defer db.Close()

	repo, latest := RunsRepository(db)

	_, err = repo.Create(context.Background(), domain.Run{RunId: "run-1", LastState: "idle", StartedAt: time.Now()})
	require.NoError(t, err)

	runs, err := latest.FindLatest(context.Background(), 5)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
