package staging

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/disk"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func discardLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(ioutil.Discard)
	return logger
}

func TestManager_Clean(t *testing.T) {
	dir := t.TempDir()

	assert.Nil(t, ioutil.WriteFile(filepath.Join(dir, "stale.tar.gz"), []byte("x"), 0644))
	assert.Nil(t, os.MkdirAll(filepath.Join(dir, "leftover", "nested"), 0755))

	err := New(discardLogger()).Clean(dir)

	assert.Nil(t, err)
	assert.DirExists(t, dir)

	children, err := ioutil.ReadDir(dir)
	assert.Nil(t, err)
	assert.Empty(t, children)
}

func TestManager_Clean_CreatesMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")

	err := New(discardLogger()).Clean(dir)

	assert.Nil(t, err)
	assert.DirExists(t, dir)
}

func TestManager_Clean_Error(t *testing.T) {
	parent := t.TempDir()
	file := filepath.Join(parent, "file")
	assert.Nil(t, ioutil.WriteFile(file, []byte("x"), 0644))

	err := New(discardLogger()).Clean(filepath.Join(file, "staging"))

	assert.NotNil(t, err)
}

func TestManager_Clean_RefusesRoot(t *testing.T) {
	m := New(discardLogger())

	assert.NotNil(t, m.Clean("/"))
	assert.NotNil(t, m.Clean(""))
}

func TestManager_FreeBytes(t *testing.T) {
	defer func(orig func(string) (*disk.UsageStat, error)) { diskUsage = orig }(diskUsage)

	diskUsage = func(p string) (*disk.UsageStat, error) {
		assert.Equal(t, "/var/tmp/staging", p)
		return &disk.UsageStat{Path: p, Free: 4096}, nil
	}

	free, err := New(discardLogger()).FreeBytes("/var/tmp/staging")

	assert.Nil(t, err)
	assert.Equal(t, uint64(4096), free)
}

func TestManager_FreeBytes_Error(t *testing.T) {
	defer func(orig func(string) (*disk.UsageStat, error)) { diskUsage = orig }(diskUsage)

	diskUsage = func(string) (*disk.UsageStat, error) {
		return nil, errors.New("no such file or directory")
	}

	_, err := New(discardLogger()).FreeBytes("/missing")

	assert.NotNil(t, err)
}
