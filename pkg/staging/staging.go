package staging

import (
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/disk"
	"github.com/sirupsen/logrus"
)

// diskUsage is replaced in tests
var diskUsage = disk.Usage

// Manager owns the local staging directory where archives are built before
// upload.
type Manager struct {
	logger logrus.FieldLogger
}

func New(logger logrus.FieldLogger) *Manager {
	return &Manager{
		logger: logger,
	}
}

// Clean makes sure dir exists and is empty. Only children of dir are removed.
func (m *Manager) Clean(dir string) error {
	if dir == "" || filepath.Clean(dir) == "/" {
		return errors.Errorf("refusing to clean staging directory '%s'", dir)
	}

	err := os.MkdirAll(dir, os.ModeDir|0755)
	if err != nil {
		return errors.Wrapf(err, "unable to create staging directory %s", dir)
	}

	children, err := ioutil.ReadDir(dir)
	if err != nil {
		return errors.Wrapf(err, "unable to read staging directory %s", dir)
	}

	for _, child := range children {
		p := filepath.Join(dir, child.Name())

		if err := os.RemoveAll(p); err != nil {
			return errors.Wrapf(err, "unable to remove %s", p)
		}

		m.logger.WithField("path", p).Debug("Removed stale staging entry")
	}

	return nil
}

func (m *Manager) FreeBytes(dir string) (uint64, error) {
	usage, err := diskUsage(dir)
	if err != nil {
		return 0, errors.Wrapf(err, "unable to get disk usage for %s", dir)
	}

	return usage.Free, nil
}
