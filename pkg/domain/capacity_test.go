package domain

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanUpload_Boundary(t *testing.T) {
	const margin = 1048576

	report := &CapacityReport{FreeBytes: 2000000, Mountpoint: "/"}

	assert.False(t, CanUpload(report, 2000000-margin, margin), "free - pending == margin must be refused")
	assert.True(t, CanUpload(report, 2000000-margin-1, margin), "free - pending == margin + 1 must be accepted")
}

func TestCanUpload_ScenarioB(t *testing.T) {
	report := &CapacityReport{FreeBytes: 2000000 * kib, Mountpoint: "/"}

	assert.True(t, CanUpload(report, 500000*kib, 1048576*kib))
}

func TestCanUpload_UnknownCapacity(t *testing.T) {
	assert.False(t, CanUpload(nil, 0, 0))
	assert.False(t, CanUpload(nil, 1, DefaultSafetyMargin))
}

func TestParseCapacityReport(t *testing.T) {
	report, err := ParseCapacityReport(dfOutput, "/")

	require.NoError(t, err)
	assert.Equal(t, int64(2000000*kib), report.FreeBytes)
	assert.Equal(t, "/", report.Mountpoint)
}

func TestParseCapacityReport_LastMatchWins(t *testing.T) {
	lines := []string{
		"overlay 100 10 90 10% /",
		"",
		"/dev/sda1   1000   100   900   10%   /",
	}

	report, err := ParseCapacityReport(lines, "/")

	require.NoError(t, err)
	assert.Equal(t, int64(900*kib), report.FreeBytes)
}

func TestParseCapacityReport_MountpointMissing(t *testing.T) {
	report, err := ParseCapacityReport(dfOutput, "/mnt/backup")

	assert.Nil(t, report)

	var capacityErr *CapacityUnknownError
	require.True(t, errors.As(err, &capacityErr))
	assert.Equal(t, "/mnt/backup", capacityErr.Mountpoint)
	assert.False(t, CanUpload(report, 0, 0))
}

func TestParseCapacityReport_NotANumber(t *testing.T) {
	_, err := ParseCapacityReport([]string{"/dev/sda1 1000 100 lots 10% /"}, "/")

	var capacityErr *CapacityUnknownError
	assert.True(t, errors.As(err, &capacityErr))
}

func TestParseCapacityReport_ShortRowIgnored(t *testing.T) {
	_, err := ParseCapacityReport([]string{"/dev/sda1 1000 /"}, "/")

	var capacityErr *CapacityUnknownError
	assert.True(t, errors.As(err, &capacityErr))
}
