package domain

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// The capacity command reports 1024-byte blocks (`df -Pk`).
const capacityBlockSize = 1024

// availableColumn is the "Available" column of POSIX df output.
const availableColumn = 3

// CanUpload decides whether an archive of pendingSizeBytes fits on the remote
// host while keeping more than safetyMarginBytes free. A nil report means the
// capacity is unknown and the upload is refused.
func CanUpload(report *CapacityReport, pendingSizeBytes, safetyMarginBytes int64) bool {
	if report == nil {
		return false
	}

	return report.FreeBytes-pendingSizeBytes > safetyMarginBytes
}

// ParseCapacityReport scans df output for the row mounted on mountpoint and
// returns its available space in bytes. When several rows match, the last
// one wins.
func ParseCapacityReport(lines []string, mountpoint string) (*CapacityReport, error) {
	var report *CapacityReport

	for _, line := range lines {
		row := strings.Fields(line)
		if len(row) <= availableColumn || row[len(row)-1] != mountpoint {
			continue
		}

		blocks, err := strconv.ParseInt(row[availableColumn], 10, 64)
		if err != nil {
			return nil, &CapacityUnknownError{
				Mountpoint: mountpoint,
				Err:        errors.Wrapf(err, "unable to parse available space '%s'", row[availableColumn]),
			}
		}

		report = &CapacityReport{
			FreeBytes:  blocks * capacityBlockSize,
			Mountpoint: mountpoint,
		}
	}

	if report == nil {
		return nil, &CapacityUnknownError{Mountpoint: mountpoint}
	}

	return report, nil
}
