package domain

import (
	"sort"
	"time"
)

// RetentionCutoff returns the instant before which backups are expired.
// Days are subtracted on the calendar, so DST shifts do not move the cutoff.
func RetentionCutoff(now time.Time, retentionDays int) time.Time {
	return now.AddDate(0, 0, -retentionDays)
}

// SelectExpired returns the entries modified strictly before the retention
// cutoff, oldest first. An entry exactly at the cutoff is kept.
func SelectExpired(entries []RemoteFileEntry, now time.Time, retentionDays int) []RemoteFileEntry {
	cutoff := RetentionCutoff(now, retentionDays)

	expired := make([]RemoteFileEntry, 0)
	for _, entry := range entries {
		if entry.ModifiedAt.Before(cutoff) {
			expired = append(expired, entry)
		}
	}

	sort.SliceStable(expired, func(i, j int) bool {
		if expired[i].ModifiedAt.Equal(expired[j].ModifiedAt) {
			return expired[i].Path < expired[j].Path
		}
		return expired[i].ModifiedAt.Before(expired[j].ModifiedAt)
	})

	return expired
}
