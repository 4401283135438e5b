package domain

import "time"

// RemoteFileEntry is one object found in the remote backup directory.
type RemoteFileEntry struct {
	Path       string
	ModifiedAt time.Time
}

// ArchiveJob is the archive built during a run.
type ArchiveJob struct {
	Filename  string
	LocalPath string
	SizeBytes int64
}

// CapacityReport is the free space reported by the remote host for a mountpoint.
type CapacityReport struct {
	FreeBytes  int64
	Mountpoint string
}

type runStatus int

const (
	// Run is recorded but not finished yet
	RunStatusStarted runStatus = iota

	// Run finished without fatal errors (upload may have been skipped)
	RunStatusSucceeded

	// Run aborted with a fatal error
	RunStatusFailed
)

func (s runStatus) String() string {
	switch s {
	case RunStatusStarted:
		return "started"
	case RunStatusSucceeded:
		return "succeeded"
	case RunStatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Run is the journal record of a single orchestration pass.
type Run struct {
	Id int64 `db:"id" json:"id"` // identifier for DB

	RunId string `db:"run_id" json:"run_id"`

	Status    runStatus `db:"status" json:"-"`
	LastState string    `db:"last_state" json:"last_state"`

	ArchiveName string `db:"archive_name" json:"archive_name"`
	ArchiveSize int64  `db:"archive_size" json:"archive_size"`
	PrunedCount int    `db:"pruned_count" json:"pruned_count"`
	Uploaded    bool   `db:"uploaded" json:"uploaded"`

	Error string `db:"error" json:"error,omitempty"`

	StartedAt  time.Time  `db:"started_at" json:"started_at"`
	FinishedAt *time.Time `db:"finished_at" json:"finished_at,omitempty"`
}
