package domain

import "time"

// State is a step of the backup lifecycle. States are entered in declaration
// order; Uploaded and Skipped are mutually exclusive and Closed is always last.
type State int

const (
	StateIdle State = iota
	StateConnected
	StateStagingCleaned
	StateRemoteListed
	StatePruned
	StateArchived
	StateCapacityEvaluated
	StateUploaded
	StateSkipped
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnected:
		return "connected"
	case StateStagingCleaned:
		return "staging_cleaned"
	case StateRemoteListed:
		return "remote_listed"
	case StatePruned:
		return "pruned"
	case StateArchived:
		return "archived"
	case StateCapacityEvaluated:
		return "capacity_evaluated"
	case StateUploaded:
		return "uploaded"
	case StateSkipped:
		return "skipped"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Report describes what a single run did.
type Report struct {
	States []State

	Entries  []RemoteFileEntry
	Pruned   []RemoteFileEntry
	Archive  *ArchiveJob
	Capacity *CapacityReport
	Uploaded bool

	StartedAt  time.Time
	FinishedAt time.Time
}

func (r Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

func (r *Report) enter(state State) {
	r.States = append(r.States, state)
}

// LastState returns the last state reached before the session was closed.
func (r Report) LastState() State {
	for i := len(r.States) - 1; i >= 0; i-- {
		if r.States[i] != StateClosed {
			return r.States[i]
		}
	}
	return StateIdle
}
