package domain

import (
	"github.com/pkg/errors"
)

// ExitCode is the process status reported after a run.
type ExitCode int

const (
	// Run completed, whether or not the archive was uploaded
	ExitSuccess ExitCode = 0

	// Unclassified failure
	ExitGenericError ExitCode = 1

	// Settings missing or invalid
	ExitConfigError ExitCode = 2

	// Connection, listing, pruning or upload failed
	ExitTransportError ExitCode = 6

	// Staging or archive build failed
	ExitArchiveError ExitCode = 10
)

func (e ExitCode) String() string {
	switch e {
	case ExitSuccess:
		return "success"
	case ExitGenericError:
		return "generic error"
	case ExitConfigError:
		return "configuration error"
	case ExitTransportError:
		return "transport error"
	case ExitArchiveError:
		return "archive error"
	default:
		return "unknown error"
	}
}

func (e ExitCode) Int() int {
	return int(e)
}

// ExitCodeFor classifies err into a process exit code.
func ExitCodeFor(err error) ExitCode {
	if err == nil {
		return ExitSuccess
	}

	var configErr *ConfigurationError
	if errors.As(err, &configErr) {
		return ExitConfigError
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return ExitTransportError
	}

	var archiveErr *ArchiveError
	if errors.As(err, &archiveErr) {
		return ExitArchiveError
	}

	return ExitGenericError
}
