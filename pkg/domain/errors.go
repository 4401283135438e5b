package domain

import (
	"fmt"
)

// ConfigurationError is returned when settings are missing or invalid.
// It is always raised before any connection attempt.
type ConfigurationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("configuration error: %s %s", e.Field, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error { return e.Err }
func (e *ConfigurationError) Cause() error  { return e.Err }

// TransportError wraps a failure of the remote session: connect, list, stat,
// remove, run command or upload.
type TransportError struct {
	Op  string
	Err error
}

func NewTransportError(op string, err error) *TransportError {
	return &TransportError{Op: op, Err: err}
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
func (e *TransportError) Cause() error  { return e.Err }

// ArchiveError wraps a failure while preparing staging or building the archive.
type ArchiveError struct {
	Path string
	Err  error
}

func NewArchiveError(path string, err error) *ArchiveError {
	return &ArchiveError{Path: path, Err: err}
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("archive error: %s: %v", e.Path, e.Err)
}

func (e *ArchiveError) Unwrap() error { return e.Err }
func (e *ArchiveError) Cause() error  { return e.Err }

// CapacityUnknownError means free space on the remote host could not be
// determined. It is never fatal: the upload is skipped.
type CapacityUnknownError struct {
	Mountpoint string
	Err        error
}

func (e *CapacityUnknownError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("capacity unknown for mountpoint '%s'", e.Mountpoint)
	}
	return fmt.Sprintf("capacity unknown for mountpoint '%s': %v", e.Mountpoint, e.Err)
}

func (e *CapacityUnknownError) Unwrap() error { return e.Err }
func (e *CapacityUnknownError) Cause() error  { return e.Err }
