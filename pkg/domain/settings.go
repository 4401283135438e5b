package domain

import (
	"path/filepath"
	"strings"
	"time"
)

const (
	DefaultPort            = 22
	DefaultMountpoint      = "/"
	DefaultCapacityCommand = "df -Pk"
	DefaultConnectTimeout  = 30 * time.Second

	// One gibibyte, expressed in bytes like every other size handled by the capacity gate
	DefaultSafetyMargin int64 = 1 << 30
)

// Settings is the validated configuration of a backup run. It is loaded once
// at startup and never mutated afterwards.
type Settings struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	Username       string        `mapstructure:"username"`
	KeyPath        string        `mapstructure:"key_path"`
	KeyPassphrase  string        `mapstructure:"key_passphrase"`
	KnownHostsPath string        `mapstructure:"known_hosts"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`

	RemoteDirectory string `mapstructure:"remote_directory"`
	Mountpoint      string `mapstructure:"mountpoint"`
	CapacityCommand string `mapstructure:"capacity_command"`
	SafetyMargin    int64  `mapstructure:"safety_margin"`

	StagingDirectory  string   `mapstructure:"staging_directory"`
	SourceBase        string   `mapstructure:"source_base"`
	SourceDirectories []string `mapstructure:"source_directories"`

	RetentionDays   int    `mapstructure:"retention_days"`
	ArchiveTag      string `mapstructure:"archive_tag"`
	TimestampFormat string `mapstructure:"timestamp_format"`
}

// WithDefaults returns a copy of s with optional fields filled in. Zero values
// are treated as unset, so a configured zero safety margin must be restored by
// the caller.
func (s Settings) WithDefaults() Settings {
	if s.Port == 0 {
		s.Port = DefaultPort
	}
	if s.Mountpoint == "" {
		s.Mountpoint = DefaultMountpoint
	}
	if s.CapacityCommand == "" {
		s.CapacityCommand = DefaultCapacityCommand
	}
	if s.ConnectTimeout == 0 {
		s.ConnectTimeout = DefaultConnectTimeout
	}
	if s.SafetyMargin == 0 {
		s.SafetyMargin = DefaultSafetyMargin
	}
	return s
}

// Validate reports the first missing or invalid field as a ConfigurationError.
func (s Settings) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"host", s.Host},
		{"username", s.Username},
		{"key_path", s.KeyPath},
		{"remote_directory", s.RemoteDirectory},
		{"staging_directory", s.StagingDirectory},
		{"archive_tag", s.ArchiveTag},
		{"timestamp_format", s.TimestampFormat},
	}

	for _, r := range required {
		if r.value == "" {
			return &ConfigurationError{Field: r.field, Reason: "is required"}
		}
	}

	if s.Port < 1 || s.Port > 65535 {
		return &ConfigurationError{Field: "port", Reason: "must be between 1 and 65535"}
	}

	if s.RetentionDays < 0 {
		return &ConfigurationError{Field: "retention_days", Reason: "must not be negative"}
	}

	if s.SafetyMargin < 0 {
		return &ConfigurationError{Field: "safety_margin", Reason: "must not be negative"}
	}

	if len(s.SourceDirectories) == 0 {
		return &ConfigurationError{Field: "source_directories", Reason: "must not be empty"}
	}

	for _, dir := range s.SourceDirectories {
		if dir == "" {
			return &ConfigurationError{Field: "source_directories", Reason: "must not contain empty entries"}
		}
	}

	if _, err := FormatTimestamp(s.TimestampFormat, time.Unix(0, 0)); err != nil {
		return &ConfigurationError{Field: "timestamp_format", Reason: "is invalid", Err: err}
	}

	// Staging is emptied before archiving, so it must never hold a source.
	staging, err := filepath.Abs(s.StagingDirectory)
	if err != nil {
		return &ConfigurationError{Field: "staging_directory", Reason: "is invalid", Err: err}
	}

	for _, source := range s.SourcePaths() {
		source, err := filepath.Abs(source)
		if err != nil {
			return &ConfigurationError{Field: "source_directories", Reason: "is invalid", Err: err}
		}

		if containsPath(staging, source) {
			return &ConfigurationError{Field: "staging_directory", Reason: "must not equal or contain source " + source}
		}
	}

	return nil
}

// containsPath reports whether p is dir itself or lies below it.
func containsPath(dir, p string) bool {
	rel, err := filepath.Rel(dir, p)
	if err != nil {
		return false
	}

	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// SourcePaths resolves relative source directories against SourceBase.
func (s Settings) SourcePaths() []string {
	paths := make([]string, 0, len(s.SourceDirectories))

	for _, dir := range s.SourceDirectories {
		if s.SourceBase != "" && !filepath.IsAbs(dir) {
			dir = filepath.Join(s.SourceBase, dir)
		}
		paths = append(paths, filepath.Clean(dir))
	}

	return paths
}
