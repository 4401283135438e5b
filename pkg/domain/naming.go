package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/strftime"
)

const ArchiveExtension = ".tar.gz"

// FormatTimestamp formats t with a strftime pattern when format contains '%',
// and with a Go reference layout otherwise.
func FormatTimestamp(format string, t time.Time) (string, error) {
	if strings.Contains(format, "%") {
		return strftime.Format(format, t)
	}

	return t.Format(format), nil
}

// ArchiveName builds `<tag>_<timestamp>.tar.gz`. Companion tooling relies on
// this exact shape.
func ArchiveName(tag, format string, t time.Time) (string, error) {
	ts, err := FormatTimestamp(format, t)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s_%s%s", tag, ts, ArchiveExtension), nil
}
