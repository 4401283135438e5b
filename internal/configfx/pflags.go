package configfx

import (
	"os"

	"github.com/spf13/pflag"
)

const (
	FlagConfig   = "config"
	FlagSchedule = "schedule"
)

func PFlags() (*pflag.FlagSet, error) {
	fs := NewFlagSet(os.Args[0])

	if err := fs.Parse(os.Args[1:]); err != nil {
		return nil, err
	}

	return fs, nil
}

func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ExitOnError)

	// Config file flag
	fs.StringP(FlagConfig, "c", "", "Config file")

	// Without a schedule the backup runs once and the process exits
	fs.String(FlagSchedule, "", "Cron spec for scheduled backups, e.g. '0 3 * * *' or '@daily'")

	return fs
}
