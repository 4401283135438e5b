package configfx

import (
	"path"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix  = "sftp_backuper"
	ConfigName = "sftp-backuper"
)

var searchPaths = []string{
	".",
	"./config",
	path.Join("/etc", ConfigName),
}

// ViperProvider builds the process configuration from flags, SFTP_BACKUPER_*
// environment variables and a config file. A file given with --config is
// mandatory; otherwise the search paths are tried and a miss only warns.
func ViperProvider(logger *logrus.Logger, flagSet *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()

	if err := v.BindPFlags(flagSet); err != nil {
		return nil, errors.Wrap(err, "Unable to bind flags")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := v.GetString(FlagConfig)

	if explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		v.SetConfigName(ConfigName)
		for _, dir := range searchPaths {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if explicit != "" {
			return nil, errors.Wrapf(err, "Unable to read config file %s", explicit)
		}
		logger.WithError(err).Warn("No config file found, using flags and environment only")
	}

	logger.WithField("file", v.ConfigFileUsed()).Debug("Configuration loaded")

	return v, nil
}
