package domainfx

import (
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/yurykabanov/sftp-backuper/pkg/domain"
)

const (
	ConfigBackup              = "backup"
	ConfigBackupRetentionDays = "backup.retention_days"
	ConfigBackupSafetyMargin  = "backup.safety_margin"
)

// LoadSettings decodes the "backup" section. Unknown keys are rejected and
// every key can be overridden from the environment, e.g.
// SFTP_BACKUPER_BACKUP_HOST.
func LoadSettings(v *viper.Viper) (domain.Settings, error) {
	for _, key := range settingsKeys() {
		if err := v.BindEnv(ConfigBackup + "." + key); err != nil {
			return domain.Settings{}, err
		}
	}

	var settings domain.Settings

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &settings,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return domain.Settings{}, err
	}

	if err := decoder.Decode(v.AllSettings()[ConfigBackup]); err != nil {
		return domain.Settings{}, &domain.ConfigurationError{Field: ConfigBackup, Reason: "is malformed", Err: err}
	}

	margin := settings.SafetyMargin
	settings = settings.WithDefaults()

	// An explicit zero turns the margin off instead of selecting the default
	if v.IsSet(ConfigBackupSafetyMargin) {
		settings.SafetyMargin = margin
	}

	if err := settings.Validate(); err != nil {
		return domain.Settings{}, err
	}

	// zero is a valid retention, so presence is checked explicitly
	if !v.IsSet(ConfigBackupRetentionDays) {
		return domain.Settings{}, &domain.ConfigurationError{Field: "retention_days", Reason: "is required"}
	}

	return settings, nil
}

func settingsKeys() []string {
	t := reflect.TypeOf(domain.Settings{})

	keys := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		tag := strings.Split(t.Field(i).Tag.Get("mapstructure"), ",")[0]
		if tag != "" {
			keys = append(keys, tag)
		}
	}

	return keys
}
