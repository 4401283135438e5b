package domainfx

import (
	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(LoadSettings),
	fx.Provide(NewCron),
	fx.Provide(Dialer),
	fx.Provide(Archiver),
	fx.Provide(StagingArea),
	fx.Provide(BackupOrchestrator),
	fx.Provide(BackupManager),
	fx.Invoke(RunBackups),
)
