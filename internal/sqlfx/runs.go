package sqlfx

import (
	"github.com/jmoiron/sqlx"

	"github.com/yurykabanov/sftp-backuper/pkg/domain"
	"github.com/yurykabanov/sftp-backuper/pkg/http/handler"
	"github.com/yurykabanov/sftp-backuper/pkg/storage"
)

func RunsRepository(db *sqlx.DB) (
	domain.RunRepository,
	handler.RunRepository,
) {
	if db == nil {
		return storage.NopRunRepository{}, storage.NopRunRepository{}
	}

	repo := storage.NewRunRepository(db)

	return repo, repo
}
