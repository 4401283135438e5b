package storage

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/yurykabanov/sftp-backuper/pkg/domain"
)

const (
	runInsertQuery = `
		INSERT INTO runs (
			run_id, status, last_state,
			archive_name, archive_size, pruned_count, uploaded,
			error, started_at, finished_at
		)
		VALUES (
			:run_id, :status, :last_state,
			:archive_name, :archive_size, :pruned_count, :uploaded,
			:error, :started_at, :finished_at
		)
	`

	runUpdateQuery = `
		UPDATE runs SET
			run_id = :run_id, status = :status, last_state = :last_state,
			archive_name = :archive_name, archive_size = :archive_size,
			pruned_count = :pruned_count, uploaded = :uploaded,
			error = :error, started_at = :started_at, finished_at = :finished_at
		WHERE id = :id
	`

	runSelectLatest = `
		SELECT
			id, run_id, status, last_state,
			archive_name, archive_size, pruned_count, uploaded,
			error, started_at, finished_at
		FROM runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`
)

type RunRepository struct {
	db *sqlx.DB
}

func NewRunRepository(db *sqlx.DB) *RunRepository {
	return &RunRepository{
		db: db,
	}
}

func (r *RunRepository) Create(ctx context.Context, run domain.Run) (domain.Run, error) {
	res, err := r.db.NamedExecContext(ctx, runInsertQuery, run)
	if err != nil {
		return run, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return run, err
	}

	run.Id = id

	return run, nil
}

func (r *RunRepository) Update(ctx context.Context, run domain.Run) error {
	_, err := r.db.NamedExecContext(ctx, runUpdateQuery, run)
	return err
}

// FindLatest returns up to limit runs, newest first.
func (r *RunRepository) FindLatest(ctx context.Context, limit int) ([]domain.Run, error) {
	runs := []domain.Run{}

	err := r.db.SelectContext(ctx, &runs, runSelectLatest, limit)
	if err != nil {
		return nil, err
	}

	return runs, nil
}

// NopRunRepository is used when the journal is disabled.
type NopRunRepository struct{}

func (NopRunRepository) Create(_ context.Context, run domain.Run) (domain.Run, error) {
	return run, nil
}

func (NopRunRepository) Update(context.Context, domain.Run) error {
	return nil
}

func (NopRunRepository) FindLatest(context.Context, int) ([]domain.Run, error) {
	return []domain.Run{}, nil
}
