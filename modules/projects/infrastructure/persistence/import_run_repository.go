package persistence

import (
	"context"

	gerrors "github.com/go-faster/errors"

	"github.com/kwatuha/imes-sub010/modules/projects/domain/entities/importrun"
	"github.com/kwatuha/imes-sub010/pkg/composables"
)

const importRunInsertSQL = `
	INSERT INTO project_import_runs (
		run_id, actor_id, started_at, finished_at, rows_total, rows_skipped,
		projects_created, projects_updated, links_created, corrections, skipped_metadata
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

type ImportRunRepository struct{}

func NewImportRunRepository() importrun.Repository {
	return &ImportRunRepository{}
}

func (r *ImportRunRepository) Record(ctx context.Context, run *importrun.Run) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	corrections := run.Corrections
	if len(corrections) == 0 {
		corrections = []byte("[]")
	}
	skipped := run.SkippedMetadata
	if len(skipped) == 0 {
		skipped = []byte("{}")
	}
	if _, err := tx.Exec(ctx, importRunInsertSQL,
		run.ID, run.ActorID, run.StartedAt, run.FinishedAt,
		run.RowsTotal, run.RowsSkipped,
		run.ProjectsCreated, run.ProjectsUpdated, run.LinksCreated,
		string(corrections), string(skipped),
	); err != nil {
		return gerrors.Wrap(err, "record import run")
	}
	return nil
}
