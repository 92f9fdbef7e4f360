package persistence

import (
	"context"
	"errors"

	gerrors "github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/kwatuha/imes-sub010/modules/projects/domain/entities/project"
	"github.com/kwatuha/imes-sub010/pkg/composables"
)

const (
	projectIDByRefSQL  = `SELECT id FROM projects WHERE project_ref_num = $1 AND voided = FALSE ORDER BY id LIMIT 1`
	projectIDByNameSQL = `SELECT id FROM projects WHERE project_name = $1 AND voided = FALSE ORDER BY id LIMIT 1`

	projectInsertSQL = `
		INSERT INTO projects (
			project_name, project_ref_num, project_description, status,
			cost_of_project, paid_out, contracted, start_date, end_date,
			directorate, section_id, department_id, fin_year_id,
			created_by, updated_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
		RETURNING id`

	projectUpdateSQL = `
		UPDATE projects SET
			project_name = $1, project_ref_num = $2, project_description = $3, status = $4,
			cost_of_project = $5, paid_out = $6, contracted = $7, start_date = $8, end_date = $9,
			directorate = $10, section_id = $11, department_id = $12, fin_year_id = $13,
			updated_by = $14, updated_at = NOW()
		WHERE id = $15`

	linkWardSQL      = `INSERT INTO project_wards (project_id, ward_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	linkSubcountySQL = `INSERT INTO project_subcounties (project_id, subcounty_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
)

type ProjectRepository struct{}

func NewProjectRepository() project.Repository {
	return &ProjectRepository{}
}

func (r *ProjectRepository) FindIDByRefNum(ctx context.Context, refNum string) (int64, error) {
	return r.findID(ctx, projectIDByRefSQL, refNum)
}

func (r *ProjectRepository) FindIDByName(ctx context.Context, name string) (int64, error) {
	return r.findID(ctx, projectIDByNameSQL, name)
}

func (r *ProjectRepository) findID(ctx context.Context, sql, arg string) (int64, error) {
	if arg == "" {
		return 0, nil
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	var id int64
	if err := tx.QueryRow(ctx, sql, arg).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, gerrors.Wrap(err, "find project")
	}
	return id, nil
}

func (r *ProjectRepository) Create(ctx context.Context, p *project.Project, actorID int64) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}
	args := append(projectArgs(p), actorID)
	var id int64
	if err := tx.QueryRow(ctx, projectInsertSQL, args...).Scan(&id); err != nil {
		return 0, mapWriteError(err, p.RefNum)
	}
	return id, nil
}

func (r *ProjectRepository) Update(ctx context.Context, id int64, p *project.Project, actorID int64) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	args := append(projectArgs(p), actorID, id)
	if _, err := tx.Exec(ctx, projectUpdateSQL, args...); err != nil {
		return mapWriteError(err, p.RefNum)
	}
	return nil
}

func (r *ProjectRepository) LinkWard(ctx context.Context, projectID, wardID int64) (bool, error) {
	return r.link(ctx, linkWardSQL, projectID, wardID)
}

func (r *ProjectRepository) LinkSubcounty(ctx context.Context, projectID, subcountyID int64) (bool, error) {
	return r.link(ctx, linkSubcountySQL, projectID, subcountyID)
}

func (r *ProjectRepository) link(ctx context.Context, sql string, projectID, otherID int64) (bool, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return false, err
	}
	tag, err := tx.Exec(ctx, sql, projectID, otherID)
	if err != nil {
		return false, mapWriteError(err, "")
	}
	return tag.RowsAffected() == 1, nil
}
