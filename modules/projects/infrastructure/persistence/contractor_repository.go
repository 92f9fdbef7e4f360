package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gerrors "github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/kwatuha/imes-sub010/modules/projects/domain/entities/contractor"
	"github.com/kwatuha/imes-sub010/pkg/composables"
)

const (
	contractorColumns = `contractor_id, company_name, email, COALESCE(phone, ''), COALESCE(contact_person, '')`

	contractorByKeySQL   = `SELECT ` + contractorColumns + ` FROM contractors WHERE company_key = $1 AND voided = FALSE ORDER BY contractor_id LIMIT 1`
	contractorByEmailSQL = `SELECT ` + contractorColumns + ` FROM contractors WHERE email = $1 AND voided = FALSE ORDER BY contractor_id LIMIT 1`

	// No conflict target: both the company key and the email index arbitrate.
	contractorInsertSQL = `
		INSERT INTO contractors (company_name, email, phone, contact_person, user_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT DO NOTHING
		RETURNING contractor_id`

	assignContractorSQL = `
		INSERT INTO project_contractor_assignments (project_id, contractor_id, assignment_date)
		VALUES ($1, $2, NOW())
		ON CONFLICT DO NOTHING`
	assignmentExistsSQL = `SELECT EXISTS (SELECT 1 FROM project_contractor_assignments WHERE project_id = $1 AND contractor_id = $2)`
)

type ContractorRepository struct{}

func NewContractorRepository() contractor.Repository {
	return &ContractorRepository{}
}

func (r *ContractorRepository) FindByCompanyKey(ctx context.Context, key string) (*contractor.Contractor, error) {
	return r.findOne(ctx, contractorByKeySQL, key)
}

func (r *ContractorRepository) FindByEmail(ctx context.Context, email string) (*contractor.Contractor, error) {
	return r.findOne(ctx, contractorByEmailSQL, strings.ToLower(strings.TrimSpace(email)))
}

func (r *ContractorRepository) findOne(ctx context.Context, sql, arg string) (*contractor.Contractor, error) {
	if arg == "" {
		return nil, contractor.ErrNotFound
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	c := &contractor.Contractor{}
	if err := tx.QueryRow(ctx, sql, arg).Scan(&c.ID, &c.CompanyName, &c.Email, &c.Phone, &c.ContactPerson); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, contractor.ErrNotFound
		}
		return nil, gerrors.Wrap(err, "find contractor")
	}
	return c, nil
}

func (r *ContractorRepository) Create(ctx context.Context, c *contractor.Contractor, actorID int64) (int64, bool, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, false, err
	}
	var id int64
	err = tx.QueryRow(ctx, contractorInsertSQL,
		c.CompanyName,
		strings.ToLower(c.Email),
		nullText(c.Phone),
		nullText(c.ContactPerson),
		actorID,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, gerrors.Wrap(err, "insert contractor")
	}
	c.ID = id
	return id, true, nil
}

func (r *ContractorRepository) Assign(ctx context.Context, projectID, contractorID int64) (bool, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return false, err
	}
	tag, err := tx.Exec(ctx, assignContractorSQL, projectID, contractorID)
	if err != nil {
		return false, gerrors.Wrap(err, "assign contractor")
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}
	var exists bool
	if err := tx.QueryRow(ctx, assignmentExistsSQL, projectID, contractorID).Scan(&exists); err != nil {
		return false, gerrors.Wrap(err, "check contractor assignment")
	}
	if !exists {
		return false, fmt.Errorf("contractor %d assignment to project %d was neither inserted nor found", contractorID, projectID)
	}
	return false, nil
}
