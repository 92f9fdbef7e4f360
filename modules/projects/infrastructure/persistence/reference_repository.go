package persistence

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/kwatuha/imes-sub010/modules/projects/domain/reference"
	"github.com/kwatuha/imes-sub010/pkg/composables"
	"github.com/kwatuha/imes-sub010/pkg/repo"
)

const (
	selectDepartmentsSQL = `SELECT department_id, name, COALESCE(alias, '') FROM departments WHERE voided = FALSE ORDER BY department_id`
	selectSectionsSQL    = `SELECT section_id, COALESCE(department_id, 0), name, COALESCE(alias, '') FROM sections WHERE voided = FALSE ORDER BY section_id`
	selectWardsSQL       = `SELECT ward_id, name FROM wards WHERE voided = FALSE ORDER BY ward_id`
	selectSubcountiesSQL = `SELECT subcounty_id, name FROM subcounties WHERE voided = FALSE ORDER BY subcounty_id`
	selectFinYearsSQL    = `SELECT fin_year_id, fin_year_name FROM financial_years WHERE voided = FALSE ORDER BY fin_year_id`
)

type ReferenceRepository struct{}

func NewReferenceRepository() reference.Repository {
	return &ReferenceRepository{}
}

// Snapshot reads every non-voided reference entity in id order.
func (r *ReferenceRepository) Snapshot(ctx context.Context) (*reference.Snapshot, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	snap := &reference.Snapshot{}

	snap.Departments, err = queryAll(ctx, tx, selectDepartmentsSQL, func(rows pgx.Rows) (reference.Department, error) {
		var d reference.Department
		err := rows.Scan(&d.ID, &d.Name, &d.Alias)
		return d, err
	})
	if err != nil {
		return nil, errors.Wrap(err, "load departments")
	}

	snap.Sections, err = queryAll(ctx, tx, selectSectionsSQL, func(rows pgx.Rows) (reference.Section, error) {
		var s reference.Section
		err := rows.Scan(&s.ID, &s.DepartmentID, &s.Name, &s.Alias)
		return s, err
	})
	if err != nil {
		return nil, errors.Wrap(err, "load sections")
	}

	scanArea := func(rows pgx.Rows) (reference.Area, error) {
		var a reference.Area
		err := rows.Scan(&a.ID, &a.Name)
		return a, err
	}
	if snap.Wards, err = queryAll(ctx, tx, selectWardsSQL, scanArea); err != nil {
		return nil, errors.Wrap(err, "load wards")
	}
	if snap.Subcounties, err = queryAll(ctx, tx, selectSubcountiesSQL, scanArea); err != nil {
		return nil, errors.Wrap(err, "load subcounties")
	}

	snap.FinancialYears, err = queryAll(ctx, tx, selectFinYearsSQL, func(rows pgx.Rows) (reference.FinancialYear, error) {
		var fy reference.FinancialYear
		err := rows.Scan(&fy.ID, &fy.Name)
		return fy, err
	})
	if err != nil {
		return nil, errors.Wrap(err, "load financial years")
	}
	return snap, nil
}

func queryAll[T any](ctx context.Context, tx repo.Tx, sql string, scan func(pgx.Rows) (T, error)) ([]T, error) {
	rows, err := tx.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
