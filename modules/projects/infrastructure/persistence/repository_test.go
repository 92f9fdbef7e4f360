package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/kwatuha/imes-sub010/modules/projects/domain/entities/contractor"
	"github.com/kwatuha/imes-sub010/modules/projects/domain/entities/importrun"
	"github.com/kwatuha/imes-sub010/modules/projects/domain/entities/project"
	"github.com/kwatuha/imes-sub010/pkg/constants"
)

func withTx(tx *stubTx) context.Context {
	return context.WithValue(context.Background(), constants.TxKey, tx)
}

func TestReferenceRepository_Snapshot_LoadsEveryClass(t *testing.T) {
	var queries []string
	tx := &stubTx{
		queryFunc: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			queries = append(queries, sql)
			switch sql {
			case selectDepartmentsSQL:
				return &stubRows{data: [][]any{{int64(5), "Water", "WECV&NR"}}}, nil
			case selectSectionsSQL:
				return &stubRows{data: [][]any{{int64(9), int64(5), "Water Services", ""}}}, nil
			case selectWardsSQL:
				return &stubRows{data: [][]any{{int64(12), "Masogo/Nyangoma"}, {int64(13), "Kolwa East"}}}, nil
			case selectSubcountiesSQL:
				return &stubRows{data: [][]any{{int64(3), "Nyando"}}}, nil
			case selectFinYearsSQL:
				return &stubRows{data: [][]any{{int64(21), "FY2023/2024"}}}, nil
			}
			return nil, errors.New("unexpected query")
		},
	}

	snap, err := NewReferenceRepository().Snapshot(withTx(tx))
	require.NoError(t, err)
	require.Len(t, queries, 5)
	for _, q := range queries {
		require.Contains(t, q, "voided = FALSE")
	}
	require.Equal(t, "WECV&NR", snap.Departments[0].Alias)
	require.Equal(t, int64(5), snap.Sections[0].DepartmentID)
	require.Len(t, snap.Wards, 2)
	require.Equal(t, "Nyando", snap.Subcounties[0].Name)
	require.Equal(t, int64(21), snap.FinancialYears[0].ID)
}

func TestReferenceRepository_Snapshot_WrapsErrors(t *testing.T) {
	tx := &stubTx{
		queryFunc: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			if sql == selectWardsSQL {
				return nil, errors.New("relation does not exist")
			}
			return &stubRows{}, nil
		},
	}
	_, err := NewReferenceRepository().Snapshot(withTx(tx))
	require.Error(t, err)
	require.Contains(t, err.Error(), "load wards")
}

func TestProjectRepository_FindIDByRefNum(t *testing.T) {
	tx := &stubTx{
		queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			require.Equal(t, projectIDByRefSQL, sql)
			if args[0] == "PRJ-001" {
				return valueRow(int64(42))
			}
			return errRow(pgx.ErrNoRows)
		},
	}
	repo := NewProjectRepository()
	ctx := withTx(tx)

	id, err := repo.FindIDByRefNum(ctx, "PRJ-001")
	require.NoError(t, err)
	require.Equal(t, int64(42), id)

	id, err = repo.FindIDByRefNum(ctx, "PRJ-404")
	require.NoError(t, err)
	require.Zero(t, id)

	// Blank lookups never hit the database.
	id, err = repo.FindIDByName(ctx, "")
	require.NoError(t, err)
	require.Zero(t, id)
}

func TestProjectRepository_Create_SendsPayload(t *testing.T) {
	start := time.Date(2023, 6, 30, 0, 0, 0, 0, time.UTC)
	dept := int64(5)
	p := &project.Project{
		Name:          "Estate Road A",
		RefNum:        "PRJ-001",
		CostOfProject: decimal.NewNullDecimal(decimal.RequireFromString("1200000")),
		StartDate:     &start,
		DepartmentID:  &dept,
	}

	tx := &stubTx{
		queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			require.Contains(t, sql, "INSERT INTO projects")
			require.Len(t, args, 14)
			require.Equal(t, "Estate Road A", args[0])
			require.Equal(t, "PRJ-001", *args[1].(*string))
			require.Nil(t, args[2].(*string))
			require.Equal(t, p.CostOfProject, args[4])
			require.Equal(t, &start, args[7])
			require.Equal(t, &dept, args[11])
			require.Equal(t, int64(7), args[13])
			return valueRow(int64(100))
		},
	}
	id, err := NewProjectRepository().Create(withTx(tx), p, 7)
	require.NoError(t, err)
	require.Equal(t, int64(100), id)
}

func TestProjectRepository_Create_MapsDuplicateRef(t *testing.T) {
	tx := &stubTx{
		queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return errRow(&pgconn.PgError{Code: "23505", ConstraintName: constraintProjectRefNum})
		},
	}
	_, err := NewProjectRepository().Create(withTx(tx), &project.Project{Name: "Dup", RefNum: "PRJ-9"}, 1)
	require.ErrorIs(t, err, ErrDuplicateRefNum)
	require.Contains(t, err.Error(), "PRJ-9")
}

func TestProjectRepository_Update(t *testing.T) {
	tx := &stubTx{
		execFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			require.Contains(t, sql, "UPDATE projects SET")
			require.Len(t, args, 15)
			require.Equal(t, int64(3), args[13])
			require.Equal(t, int64(42), args[14])
			return pgconn.NewCommandTag("UPDATE 1"), nil
		},
	}
	require.NoError(t, NewProjectRepository().Update(withTx(tx), 42, &project.Project{Name: "X"}, 3))
}

func TestProjectRepository_LinkWard_IsIdempotent(t *testing.T) {
	inserted := map[[2]int64]bool{}
	tx := &stubTx{
		execFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			require.Contains(t, sql, "ON CONFLICT DO NOTHING")
			key := [2]int64{args[0].(int64), args[1].(int64)}
			if inserted[key] {
				return pgconn.NewCommandTag("INSERT 0 0"), nil
			}
			inserted[key] = true
			return pgconn.NewCommandTag("INSERT 0 1"), nil
		},
	}
	repo := NewProjectRepository()
	ctx := withTx(tx)

	created, err := repo.LinkWard(ctx, 1, 12)
	require.NoError(t, err)
	require.True(t, created)

	created, err = repo.LinkWard(ctx, 1, 12)
	require.NoError(t, err)
	require.False(t, created)

	created, err = repo.LinkSubcounty(ctx, 1, 3)
	require.NoError(t, err)
	require.True(t, created)
}

func TestContractorRepository_FindByCompanyKey(t *testing.T) {
	tx := &stubTx{
		queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			require.Equal(t, contractorByKeySQL, sql)
			if args[0] == "acmeltd" {
				return valueRow(int64(4), "Acme Ltd", "info@acme.co.ke", "0700", "Jane")
			}
			return errRow(pgx.ErrNoRows)
		},
	}
	repo := NewContractorRepository()

	c, err := repo.FindByCompanyKey(withTx(tx), "acmeltd")
	require.NoError(t, err)
	require.Equal(t, int64(4), c.ID)
	require.Equal(t, "Jane", c.ContactPerson)

	_, err = repo.FindByCompanyKey(withTx(tx), "other")
	require.ErrorIs(t, err, contractor.ErrNotFound)
}

func TestContractorRepository_FindByEmail_Lowercases(t *testing.T) {
	tx := &stubTx{
		queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			require.Equal(t, "info@acme.co.ke", args[0])
			return valueRow(int64(4), "Acme Ltd", "info@acme.co.ke", "", "")
		},
	}
	c, err := NewContractorRepository().FindByEmail(withTx(tx), " Info@Acme.co.ke ")
	require.NoError(t, err)
	require.Equal(t, int64(4), c.ID)
}

func TestContractorRepository_Create_ConflictReturnsNotCreated(t *testing.T) {
	tx := &stubTx{
		queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			require.Contains(t, sql, "ON CONFLICT DO NOTHING")
			return errRow(pgx.ErrNoRows)
		},
	}
	id, created, err := NewContractorRepository().Create(withTx(tx), &contractor.Contractor{CompanyName: "Acme", Email: "a@b.c"}, 1)
	require.NoError(t, err)
	require.False(t, created)
	require.Zero(t, id)
}

func TestContractorRepository_Create_Inserts(t *testing.T) {
	tx := &stubTx{
		queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			require.Equal(t, "acme@contractor.local", args[1])
			require.Nil(t, args[2].(*string))
			require.Equal(t, int64(9), args[4])
			return valueRow(int64(77))
		},
	}
	c := &contractor.Contractor{CompanyName: "Acme", Email: "ACME@contractor.local"}
	id, created, err := NewContractorRepository().Create(withTx(tx), c, 9)
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, int64(77), id)
	require.Equal(t, int64(77), c.ID)
}

func TestContractorRepository_Assign_RequeriesOnConflict(t *testing.T) {
	existsChecked := false
	tx := &stubTx{
		execFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			return pgconn.NewCommandTag("INSERT 0 0"), nil
		},
		queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			require.Equal(t, assignmentExistsSQL, sql)
			existsChecked = true
			return valueRow(true)
		},
	}
	created, err := NewContractorRepository().Assign(withTx(tx), 1, 2)
	require.NoError(t, err)
	require.False(t, created)
	require.True(t, existsChecked)
}

func TestContractorRepository_Assign_MissingAfterConflictFails(t *testing.T) {
	tx := &stubTx{
		execFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			return pgconn.NewCommandTag("INSERT 0 0"), nil
		},
		queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return valueRow(false)
		},
	}
	_, err := NewContractorRepository().Assign(withTx(tx), 1, 2)
	require.Error(t, err)
}

func TestImportRunRepository_Record_DefaultsJSON(t *testing.T) {
	runID := uuid.New()
	tx := &stubTx{
		execFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			require.Contains(t, sql, "INSERT INTO project_import_runs")
			require.Equal(t, runID, args[0])
			require.Equal(t, "[]", args[9])
			require.Equal(t, "{}", args[10])
			return pgconn.NewCommandTag("INSERT 0 1"), nil
		},
	}
	err := NewImportRunRepository().Record(withTx(tx), &importrun.Run{ID: runID, ActorID: 1})
	require.NoError(t, err)
}

func TestIsUniqueViolation(t *testing.T) {
	err := &pgconn.PgError{Code: "23505", ConstraintName: "contractors_email_key"}
	require.True(t, IsUniqueViolation(err, ""))
	require.True(t, IsUniqueViolation(err, "contractors_email_key"))
	require.False(t, IsUniqueViolation(err, constraintProjectRefNum))
	require.False(t, IsUniqueViolation(errors.New("x"), ""))
}

func TestMapWriteError_ForeignKey(t *testing.T) {
	err := mapWriteError(&pgconn.PgError{Code: "23503", ConstraintName: "projects_department_id_fkey"}, "")
	require.ErrorIs(t, err, ErrMissingReference)
}
