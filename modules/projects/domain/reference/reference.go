// Package reference holds the canonical metadata an import resolves free
// text against. Import code only reads these entities; nothing here creates
// them.
package reference

import "context"

// Class names a kind of reference entity.
type Class string

const (
	ClassDepartment    Class = "department"
	ClassDirectorate   Class = "directorate"
	ClassWard          Class = "ward"
	ClassSubcounty     Class = "subcounty"
	ClassFinancialYear Class = "financialYear"
)

type Department struct {
	ID    int64
	Name  string
	Alias string
}

// Section is a directorate within a department.
type Section struct {
	ID           int64
	DepartmentID int64
	Name         string
	Alias        string
}

// Area is a ward or a subcounty.
type Area struct {
	ID   int64
	Name string
}

type FinancialYear struct {
	ID   int64
	Name string
}

// Snapshot is the set of non-voided reference entities read once at the
// start of an import. It is not refreshed while the import runs.
type Snapshot struct {
	Departments    []Department
	Sections       []Section
	Wards          []Area
	Subcounties    []Area
	FinancialYears []FinancialYear
}

type Repository interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
}
