package project

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Project is the payload written for one imported row. Inserts and updates
// use the same shape, so an update overwrites every column with the row's
// values, blanks included.
type Project struct {
	Name          string
	RefNum        string
	Description   string
	Status        string
	CostOfProject decimal.NullDecimal
	PaidOut       decimal.NullDecimal
	Contracted    decimal.NullDecimal
	StartDate     *time.Time
	EndDate       *time.Time
	// Directorate keeps the directorate text as entered.
	Directorate  string
	SectionID    *int64
	DepartmentID *int64
	FinYearID    *int64
}

type Repository interface {
	// FindIDByRefNum and FindIDByName return 0 when no live project matches.
	FindIDByRefNum(ctx context.Context, refNum string) (int64, error)
	FindIDByName(ctx context.Context, name string) (int64, error)
	Create(ctx context.Context, p *Project, actorID int64) (int64, error)
	Update(ctx context.Context, id int64, p *Project, actorID int64) error
	// LinkWard and LinkSubcounty are idempotent and report whether a new
	// link row was written.
	LinkWard(ctx context.Context, projectID, wardID int64) (bool, error)
	LinkSubcounty(ctx context.Context, projectID, subcountyID int64) (bool, error)
}
