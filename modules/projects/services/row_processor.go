package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/kwatuha/imes-sub010/modules/projects/domain/entities/contractor"
	"github.com/kwatuha/imes-sub010/modules/projects/domain/entities/project"
	"github.com/kwatuha/imes-sub010/modules/projects/domain/reference"
	"github.com/kwatuha/imes-sub010/modules/projects/domain/sheet"
	"github.com/kwatuha/imes-sub010/pkg/textnorm"
)

const (
	minProjectNameLen    = 3
	minContractorNameLen = 2
)

// unmatched is a metadata value that resolved to no reference entity.
type unmatched struct {
	class reference.Class
	value string
}

// rowResult is what processing one row changed.
type rowResult struct {
	skipped            bool
	projectID          int64
	created            bool
	linksCreated       int
	linksExisting      int
	contractorsCreated int
	corrections        []sheet.Correction
	ambiguous          []sheet.Correction
	unmatched          []unmatched
}

// RowProcessor applies one canonical row: it resolves references against the
// snapshot, upserts the project and writes its links. It never creates
// reference entities; contractors are the only rows it may insert besides
// projects and links.
type RowProcessor struct {
	mapper      *sheet.HeaderMapper
	resolver    *reference.Resolver
	projects    project.Repository
	contractors contractor.Repository
	validate    *validator.Validate
	actorID     int64
}

func NewRowProcessor(
	mapper *sheet.HeaderMapper,
	resolver *reference.Resolver,
	projects project.Repository,
	contractors contractor.Repository,
	actorID int64,
) *RowProcessor {
	return &RowProcessor{
		mapper:      mapper,
		resolver:    resolver,
		projects:    projects,
		contractors: contractors,
		validate:    validator.New(),
		actorID:     actorID,
	}
}

func (p *RowProcessor) text(row sheet.CanonicalRow, field string) string {
	return textnorm.String(p.mapper.Text(row, field))
}

// Process handles the row at rowNumber. A returned error means the row must
// not be committed.
func (p *RowProcessor) Process(ctx context.Context, rowNumber int, row sheet.CanonicalRow) (*rowResult, error) {
	res := &rowResult{}
	name := p.text(row, sheet.FieldProjectName)
	if textnorm.RuneLen(name) < minProjectNameLen {
		res.skipped = true
		return res, nil
	}

	payload, err := p.buildPayload(rowNumber, row, res)
	if err != nil {
		return nil, err
	}

	id, created, err := p.upsert(ctx, payload)
	if err != nil {
		return nil, err
	}
	res.projectID, res.created = id, created

	if err := p.linkAreas(ctx, id, row, res); err != nil {
		return nil, err
	}
	if err := p.linkContractor(ctx, id, row, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (p *RowProcessor) buildPayload(rowNumber int, row sheet.CanonicalRow, res *rowResult) (*project.Project, error) {
	payload := &project.Project{
		Name:        p.text(row, sheet.FieldProjectName),
		RefNum:      p.text(row, sheet.FieldRefNum),
		Description: p.text(row, sheet.FieldDescription),
		Status:      p.text(row, sheet.FieldStatus),
		Directorate: p.text(row, sheet.FieldDirectorate),
	}

	var departmentID int64
	if raw := p.text(row, sheet.FieldDepartment); raw != "" {
		m := p.resolver.Department(raw)
		if m.Found() {
			departmentID = m.ID
			payload.DepartmentID = &departmentID
		} else {
			res.unmatched = append(res.unmatched, unmatched{reference.ClassDepartment, raw})
		}
	}

	if payload.Directorate != "" {
		m := p.resolver.Section(payload.Directorate, departmentID)
		if m.Found() {
			id := m.ID
			payload.SectionID = &id
		} else {
			res.unmatched = append(res.unmatched, unmatched{reference.ClassDirectorate, payload.Directorate})
		}
	}

	if raw := p.text(row, sheet.FieldFinancialYear); raw != "" {
		fy := textnorm.NormalizeFinancialYear(raw)
		if fy.Corrected {
			res.corrections = append(res.corrections, sheet.Correction{
				Row:            rowNumber,
				Field:          sheet.FieldFinancialYear,
				OriginalValue:  fy.Original,
				CorrectedValue: fy.Normalized,
				Message:        fy.Message,
			})
		}
		m := p.resolver.FinancialYear(raw)
		if m.Found() {
			id := m.ID
			payload.FinYearID = &id
		} else {
			res.unmatched = append(res.unmatched, unmatched{reference.ClassFinancialYear, raw})
		}
	}

	var err error
	if payload.CostOfProject, err = p.money(row, sheet.FieldBudget); err != nil {
		return nil, err
	}
	if payload.PaidOut, err = p.money(row, sheet.FieldAmountPaid); err != nil {
		return nil, err
	}
	if payload.Contracted, err = p.money(row, sheet.FieldContracted); err != nil {
		return nil, err
	}

	payload.StartDate = p.date(rowNumber, row, sheet.FieldStartDate, res)
	payload.EndDate = p.date(rowNumber, row, sheet.FieldEndDate, res)
	return payload, nil
}

// money reads a numeric column. Thousands separators and spaces are ignored;
// other non-numeric text fails the row.
func (p *RowProcessor) money(row sheet.CanonicalRow, field string) (decimal.NullDecimal, error) {
	switch v := p.mapper.Lookup(row, field).(type) {
	case nil:
		return decimal.NullDecimal{}, nil
	case float64:
		return decimal.NewNullDecimal(decimal.NewFromFloat(v)), nil
	case int:
		return decimal.NewNullDecimal(decimal.NewFromInt(int64(v))), nil
	case int64:
		return decimal.NewNullDecimal(decimal.NewFromInt(v)), nil
	case decimal.Decimal:
		return decimal.NewNullDecimal(v), nil
	default:
		raw := sheet.Stringify(v)
		cleaned := strings.NewReplacer(",", "", " ", "").Replace(raw)
		if cleaned == "" {
			return decimal.NullDecimal{}, nil
		}
		d, err := decimal.NewFromString(cleaned)
		if err != nil {
			return decimal.NullDecimal{}, fmt.Errorf("invalid number %q for %s", raw, field)
		}
		return decimal.NewNullDecimal(d), nil
	}
}

// date parses a date column. Unparseable values are stored as NULL.
func (p *RowProcessor) date(rowNumber int, row sheet.CanonicalRow, field string, res *rowResult) *time.Time {
	v := p.mapper.Lookup(row, field)
	if sheet.IsBlank(v) {
		return nil
	}
	d := textnorm.ParseDate(v, p.mapper.DateOrder())
	if d == nil {
		return nil
	}
	if d.Corrected {
		res.corrections = append(res.corrections, sheet.Correction{
			Row: rowNumber, Field: field, OriginalValue: d.Original, CorrectedValue: d.Value, Message: d.Message,
		})
	}
	if d.Ambiguous {
		res.ambiguous = append(res.ambiguous, sheet.Correction{
			Row: rowNumber, Field: field, OriginalValue: d.Original, CorrectedValue: d.Value,
			Message: fmt.Sprintf("Ambiguous date %q read as %s (%s order)", d.Original, d.Value, p.mapper.DateOrder()),
		})
	}
	t, err := time.Parse(time.DateOnly, d.Value)
	if err != nil {
		return nil
	}
	return &t
}

// upsert updates the live project with the same ref number, else the one with
// the same exact name, else inserts.
func (p *RowProcessor) upsert(ctx context.Context, payload *project.Project) (int64, bool, error) {
	var id int64
	var err error
	if payload.RefNum != "" {
		if id, err = p.projects.FindIDByRefNum(ctx, payload.RefNum); err != nil {
			return 0, false, err
		}
	}
	if id == 0 {
		if id, err = p.projects.FindIDByName(ctx, payload.Name); err != nil {
			return 0, false, err
		}
	}
	if id != 0 {
		if err := p.projects.Update(ctx, id, payload, p.actorID); err != nil {
			return 0, false, err
		}
		return id, false, nil
	}
	id, err = p.projects.Create(ctx, payload, p.actorID)
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (p *RowProcessor) linkAreas(ctx context.Context, projectID int64, row sheet.CanonicalRow, res *rowResult) error {
	links := []struct {
		class   reference.Class
		field   string
		resolve func(string) reference.Match
		link    func(context.Context, int64, int64) (bool, error)
	}{
		{reference.ClassWard, sheet.FieldWard, p.resolver.Ward, p.projects.LinkWard},
		{reference.ClassSubcounty, sheet.FieldSubcounty, p.resolver.Subcounty, p.projects.LinkSubcounty},
	}
	for _, l := range links {
		raw := p.text(row, l.field)
		if raw == "" {
			continue
		}
		m := l.resolve(raw)
		if !m.Found() {
			res.unmatched = append(res.unmatched, unmatched{l.class, raw})
			continue
		}
		created, err := l.link(ctx, projectID, m.ID)
		if err != nil {
			return fmt.Errorf("link %s %q: %w", l.class, m.Name, err)
		}
		res.countLink(created)
	}
	return nil
}

func (r *rowResult) countLink(created bool) {
	if created {
		r.linksCreated++
	} else {
		r.linksExisting++
	}
}

// linkContractor finds the contractor by company key, then by email, and
// creates it when neither matches. A lost insert race is recovered by
// querying again.
func (p *RowProcessor) linkContractor(ctx context.Context, projectID int64, row sheet.CanonicalRow, res *rowResult) error {
	name := p.text(row, sheet.FieldContractor)
	if textnorm.RuneLen(name) < minContractorNameLen {
		return nil
	}
	email := strings.ToLower(p.text(row, sheet.FieldContractorEmail))
	if email != "" && p.validate.Var(email, "email") != nil {
		email = ""
	}

	c, err := p.findContractor(ctx, name, email)
	if err != nil {
		return err
	}
	if c == nil {
		c, err = p.createContractor(ctx, name, email, row, res)
		if err != nil {
			return err
		}
	}

	created, err := p.contractors.Assign(ctx, projectID, c.ID)
	if err != nil {
		return fmt.Errorf("assign contractor %q: %w", c.CompanyName, err)
	}
	res.countLink(created)
	return nil
}

func (p *RowProcessor) findContractor(ctx context.Context, name, email string) (*contractor.Contractor, error) {
	c, err := p.contractors.FindByCompanyKey(ctx, contractor.CompanyKey(name))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, contractor.ErrNotFound) {
		return nil, err
	}
	if email == "" {
		return nil, nil
	}
	c, err = p.contractors.FindByEmail(ctx, email)
	if errors.Is(err, contractor.ErrNotFound) {
		return nil, nil
	}
	return c, err
}

func (p *RowProcessor) createContractor(ctx context.Context, name, email string, row sheet.CanonicalRow, res *rowResult) (*contractor.Contractor, error) {
	if email == "" {
		email = contractor.PlaceholderEmail(name)
	}
	c := &contractor.Contractor{
		CompanyName:   name,
		Email:         email,
		Phone:         p.text(row, sheet.FieldContractorPhone),
		ContactPerson: p.text(row, sheet.FieldContactPerson),
	}
	id, created, err := p.contractors.Create(ctx, c, p.actorID)
	if err != nil {
		return nil, fmt.Errorf("create contractor %q: %w", name, err)
	}
	if created {
		c.ID = id
		res.contractorsCreated++
		return c, nil
	}

	existing, err := p.findContractor(ctx, name, email)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("contractor %q conflicts with an existing contractor that could not be found", name)
	}
	return existing, nil
}
