package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kwatuha/imes-sub010/modules/projects/domain/entities/contractor"
	"github.com/kwatuha/imes-sub010/modules/projects/domain/entities/importrun"
	"github.com/kwatuha/imes-sub010/modules/projects/domain/entities/project"
	"github.com/kwatuha/imes-sub010/modules/projects/domain/reference"
	"github.com/kwatuha/imes-sub010/modules/projects/domain/sheet"
	"github.com/kwatuha/imes-sub010/pkg/composables"
	"github.com/kwatuha/imes-sub010/pkg/eventbus"
	"github.com/kwatuha/imes-sub010/pkg/textnorm"
)

const DefaultPreviewLimit = 10

// Actor is the authenticated user an import is attributed to.
type Actor struct {
	ID int64
}

type Options struct {
	PreviewLimit int
}

// Repositories groups the stores ImportService reads and writes.
type Repositories struct {
	References  reference.Repository
	Projects    project.Repository
	Contractors contractor.Repository
	Runs        importrun.Repository
}

type ImportService struct {
	mapper    *sheet.HeaderMapper
	repos     Repositories
	tx        composables.Transactor
	publisher eventbus.EventBus
	opts      Options
	now       func() time.Time
}

func NewImportService(
	mapper *sheet.HeaderMapper,
	repos Repositories,
	tx composables.Transactor,
	publisher eventbus.EventBus,
	opts Options,
) *ImportService {
	if opts.PreviewLimit <= 0 {
		opts.PreviewLimit = DefaultPreviewLimit
	}
	return &ImportService{
		mapper:    mapper,
		repos:     repos,
		tx:        tx,
		publisher: publisher,
		opts:      opts,
		now:       time.Now,
	}
}

func (s *ImportService) Mapper() *sheet.HeaderMapper {
	return s.mapper
}

type PreviewResult struct {
	Success             bool                 `json:"success"`
	Message             string               `json:"message"`
	PreviewData         []sheet.CanonicalRow `json:"previewData"`
	FullData            []sheet.CanonicalRow `json:"fullData"`
	Headers             []string             `json:"headers"`
	UnrecognizedHeaders []string             `json:"unrecognizedHeaders"`
	DataCorrections     []sheet.Correction   `json:"dataCorrections"`
	AmbiguousDates      []sheet.Correction   `json:"ambiguousDates"`
	// SkippedRows counts rows a confirm would skip for a missing or too
	// short project name.
	SkippedRows int `json:"skippedRows"`
}

// Preview maps a decoded sheet onto canonical rows. It has no side effects.
func (s *ImportService) Preview(ctx context.Context, table sheet.RawTable) (res *PreviewResult, err error) {
	defer func() { recordRun(modePreview, err) }()

	table = table.WithoutEmptyRows()
	if len(table.Rows) == 0 {
		return nil, ErrNoDataRows
	}

	res = &PreviewResult{
		Success:             true,
		FullData:            make([]sheet.CanonicalRow, 0, len(table.Rows)),
		Headers:             table.Header,
		UnrecognizedHeaders: s.mapper.Unrecognized(table.Header),
		DataCorrections:     []sheet.Correction{},
		AmbiguousDates:      []sheet.Correction{},
	}
	for i, cells := range table.Rows {
		mapped := s.mapper.MapRow(table.Header, cells, sheet.DataRowNumber(i))
		res.FullData = append(res.FullData, mapped.Row)
		res.DataCorrections = append(res.DataCorrections, mapped.Corrections...)
		res.AmbiguousDates = append(res.AmbiguousDates, mapped.AmbiguousDates...)
		if textnorm.RuneLen(textnorm.String(s.mapper.Text(mapped.Row, sheet.FieldProjectName))) < minProjectNameLen {
			res.SkippedRows++
		}
	}
	limit := min(s.opts.PreviewLimit, len(res.FullData))
	res.PreviewData = res.FullData[:limit]
	for _, c := range res.DataCorrections {
		recordCorrection(c.Field)
	}

	res.Message = "File parsed successfully. Please review and confirm."
	if n := len(res.DataCorrections); n > 0 {
		res.Message = fmt.Sprintf("File parsed successfully. %d data correction(s) were made automatically. Please review and confirm.", n)
	}
	composables.UseLogger(ctx).WithField("rows", len(res.FullData)).Debug("import preview built")
	return res, nil
}

// ClassMapping splits the distinct values of one metadata class into those
// that resolve to an existing entity and those that do not.
type ClassMapping struct {
	Existing []string `json:"existing"`
	New      []string `json:"new"`
}

type UnmatchedRow struct {
	RowNumber   int      `json:"rowNumber"`
	ProjectName string   `json:"projectName"`
	Unmatched   []string `json:"unmatched"`
}

type MappingSummary struct {
	Departments               ClassMapping   `json:"departments"`
	Directorates              ClassMapping   `json:"directorates"`
	Wards                     ClassMapping   `json:"wards"`
	Subcounties               ClassMapping   `json:"subcounties"`
	FinancialYears            ClassMapping   `json:"financialYears"`
	TotalRows int `json:"totalRows"`
	// SkippedRows counts rows left out of the check because a confirm would
	// skip them for a missing or too short project name.
	SkippedRows               int            `json:"skippedRows"`
	RowsWithUnmatchedMetadata []UnmatchedRow `json:"rowsWithUnmatchedMetadata"`
}

// classSet collects distinct values in first-seen order.
type classSet struct {
	seen   map[string]bool
	values []string
}

func (c *classSet) add(v string) bool {
	key := textnorm.Fold(v)
	if c.seen == nil {
		c.seen = map[string]bool{}
	}
	if c.seen[key] {
		return false
	}
	c.seen[key] = true
	c.values = append(c.values, v)
	return true
}

func (c *classSet) list() []string {
	if c.values == nil {
		return []string{}
	}
	return c.values
}

var classLabels = map[reference.Class]string{
	reference.ClassDepartment:    "Department",
	reference.ClassDirectorate:   "Directorate",
	reference.ClassWard:          "Ward",
	reference.ClassSubcounty:     "Sub-county",
	reference.ClassFinancialYear: "Financial Year",
}

// CheckMetadataMapping resolves every metadata value of rows against the
// current reference data without writing anything.
func (s *ImportService) CheckMetadataMapping(ctx context.Context, rows []sheet.CanonicalRow) (res *MappingSummary, err error) {
	defer func() { recordRun(modeCheck, err) }()

	if len(rows) == 0 {
		return nil, ErrNoRowsProvided
	}
	snap, err := s.repos.References.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("load reference data: %w", err)
	}
	resolver := reference.NewResolver(snap)

	fields := []struct {
		class reference.Class
		field string
	}{
		{reference.ClassDepartment, sheet.FieldDepartment},
		{reference.ClassDirectorate, sheet.FieldDirectorate},
		{reference.ClassWard, sheet.FieldWard},
		{reference.ClassSubcounty, sheet.FieldSubcounty},
		{reference.ClassFinancialYear, sheet.FieldFinancialYear},
	}
	existing := map[reference.Class]*classSet{}
	missing := map[reference.Class]*classSet{}
	for _, f := range fields {
		existing[f.class], missing[f.class] = &classSet{}, &classSet{}
	}

	res = &MappingSummary{TotalRows: len(rows), RowsWithUnmatchedMetadata: []UnmatchedRow{}}
	for i, row := range rows {
		projectName := textnorm.String(s.mapper.Text(row, sheet.FieldProjectName))
		if textnorm.RuneLen(projectName) < minProjectNameLen {
			res.SkippedRows++
			continue
		}
		var departmentID int64
		var labels []string
		for _, f := range fields {
			raw := textnorm.String(s.mapper.Text(row, f.field))
			if raw == "" {
				continue
			}
			var m reference.Match
			if f.class == reference.ClassDirectorate {
				m = resolver.Section(raw, departmentID)
			} else {
				m = resolver.Resolve(f.class, raw)
			}
			if f.class == reference.ClassDepartment && m.Found() {
				departmentID = m.ID
			}
			if m.Found() {
				existing[f.class].add(raw)
				continue
			}
			if missing[f.class].add(raw) {
				recordUnmatched(string(f.class))
			}
			labels = append(labels, fmt.Sprintf("%s: %s", classLabels[f.class], raw))
		}
		if len(labels) > 0 {
			res.RowsWithUnmatchedMetadata = append(res.RowsWithUnmatchedMetadata, UnmatchedRow{
				RowNumber:   sheet.DataRowNumber(i),
				ProjectName: projectName,
				Unmatched:   labels,
			})
		}
	}

	mapping := func(c reference.Class) ClassMapping {
		return ClassMapping{Existing: existing[c].list(), New: missing[c].list()}
	}
	res.Departments = mapping(reference.ClassDepartment)
	res.Directorates = mapping(reference.ClassDirectorate)
	res.Wards = mapping(reference.ClassWard)
	res.Subcounties = mapping(reference.ClassSubcounty)
	res.FinancialYears = mapping(reference.ClassFinancialYear)
	return res, nil
}

// SkippedMetadata lists, per class, the values that matched nothing and
// were left unset.
type SkippedMetadata struct {
	Departments    []string `json:"departments"`
	Directorates   []string `json:"directorates"`
	Wards          []string `json:"wards"`
	Subcounties    []string `json:"subcounties"`
	FinancialYears []string `json:"financialYears"`
}

func (m SkippedMetadata) empty() bool {
	return len(m.Departments)+len(m.Directorates)+len(m.Wards)+len(m.Subcounties)+len(m.FinancialYears) == 0
}

type ImportSummary struct {
	RunID              uuid.UUID          `json:"runId"`
	TotalRows          int                `json:"totalRows"`
	ProjectsCreated    int                `json:"projectsCreated"`
	ProjectsUpdated    int                `json:"projectsUpdated"`
	LinksCreated       int                `json:"linksCreated"`
	LinksExisting      int                `json:"linksExisting"`
	ContractorsCreated int                `json:"contractorsCreated"`
	RowsSkipped        int                `json:"rowsSkipped"`
	DataCorrections    []sheet.Correction `json:"dataCorrections"`
	AmbiguousDates     []sheet.Correction `json:"ambiguousDates"`
	SkippedMetadata    SkippedMetadata    `json:"skippedMetadata"`
	Message            string             `json:"message"`
}

// summaryBuilder accumulates row results for one confirm call.
type summaryBuilder struct {
	summary *ImportSummary
	skipped map[reference.Class]*classSet
}

func newSummaryBuilder(runID uuid.UUID, total int) *summaryBuilder {
	return &summaryBuilder{
		summary: &ImportSummary{
			RunID:           runID,
			TotalRows:       total,
			DataCorrections: []sheet.Correction{},
			AmbiguousDates:  []sheet.Correction{},
		},
		skipped: map[reference.Class]*classSet{},
	}
}

func (b *summaryBuilder) add(r *rowResult) {
	s := b.summary
	if r.skipped {
		s.RowsSkipped++
		return
	}
	if r.created {
		s.ProjectsCreated++
	} else {
		s.ProjectsUpdated++
	}
	s.LinksCreated += r.linksCreated
	s.LinksExisting += r.linksExisting
	s.ContractorsCreated += r.contractorsCreated
	s.DataCorrections = append(s.DataCorrections, r.corrections...)
	s.AmbiguousDates = append(s.AmbiguousDates, r.ambiguous...)
	for _, u := range r.unmatched {
		set, ok := b.skipped[u.class]
		if !ok {
			set = &classSet{}
			b.skipped[u.class] = set
		}
		set.add(u.value)
	}
}

func (b *summaryBuilder) build() *ImportSummary {
	s := b.summary
	list := func(c reference.Class) []string {
		if set, ok := b.skipped[c]; ok {
			return set.list()
		}
		return []string{}
	}
	s.SkippedMetadata = SkippedMetadata{
		Departments:    list(reference.ClassDepartment),
		Directorates:   list(reference.ClassDirectorate),
		Wards:          list(reference.ClassWard),
		Subcounties:    list(reference.ClassSubcounty),
		FinancialYears: list(reference.ClassFinancialYear),
	}
	s.Message = summaryMessage(s)
	return s
}

func summaryMessage(s *ImportSummary) string {
	msg := fmt.Sprintf("Import completed: %d project(s) created, %d updated, %d link(s) created.",
		s.ProjectsCreated, s.ProjectsUpdated, s.LinksCreated)
	if s.RowsSkipped > 0 {
		msg += fmt.Sprintf(" %d row(s) skipped for a missing project name.", s.RowsSkipped)
	}
	if s.SkippedMetadata.empty() {
		return msg
	}
	var parts []string
	for _, p := range []struct {
		label  string
		values []string
	}{
		{"Departments", s.SkippedMetadata.Departments},
		{"Directorates", s.SkippedMetadata.Directorates},
		{"Wards", s.SkippedMetadata.Wards},
		{"Sub-counties", s.SkippedMetadata.Subcounties},
		{"Financial Years", s.SkippedMetadata.FinancialYears},
	} {
		if len(p.values) > 0 {
			parts = append(parts, fmt.Sprintf("%s: %s", p.label, strings.Join(p.values, ", ")))
		}
	}
	return fmt.Sprintf("%s Metadata not found and left unset (%s). Please create these in Metadata Management.",
		msg, strings.Join(parts, "; "))
}

// ConfirmImport writes rows in one transaction. Each row runs in its own
// savepoint so that every failing row is reported, but any failure rolls the
// whole transaction back and nothing is committed. The error is then an
// *ImportError.
func (s *ImportService) ConfirmImport(ctx context.Context, actor Actor, rows []sheet.CanonicalRow) (summary *ImportSummary, err error) {
	defer func() { recordRun(modeConfirm, err) }()

	if actor.ID <= 0 {
		return nil, ErrActorRequired
	}
	if len(rows) == 0 {
		return nil, ErrNoRowsProvided
	}

	runID := uuid.New()
	started := s.now()
	builder := newSummaryBuilder(runID, len(rows))
	var rowErrs []RowError

	txErr := s.tx.InTx(ctx, func(txCtx context.Context) error {
		snap, err := s.repos.References.Snapshot(txCtx)
		if err != nil {
			return fmt.Errorf("load reference data: %w", err)
		}
		proc := NewRowProcessor(s.mapper, reference.NewResolver(snap), s.repos.Projects, s.repos.Contractors, actor.ID)

		for i, row := range rows {
			rowNumber := sheet.DataRowNumber(i)
			var res *rowResult
			err := s.tx.InSavepoint(txCtx, func(spCtx context.Context) error {
				var err error
				res, err = proc.Process(spCtx, rowNumber, row)
				return err
			})
			if err != nil {
				recordRow("error")
				rowErrs = append(rowErrs, RowError{Row: rowNumber, Message: err.Error()})
				continue
			}
			switch {
			case res.skipped:
				recordRow("skipped")
			case res.created:
				recordRow("created")
			default:
				recordRow("updated")
			}
			builder.add(res)
		}
		if len(rowErrs) > 0 {
			return errRowsFailed
		}

		summary = builder.build()
		return s.recordRun(txCtx, actor, started, summary)
	})

	if txErr != nil {
		ie := &ImportError{RunID: runID, Errors: rowErrs}
		if !errors.Is(txErr, errRowsFailed) {
			ie.Cause = txErr
		}
		s.publish(&ImportRolledBack{RunID: runID, ActorID: actor.ID, Err: ie, Duration: s.now().Sub(started)})
		return nil, ie
	}

	for _, c := range summary.DataCorrections {
		recordCorrection(c.Field)
	}
	for class, set := range builder.skipped {
		for range set.values {
			recordUnmatched(string(class))
		}
	}
	s.publish(&ImportCommitted{RunID: runID, ActorID: actor.ID, Summary: summary, Duration: s.now().Sub(started)})
	return summary, nil
}

func (s *ImportService) recordRun(ctx context.Context, actor Actor, started time.Time, summary *ImportSummary) error {
	corrections, err := json.Marshal(summary.DataCorrections)
	if err != nil {
		return err
	}
	skipped, err := json.Marshal(summary.SkippedMetadata)
	if err != nil {
		return err
	}
	return s.repos.Runs.Record(ctx, &importrun.Run{
		ID:              summary.RunID,
		ActorID:         actor.ID,
		StartedAt:       started,
		FinishedAt:      s.now(),
		RowsTotal:       summary.TotalRows,
		RowsSkipped:     summary.RowsSkipped,
		ProjectsCreated: summary.ProjectsCreated,
		ProjectsUpdated: summary.ProjectsUpdated,
		LinksCreated:    summary.LinksCreated,
		Corrections:     corrections,
		SkippedMetadata: skipped,
	})
}

func (s *ImportService) publish(event any) {
	if s.publisher != nil {
		s.publisher.Publish(event)
	}
}

// ImportTable previews table and confirms all of its rows. Corrections made
// while mapping are reported ahead of those made while writing.
func (s *ImportService) ImportTable(ctx context.Context, actor Actor, table sheet.RawTable) (*PreviewResult, *ImportSummary, error) {
	preview, err := s.Preview(ctx, table)
	if err != nil {
		return nil, nil, err
	}
	summary, err := s.ConfirmImport(ctx, actor, preview.FullData)
	if err != nil {
		return preview, nil, err
	}
	summary.DataCorrections = append(append([]sheet.Correction{}, preview.DataCorrections...), summary.DataCorrections...)
	summary.AmbiguousDates = append(append([]sheet.Correction{}, preview.AmbiguousDates...), summary.AmbiguousDates...)
	return preview, summary, nil
}
