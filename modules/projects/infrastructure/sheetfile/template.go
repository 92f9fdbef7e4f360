package sheetfile

import (
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/kwatuha/imes-sub010/modules/projects/domain/sheet"
)

const templateSheet = "Projects"

// TemplateHeaders is the header row of the import template.
var TemplateHeaders = []string{
	"Project Name",
	"Project Ref Num",
	"Project Description",
	"Status",
	"Budget",
	"Amount Paid",
	"Contracted",
	"Financial Year",
	"Department",
	"Directorate",
	"Sub County",
	"Ward",
	"Start Date",
	"End Date",
	"Contractor",
	"Contractor Email",
	"Contractor Phone",
	"Contact Person",
}

var templateExample = []any{
	"Estate Road A", "PRJ-001", "Gravelling of estate access road", "Ongoing",
	1200000, 300000, 1150000, "FY2023/2024", "WECV&NR", "Water Services",
	"Nyando", "Masogo/Nyangoma", "2023-07-01", "2024-06-30",
	"Acme Builders Ltd", "info@acme.co.ke", "0700000000", "Jane Doe",
}

// WriteTemplate writes an .xlsx with the canonical headers and one example row.
func WriteTemplate(w io.Writer) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), templateSheet); err != nil {
		return err
	}
	header := make([]any, len(TemplateHeaders))
	for i, h := range TemplateHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(templateSheet, "A1", &header); err != nil {
		return err
	}
	example := append([]any(nil), templateExample...)
	if err := f.SetSheetRow(templateSheet, "A2", &example); err != nil {
		return err
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(TemplateHeaders), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(templateSheet, "A1", last, style); err != nil {
		return err
	}
	if err := f.SetColWidth(templateSheet, "A", "R", 22); err != nil {
		return err
	}
	_, err = f.WriteTo(w)
	return err
}

// TemplateFields lists the canonical field each template header maps to.
func TemplateFields(m *sheet.HeaderMapper) []string {
	out := make([]string, len(TemplateHeaders))
	for i, h := range TemplateHeaders {
		out[i], _ = m.Canonical(h)
	}
	return out
}
