package sheetfile

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/kwatuha/imes-sub010/modules/projects/domain/sheet"
	"github.com/kwatuha/imes-sub010/pkg/textnorm"
)

func workbook(t *testing.T, rows ...[]any) []byte {
	t.Helper()
	wb := excelize.NewFile()
	defer func() { _ = wb.Close() }()
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, wb.SetSheetRow("Sheet1", cell, &rows[i]))
	}
	var buf bytes.Buffer
	_, err := wb.WriteTo(&buf)
	require.NoError(t, err)
	return buf.Bytes()
}

func TestReadXLSX(t *testing.T) {
	data := workbook(t,
		[]any{"Project Name", "Budget", "Start Date"},
		[]any{"Estate Road A", 1200000, "2023-06-31"},
		[]any{"Water Pan", 5000.5, ""},
	)

	table, err := Read(bytes.NewReader(data), "projects.xlsx")
	require.NoError(t, err)
	require.Equal(t, []string{"Project Name", "Budget", "Start Date"}, table.Header)
	require.Len(t, table.Rows, 2)
	require.Equal(t, "Estate Road A", table.Rows[0][0])
	require.Equal(t, "1200000", table.Rows[0][1])
	require.Equal(t, "2023-06-31", table.Rows[0][2])
	require.Equal(t, "5000.5", table.Rows[1][1])
}

func TestReadXLSX_DetectedWithoutExtension(t *testing.T) {
	data := workbook(t, []any{"Name"}, []any{"Market Shed"})
	table, err := Read(bytes.NewReader(data), "")
	require.NoError(t, err)
	require.Equal(t, "Market Shed", table.Rows[0][0])
}

func TestReadXLSX_EmptyWorkbook(t *testing.T) {
	data := workbook(t)
	_, err := ReadXLSX(bytes.NewReader(data))
	require.ErrorIs(t, err, ErrNoHeader)
}

func TestReadCSV_StripsBOM(t *testing.T) {
	in := "\xEF\xBB\xBFProject Name,Ward\nEstate Road A,Masogo Nyangoma Ward\nshort\n"
	table, err := Read(strings.NewReader(in), "upload.CSV")
	require.NoError(t, err)
	require.Equal(t, []string{"Project Name", "Ward"}, table.Header)
	require.Len(t, table.Rows, 2)
	require.Equal(t, "Masogo Nyangoma Ward", table.Rows[0][1])
	require.Len(t, table.Rows[1], 1)
}

func TestReadCSV_Errors(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	require.ErrorIs(t, err, ErrNoHeader)

	_, err = ReadCSV(strings.NewReader("a,b\n\xff\xfe,x\n"))
	require.Error(t, err)
}

func TestDetectFormat(t *testing.T) {
	_, err := DetectFormat("projects.pdf", nil)
	require.ErrorIs(t, err, ErrUnsupportedFormat)

	f, err := DetectFormat("Book.XLSM", nil)
	require.NoError(t, err)
	require.Equal(t, FormatXLSX, f)

	f, err = DetectFormat("", []byte("name,ward"))
	require.NoError(t, err)
	require.Equal(t, FormatCSV, f)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "projects.csv")
	require.NoError(t, os.WriteFile(path, []byte("Name\nBridge\n"), 0o644))
	table, err := ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "Bridge", table.Rows[0][0])

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
}

func TestWriteTemplate(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTemplate(&buf))

	table, err := ReadXLSX(&buf)
	require.NoError(t, err)
	require.Equal(t, TemplateHeaders, table.Header)
	require.Len(t, table.Rows, 1)

	m := sheet.NewHeaderMapper(sheet.DefaultDictionary(), textnorm.MonthFirst)
	require.Empty(t, m.Unrecognized(table.Header))
	fields := TemplateFields(m)
	require.Equal(t, sheet.FieldProjectName, fields[0])
	require.Equal(t, sheet.FieldContactPerson, fields[len(fields)-1])
}
