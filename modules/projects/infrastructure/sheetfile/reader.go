// Package sheetfile decodes uploaded project sheets (XLSX or CSV) into a
// sheet.RawTable and writes the blank import template.
package sheetfile

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/kwatuha/imes-sub010/modules/projects/domain/sheet"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format (expected .xlsx, .xlsm or .csv)")
	ErrNoSheets          = errors.New("workbook has no sheets")
	ErrNoHeader          = errors.New("file has no header row")
)

// Format is a supported upload format.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// DetectFormat picks the decoder from the file name, falling back to the
// ZIP magic bytes for unnamed uploads.
func DetectFormat(filename string, head []byte) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	case "":
		if bytes.HasPrefix(head, []byte("PK\x03\x04")) {
			return FormatXLSX, nil
		}
		return FormatCSV, nil
	}
	return "", ErrUnsupportedFormat
}

// ReadFile decodes the file at path.
func ReadFile(path string) (sheet.RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return sheet.RawTable{}, err
	}
	defer f.Close()
	return Read(f, filepath.Base(path))
}

// Read decodes r, using filename to choose the format.
func Read(r io.Reader, filename string) (sheet.RawTable, error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(4)
	format, err := DetectFormat(filename, head)
	if err != nil {
		return sheet.RawTable{}, err
	}
	if format == FormatXLSX {
		return ReadXLSX(br)
	}
	return ReadCSV(br)
}

// ReadXLSX reads the first worksheet. Cells come back unformatted, so money
// columns carry plain numbers and date cells carry Excel serial numbers.
func ReadXLSX(r io.Reader) (sheet.RawTable, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return sheet.RawTable{}, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return sheet.RawTable{}, ErrNoSheets
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return sheet.RawTable{}, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return toTable(rows)
}

// ReadCSV reads comma-separated input, ignoring a UTF-8 byte order mark.
func ReadCSV(r io.Reader) (sheet.RawTable, error) {
	br := stripUTF8BOM(bufio.NewReader(r))
	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var rows [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return sheet.RawTable{}, fmt.Errorf("read csv: %w", err)
		}
		rows = append(rows, rec)
	}
	for _, row := range rows {
		for _, cell := range row {
			if !utf8.ValidString(cell) {
				return sheet.RawTable{}, fmt.Errorf("invalid text encoding (expected UTF-8)")
			}
		}
	}
	return toTable(rows)
}

func stripUTF8BOM(r *bufio.Reader) *bufio.Reader {
	b, err := r.Peek(3)
	if err == nil && len(b) == 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		_, _ = r.Discard(3)
	}
	return r
}

func toTable(rows [][]string) (sheet.RawTable, error) {
	if len(rows) == 0 {
		return sheet.RawTable{}, ErrNoHeader
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}
	out := sheet.RawTable{Header: header, Rows: make([][]any, 0, len(rows)-1)}
	for _, r := range rows[1:] {
		cells := make([]any, len(r))
		for i, c := range r {
			cells[i] = c
		}
		out.Rows = append(out.Rows, cells)
	}
	return out, nil
}
