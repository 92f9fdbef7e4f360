// Package sheet describes uploaded project sheets before and after their
// headers are mapped onto canonical project fields.
package sheet

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Canonical field names. They double as the JSON keys of a CanonicalRow.
const (
	FieldProjectName     = "projectName"
	FieldDescription     = "ProjectDescription"
	FieldRefNum          = "ProjectRefNum"
	FieldStatus          = "Status"
	FieldBudget          = "budget"
	FieldAmountPaid      = "amountPaid"
	FieldFinancialYear   = "financialYear"
	FieldDepartment      = "department"
	FieldDirectorate     = "directorate"
	FieldSubcounty       = "sub-county"
	FieldWard            = "ward"
	FieldContracted      = "Contracted"
	FieldStartDate       = "StartDate"
	FieldEndDate         = "EndDate"
	FieldContractor      = "contractor"
	FieldContractorEmail = "contractorEmail"
	FieldContractorPhone = "contractorPhone"
	FieldContactPerson   = "contactPerson"
)

// RawTable is a decoded sheet: the first row as header and every following
// row as cells aligned to it. Cells are strings for CSV and XLSX input but
// callers may also hand in numbers or time.Time values.
type RawTable struct {
	Header []string
	Rows   [][]any
}

// DataRowNumber converts a zero-based index into Rows to the row number a
// user sees in a spreadsheet, where row 1 is the header.
func DataRowNumber(index int) int {
	return index + 2
}

// WithoutEmptyRows drops data rows whose cells are all blank.
func (t RawTable) WithoutEmptyRows() RawTable {
	rows := make([][]any, 0, len(t.Rows))
	for _, r := range t.Rows {
		if !isBlankRow(r) {
			rows = append(rows, r)
		}
	}
	return RawTable{Header: t.Header, Rows: rows}
}

func isBlankRow(r []any) bool {
	for _, c := range r {
		if !IsBlank(c) {
			return false
		}
	}
	return true
}

// IsBlank reports nil values and whitespace-only strings.
func IsBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	default:
		return false
	}
}

// CanonicalRow maps canonical field names to values. Headers that matched no
// canonical field keep their original text as key.
type CanonicalRow map[string]any

// Text renders a field as a trimmed string; nil and missing fields are "".
func (r CanonicalRow) Text(field string) string {
	return Stringify(r[field])
}

// Stringify renders a cell value as text.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.Format("2006-01-02")
	case decimal.Decimal:
		return t.String()
	case fmt.Stringer:
		return t.String()
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// Keys returns the row's keys in sorted order.
func (r CanonicalRow) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Correction records one automatic repair of a cell value.
type Correction struct {
	Row            int    `json:"row"`
	Field          string `json:"field"`
	OriginalValue  string `json:"originalValue"`
	CorrectedValue string `json:"correctedValue"`
	Message        string `json:"message"`
}
