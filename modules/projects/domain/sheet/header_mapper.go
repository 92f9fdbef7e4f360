package sheet

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kwatuha/imes-sub010/pkg/textnorm"
)

// Dictionary maps each canonical field to the header spellings that denote it.
type Dictionary map[string][]string

// DefaultDictionary is the built-in variant list. Variants are compared after
// textnorm.Header, so spacing and punctuation in them does not matter.
func DefaultDictionary() Dictionary {
	return Dictionary{
		FieldProjectName:     {"projectname", "name", "title", "project", "project_name", "nameofproject"},
		FieldDescription:     {"projectdescription", "description", "details", "projectdesc"},
		FieldRefNum:          {"projectrefnum", "projectrefnumber", "ref", "refnum", "refnumber", "reference", "projectreference", "projectref", "refno", "projectno"},
		FieldStatus:          {"status", "projectstatus", "currentstatus"},
		FieldBudget:          {"budget", "estimatedcost", "budgetkes", "projectcost", "costofproject"},
		FieldAmountPaid:      {"amountpaid", "disbursed", "expenditure", "paidout"},
		FieldFinancialYear:   {"financialyear", "fy", "adp", "year"},
		FieldDepartment:      {"department", "implementingdepartment"},
		FieldDirectorate:     {"directorate", "section"},
		FieldSubcounty:       {"subcounty", "subcountyname", "subcountyid"},
		FieldWard:            {"ward", "wardname", "wardid"},
		FieldContracted:      {"contracted", "contractamount", "contractedamount", "contractsum", "contractvalue", "contract value (kes)"},
		FieldStartDate:       {"startdate", "projectstartdate", "commencementdate", "start"},
		FieldEndDate:         {"enddate", "projectenddate", "completiondate", "end"},
		FieldContractor:      {"contractor", "contractorname", "companyname"},
		FieldContractorEmail: {"contractoremail", "companyemail"},
		FieldContractorPhone: {"contractorphone", "companyphone"},
		FieldContactPerson:   {"contactperson"},
	}
}

type dictionaryFile struct {
	Fields map[string][]string `yaml:"fields"`
}

// LoadDictionary reads extra variants from a YAML file of the form
//
//	fields:
//	  projectName: ["Name of Works"]
//
// and merges them into base. New canonical fields are allowed.
func LoadDictionary(path string, base Dictionary) (Dictionary, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read header dictionary: %w", err)
	}
	var f dictionaryFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse header dictionary %s: %w", path, err)
	}
	out := make(Dictionary, len(base)+len(f.Fields))
	for k, v := range base {
		out[k] = append([]string(nil), v...)
	}
	for field, variants := range f.Fields {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		out[field] = append(out[field], variants...)
	}
	return out, nil
}

// HeaderMapper turns raw header text into canonical field names.
type HeaderMapper struct {
	lookup map[string]string
	order  textnorm.DateOrder
}

func NewHeaderMapper(dict Dictionary, order textnorm.DateOrder) *HeaderMapper {
	fields := make([]string, 0, len(dict))
	for field := range dict {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	lookup := make(map[string]string)
	// Canonical names always map to themselves, ahead of any variant.
	for _, field := range fields {
		lookup[textnorm.Header(field)] = field
	}
	for _, field := range fields {
		for _, v := range dict[field] {
			key := textnorm.Header(v)
			if key == "" {
				continue
			}
			if _, taken := lookup[key]; !taken {
				lookup[key] = field
			}
		}
	}
	return &HeaderMapper{lookup: lookup, order: order}
}

func (m *HeaderMapper) DateOrder() textnorm.DateOrder {
	return m.order
}

// Canonical resolves a header. Unknown headers return themselves and false.
func (m *HeaderMapper) Canonical(header string) (string, bool) {
	if field, ok := m.lookup[textnorm.Header(header)]; ok {
		return field, true
	}
	return header, false
}

// Unrecognized lists the headers that match no canonical field, in sheet order.
func (m *HeaderMapper) Unrecognized(header []string) []string {
	out := []string{}
	for _, h := range header {
		if strings.TrimSpace(h) == "" {
			continue
		}
		if _, ok := m.Canonical(h); !ok {
			out = append(out, h)
		}
	}
	return out
}

// IsDateField reports fields whose values are parsed as dates.
func IsDateField(field string) bool {
	return field == FieldStartDate || field == FieldEndDate ||
		strings.Contains(strings.ToLower(field), "date")
}

// MappedRow is the result of mapping one raw row.
type MappedRow struct {
	Row            CanonicalRow
	Corrections    []Correction
	AmbiguousDates []Correction
}

// MapRow applies the header mapping to one row. Blank cells become nil and
// date fields are rewritten to YYYY-MM-DD when they parse. A date that does
// not parse keeps its raw text so the user can see it.
func (m *HeaderMapper) MapRow(header []string, cells []any, rowNumber int) MappedRow {
	out := MappedRow{Row: make(CanonicalRow, len(header))}
	for i, h := range header {
		field, _ := m.Canonical(h)
		var value any
		if i < len(cells) {
			value = cells[i]
		}
		if IsBlank(value) {
			value = nil
		}

		if value != nil && IsDateField(field) {
			if d := textnorm.ParseDate(value, m.order); d != nil {
				if d.Corrected {
					out.Corrections = append(out.Corrections, Correction{
						Row:            rowNumber,
						Field:          field,
						OriginalValue:  Stringify(value),
						CorrectedValue: d.Value,
						Message:        d.Message,
					})
				}
				if d.Ambiguous {
					out.AmbiguousDates = append(out.AmbiguousDates, Correction{
						Row:            rowNumber,
						Field:          field,
						OriginalValue:  Stringify(value),
						CorrectedValue: d.Value,
						Message:        fmt.Sprintf("Ambiguous date %q read as %s (%s order)", Stringify(value), d.Value, m.order),
					})
				}
				value = d.Value
			}
		}

		if prev, exists := out.Row[field]; exists && prev != nil && value == nil {
			continue
		}
		out.Row[field] = value
	}
	return out
}

// Lookup reads a field from a row that may not have been mapped, such as a
// row posted by a client. The canonical key wins; otherwise the first key (in
// sorted order) whose header normalizes to a variant of field is used.
func (m *HeaderMapper) Lookup(row CanonicalRow, field string) any {
	if v, ok := row[field]; ok {
		return v
	}
	for _, k := range row.Keys() {
		if f, ok := m.Canonical(k); ok && f == field {
			return row[k]
		}
	}
	return nil
}

// Text is Lookup rendered as a trimmed string.
func (m *HeaderMapper) Text(row CanonicalRow, field string) string {
	return Stringify(m.Lookup(row, field))
}
