package textnorm

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	eightDigitsRe = regexp.MustCompile(`^(\d{4})(\d{4})$`)
	fyPrefixRe    = regexp.MustCompile(`^fy\s*`)
	fySepRe       = regexp.MustCompile(`[\s\-]+`)
	slashRunRe    = regexp.MustCompile(`/+`)
)

// FinancialYear is the outcome of normalizing a financial-year label.
type FinancialYear struct {
	Normalized string
	Original   string
	Corrected  bool
	Message    string
}

// NormalizeFinancialYear reduces "FY 2013-2014", "fy2013/2014", "2013 / 2014"
// and "20132014" to "2013/2014". Splitting a concatenated pair of consecutive
// years is the only rewrite reported as a correction.
func NormalizeFinancialYear(s string) FinancialYear {
	out := FinancialYear{Original: s}
	v := strings.ToLower(String(s))
	if v == "" {
		return out
	}

	if m := eightDigitsRe.FindStringSubmatch(v); m != nil {
		y1, _ := strconv.Atoi(m[1])
		y2, _ := strconv.Atoi(m[2])
		if y2 == y1+1 && y1 >= 1900 && y1 <= 2100 && y2 >= 1900 && y2 <= 2100 {
			v = m[1] + "/" + m[2]
			out.Corrected = true
		}
	}

	v = fyPrefixRe.ReplaceAllString(v, "")
	v = fySepRe.ReplaceAllString(v, "/")
	v = slashRunRe.ReplaceAllString(v, "/")
	v = strings.Trim(v, "/")
	out.Normalized = v

	if out.Corrected {
		out.Message = fmt.Sprintf("Financial year corrected from %q to %q (concatenated years split)", s, v)
	}
	return out
}

// FinancialYearKey is NormalizeFinancialYear(s).Normalized.
func FinancialYearKey(s string) string {
	return NormalizeFinancialYear(s).Normalized
}
