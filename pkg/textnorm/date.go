package textnorm

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// DateOrder decides how an all-numeric D-M-Y / M-D-Y value is read when both
// leading groups could be a month.
type DateOrder int

const (
	MonthFirst DateOrder = iota
	DayFirst
)

// ParseDateOrder accepts "mdy" or "dmy".
func ParseDateOrder(s string) (DateOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mdy":
		return MonthFirst, nil
	case "dmy":
		return DayFirst, nil
	default:
		return MonthFirst, fmt.Errorf("invalid date order %q (expected mdy|dmy)", s)
	}
}

func (o DateOrder) String() string {
	if o == DayFirst {
		return "dmy"
	}
	return "mdy"
}

var (
	ocTypoRe       = regexp.MustCompile(`(?i)\b0ct(ober)?\b`)
	dayMonthYearRe = regexp.MustCompile(`(?i)\b(\d{1,2})\s+([a-z]+)\s+(\d{4})\b`)
	monthDayYearRe = regexp.MustCompile(`(?i)\b([a-z]+)\s+(\d{1,2}),?\s+(\d{4})\b`)
	isoRe          = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	numericDMYRe   = regexp.MustCompile(`^(\d{1,2})-(\d{1,2})-(\d{4})$`)
	serialRe       = regexp.MustCompile(`^\d{5}(\.\d+)?$`)
	timeSuffixRe   = regexp.MustCompile(`[ T]\d{1,2}:\d{2}(:\d{2}(\.\d+)?)?(Z|[+-]\d{2}:?\d{2})?$`)
)

var monthNames = map[string]int{
	"jan": 1, "january": 1,
	"feb": 2, "february": 2,
	"mar": 3, "march": 3,
	"apr": 4, "april": 4,
	"may": 5,
	"jun": 6, "june": 6,
	"jul": 7, "july": 7,
	"aug": 8, "august": 8,
	"sep": 9, "september": 9,
	"oct": 10, "october": 10,
	"nov": 11, "november": 11,
	"dec": 12, "december": 12,
}

// Serial numbers below minExcelSerial (1927-05-18) are read as plain numbers
// such as a bare year. maxExcelSerial is 9999-12-31.
const (
	minExcelSerial = 10000
	maxExcelSerial = 2958465
)

// Date is a successfully parsed calendar date.
type Date struct {
	// Value is formatted YYYY-MM-DD.
	Value    string
	Original string
	// Corrected is set when an out-of-range day was clamped to the month end.
	Corrected bool
	// Ambiguous is set when a numeric value could be read both day-first and
	// month-first and the configured order decided.
	Ambiguous bool
	Message   string
}

// ParseDate turns a cell value into a date. time.Time values are used as is,
// numbers from 10000 and five-digit numeric strings are Excel serial dates,
// and other strings are tried as "6 Oct 2025", "Oct 6, 2025", "2025-10-06"
// (also with . or / and an optional trailing time of day) and finally
// "06/10/2025" read in the given order. Nil means the value is not a date.
func ParseDate(v any, order DateOrder) *Date {
	switch t := v.(type) {
	case nil:
		return nil
	case time.Time:
		if t.IsZero() {
			return nil
		}
		return fixDate(t.Year(), int(t.Month()), t.Day(), t.Format(time.RFC3339))
	case *time.Time:
		if t == nil {
			return nil
		}
		return ParseDate(*t, order)
	case float64:
		return fromSerial(t, strconv.FormatFloat(t, 'f', -1, 64))
	case int:
		return fromSerial(float64(t), strconv.Itoa(t))
	case int64:
		return fromSerial(float64(t), strconv.FormatInt(t, 10))
	case string:
		return parseDateString(t, order)
	default:
		return nil
	}
}

func fromSerial(serial float64, original string) *Date {
	if serial < minExcelSerial || serial > maxExcelSerial {
		return nil
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return nil
	}
	return fixDate(t.Year(), int(t.Month()), t.Day(), original)
}

func parseDateString(raw string, order DateOrder) *Date {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	if serialRe.MatchString(s) {
		f, err := strconv.ParseFloat(s, 64)
		if err == nil {
			return fromSerial(f, raw)
		}
	}

	s = ocTypoRe.ReplaceAllStringFunc(s, func(m string) string {
		return "Oct" + m[3:]
	})

	if m := dayMonthYearRe.FindStringSubmatch(s); m != nil {
		if d := textDate(m[3], m[2], m[1], raw); d != nil {
			return d
		}
	}
	if m := monthDayYearRe.FindStringSubmatch(s); m != nil {
		if d := textDate(m[3], m[1], m[2], raw); d != nil {
			return d
		}
	}

	dashed := strings.NewReplacer(".", "-", "/", "-").Replace(timeSuffixRe.ReplaceAllString(s, ""))
	if m := isoRe.FindStringSubmatch(dashed); m != nil {
		y, mo, d := atoi(m[1]), atoi(m[2]), atoi(m[3])
		if inRange(y, mo, d) {
			return fixDate(y, mo, d, raw)
		}
	}

	if m := numericDMYRe.FindStringSubmatch(dashed); m != nil {
		first, second, y := atoi(m[1]), atoi(m[2]), atoi(m[3])
		mo, d, ambiguous := orderParts(first, second, order)
		if !inRange(y, mo, d) {
			return nil
		}
		out := fixDate(y, mo, d, raw)
		out.Ambiguous = ambiguous
		return out
	}
	return nil
}

// orderParts returns (month, day). A group above 12 can only be a day; when
// neither is, the configured order wins and the result is ambiguous unless
// both groups are equal.
func orderParts(first, second int, order DateOrder) (int, int, bool) {
	switch {
	case first > 12 && second <= 12:
		return second, first, false
	case second > 12 && first <= 12:
		return first, second, false
	case first > 12 && second > 12:
		return second, first, false
	}
	ambiguous := first != second
	if order == DayFirst {
		return second, first, ambiguous
	}
	return first, second, ambiguous
}

func textDate(year, month, day, raw string) *Date {
	mo, ok := monthNames[strings.ToLower(month)]
	if !ok {
		return nil
	}
	y, d := atoi(year), atoi(day)
	if !inRange(y, mo, d) {
		return nil
	}
	return fixDate(y, mo, d, raw)
}

func inRange(y, m, d int) bool {
	return y >= 1900 && y <= 2100 && m >= 1 && m <= 12 && d >= 1 && d <= 31
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// DaysIn returns the number of days in the month, honouring leap years.
func DaysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func fixDate(y, m, d int, raw string) *Date {
	out := &Date{Original: raw}
	if last := DaysIn(y, m); d > last {
		out.Corrected = true
		out.Message = fmt.Sprintf(
			"Date corrected from %s to %s (invalid day for month)",
			ymd(y, m, d), ymd(y, m, last),
		)
		d = last
	}
	out.Value = ymd(y, m, d)
	return out
}

func ymd(y, m, d int) string {
	return fmt.Sprintf("%04d-%02d-%02d", y, m, d)
}
