// Package period classifies spreadsheet header cells that denote a calendar
// month or a dated snapshot, and orders them.
//
// Two header shapes are recognised, both with an English three-letter month
// abbreviation (case-insensitive):
//
//	"Mar 14 - 2024"  dated snapshot
//	"Mar 2024"       calendar month
//
// A bare "Mar 14" is still a period column but has no year, so it sorts
// with the unparsable columns.
package period

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const monthAlternation = `(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)`

var (
	periodPattern = regexp.MustCompile(`(?i)^(?:` + monthAlternation + `\s+(\d+)\s*-?\s*(\d{4})?|` + monthAlternation + `\s+(\d{4}))$`)
	datedPattern  = regexp.MustCompile(`(?i)^` + monthAlternation + `\s+(\d+)\s*-\s*(\d{4})$`)
	monthPattern  = regexp.MustCompile(`(?i)^` + monthAlternation + `\s+(\d{4})$`)
)

var months = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

// CurrentAlias is the header token revenue sheets use for the running month.
const CurrentAlias = "current"

// SortKey orders period columns chronologically.
type SortKey struct {
	Year  int
	Month int
	Day   int
}

// Unknown is the key given to header text that cannot be parsed. It sorts
// after every real date.
var Unknown = SortKey{Year: 9999, Month: 12, Day: 31}

// Less reports whether k sorts before other.
func (k SortKey) Less(other SortKey) bool {
	if k.Year != other.Year {
		return k.Year < other.Year
	}
	if k.Month != other.Month {
		return k.Month < other.Month
	}
	return k.Day < other.Day
}

// IsUnknown reports whether k is the sort-last sentinel.
func (k SortKey) IsUnknown() bool {
	return k == Unknown
}

// IsPeriodColumn reports whether a header cell denotes a calendar period.
func IsPeriodColumn(cell string) bool {
	text := strings.TrimSpace(cell)
	if text == "" {
		return false
	}
	return periodPattern.MatchString(text)
}

// NormalizeKey is the lookup form of a period header: trimmed, lower-cased,
// interior whitespace collapsed. Two period columns are the same column iff
// their keys are equal.
func NormalizeKey(cell string) string {
	return strings.Join(strings.Fields(strings.ToLower(cell)), " ")
}

// SortKeyOf parses a period header for ordering. Text that fits neither
// shape yields Unknown.
func SortKeyOf(cell string) SortKey {
	text := strings.TrimSpace(cell)

	if m := datedPattern.FindStringSubmatch(text); m != nil {
		day, dayErr := strconv.Atoi(m[2])
		year, yearErr := strconv.Atoi(m[3])
		if dayErr == nil && yearErr == nil {
			return SortKey{Year: year, Month: months[strings.ToLower(m[1])], Day: day}
		}
		return Unknown
	}

	if m := monthPattern.FindStringSubmatch(text); m != nil {
		if year, err := strconv.Atoi(m[2]); err == nil {
			return SortKey{Year: year, Month: months[strings.ToLower(m[1])], Day: 1}
		}
	}

	return Unknown
}

// IsCurrentAlias reports whether a header cell is the literal "Current" column.
func IsCurrentAlias(cell string) bool {
	return strings.EqualFold(strings.TrimSpace(cell), CurrentAlias)
}

// YearMonth is a calendar month bucket.
type YearMonth struct {
	Year  int
	Month time.Month
}

// MonthOf returns the UTC calendar month containing t.
func MonthOf(t time.Time) YearMonth {
	u := t.UTC()
	return YearMonth{Year: u.Year(), Month: u.Month()}
}

// AddMonths shifts the bucket by n months, wrapping year boundaries.
func (ym YearMonth) AddMonths(n int) YearMonth {
	idx := ym.Year*12 + int(ym.Month) - 1 + n
	year := idx / 12
	month := idx % 12
	if month < 0 {
		month += 12
		year--
	}
	return YearMonth{Year: year, Month: time.Month(month + 1)}
}

// Bucket maps a dated header cell to its calendar month. "Current" is not
// handled here; callers resolve it against the invocation time.
func Bucket(cell string) (YearMonth, bool) {
	if !IsPeriodColumn(cell) {
		return YearMonth{}, false
	}
	key := SortKeyOf(cell)
	if key.IsUnknown() || key.Month < 1 || key.Month > 12 {
		return YearMonth{}, false
	}
	return YearMonth{Year: key.Year, Month: time.Month(key.Month)}, true
}

// MonthColumn parses a "Mon YYYY" header. Dated snapshots do not match.
func MonthColumn(cell string) (YearMonth, bool) {
	m := monthPattern.FindStringSubmatch(strings.TrimSpace(cell))
	if m == nil {
		return YearMonth{}, false
	}
	year, err := strconv.Atoi(m[2])
	if err != nil {
		return YearMonth{}, false
	}
	return YearMonth{Year: year, Month: time.Month(months[strings.ToLower(m[1])])}, true
}

// SnapshotDate parses a "Mon D - YYYY" header as a UTC date. Impossible
// days such as "Feb 30 - 2024" are rejected.
func SnapshotDate(cell string) (time.Time, bool) {
	m := datedPattern.FindStringSubmatch(strings.TrimSpace(cell))
	if m == nil {
		return time.Time{}, false
	}
	day, dayErr := strconv.Atoi(m[2])
	year, yearErr := strconv.Atoi(m[3])
	if dayErr != nil || yearErr != nil {
		return time.Time{}, false
	}
	month := time.Month(months[strings.ToLower(m[1])])
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || t.Month() != month {
		return time.Time{}, false
	}
	return t, true
}

// Start is midnight UTC on the first day of the month.
func (ym YearMonth) Start() time.Time {
	return time.Date(ym.Year, ym.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End is midnight UTC on the last day of the month.
func (ym YearMonth) End() time.Time {
	return ym.Start().AddDate(0, 1, -1)
}

// Before reports whether ym is an earlier month than other.
func (ym YearMonth) Before(other YearMonth) bool {
	if ym.Year != other.Year {
		return ym.Year < other.Year
	}
	return ym.Month < other.Month
}

func (ym YearMonth) String() string {
	return ym.Start().Format("Jan 2006")
}
