package query

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/poiesic/docsift/core"
)

// DateFilter is a hard constraint parsed from a query. Zero fields are unset.
// Month is only set together with Year.
type DateFilter struct {
	Year  int
	Month int
}

// IsZero reports whether no constraint was found.
func (f DateFilter) IsZero() bool {
	return f.Year == 0
}

// Matches reports whether a document dated year/month passes the filter.
// A document without a year never passes an active year filter.
func (f DateFilter) Matches(year, month int) bool {
	if f.Year == 0 {
		return true
	}
	if year != f.Year {
		return false
	}
	return f.Month == 0 || month == f.Month
}

var (
	yearMonthPattern   = regexp.MustCompile(`\b((?:19|20)\d{2})[-./_](\d{1,2})\b`)
	koreanYearPattern  = regexp.MustCompile(`((?:19|20)\d{2})\s*년`)
	koreanMonthPattern = regexp.MustCompile(`(?:^|[^\d])(\d{1,2})\s*월`)
	yearPattern        = regexp.MustCompile(`(?:^|[^\d])((?:19|20)\d{2})(?:[^\d]|$)`)

	// English month names only count next to the year so words like
	// "may" or "mar" elsewhere in a query never become a filter.
	monthYearPattern     = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sept|sep|oct|nov|dec)\.?,?\s+((?:19|20)\d{2})\b`)
	yearMonthNamePattern = regexp.MustCompile(`(?i)\b((?:19|20)\d{2}),?\s+(january|february|march|april|june|july|august|september|october|november|december)\b`)
)

var englishMonths = map[string]int{
	"january": 1, "jan": 1, "february": 2, "feb": 2, "march": 3, "mar": 3,
	"april": 4, "apr": 4, "may": 5, "june": 6, "jun": 6, "july": 7, "jul": 7,
	"august": 8, "aug": 8, "september": 9, "sep": 9, "sept": 9,
	"october": 10, "oct": 10, "november": 11, "nov": 11, "december": 12, "dec": 12,
}

// englishMonth returns the month named right before or after year in q.
// Abbreviations and "May" are only accepted in the "Month YYYY" order.
func englishMonth(q string, year int) int {
	for _, m := range monthYearPattern.FindAllStringSubmatch(q, -1) {
		if y, _ := strconv.Atoi(m[2]); y == year {
			return englishMonths[strings.ToLower(m[1])]
		}
	}
	for _, m := range yearMonthNamePattern.FindAllStringSubmatch(q, -1) {
		if y, _ := strconv.Atoi(m[1]); y == year {
			return englishMonths[strings.ToLower(m[2])]
		}
	}
	return 0
}

// ParseDateFilter extracts a year and optional month from q.
// Recognized forms: "2020-03", "2020.3", "2020년 3월", "2020 3월",
// "March 2020", "2020 March" and a bare "2020".
func ParseDateFilter(q string) DateFilter {
	var f DateFilter

	if m := yearMonthPattern.FindStringSubmatch(q); m != nil {
		f.Year, _ = strconv.Atoi(m[1])
		f.Month, _ = strconv.Atoi(m[2])
	} else if m := koreanYearPattern.FindStringSubmatch(q); m != nil {
		f.Year, _ = strconv.Atoi(m[1])
	} else if m := yearPattern.FindStringSubmatch(q); m != nil {
		f.Year, _ = strconv.Atoi(m[1])
	}

	if f.Year == 0 {
		return DateFilter{}
	}

	if f.Month == 0 {
		if m := koreanMonthPattern.FindStringSubmatch(q); m != nil {
			f.Month, _ = strconv.Atoi(m[1])
		} else {
			f.Month = englishMonth(q, f.Year)
		}
	}

	if core.ValidateDate(f.Year, f.Month) != nil {
		// out-of-range month: keep the year constraint only
		f.Month = 0
	}
	return f
}
