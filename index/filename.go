package index

import (
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/poiesic/docsift/core"
	"github.com/poiesic/docsift/query"
)

// FilenameFields are the metadata derived from a document's file name.
type FilenameFields struct {
	DateToken string
	Year      int
	Month     int
	Title     string
	Keywords  []string
}

type datePattern struct {
	re       *regexp.Regexp
	hasMonth bool
	hasDay   bool
}

// datePatterns are tried in order; the first whose values pass the range
// checks supplies the date token. Each captures the token itself as group 1.
var datePatterns = []datePattern{
	{re: regexp.MustCompile(`(?:^|\D)((\d{4})[-._](\d{1,2})[-._](\d{1,2}))(?:\D|$)`), hasMonth: true, hasDay: true},
	{re: regexp.MustCompile(`(?:^|\D)((\d{4})(\d{2})(\d{2}))(?:\D|$)`), hasMonth: true, hasDay: true},
	{re: regexp.MustCompile(`(?:^|\D)((\d{4})[-._](\d{1,2}))(?:\D|$)`), hasMonth: true},
	{re: regexp.MustCompile(`^((\d{4}))(?:\D|$)`)},
}

// isFilenameDelimiter reports the runes that separate filename words.
func isFilenameDelimiter(r rune) bool {
	switch r {
	case '_', '-', '.', '(', ')', '[', ']':
		return true
	}
	return unicode.IsSpace(r)
}

// ParseFilename derives the date, title and keywords of a file name.
func ParseFilename(name string) FilenameFields {
	stem := strings.TrimSuffix(name, filepath.Ext(name))

	var fields FilenameFields
	rest := stem
	if token, year, month, start, end, ok := findDate(stem); ok {
		fields.DateToken = token
		fields.Year = year
		fields.Month = month
		rest = stem[:start] + " " + stem[end:]
	}

	fields.Title = strings.Join(strings.FieldsFunc(rest, func(r rune) bool {
		return r == '_' || unicode.IsSpace(r)
	}), " ")
	fields.Title = strings.Trim(fields.Title, " -.")
	if fields.Title == "" {
		fields.Title = stem
	}

	fields.Keywords = keywords(rest)
	return fields
}

// findDate returns the first valid date token in s with its byte offsets.
func findDate(s string) (token string, year, month, start, end int, ok bool) {
	for _, p := range datePatterns {
		for _, loc := range p.re.FindAllStringSubmatchIndex(s, -1) {
			y, _ := strconv.Atoi(s[loc[4]:loc[5]])
			m, d := 0, 0
			if p.hasMonth {
				m, _ = strconv.Atoi(s[loc[6]:loc[7]])
			}
			if p.hasDay {
				d, _ = strconv.Atoi(s[loc[8]:loc[9]])
			}
			if y < core.MinYear || y > core.MaxYear {
				continue
			}
			if p.hasMonth && (m < 1 || m > 12) {
				continue
			}
			if p.hasDay && (d < 1 || d > 31) {
				continue
			}
			return s[loc[2]:loc[3]], y, m, loc[2], loc[3], true
		}
	}
	return "", 0, 0, 0, 0, false
}

// keywords splits s on filename delimiters and returns the sorted, unique,
// lowercased words of at least query.MinTermLength runes that are not
// stopwords.
func keywords(s string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, w := range strings.FieldsFunc(strings.ToLower(s), isFilenameDelimiter) {
		if utf8.RuneCountInString(w) < query.MinTermLength || query.IsStopWord(w) || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}
