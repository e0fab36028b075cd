package index

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/poiesic/docsift/core"
	"github.com/poiesic/docsift/extract"
)

// FactRule extracts one business fact from document text. Rules are
// evaluated in table order and the first match per field wins.
type FactRule struct {
	Field      core.FactField
	Name       string
	Pattern    *regexp.Regexp
	Confidence int
	// Format builds the fact value from the submatches. When nil, the
	// trimmed first group is used.
	Format func(groups []string) string
}

func (r FactRule) apply(text string) (core.Fact, bool) {
	groups := r.Pattern.FindStringSubmatch(text)
	if groups == nil {
		return core.Fact{}, false
	}
	var value string
	if r.Format != nil {
		value = r.Format(groups)
	} else if len(groups) > 1 {
		value = strings.TrimSpace(groups[1])
	}
	if value == "" {
		return core.Fact{}, false
	}
	return core.Fact{Value: value, Confidence: r.Confidence, Rule: r.Name}, true
}

func formatDate(groups []string) string {
	y, err := strconv.Atoi(groups[1])
	if err != nil {
		return ""
	}
	m, _ := strconv.Atoi(groups[2])
	d, _ := strconv.Atoi(groups[3])
	if y == 0 || m == 0 || core.ValidateDate(y, m) != nil || d < 1 || d > 31 {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", y, m, d)
}

func formatAmount(groups []string) string {
	amount := strings.Trim(groups[1], ",")
	if amount == "" {
		return ""
	}
	if len(groups) > 2 && strings.EqualFold(groups[2], "usd") {
		return amount + " USD"
	}
	return amount + "원"
}

// DefaultFactRules is the rule table used by the indexer.
var DefaultFactRules = []FactRule{
	// date
	{
		Field:      core.FactDate,
		Name:       "labeled-date",
		Pattern:    regexp.MustCompile(`(?i)(?:작성일|기안일|시행일자|일자|날짜|date)\s*[:：]?\s*(\d{4})\s*[-./년]\s*(\d{1,2})\s*[-./월]\s*(\d{1,2})`),
		Confidence: 90,
		Format:     formatDate,
	},
	{
		Field:      core.FactDate,
		Name:       "korean-date",
		Pattern:    regexp.MustCompile(`(\d{4})\s*년\s*(\d{1,2})\s*월\s*(\d{1,2})\s*일`),
		Confidence: 70,
		Format:     formatDate,
	},
	{
		Field:      core.FactDate,
		Name:       "numeric-date",
		Pattern:    regexp.MustCompile(`(?:^|\D)(\d{4})[-./](\d{1,2})[-./](\d{1,2})(?:\D|$)`),
		Confidence: 50,
		Format:     formatDate,
	},

	// amount
	{
		Field:      core.FactAmount,
		Name:       "labeled-amount",
		Pattern:    regexp.MustCompile(`(?i)(?:합계\s*금액|총\s*금액|총액|합계|금액|total|amount)\s*[:：]?\s*(?:금\s*)?(?:₩\s*)?(\d[\d,]*)\s*(원|krw|usd)?`),
		Confidence: 90,
		Format:     formatAmount,
	},
	{
		Field:      core.FactAmount,
		Name:       "won-amount",
		Pattern:    regexp.MustCompile(`(\d{1,3}(?:,\d{3})+)\s*(원)`),
		Confidence: 60,
		Format:     formatAmount,
	},
	{
		Field:      core.FactAmount,
		Name:       "won-sign-amount",
		Pattern:    regexp.MustCompile(`₩\s*(\d[\d,]*)`),
		Confidence: 60,
		Format:     formatAmount,
	},

	// department
	{
		Field:      core.FactDepartment,
		Name:       "labeled-department",
		Pattern:    regexp.MustCompile(`(?i)(?:부서명|부서|소속|department|dept\.?)\s*[:：]\s*([^\n\f,;]+)`),
		Confidence: 90,
	},
	{
		Field:      core.FactDepartment,
		Name:       "department-suffix",
		Pattern:    regexp.MustCompile(`([가-힣]{2,10}(?:팀|본부|센터|연구소))`),
		Confidence: 50,
	},

	// drafter
	{
		Field:      core.FactDrafter,
		Name:       "labeled-drafter",
		Pattern:    regexp.MustCompile(`(?:기안자|작성자|담당자|(?i:drafter|author|prepared by))\s*[:：]?\s*([가-힣]{2,4}|[A-Z][a-z]+(?: [A-Z][a-z]+)?)`),
		Confidence: 90,
	},
	{
		Field:      core.FactDrafter,
		Name:       "signoff-drafter",
		Pattern:    regexp.MustCompile(`([가-힣]{2,4})\s*(?:드림|올림)`),
		Confidence: 50,
	},
}

// ExtractFacts applies rules to text in order. The first matching rule for a
// field supplies that field; later rules for the same field are skipped.
func ExtractFacts(text string, rules []FactRule) core.BusinessFacts {
	var facts core.BusinessFacts
	for _, rule := range rules {
		if facts.Get(rule.Field).IsSet() {
			continue
		}
		if fact, ok := rule.apply(text); ok {
			facts.Merge(rule.Field, fact)
		}
	}
	return facts
}

// firstPages returns the first n pages of extracted text.
func firstPages(text string, n int) string {
	if n <= 0 {
		return text
	}
	pages := strings.SplitN(text, extract.PageSeparator, n+1)
	if len(pages) > n {
		pages = pages[:n]
	}
	return strings.Join(pages, extract.PageSeparator)
}
