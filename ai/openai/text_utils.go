package openai

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/docsift/ai"
)

// scrubString collapses whitespace runs, including page breaks, and trims
// the result.
func scrubString(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// fitSources orders sources by relevance and cuts their content so the
// total stays within budget runes. Sources left with no room are dropped.
func fitSources(sources []ai.Source, budget int) []ai.Source {
	ordered := slices.Clone(sources)
	slices.SortStableFunc(ordered, func(a, b ai.Source) int {
		switch {
		case a.Relevance > b.Relevance:
			return -1
		case a.Relevance < b.Relevance:
			return 1
		}
		return 0
	})

	fitted := make([]ai.Source, 0, len(ordered))
	for _, s := range ordered {
		if budget <= 0 {
			break
		}
		s.Content = scrubString(s.Content)
		if n := utf8.RuneCountInString(s.Content); n > budget {
			s.Content = string([]rune(s.Content)[:budget])
		}
		budget -= utf8.RuneCountInString(s.Content)
		fitted = append(fitted, s)
	}
	return fitted
}
