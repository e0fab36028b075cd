package search

import (
	"path"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/docsift/core"
	"github.com/poiesic/docsift/query"
)

// featuresOf derives the query-independent scoring fields of rec.
func featuresOf(rec *core.DocumentRecord) core.DocumentFeatures {
	stem := strings.TrimSuffix(rec.Filename, path.Ext(rec.Filename))
	return core.DocumentFeatures{
		Path:       rec.Path,
		Filename:   rec.Filename,
		Normalized: query.Normalize(stem),
		Tokens:     uniqueTokens(stem),
		Keywords:   rec.Keywords,
		Year:       rec.Year,
		Month:      rec.Month,
	}
}

// uniqueTokens returns the particle-stripped tokens of s with at least
// query.MinTermLength runes, first occurrence kept.
func uniqueTokens(s string) []string {
	raw := query.Tokenize(s)
	seen := make(map[string]bool, len(raw))
	tokens := make([]string, 0, len(raw))
	for _, tok := range raw {
		tok = query.StripParticle(tok)
		if utf8.RuneCountInString(tok) < query.MinTermLength || seen[tok] {
			continue
		}
		seen[tok] = true
		tokens = append(tokens, tok)
	}
	return tokens
}

// compact lowercases s and drops every delimiter.
func compact(s string) string {
	return strings.Join(query.Tokenize(s), "")
}

// parsedQuery holds the forms of a query the signals compare against.
type parsedQuery struct {
	raw     string
	lower   string
	compact string
	terms   []string // stopword-free terms, unique
	tokens  []string // every token, unique, for overlap
	filter  query.DateFilter
}

func parseQuery(q string) parsedQuery {
	terms := query.Terms(q)
	seen := make(map[string]bool, len(terms))
	unique := terms[:0]
	for _, t := range terms {
		if !seen[t] {
			seen[t] = true
			unique = append(unique, t)
		}
	}
	return parsedQuery{
		raw:     q,
		lower:   strings.ToLower(q),
		compact: compact(q),
		terms:   unique,
		tokens:  uniqueTokens(q),
		filter:  query.ParseDateFilter(q),
	}
}
