package search

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/poiesic/docsift/core"
)

// Breakdown is the contribution of each signal to a document's score.
type Breakdown struct {
	Exact     float64
	Fuzzy     float64
	Substring float64
	Keyword   float64
	Overlap   float64
	DocType   float64
	Fact      float64
}

// Total sums every signal.
func (b Breakdown) Total() float64 {
	return b.Exact + b.Fuzzy + b.Substring + b.Keyword + b.Overlap + b.DocType + b.Fact
}

type scorer struct {
	weights Weights
	phrases []string // compacted document-type phrases
}

func newScorer(w Weights, phrases []string) scorer {
	compacted := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if c := compact(p); c != "" {
			compacted = append(compacted, c)
		}
	}
	return scorer{weights: w, phrases: compacted}
}

// score evaluates every soft signal of f against q. Hard filters are the
// caller's job.
func (s scorer) score(q parsedQuery, f core.DocumentFeatures, facts core.BusinessFacts) Breakdown {
	var b Breakdown
	w := s.weights

	tokenSet := make(map[string]bool, len(f.Tokens))
	for _, tok := range f.Tokens {
		tokenSet[tok] = true
	}

	for _, term := range q.terms {
		n := utf8.RuneCountInString(term)
		if tokenSet[term] {
			b.Exact += w.ExactPerRune * float64(n)
			continue
		}
		if sim := s.bestSimilarity(term, f.Tokens); sim > 0 {
			b.Fuzzy += w.FuzzyPerRune * sim * float64(n)
		}
		if s.containsEither(term, f.Tokens) {
			b.Substring += w.Substring
		}
	}

	for _, kw := range f.Keywords {
		if strings.Contains(q.lower, kw) {
			b.Keyword += w.Keyword
		}
	}

	for _, tok := range q.tokens {
		if tokenSet[tok] {
			b.Overlap += w.Overlap
		}
	}

	name := strings.ReplaceAll(f.Normalized, " ", "")
	for _, phrase := range s.phrases {
		if strings.Contains(q.compact, phrase) && strings.Contains(name, phrase) {
			b.DocType += w.DocType
		}
	}

	for _, fact := range []core.Fact{facts.Drafter, facts.Department} {
		v := compact(fact.Value)
		if utf8.RuneCountInString(v) >= 2 && strings.Contains(q.compact, v) {
			b.Fact += w.FactBoost
		}
	}
	return b
}

// bestSimilarity returns the highest similarity of term to a token of
// comparable length, or 0 when none reaches the threshold.
func (s scorer) bestSimilarity(term string, tokens []string) float64 {
	n := utf8.RuneCountInString(term)
	best := 0.0
	for _, tok := range tokens {
		m := utf8.RuneCountInString(tok)
		if abs(n-m) > s.weights.FuzzyMaxLenDiff {
			continue
		}
		longest := max(n, m)
		sim := 1 - float64(levenshtein.ComputeDistance(term, tok))/float64(longest)
		if sim >= s.weights.FuzzyThreshold && sim > best {
			best = sim
		}
	}
	return best
}

func (s scorer) containsEither(term string, tokens []string) bool {
	if utf8.RuneCountInString(term) < s.weights.SubstringMinLen {
		return false
	}
	for _, tok := range tokens {
		if utf8.RuneCountInString(tok) < s.weights.SubstringMinLen {
			continue
		}
		if strings.Contains(tok, term) || strings.Contains(term, tok) {
			return true
		}
	}
	return false
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
