package search

import "fmt"

// Weights are the constants of the linear scoring model. Every signal is
// additive; a zero weight disables its signal.
type Weights struct {
	// ExactPerRune is added per rune of a query term found verbatim among
	// the filename tokens.
	ExactPerRune float64

	// FuzzyThreshold is the minimum similarity, 1 - distance/maxLen, for a
	// near match. FuzzyMaxLenDiff bounds the rune length difference of the
	// compared tokens. A near match adds FuzzyPerRune × similarity × runes.
	FuzzyThreshold  float64
	FuzzyMaxLenDiff int
	FuzzyPerRune    float64

	// Substring is added once per query term that contains, or is contained
	// in, a filename token. Both must have at least SubstringMinLen runes.
	Substring       float64
	SubstringMinLen int

	Keyword   float64 // per indexed keyword present in the raw query
	Overlap   float64 // per token shared by query and filename
	DocType   float64 // per document-type phrase in both query and filename
	FactBoost float64 // per drafter or department fact named in the query
}

// DefaultWeights returns the tuned defaults.
func DefaultWeights() Weights {
	return Weights{
		ExactPerRune:    2.0,
		FuzzyThreshold:  0.8,
		FuzzyMaxLenDiff: 2,
		FuzzyPerRune:    1.0,
		Substring:       1.5,
		SubstringMinLen: 3,
		Keyword:         1.0,
		Overlap:         0.5,
		DocType:         3.0,
		FactBoost:       2.0,
	}
}

// Validate reports negative weights and thresholds outside (0, 1].
func (w Weights) Validate() error {
	named := map[string]float64{
		"exact_per_rune": w.ExactPerRune,
		"fuzzy_per_rune": w.FuzzyPerRune,
		"substring":      w.Substring,
		"keyword":        w.Keyword,
		"overlap":        w.Overlap,
		"doc_type":       w.DocType,
		"fact_boost":     w.FactBoost,
	}
	for name, v := range named {
		if v < 0 {
			return fmt.Errorf("%w: %s is negative", ErrInvalidWeights, name)
		}
	}
	if w.FuzzyThreshold <= 0 || w.FuzzyThreshold > 1 {
		return fmt.Errorf("%w: fuzzy threshold %v outside (0, 1]", ErrInvalidWeights, w.FuzzyThreshold)
	}
	if w.FuzzyMaxLenDiff < 0 || w.SubstringMinLen < 1 {
		return fmt.Errorf("%w: length bounds", ErrInvalidWeights)
	}
	return nil
}

// DefaultDocTypePhrases are the document-type phrases recognized by the
// DocType signal. Phrases are compared with delimiters removed, so
// "technical review" also matches "technical_review" and "기술 검토서"
// matches "기술검토서".
var DefaultDocTypePhrases = []string{
	"technical review",
	"repair case",
	"purchase request",
	"purchase order",
	"meeting minutes",
	"inspection report",
	"business trip report",
	"기술 검토서",
	"수리 사례",
	"구매 요청서",
	"발주서",
	"견적서",
	"회의록",
	"출장 보고서",
	"점검 보고서",
	"결과 보고서",
}
