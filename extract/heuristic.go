package extract

import (
	"strings"
	"unicode/utf8"
)

// LayerDecision is the outcome of the text-layer heuristic.
type LayerDecision struct {
	HasText bool
	Sampled int // runes of trimmed text found in the sampled pages
	Pages   int // pages actually sampled
	Reason  string
}

// Decision reasons, logged alongside the sampled character count.
const (
	LayerSufficient = "text layer above threshold"
	LayerSparse     = "text layer below threshold"
	LayerEmpty      = "no pages with text"
)

// HasTextLayer decides whether pages carry a usable text layer. It sums the
// trimmed rune count of the first samplePages pages; below minTextLength the
// document is treated as image-only. A samplePages of zero or less samples
// every page.
func HasTextLayer(pages []string, samplePages, minTextLength int) LayerDecision {
	n := len(pages)
	if samplePages > 0 && samplePages < n {
		n = samplePages
	}

	d := LayerDecision{Pages: n}
	for _, p := range pages[:n] {
		d.Sampled += utf8.RuneCountInString(strings.TrimSpace(p))
	}

	switch {
	case d.Sampled == 0:
		d.Reason = LayerEmpty
	case d.Sampled < minTextLength:
		d.Reason = LayerSparse
	default:
		d.HasText = true
		d.Reason = LayerSufficient
	}
	return d
}
