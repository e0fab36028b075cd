package ai

import (
	"context"
	"strings"
	"unicode/utf8"
)

// DefaultExcerptRunes bounds the text returned by the noop answerer.
const DefaultExcerptRunes = 1000

type noopAnswerer struct {
	maxRunes int
}

// NewNoopAnswerer returns an Answerer that needs no model: it answers with
// the opening text of the most relevant source, whitespace collapsed and
// cut to DefaultExcerptRunes runes.
func NewNoopAnswerer() Answerer {
	return &noopAnswerer{maxRunes: DefaultExcerptRunes}
}

func (n *noopAnswerer) Answer(_ context.Context, _ string, sources []Source) (string, error) {
	if len(sources) == 0 {
		return "", ErrNoSources
	}
	best := sources[0]
	for _, s := range sources[1:] {
		if s.Relevance > best.Relevance {
			best = s
		}
	}
	text := strings.Join(strings.Fields(best.Content), " ")
	if utf8.RuneCountInString(text) > n.maxRunes {
		text = string([]rune(text)[:n.maxRunes])
	}
	return text, nil
}
