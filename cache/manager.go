package cache

import (
	"time"

	"github.com/poiesic/docsift/core"
	"github.com/poiesic/docsift/query"
)

// Names of the managed caches, as reported in Stats and metrics.
const (
	MetadataCache = "metadata"
	TextCache     = "text"
	AnswerCache   = "answer"
)

// Limits bounds one cache.
type Limits struct {
	MaxEntries int
	TTL        time.Duration
}

// Config bounds every managed cache.
type Config struct {
	Metadata Limits
	Text     Limits
	Answers  Limits
}

// DefaultConfig returns the default cache bounds.
func DefaultConfig() Config {
	return Config{
		Metadata: Limits{MaxEntries: 10000, TTL: 24 * time.Hour},
		Text:     Limits{MaxEntries: 200, TTL: time.Hour},
		Answers:  Limits{MaxEntries: 500, TTL: 30 * time.Minute},
	}
}

// Manager owns the three engine caches. Each cache has its own lock; no
// operation spans more than one.
type Manager struct {
	Metadata *Cache[string, core.DocumentFeatures]
	Text     *Cache[string, core.ExtractionResult]
	Answers  *Cache[query.Key, core.Answer]
}

// NewManager builds the three caches. opts apply to every cache and are
// applied after the per-cache TTL.
func NewManager(cfg Config, opts ...Option) (*Manager, error) {
	metadata, err := New[string, core.DocumentFeatures](MetadataCache, cfg.Metadata.MaxEntries,
		append([]Option{WithTTL(cfg.Metadata.TTL)}, opts...)...)
	if err != nil {
		return nil, err
	}
	text, err := New[string, core.ExtractionResult](TextCache, cfg.Text.MaxEntries,
		append([]Option{WithTTL(cfg.Text.TTL)}, opts...)...)
	if err != nil {
		return nil, err
	}
	answers, err := New[query.Key, core.Answer](AnswerCache, cfg.Answers.MaxEntries,
		append([]Option{WithTTL(cfg.Answers.TTL)}, opts...)...)
	if err != nil {
		return nil, err
	}
	return &Manager{Metadata: metadata, Text: text, Answers: answers}, nil
}

// ResetForRebuild drops derived state after a corpus rebuild. Extracted
// text and answers may refer to documents that changed.
func (m *Manager) ResetForRebuild() {
	m.Metadata.Clear()
	m.Text.Clear()
	m.Answers.Clear()
}

// Stats reports every cache in a fixed order.
func (m *Manager) Stats() []Stats {
	return []Stats{m.Metadata.Stats(), m.Text.Stats(), m.Answers.Stats()}
}
