package cache

import (
	"testing"
	"time"

	"github.com/poiesic/docsift/core"
	"github.com/poiesic/docsift/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_IndependentCaches(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Text = Limits{MaxEntries: 1, TTL: time.Hour}
	m, err := NewManager(cfg)
	require.NoError(t, err)

	m.Text.Put("a.pdf", core.ExtractionResult{Text: "a", Reason: core.ReasonOK})
	m.Text.Put("b.pdf", core.ExtractionResult{Text: "b", Reason: core.ReasonOK})
	m.Answers.Put(query.KeyOf("중계차 수리"), core.Answer{Text: "answer", Found: true})
	m.Metadata.Put("a.pdf", core.DocumentFeatures{Path: "a.pdf"})

	assert.Equal(t, 1, m.Text.Len())
	assert.Equal(t, 1, m.Answers.Len())
	assert.Equal(t, 1, m.Metadata.Len())

	answer, ok := m.Answers.Get(query.KeyOf("수리 중계차의"))
	require.True(t, ok, "paraphrase should hit the same slot")
	assert.Equal(t, "answer", answer.Text)

	stats := m.Stats()
	require.Len(t, stats, 3)
	assert.Equal(t, MetadataCache, stats[0].Name)
	assert.Equal(t, TextCache, stats[1].Name)
	assert.Equal(t, AnswerCache, stats[2].Name)
	assert.Equal(t, uint64(1), stats[1].Evictions)
}

func TestManager_ResetForRebuild(t *testing.T) {
	m, err := NewManager(DefaultConfig())
	require.NoError(t, err)

	m.Text.Put("a.pdf", core.ExtractionResult{Text: "a"})
	m.Answers.Put(query.KeyOf("a"), core.Answer{})
	m.Metadata.Put("a.pdf", core.DocumentFeatures{})

	m.ResetForRebuild()
	for _, s := range m.Stats() {
		assert.Equal(t, 0, s.Size, s.Name)
	}
}

func TestNewManager_InvalidLimits(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Answers.MaxEntries = 0
	_, err := NewManager(cfg)
	assert.ErrorIs(t, err, ErrInvalidCapacity)
}
