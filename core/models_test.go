package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "simple path", content: "2020/report.pdf"},
		{name: "empty string", content: ""},
		{name: "hangul path", content: "recent/2021-03-04_기술검토서.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, IDFromContent(tt.content), IDFromContent(tt.content))
		})
	}

	assert.NotEqual(t, IDFromContent("a.pdf"), IDFromContent("b.pdf"))
}

func TestBusinessFacts_Merge(t *testing.T) {
	t.Run("populates empty field", func(t *testing.T) {
		var facts BusinessFacts
		changed := facts.Merge(FactDrafter, Fact{Value: "김철수", Confidence: 60, Rule: "drafter-label"})
		assert.True(t, changed)
		assert.Equal(t, "김철수", facts.Drafter.Value)
	})

	t.Run("lower confidence never overwrites", func(t *testing.T) {
		var facts BusinessFacts
		facts.Merge(FactAmount, Fact{Value: "1,000,000", Confidence: 90})
		changed := facts.Merge(FactAmount, Fact{Value: "500", Confidence: 40})
		assert.False(t, changed)
		assert.Equal(t, "1,000,000", facts.Amount.Value)
	})

	t.Run("equal confidence keeps first", func(t *testing.T) {
		var facts BusinessFacts
		facts.Merge(FactDepartment, Fact{Value: "방송기술팀", Confidence: 70})
		assert.False(t, facts.Merge(FactDepartment, Fact{Value: "총무팀", Confidence: 70}))
		assert.Equal(t, "방송기술팀", facts.Department.Value)
	})

	t.Run("higher confidence replaces", func(t *testing.T) {
		var facts BusinessFacts
		facts.Merge(FactDate, Fact{Value: "2020-01", Confidence: 30})
		assert.True(t, facts.Merge(FactDate, Fact{Value: "2020-01-15", Confidence: 80}))
		assert.Equal(t, "2020-01-15", facts.Date.Value)
	})

	t.Run("empty value ignored", func(t *testing.T) {
		var facts BusinessFacts
		assert.False(t, facts.Merge(FactDate, Fact{Confidence: 100}))
		assert.True(t, facts.Empty())
	})
}

func TestBusinessFacts_MergeAll(t *testing.T) {
	facts := BusinessFacts{Drafter: Fact{Value: "이영희", Confidence: 90}}
	other := BusinessFacts{
		Drafter: Fact{Value: "박민수", Confidence: 50},
		Amount:  Fact{Value: "2,500,000", Confidence: 80},
	}

	assert.True(t, facts.MergeAll(other))
	assert.Equal(t, "이영희", facts.Drafter.Value)
	assert.Equal(t, "2,500,000", facts.Amount.Value)
	assert.False(t, facts.MergeAll(other))
}

func TestExtractionResult_Success(t *testing.T) {
	assert.True(t, ExtractionResult{Text: "x", Method: MethodDirect, Reason: ReasonOK}.Success())

	failed := FailedExtraction(ReasonEngineUnavailable)
	assert.False(t, failed.Success())
	assert.Empty(t, failed.Text)
	assert.Equal(t, MethodNone, failed.Method)
}

func TestDocumentRecord_Clone(t *testing.T) {
	original := &DocumentRecord{Path: "a.pdf", Keywords: []string{"alpha", "beta"}}
	clone := original.Clone()
	clone.Keywords[0] = "changed"

	assert.Equal(t, "alpha", original.Keywords[0])
	assert.Equal(t, original.ID(), clone.ID())
}
