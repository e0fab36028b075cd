package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/poiesic/docsift/ai"
)

// MockAnswerer is a test double for ai.Answerer.
// It allows custom behavior injection via function fields.
type MockAnswerer struct {
	// AnswerFunc is called by Answer if set.
	// If nil, echoes the question and source IDs.
	AnswerFunc func(ctx context.Context, question string, sources []ai.Source) (string, error)

	mu          sync.Mutex
	callCount   int
	lastSources []ai.Source
}

var _ ai.Answerer = (*MockAnswerer)(nil)

// NewMockAnswerer creates a mock answerer with default echo behavior.
// Returns the concrete type to allow test assertions.
func NewMockAnswerer() *MockAnswerer {
	return &MockAnswerer{}
}

// Answer records the call and returns AnswerFunc's result or an echo.
func (m *MockAnswerer) Answer(ctx context.Context, question string, sources []ai.Source) (string, error) {
	m.mu.Lock()
	m.callCount++
	m.lastSources = append([]ai.Source(nil), sources...)
	fn := m.AnswerFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, question, sources)
	}
	if len(sources) == 0 {
		return "", ai.ErrNoSources
	}

	ids := make([]string, 0, len(sources))
	for _, s := range sources {
		ids = append(ids, s.SourceID)
	}
	return question + " <- " + strings.Join(ids, ", "), nil
}

// CallCount returns the number of times Answer was called.
func (m *MockAnswerer) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// LastSources returns the sources of the most recent call.
func (m *MockAnswerer) LastSources() []ai.Source {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSources
}

// Reset clears the call count and custom functions.
func (m *MockAnswerer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.lastSources = nil
	m.AnswerFunc = nil
}
