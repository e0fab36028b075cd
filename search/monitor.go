package search

import (
	"github.com/poiesic/docsift/query"
)

// SearchMonitor provides hooks to observe the ranking process.
// Implement this interface to trace filtering and per-document scores.
type SearchMonitor interface {
	Start(q string, filter query.DateFilter)
	AfterFilter(candidates, excluded int)
	Scored(result Scored)
	Finish(results []Scored)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ query.DateFilter) {}
func (n *noopMonitor) AfterFilter(_, _ int)                {}
func (n *noopMonitor) Scored(_ Scored)                     {}
func (n *noopMonitor) Finish(_ []Scored)                   {}
