package search

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/docsift/cache"
	"github.com/poiesic/docsift/core"
	"github.com/poiesic/docsift/index"
)

// Catalog supplies the documents to rank. *index.Indexer satisfies it.
type Catalog interface {
	// Current returns the live index, or nil before the first build.
	Current() *index.Index
	// Facts returns the business facts known for path.
	Facts(path string) (core.BusinessFacts, bool)
}

// Scored is one ranked document.
type Scored struct {
	Record  *core.DocumentRecord
	Score   float64
	Signals Breakdown
}

// Selector ranks indexed documents against free-form queries.
type Selector struct {
	catalog  Catalog
	features *cache.Cache[string, core.DocumentFeatures]
	weights  Weights
	phrases  []string
	scorer   scorer
	logger   *slog.Logger
}

// Option configures a Selector.
type Option func(*Selector) error

// WithWeights replaces DefaultWeights.
func WithWeights(w Weights) Option {
	return func(s *Selector) error {
		if err := w.Validate(); err != nil {
			return err
		}
		s.weights = w
		return nil
	}
}

// WithDocTypePhrases replaces DefaultDocTypePhrases.
func WithDocTypePhrases(phrases ...string) Option {
	return func(s *Selector) error {
		s.phrases = slices.Clone(phrases)
		return nil
	}
}

// WithFeatureCache memoizes per-document features across queries.
func WithFeatureCache(c *cache.Cache[string, core.DocumentFeatures]) Option {
	return func(s *Selector) error {
		s.features = c
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Selector) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSelector creates a new selector.
func NewSelector(catalog Catalog, opts ...Option) (*Selector, error) {
	if catalog == nil {
		return nil, ErrCatalogRequired
	}

	s := &Selector{
		catalog: catalog,
		weights: DefaultWeights(),
		phrases: DefaultDocTypePhrases,
		logger:  slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	s.scorer = newScorer(s.weights, s.phrases)
	s.logger = s.logger.With("component", "search")
	return s, nil
}

// FindBestMatch returns the highest scoring document for q. It returns
// ErrNoMatch when nothing scores above zero.
func (s *Selector) FindBestMatch(ctx context.Context, q string) (*core.DocumentRecord, error) {
	results, err := s.Rank(ctx, q, 1)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ErrNoMatch
	}
	return results[0].Record, nil
}

// Rank returns up to k documents with a positive score for q, best first.
// k <= 0 returns every positive result.
func (s *Selector) Rank(ctx context.Context, q string, k int) ([]Scored, error) {
	return s.RankWithMonitor(ctx, q, k, nil)
}

// RankWithMonitor is Rank with a monitor receiving callbacks at each stage.
//
// Documents failing the query's year or month are excluded before any soft
// signal is evaluated. Ties on score go to the shorter filename, then to
// the lexically smaller path.
func (s *Selector) RankWithMonitor(ctx context.Context, q string, k int, monitor SearchMonitor) ([]Scored, error) {
	// Use noop monitor if none provided
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	idx := s.catalog.Current()
	if idx == nil {
		return nil, index.ErrNotBuilt
	}

	pq := parseQuery(q)
	monitor.Start(q, pq.filter)

	docs := idx.Documents()
	candidates := docs[:0]
	for _, rec := range docs {
		if pq.filter.Matches(rec.Year, rec.Month) {
			candidates = append(candidates, rec)
		}
	}
	monitor.AfterFilter(len(candidates), len(docs)-len(candidates))

	results := make([]Scored, 0, len(candidates))
	for n, rec := range candidates {
		if n%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("ranking interrupted: %w", err)
			}
		}
		facts, _ := s.catalog.Facts(rec.Path)
		signals := s.scorer.score(pq, s.featuresFor(rec), facts)
		total := signals.Total()
		if total <= 0 {
			continue
		}
		result := Scored{Record: rec, Score: total, Signals: signals}
		monitor.Scored(result)
		results = append(results, result)
	}

	slices.SortFunc(results, compareScored)
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	monitor.Finish(results)

	s.logger.Debug("ranked documents",
		"query", q, "filter_year", pq.filter.Year, "filter_month", pq.filter.Month,
		"candidates", len(candidates), "hits", len(results))
	return results, nil
}

// compareScored orders by score descending, then shorter filename, then path.
func compareScored(a, b Scored) int {
	switch {
	case a.Score > b.Score:
		return -1
	case a.Score < b.Score:
		return 1
	}
	la, lb := utf8.RuneCountInString(a.Record.Filename), utf8.RuneCountInString(b.Record.Filename)
	if la != lb {
		return la - lb
	}
	return strings.Compare(a.Record.Path, b.Record.Path)
}

func (s *Selector) featuresFor(rec *core.DocumentRecord) core.DocumentFeatures {
	if s.features == nil {
		return featuresOf(rec)
	}
	if f, ok := s.features.Get(rec.Path); ok {
		return f
	}
	f := featuresOf(rec)
	s.features.Put(rec.Path, f)
	return f
}
