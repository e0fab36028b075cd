// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package docsift finds the single best document in a dated corpus for a
// free-form query and hands its text to an answer generator.
//
// An Engine scans the corpus, extracts text (falling back to OCR for
// scanned documents), keeps a persisted metadata index, ranks documents
// with lexical signals under hard date filters, and caches extracted text
// and answers.
package docsift

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/poiesic/docsift/ai"
	"github.com/poiesic/docsift/ai/openai"
	"github.com/poiesic/docsift/backfill"
	"github.com/poiesic/docsift/cache"
	"github.com/poiesic/docsift/config"
	"github.com/poiesic/docsift/core"
	"github.com/poiesic/docsift/corpus"
	"github.com/poiesic/docsift/extract"
	"github.com/poiesic/docsift/index"
	"github.com/poiesic/docsift/ingestion"
	"github.com/poiesic/docsift/metrics"
	"github.com/poiesic/docsift/query"
	"github.com/poiesic/docsift/search"
	"github.com/poiesic/docsift/storage"
	"github.com/poiesic/docsift/storage/badger"
	"github.com/poiesic/docsift/storage/sqlite"
)

// Engine answers questions about a document corpus. It owns the index,
// the caches and every store, and is safe for concurrent use.
type Engine struct {
	cfg        *config.Config
	backend    *badger.Backend
	indexStore storage.IndexStore
	factStore  storage.FactStore
	caches     *cache.Manager
	extractor  *extract.Extractor
	pipeline   *ingestion.Pipeline
	indexer    *index.Indexer
	selector   *search.Selector
	answerer   ai.Answerer
	metrics    *metrics.Metrics
	progress   io.Writer
	now        func() time.Time
	logger     *slog.Logger
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	ocr      extract.OCREngine
	answerer ai.Answerer
	registry prometheus.Registerer
	progress io.Writer
	now      func() time.Time
	logger   *slog.Logger
}

// WithOCREngine replaces OCR detection with engine.
func WithOCREngine(engine extract.OCREngine) Option {
	return func(o *engineOptions) {
		o.ocr = engine
	}
}

// WithAnswerer replaces the configured answer generator.
func WithAnswerer(a ai.Answerer) Option {
	return func(o *engineOptions) {
		o.answerer = a
	}
}

// WithRegisterer registers the engine's Prometheus collectors with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *engineOptions) {
		o.registry = reg
	}
}

// WithProgress reports index build progress to w.
func WithProgress(w io.Writer) Option {
	return func(o *engineOptions) {
		o.progress = w
	}
}

// WithClock sets the time source for index and answer timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *engineOptions) {
		o.now = now
	}
}

// WithLogger sets the logger handed to every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// New wires an Engine from cfg. A nil cfg uses config.Default().
// The index is not built; call BuildIndex, or let the first query do it.
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	options := &engineOptions{
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	if cfg == nil {
		cfg = config.Default()
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var m *metrics.Metrics
	if options.registry != nil {
		m = metrics.New(options.registry)
	}

	e := &Engine{
		cfg:      cfg,
		metrics:  m,
		progress: options.progress,
		now:      options.now,
		logger:   options.logger.With("component", "engine"),
	}

	if err := e.openStores(); err != nil {
		e.Close()
		return nil, err
	}
	if err := e.wire(options); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

func (e *Engine) openStores() error {
	inMemory := e.cfg.Index.StorePath == ""
	backend, err := badger.OpenBackend(e.cfg.Index.StorePath, inMemory)
	if err != nil {
		return fmt.Errorf("opening index store: %w", err)
	}
	e.backend = backend

	e.indexStore, err = badger.NewIndexStore(backend)
	if err != nil {
		return err
	}

	switch e.cfg.Facts.Store {
	case config.FactStoreBadger:
		e.factStore, err = badger.NewFactStore(backend)
	case config.FactStoreSQLite:
		e.factStore, err = sqlite.NewFactStore(e.cfg.Facts.SQLitePath)
	default:
		e.factStore = storage.NopFactStore{}
	}
	if err != nil {
		return fmt.Errorf("opening fact store: %w", err)
	}
	return nil
}

func (e *Engine) wire(options *engineOptions) error {
	var cacheOpts []cache.Option
	if e.metrics != nil {
		cacheOpts = append(cacheOpts, cache.WithObserver(e.metrics))
	}
	caches, err := cache.NewManager(e.cfg.CacheConfig(), cacheOpts...)
	if err != nil {
		return err
	}
	e.caches = caches

	engine := options.ocr
	if engine == nil {
		engine = e.detectOCR()
	}
	e.extractor, err = extract.NewExtractor(e.cfg.ExtractConfig(),
		extract.WithOCREngine(engine),
		extract.WithMetrics(e.metrics),
		extract.WithLogger(options.logger))
	if err != nil {
		return err
	}

	e.pipeline, err = ingestion.NewPipeline(e.extractor, caches.Text,
		ingestion.WithPoolSize(e.cfg.Extraction.Workers),
		ingestion.WithTaskTimeout(e.cfg.Extraction.TaskTimeout),
		ingestion.WithMetrics(e.metrics),
		ingestion.WithLogger(options.logger))
	if err != nil {
		return err
	}

	scanner, err := corpus.NewScanner(e.cfg.Corpus.Root,
		corpus.WithSpecialDirs(e.cfg.Corpus.SpecialDirs...),
		corpus.WithLogger(options.logger))
	if err != nil {
		return err
	}

	e.indexer, err = index.NewIndexer(scanner, e.pipeline, e.indexStore,
		index.WithConfig(e.cfg.IndexConfig()),
		index.WithFactStore(e.factStore),
		index.WithCaches(caches),
		index.WithMetrics(e.metrics),
		index.WithClock(options.now),
		index.WithLogger(options.logger))
	if err != nil {
		return err
	}

	selectorOpts := []search.Option{
		search.WithWeights(e.cfg.Weights()),
		search.WithFeatureCache(caches.Metadata),
		search.WithLogger(options.logger),
	}
	if len(e.cfg.Scoring.DocTypePhrases) > 0 {
		selectorOpts = append(selectorOpts, search.WithDocTypePhrases(e.cfg.Scoring.DocTypePhrases...))
	}
	e.selector, err = search.NewSelector(e.indexer, selectorOpts...)
	if err != nil {
		return err
	}

	switch {
	case options.answerer != nil:
		e.answerer = options.answerer
	case e.cfg.AI.Enabled:
		e.answerer, err = openai.NewAnswerer(e.cfg.AnswerConfig())
		if err != nil {
			return fmt.Errorf("creating answerer: %w", err)
		}
	default:
		e.answerer = ai.NewNoopAnswerer()
	}
	return nil
}

func (e *Engine) detectOCR() extract.OCREngine {
	if e.cfg.Extraction.OCRDisabled {
		return extract.Unavailable{}
	}
	return extract.DetectOCR(context.Background(),
		extract.WithDPI(e.cfg.Extraction.OCRDPI),
		extract.WithOCRMaxPages(e.cfg.Extraction.OCRMaxPages),
		extract.WithOCRLogger(e.logger))
}

// Close releases the worker pool and closes every store.
func (e *Engine) Close() error {
	if e.pipeline != nil {
		e.pipeline.Release()
	}

	var errs []error
	if e.factStore != nil {
		if err := e.factStore.Close(); err != nil {
			e.logger.Error("error closing fact store", "err", err)
			errs = append(errs, err)
		}
	}
	if e.indexStore != nil {
		if err := e.indexStore.Close(); err != nil {
			e.logger.Error("error closing index store", "err", err)
			errs = append(errs, err)
		}
	}
	if e.backend != nil {
		if err := e.backend.Close(); err != nil {
			e.logger.Error("error closing backend storage", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// BuildIndex loads the persisted index or, when force is set or no usable
// snapshot exists, rebuilds it from the corpus.
func (e *Engine) BuildIndex(ctx context.Context, force bool) (*index.Index, error) {
	opts := index.BuildOptions{Force: force}
	if e.progress != nil {
		opts.Progress = index.NewProgressTracker(e.progress, 10)
	}
	return e.indexer.BuildIndex(ctx, opts)
}

func (e *Engine) ensureIndex(ctx context.Context) error {
	if e.indexer.Current() != nil {
		return nil
	}
	_, err := e.BuildIndex(ctx, false)
	return err
}

// Search ranks indexed documents against q and returns at most k results.
// k <= 0 returns every candidate.
func (e *Engine) Search(ctx context.Context, q string, k int) ([]search.Scored, error) {
	if err := e.ensureIndex(ctx); err != nil {
		return nil, err
	}
	return e.selector.Rank(ctx, q, k)
}

// FindBestMatch returns the single most relevant document for q.
func (e *Engine) FindBestMatch(ctx context.Context, q string) (*core.DocumentRecord, error) {
	if err := e.ensureIndex(ctx); err != nil {
		return nil, err
	}
	return e.selector.FindBestMatch(ctx, q)
}

// ExtractText returns the full text of an indexed document. A failed
// extraction is returned along with an error wrapping core.ErrExtractionFailed.
func (e *Engine) ExtractText(ctx context.Context, path string) (core.ExtractionResult, error) {
	if err := e.ensureIndex(ctx); err != nil {
		return core.ExtractionResult{}, err
	}
	file, err := e.indexer.File(path)
	if err != nil {
		return core.ExtractionResult{}, err
	}
	res := e.pipeline.ExtractText(ctx, file)
	if !res.Success() {
		return res, fmt.Errorf("%w: %s: %s", core.ErrExtractionFailed, path, res.Reason)
	}
	return res, nil
}

// Ask answers q from the most relevant document.
//
// When no document matches, the returned Answer has Found unset and the
// error wraps core.ErrNoRelevantDocument. Answers are cached by the
// normalized query until they expire or the index is rebuilt.
func (e *Engine) Ask(ctx context.Context, q string) (core.Answer, error) {
	key := query.KeyOf(q)
	if cached, ok := e.caches.Answers.Get(key); ok {
		cached.Cached = true
		cached.Source = cached.Source.Clone()
		return cached, nil
	}

	if err := e.ensureIndex(ctx); err != nil {
		return core.Answer{}, err
	}

	best, err := e.selector.Rank(ctx, q, 1)
	if err != nil {
		return core.Answer{}, err
	}
	if len(best) == 0 {
		return core.Answer{Query: q, CreatedAt: e.now()},
			fmt.Errorf("%w: %q", core.ErrNoRelevantDocument, q)
	}
	top := best[0]

	res, err := e.ExtractText(ctx, top.Record.Path)
	if err != nil {
		return core.Answer{}, err
	}

	source := top.Record.Clone()
	facts, err := e.indexer.EnsureFacts(ctx, source.Path)
	if err != nil {
		e.logger.Warn("fact extraction failed", "path", source.Path, "err", err)
	}
	source.Facts = facts

	text, err := e.answerer.Answer(ctx, q, []ai.Source{{
		Content:   res.Text,
		SourceID:  source.Path,
		Relevance: top.Score,
	}})
	if err != nil {
		return core.Answer{}, fmt.Errorf("answering %q: %w", q, err)
	}

	answer := core.Answer{
		Query:     q,
		Text:      text,
		Source:    source,
		Found:     true,
		CreatedAt: e.now(),
	}
	e.caches.Answers.Put(key, answer)
	e.logger.Debug("answered", "query", q, "source", source.Path, "score", top.Score)
	answer.Source = source.Clone()
	return answer, nil
}

// BackfillFacts extracts and stores business facts for every indexed
// document, building the index first if needed. A nil cfg uses
// backfill.DefaultConfig.
func (e *Engine) BackfillFacts(ctx context.Context, cfg *backfill.Config) (backfill.Summary, error) {
	if err := e.ensureIndex(ctx); err != nil {
		return backfill.Summary{}, err
	}
	b, err := backfill.NewBackfiller(e.indexer, cfg, e.progress)
	if err != nil {
		return backfill.Summary{}, err
	}
	return b.Run(ctx)
}

// Stats describes the engine's current state.
type Stats struct {
	Documents int
	BuiltAt   time.Time
	Source    string // index.SourceBuild or index.SourceSnapshot; empty before the first build
	OCREngine string
	Caches    []cache.Stats
}

// Stats returns a snapshot of index and cache state.
func (e *Engine) Stats() Stats {
	s := Stats{
		OCREngine: e.extractor.OCREngine().Name(),
		Caches:    e.caches.Stats(),
	}
	if idx := e.indexer.Current(); idx != nil {
		s.Documents = idx.Len()
		s.BuiltAt = idx.BuiltAt()
		s.Source = idx.Source()
	}
	return s
}

// PurgeExpired drops expired cache entries.
func (e *Engine) PurgeExpired() {
	e.caches.Metadata.PurgeExpired()
	e.caches.Text.PurgeExpired()
	e.caches.Answers.PurgeExpired()
}
