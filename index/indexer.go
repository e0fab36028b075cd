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


package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/poiesic/docsift/cache"
	"github.com/poiesic/docsift/core"
	"github.com/poiesic/docsift/corpus"
	"github.com/poiesic/docsift/metrics"
	"github.com/poiesic/docsift/storage"
)

// Scanner enumerates the corpus.
type Scanner interface {
	Scan(ctx context.Context) (*corpus.Corpus, error)
	Root() string
}

// TextSource supplies document text, one at a time or in batches.
// *ingestion.Pipeline satisfies it.
type TextSource interface {
	ExtractText(ctx context.Context, doc corpus.File) core.ExtractionResult
	ExtractBatch(ctx context.Context, docs []corpus.File) map[string]core.ExtractionResult
}

// Config tunes index builds.
type Config struct {
	BatchThreshold int // corpus size at which extraction moves to the worker pool
	BatchSize      int // documents submitted to the pool at once
	ExcerptLength  int // runes kept in DocumentRecord.Excerpt
	FactPages      int // pages of text scanned for business facts
}

// DefaultConfig returns the default build settings.
func DefaultConfig() Config {
	return Config{
		BatchThreshold: 20,
		BatchSize:      100,
		ExcerptLength:  300,
		FactPages:      2,
	}
}

// BuildOptions controls one BuildIndex call.
type BuildOptions struct {
	// Force skips the persisted snapshot and rebuilds from the corpus.
	Force bool
	// Progress receives per-document progress. May be nil.
	Progress *ProgressTracker
}

// Indexer builds, persists and serves the metadata index.
type Indexer struct {
	scanner Scanner
	texts   TextSource
	store   storage.IndexStore
	facts   storage.FactStore
	caches  *cache.Manager
	rules   []FactRule
	cfg     Config
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time

	current atomic.Pointer[Index]
	buildMu sync.Mutex

	overlayMu sync.RWMutex
	overlay   map[string]core.BusinessFacts
}

// Option configures an Indexer.
type Option func(*Indexer) error

// WithConfig sets the build settings.
func WithConfig(cfg Config) Option {
	return func(i *Indexer) error {
		if cfg.BatchThreshold < 1 {
			return fmt.Errorf("batch threshold must be positive, got %d", cfg.BatchThreshold)
		}
		if cfg.BatchSize < 1 {
			return fmt.Errorf("batch size must be positive, got %d", cfg.BatchSize)
		}
		if cfg.ExcerptLength < 0 || cfg.FactPages < 0 {
			return errors.New("excerpt length and fact pages cannot be negative")
		}
		i.cfg = cfg
		return nil
	}
}

// WithFactStore sets the structured-fact store that EnsureFacts writes
// through to. Default is storage.NopFactStore.
func WithFactStore(store storage.FactStore) Option {
	return func(i *Indexer) error {
		if store == nil {
			store = storage.NopFactStore{}
		}
		i.facts = store
		return nil
	}
}

// WithCaches sets the caches invalidated by a rebuild.
func WithCaches(m *cache.Manager) Option {
	return func(i *Indexer) error {
		i.caches = m
		return nil
	}
}

// WithFactRules replaces DefaultFactRules.
func WithFactRules(rules []FactRule) Option {
	return func(i *Indexer) error {
		i.rules = rules
		return nil
	}
}

// WithMetrics records builds and document counts.
func WithMetrics(m *metrics.Metrics) Option {
	return func(i *Indexer) error {
		i.metrics = m
		return nil
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(i *Indexer) error {
		if now == nil {
			return errors.New("clock cannot be nil")
		}
		i.now = now
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(i *Indexer) error {
		if logger == nil {
			logger = slog.Default()
		}
		i.logger = logger.With("component", "index")
		return nil
	}
}

// NewIndexer creates an Indexer. No index is available until BuildIndex
// succeeds.
func NewIndexer(scanner Scanner, texts TextSource, store storage.IndexStore, opts ...Option) (*Indexer, error) {
	if scanner == nil {
		return nil, ErrScannerRequired
	}
	if texts == nil {
		return nil, ErrPipelineRequired
	}
	if store == nil {
		return nil, ErrStoreRequired
	}

	i := &Indexer{
		scanner: scanner,
		texts:   texts,
		store:   store,
		facts:   storage.NopFactStore{},
		rules:   DefaultFactRules,
		cfg:     DefaultConfig(),
		logger:  slog.Default().With("component", "index"),
		now:     func() time.Time { return time.Now().UTC() },
		overlay: make(map[string]core.BusinessFacts),
	}
	for _, opt := range opts {
		if err := opt(i); err != nil {
			return nil, err
		}
	}
	return i, nil
}

// Current returns the live index, or nil before the first build.
func (i *Indexer) Current() *Index {
	return i.current.Load()
}

// BuildIndex scans the corpus and publishes a new index. Unless opts.Force
// is set, a readable persisted snapshot is loaded instead of extracting
// text. A corrupt or missing snapshot triggers a full build. Only a corpus
// that cannot be enumerated fails the build; per-document extraction
// failures are recorded on the document.
//
// Builds are serialized. Readers keep seeing the previous index until the
// new one is published.
func (i *Indexer) BuildIndex(ctx context.Context, opts BuildOptions) (*Index, error) {
	i.buildMu.Lock()
	defer i.buildMu.Unlock()

	c, err := i.scanner.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to scan corpus: %w", err)
	}

	if !opts.Force {
		if idx, ok := i.loadSnapshot(ctx); ok {
			return idx, nil
		}
	}

	idx, err := i.build(ctx, c, opts.Progress)
	if err != nil {
		return nil, err
	}

	if err := i.store.SaveSnapshot(ctx, idx.Snapshot()); err != nil {
		i.logger.Error("failed to persist index", "err", err)
	}
	return idx, nil
}

func (i *Indexer) loadSnapshot(ctx context.Context) (*Index, bool) {
	snapshot, err := i.store.LoadSnapshot(ctx)
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrNotFound):
		i.logger.Debug("no persisted index, building")
		return nil, false
	case errors.Is(err, core.ErrIndexCorrupt):
		i.logger.Warn("persisted index is corrupt, rebuilding", "err", err)
		return nil, false
	default:
		i.logger.Warn("failed to load persisted index, rebuilding", "err", err)
		return nil, false
	}

	idx := NewIndex(snapshot.Records, snapshot.BuiltAt, SourceSnapshot)
	i.publish(idx)
	if i.caches != nil {
		i.caches.ResetForRebuild()
	}
	i.logger.Info("loaded persisted index", "documents", idx.Len(), "built_at", idx.BuiltAt())
	return idx, true
}

func (i *Indexer) build(ctx context.Context, c *corpus.Corpus, progress *ProgressTracker) (*Index, error) {
	start := time.Now()
	if i.caches != nil {
		i.caches.Text.Clear()
	}

	builtAt := i.now()
	records := make([]*core.DocumentRecord, 0, c.Len())
	progress.Start(c.Len())

	add := func(file corpus.File, res core.ExtractionResult) {
		rec := i.buildRecord(file, res, builtAt)
		if err := core.ValidateDocumentRecord(rec); err != nil {
			i.logger.Warn("skipping invalid document", "path", file.RelPath, "err", err)
		} else {
			records = append(records, rec)
		}
		progress.Increment(1)
	}

	if c.Len() >= i.cfg.BatchThreshold {
		for lo := 0; lo < c.Len(); lo += i.cfg.BatchSize {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			hi := min(lo+i.cfg.BatchSize, c.Len())
			chunk := c.Files[lo:hi]
			results := i.texts.ExtractBatch(ctx, chunk)
			for _, file := range chunk {
				add(file, results[file.RelPath])
			}
		}
	} else {
		for _, file := range c.Files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			add(file, i.texts.ExtractText(ctx, file))
		}
	}
	progress.Finish()

	idx := NewIndex(records, builtAt, SourceBuild)
	i.publish(idx)
	if i.caches != nil {
		i.caches.Metadata.Clear()
		i.caches.Answers.Clear()
	}

	failed := 0
	for _, r := range records {
		if r.ExtractError != "" {
			failed++
		}
	}
	i.logger.Info("index built",
		"documents", idx.Len(), "extraction_failures", failed, "elapsed", time.Since(start))
	return idx, nil
}

func (i *Indexer) publish(idx *Index) {
	i.current.Store(idx)

	i.overlayMu.Lock()
	i.overlay = make(map[string]core.BusinessFacts)
	i.overlayMu.Unlock()

	i.metrics.IndexBuilt(idx.Source(), idx.Len())
}

// buildRecord combines filename fields with the text-derived fields of res.
// A failed extraction keeps the filename fields and records the reason.
func (i *Indexer) buildRecord(file corpus.File, res core.ExtractionResult, indexedAt time.Time) *core.DocumentRecord {
	fields := ParseFilename(file.Name)
	rec := &core.DocumentRecord{
		Path:      file.RelPath,
		Filename:  file.Name,
		DateToken: fields.DateToken,
		Year:      fields.Year,
		Month:     fields.Month,
		Title:     fields.Title,
		Keywords:  fields.Keywords,
		ImageOnly: file.Kind == corpus.KindImage,
		IndexedAt: indexedAt,
	}

	if !res.Success() {
		if res.Reason == "" {
			res.Reason = core.ReasonReadError
		}
		rec.ExtractError = res.Reason
		if res.Reason == core.ReasonEngineUnavailable || res.Reason == core.ReasonNoTextRecognized {
			rec.ImageOnly = true
		}
		return rec
	}

	rec.HasText = res.Method == core.MethodDirect
	rec.ImageOnly = res.Method == core.MethodOCR
	rec.Excerpt = excerpt(res.Text, i.cfg.ExcerptLength)
	rec.Facts = ExtractFacts(firstPages(res.Text, i.cfg.FactPages), i.rules)
	rec.Drafter = rec.Facts.Drafter.Value
	return rec
}

// excerpt collapses whitespace in text and keeps at most n runes.
func excerpt(text string, n int) string {
	if n == 0 {
		return ""
	}
	s := strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// File returns the corpus file for an indexed path.
func (i *Indexer) File(p string) (corpus.File, error) {
	idx := i.Current()
	if idx == nil {
		return corpus.File{}, ErrNotBuilt
	}
	rec, ok := idx.Get(p)
	if !ok {
		return corpus.File{}, fmt.Errorf("%w: %s", ErrDocumentNotFound, p)
	}
	kind := corpus.KindText
	if isImageName(rec.Filename) {
		kind = corpus.KindImage
	}
	source := ""
	if dir, _, found := strings.Cut(rec.Path, "/"); found {
		source = dir
	}
	return corpus.File{
		RelPath: rec.Path,
		AbsPath: filepath.Join(i.scanner.Root(), filepath.FromSlash(rec.Path)),
		Name:    rec.Filename,
		Source:  source,
		Kind:    kind,
	}, nil
}

func isImageName(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".tif", ".tiff":
		return true
	}
	return false
}

// Facts returns the business facts known for path: those found at build
// time merged with any filled in later by EnsureFacts.
func (i *Indexer) Facts(p string) (core.BusinessFacts, bool) {
	i.overlayMu.RLock()
	facts, ok := i.overlay[p]
	i.overlayMu.RUnlock()
	if ok {
		return facts, true
	}

	idx := i.Current()
	if idx == nil {
		return core.BusinessFacts{}, false
	}
	rec, ok := idx.Get(p)
	if !ok {
		return core.BusinessFacts{}, false
	}
	return rec.Facts, true
}

// EnsureFacts fills in the business facts of an indexed document. Facts
// already known, those held by the fact store, and those extracted from the
// document's text are merged; a fact is only replaced by one of higher
// confidence. The result is kept for the life of the current index and
// written through to the fact store.
//
// When the text cannot be extracted the facts known so far are returned
// with an error wrapping core.ErrExtractionFailed. Facts computed against
// an index that was replaced in the meantime are not kept in the overlay.
func (i *Indexer) EnsureFacts(ctx context.Context, p string) (core.BusinessFacts, error) {
	gen := i.Current()
	if gen == nil {
		return core.BusinessFacts{}, ErrNotBuilt
	}
	file, err := i.File(p)
	if err != nil {
		return core.BusinessFacts{}, err
	}

	i.overlayMu.RLock()
	facts, done := i.overlay[p]
	i.overlayMu.RUnlock()
	if done {
		return facts, nil
	}

	if rec, ok := gen.Get(p); ok {
		facts = rec.Facts
	}

	stored, err := i.facts.GetFacts(ctx, file.Name)
	switch {
	case err == nil:
		facts.MergeAll(stored)
	case errors.Is(err, storage.ErrNotFound):
	default:
		i.logger.Warn("failed to read stored facts", "path", p, "err", err)
	}

	res := i.texts.ExtractText(ctx, file)
	if !res.Success() {
		return facts, fmt.Errorf("%w: %s: %s", core.ErrExtractionFailed, p, res.Reason)
	}
	facts.MergeAll(ExtractFacts(firstPages(res.Text, i.cfg.FactPages), i.rules))

	// publish swaps the index before resetting the overlay, so checking
	// under the overlay lock keeps stale facts out of the new generation.
	i.overlayMu.Lock()
	if i.Current() == gen {
		i.overlay[p] = facts
	} else {
		i.logger.Debug("index replaced while filling facts", "path", p)
	}
	i.overlayMu.Unlock()

	if !facts.Empty() {
		if err := i.facts.UpdateFacts(ctx, file.Name, facts); err != nil {
			i.logger.Warn("failed to store facts", "path", p, "err", err)
		}
	}
	return facts, nil
}
