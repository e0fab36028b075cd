package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docsift/cache"
	"github.com/poiesic/docsift/core"
	"github.com/poiesic/docsift/corpus"
	"github.com/poiesic/docsift/metrics"
)

// TextExtractor obtains the text of one document by absolute path.
type TextExtractor interface {
	Extract(ctx context.Context, path string) core.ExtractionResult
}

// DefaultTaskTimeout bounds one document's extraction inside a batch.
const DefaultTaskTimeout = 60 * time.Second

// Pipeline extracts document text through the text cache, sequentially or
// across a worker pool.
type Pipeline struct {
	extractor   TextExtractor
	textCache   *cache.Cache[string, core.ExtractionResult]
	pool        *ants.Pool
	taskTimeout time.Duration
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for batch extraction.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		// Release old pool
		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithTaskTimeout sets the per-document timeout used by ExtractBatch.
// Default is DefaultTaskTimeout.
func WithTaskTimeout(timeout time.Duration) Option {
	return func(p *Pipeline) error {
		if timeout <= 0 {
			return fmt.Errorf("task timeout must be positive, got %v", timeout)
		}
		p.taskTimeout = timeout
		return nil
	}
}

// WithMetrics records extraction outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) error {
		p.metrics = m
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger.With("component", "ingestion")
		return nil
	}
}

// NewPipeline creates an extraction pipeline. Successful results are stored
// in textCache keyed by corpus-relative path.
func NewPipeline(
	extractor TextExtractor,
	textCache *cache.Cache[string, core.ExtractionResult],
	opts ...Option,
) (*Pipeline, error) {
	if extractor == nil {
		return nil, ErrExtractorRequired
	}
	if textCache == nil {
		return nil, ErrTextCacheRequired
	}

	// Default pool size
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		extractor:   extractor,
		textCache:   textCache,
		pool:        pool,
		taskTimeout: DefaultTaskTimeout,
		logger:      slog.Default().With("component", "ingestion"),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// ExtractText returns the text of doc, consulting the text cache first.
// Failed extractions are not cached, so a later call retries them.
func (p *Pipeline) ExtractText(ctx context.Context, doc corpus.File) core.ExtractionResult {
	if res, ok := p.textCache.Get(doc.RelPath); ok {
		return res
	}

	start := time.Now()
	res := p.extractor.Extract(ctx, doc.AbsPath)
	p.record(doc, res, time.Since(start))
	return res
}

type outcome struct {
	path   string
	result core.ExtractionResult
}

// ExtractBatch extracts every document in docs across the worker pool and
// blocks until each one has reported or timed out. The result maps each
// document's RelPath to its outcome. A document that exceeds the task
// timeout is reported with reason timeout; its extraction is abandoned and
// not retried.
func (p *Pipeline) ExtractBatch(ctx context.Context, docs []corpus.File) map[string]core.ExtractionResult {
	results := make(map[string]core.ExtractionResult, len(docs))

	pending := make([]corpus.File, 0, len(docs))
	for _, doc := range docs {
		if res, ok := p.textCache.Get(doc.RelPath); ok {
			results[doc.RelPath] = res
			continue
		}
		pending = append(pending, doc)
	}
	if len(pending) == 0 {
		return results
	}

	out := make(chan outcome, len(pending))
	for _, doc := range pending {
		err := p.pool.Submit(func() {
			out <- outcome{path: doc.RelPath, result: p.runTask(ctx, doc)}
		})
		if err != nil {
			p.logger.Error("failed to submit extraction task", "path", doc.RelPath, "err", err)
			out <- outcome{path: doc.RelPath, result: core.FailedExtraction(core.ReasonReadError)}
		}
	}

	// Completion order, merged by identity
	for range pending {
		o := <-out
		results[o.path] = o.result
	}
	return results
}

// runTask extracts doc under the task timeout. The extraction runs on its own
// goroutine so the worker is released as soon as the deadline passes.
func (p *Pipeline) runTask(ctx context.Context, doc corpus.File) core.ExtractionResult {
	taskCtx, cancel := context.WithTimeout(ctx, p.taskTimeout)
	defer cancel()

	start := time.Now()
	done := make(chan core.ExtractionResult, 1)
	go func() {
		done <- p.extractor.Extract(taskCtx, doc.AbsPath)
	}()

	var res core.ExtractionResult
	select {
	case res = <-done:
	case <-taskCtx.Done():
		res = core.FailedExtraction(core.ReasonTimeout)
	}
	p.record(doc, res, time.Since(start))
	return res
}

// record caches a successful result and reports the outcome.
func (p *Pipeline) record(doc corpus.File, res core.ExtractionResult, elapsed time.Duration) {
	p.metrics.Extraction(string(res.Method), string(res.Reason), elapsed)

	if res.Success() {
		p.textCache.Put(doc.RelPath, res)
		p.logger.Debug("extracted document",
			"path", doc.RelPath, "method", res.Method, "pages", res.PageCount, "chars", len([]rune(res.Text)), "elapsed", elapsed)
		return
	}
	p.logger.Warn("extraction failed",
		"path", doc.RelPath, "method", res.Method, "reason", res.Reason, "elapsed", elapsed)
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
