package backfill

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/docsift/ai"
	"github.com/poiesic/docsift/core"
	"github.com/poiesic/docsift/index"
)

// BatchResult counts the outcome of one batch.
type BatchResult struct {
	Filled  int // documents with at least one fact
	Empty   int // documents where no rule matched
	Skipped int // documents whose text could not be extracted
}

func (r *BatchResult) add(o BatchResult) {
	r.Filled += o.Filled
	r.Empty += o.Empty
	r.Skipped += o.Skipped
}

// BatchProcessor fills the facts of a batch of documents.
type BatchProcessor struct {
	catalog        Catalog
	maxRetries     int
	retryBaseDelay time.Duration
	logger         *slog.Logger
}

// NewBatchProcessor creates a batch processor.
// maxRetries: maximum attempts per document for transient failures
// retryBaseDelay: base delay for exponential backoff
func NewBatchProcessor(catalog Catalog, maxRetries int, retryBaseDelay time.Duration) *BatchProcessor {
	return &BatchProcessor{
		catalog:        catalog,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
		logger:         slog.Default().With("component", "backfill"),
	}
}

// Process ensures the facts of every record in the batch. Extraction
// failures and documents dropped by a concurrent rebuild are skipped; other
// errors are retried and, once retries run out, abort the batch.
func (bp *BatchProcessor) Process(ctx context.Context, records []*core.DocumentRecord) (BatchResult, error) {
	var result BatchResult
	for _, rec := range records {
		var facts core.BusinessFacts
		err := ai.RetryWithBackoff(ctx, func() error {
			var err error
			facts, err = bp.catalog.EnsureFacts(ctx, rec.Path)
			if errors.Is(err, core.ErrExtractionFailed) || errors.Is(err, index.ErrDocumentNotFound) {
				return ai.Permanent(err)
			}
			return err
		}, bp.maxRetries, bp.retryBaseDelay)

		switch {
		case err == nil && facts.Empty():
			result.Empty++
		case err == nil:
			result.Filled++
		case errors.Is(err, core.ErrExtractionFailed), errors.Is(err, index.ErrDocumentNotFound):
			bp.logger.Debug("skipping document", "path", rec.Path, "err", err)
			result.Skipped++
		default:
			return result, fmt.Errorf("filling facts for %s: %w", rec.Path, err)
		}
	}
	return result, nil
}
