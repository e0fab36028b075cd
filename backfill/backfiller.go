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


package backfill

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/poiesic/docsift/core"
	"github.com/poiesic/docsift/index"
)

// Config holds configuration for a backfill run.
type Config struct {
	// BatchSize is the number of documents processed per batch
	BatchSize int

	// ReportInterval is how often to report progress (number of documents)
	ReportInterval int

	// MaxRetries is the maximum number of attempts per document
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: 50,
		MaxRetries:     3,
		RetryDelay:     500 * time.Millisecond,
	}
}

// Validate checks that every bound is usable.
func (c *Config) Validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: batch size must be greater than 0", ErrInvalidConfig)
	}
	if c.ReportInterval <= 0 {
		return fmt.Errorf("%w: report interval must be greater than 0", ErrInvalidConfig)
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("%w: max retries must be greater than 0", ErrInvalidConfig)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("%w: retry delay cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// Summary reports a completed run.
type Summary struct {
	Documents int
	BatchResult
	Elapsed time.Duration
}

// Backfiller fills the business facts of every document in an index.
type Backfiller struct {
	catalog   Catalog
	config    *Config
	progress  io.Writer
	processor *BatchProcessor
	iterator  *DocumentIterator
}

// NewBackfiller creates a backfiller. A nil config uses DefaultConfig.
// progress: where to write progress output (typically os.Stderr)
func NewBackfiller(catalog Catalog, config *Config, progress io.Writer) (*Backfiller, error) {
	if catalog == nil {
		return nil, ErrCatalogRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if progress == nil {
		progress = io.Discard
	}

	return &Backfiller{
		catalog:   catalog,
		config:    config,
		progress:  progress,
		processor: NewBatchProcessor(catalog, config.MaxRetries, config.RetryDelay),
		iterator:  NewDocumentIterator(catalog, config.BatchSize),
	}, nil
}

// Run fills facts for every document in the current index. Progress is
// reported to the configured writer.
func (b *Backfiller) Run(ctx context.Context) (Summary, error) {
	idx := b.catalog.Current()
	if idx == nil {
		return Summary{}, index.ErrNotBuilt
	}

	total := idx.Len()
	if total == 0 {
		fmt.Fprintf(b.progress, "No documents in index (0 documents)\n")
		return Summary{}, nil
	}

	fmt.Fprintf(b.progress, "Filling facts for %d documents (batch size: %d)\n",
		total, b.config.BatchSize)

	tracker := index.NewLabeledProgressTracker(b.progress, "Backfill", b.config.ReportInterval)
	tracker.Start(total)

	summary := Summary{Documents: total}
	err := b.iterator.ForEach(ctx, func(records []*core.DocumentRecord) error {
		result, err := b.processor.Process(ctx, records)
		summary.add(result)
		if err != nil {
			return fmt.Errorf("failed to process batch: %w", err)
		}
		tracker.Increment(len(records))
		return nil
	})
	summary.Elapsed = tracker.Elapsed()
	if err != nil {
		return summary, err
	}
	tracker.Finish()

	fmt.Fprintf(b.progress, "Backfill complete. %d filled, %d without facts, %d skipped in %v\n",
		summary.Filled, summary.Empty, summary.Skipped, summary.Elapsed.Round(time.Millisecond))
	return summary, nil
}
