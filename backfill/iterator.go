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

	"github.com/poiesic/docsift/core"
	"github.com/poiesic/docsift/index"
)

const (
	// DefaultBatchSize is the default number of documents per batch
	DefaultBatchSize = 50
)

// Catalog is the index being backfilled. *index.Indexer satisfies it.
type Catalog interface {
	Current() *index.Index
	EnsureFacts(ctx context.Context, path string) (core.BusinessFacts, error)
}

// DocumentIterator walks the current index in batches.
type DocumentIterator struct {
	catalog   Catalog
	batchSize int
}

// NewDocumentIterator creates a document iterator.
// batchSize: number of documents handed to fn at once (default DefaultBatchSize)
func NewDocumentIterator(catalog Catalog, batchSize int) *DocumentIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &DocumentIterator{
		catalog:   catalog,
		batchSize: batchSize,
	}
}

// ForEach calls fn with successive batches of the index's documents, in
// path order. The index is read once; a rebuild during iteration does not
// change the documents visited. Iteration stops on the first error from fn
// and context cancellation is checked between batches.
func (it *DocumentIterator) ForEach(ctx context.Context, fn func([]*core.DocumentRecord) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	idx := it.catalog.Current()
	if idx == nil {
		return index.ErrNotBuilt
	}
	docs := idx.Documents()

	for start := 0; start < len(docs); start += it.batchSize {
		end := min(start+it.batchSize, len(docs))
		if err := fn(docs[start:end]); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}
