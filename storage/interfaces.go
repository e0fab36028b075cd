package storage

import (
	"context"

	"github.com/poiesic/docsift/core"
)

// IndexStore persists the index snapshot as a single blob.
// Implementations must be thread-safe and support concurrent access.
type IndexStore interface {
	// SaveSnapshot replaces the stored snapshot atomically.
	SaveSnapshot(ctx context.Context, snapshot *core.IndexSnapshot) error

	// LoadSnapshot returns the stored snapshot.
	// Returns ErrNotFound if nothing has been saved yet and an error
	// wrapping core.ErrIndexCorrupt if the blob cannot be decoded.
	LoadSnapshot(ctx context.Context) (*core.IndexSnapshot, error)

	// DeleteSnapshot removes the stored snapshot. Missing snapshots are not an error.
	DeleteSnapshot(ctx context.Context) error

	// Close releases resources held by the store.
	Close() error
}

// FactStore is the secondary structured-fact store, keyed by filename.
type FactStore interface {
	// GetFacts returns the facts stored for filename.
	// Returns ErrNotFound if none exist.
	GetFacts(ctx context.Context, filename string) (core.BusinessFacts, error)

	// UpdateFacts merges facts into the stored record for filename,
	// keeping existing values that carry equal or higher confidence.
	UpdateFacts(ctx context.Context, filename string, facts core.BusinessFacts) error

	// Close releases resources held by the store.
	Close() error
}
