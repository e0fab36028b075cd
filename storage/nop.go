package storage

import (
	"context"

	"github.com/poiesic/docsift/core"
)

// NopFactStore is a FactStore that stores nothing.
type NopFactStore struct{}

var _ FactStore = NopFactStore{}

func (NopFactStore) GetFacts(_ context.Context, _ string) (core.BusinessFacts, error) {
	return core.BusinessFacts{}, ErrNotFound
}

func (NopFactStore) UpdateFacts(_ context.Context, _ string, _ core.BusinessFacts) error {
	return nil
}

func (NopFactStore) Close() error { return nil }
