package badger

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docsift/core"
	"github.com/poiesic/docsift/storage"
)

// FactStore implements storage.FactStore on BadgerDB. It is used when no
// SQLite fact database is configured but an index backend is open.
type FactStore struct {
	backend *Backend
}

var _ storage.FactStore = (*FactStore)(nil)

// NewFactStore creates a fact store on an open backend.
func NewFactStore(backend *Backend) (storage.FactStore, error) {
	if backend == nil {
		return nil, ErrBackendRequired
	}
	return &FactStore{backend: backend}, nil
}

// GetFacts returns the facts stored for filename.
func (s *FactStore) GetFacts(ctx context.Context, filename string) (core.BusinessFacts, error) {
	if filename == "" {
		return core.BusinessFacts{}, storage.ErrEmptyFilename
	}
	var facts core.BusinessFacts
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeFactKey(filename))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			facts, unmarshalErr = storage.UnmarshalFacts(val)
			return unmarshalErr
		})
	}, false)
	return facts, err
}

// UpdateFacts merges facts into the stored value inside one read-write transaction.
func (s *FactStore) UpdateFacts(ctx context.Context, filename string, facts core.BusinessFacts) error {
	if filename == "" {
		return storage.ErrEmptyFilename
	}
	key := makeFactKey(filename)
	return s.backend.WithTx(func(tx *badger.Txn) error {
		var current core.BusinessFacts
		item, err := tx.Get(key)
		switch {
		case err == nil:
			if err := item.Value(func(val []byte) error {
				var unmarshalErr error
				current, unmarshalErr = storage.UnmarshalFacts(val)
				return unmarshalErr
			}); err != nil {
				return err
			}
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}

		if !current.MergeAll(facts) {
			return nil
		}
		if err := tx.Set(key, storage.MarshalFacts(current)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Close is a no-op; the backend is closed by its owner.
func (s *FactStore) Close() error {
	return nil
}
