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


package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docsift/core"
	"github.com/poiesic/docsift/storage"
)

// IndexStore implements storage.IndexStore for BadgerDB.
// The whole snapshot lives under one key so a write is a single transaction.
type IndexStore struct {
	backend *Backend
}

var _ storage.IndexStore = (*IndexStore)(nil)

// NewIndexStore creates an index store on an open backend.
// The backend is owned by the caller and is not closed by Close.
func NewIndexStore(backend *Backend) (storage.IndexStore, error) {
	if backend == nil {
		return nil, ErrBackendRequired
	}
	return &IndexStore{backend: backend}, nil
}

// SaveSnapshot persists the snapshot, replacing any previous one.
func (s *IndexStore) SaveSnapshot(ctx context.Context, snapshot *core.IndexSnapshot) error {
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	if snapshot.Version == 0 {
		snapshot.Version = core.SnapshotVersion
	}
	if snapshot.BuiltAt.IsZero() {
		snapshot.BuiltAt = time.Now().UTC()
	}
	value := storage.MarshalSnapshot(snapshot)
	return s.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set([]byte(indexSnapshotKey), value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// LoadSnapshot reads the persisted snapshot.
func (s *IndexStore) LoadSnapshot(ctx context.Context) (*core.IndexSnapshot, error) {
	if s.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	var snapshot *core.IndexSnapshot
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get([]byte(indexSnapshotKey))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			snapshot, unmarshalErr = storage.UnmarshalSnapshot(val)
			return unmarshalErr
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// DeleteSnapshot removes the persisted snapshot.
func (s *IndexStore) DeleteSnapshot(ctx context.Context) error {
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return s.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete([]byte(indexSnapshotKey)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Close is a no-op; the backend is closed by its owner.
func (s *IndexStore) Close() error {
	return nil
}
