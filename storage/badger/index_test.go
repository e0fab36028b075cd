package badger

import (
	"context"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docsift/core"
	"github.com/poiesic/docsift/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexStore_SaveLoad(t *testing.T) {
	indexStore, _, backend, err := NewMemoryStores()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()

	_, err = indexStore.LoadSnapshot(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	snapshot := &core.IndexSnapshot{
		BuiltAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Records: []*core.DocumentRecord{
			{Path: "2020/a.pdf", Filename: "a.pdf", Year: 2020},
			{Path: "2019/b.pdf", Filename: "b.pdf", Year: 2019, ExtractError: core.ReasonTimeout},
		},
	}
	require.NoError(t, indexStore.SaveSnapshot(ctx, snapshot))
	assert.Equal(t, core.SnapshotVersion, snapshot.Version)

	loaded, err := indexStore.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, snapshot, loaded)

	// a second save replaces the blob wholesale
	replacement := &core.IndexSnapshot{Records: []*core.DocumentRecord{{Path: "c.txt", Filename: "c.txt"}}}
	require.NoError(t, indexStore.SaveSnapshot(ctx, replacement))
	loaded, err = indexStore.LoadSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, loaded.Records, 1)
	assert.Equal(t, "c.txt", loaded.Records[0].Path)

	require.NoError(t, indexStore.DeleteSnapshot(ctx))
	_, err = indexStore.LoadSnapshot(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIndexStore_Corrupt(t *testing.T) {
	indexStore, _, backend, err := NewMemoryStores()
	require.NoError(t, err)
	defer backend.Close()

	err = backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set([]byte(indexSnapshotKey), []byte{0xff, 0xff, 0xff}); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	require.NoError(t, err)

	_, err = indexStore.LoadSnapshot(context.Background())
	assert.ErrorIs(t, err, core.ErrIndexCorrupt)
}

func TestIndexStore_Closed(t *testing.T) {
	indexStore, _, backend, err := NewMemoryStores()
	require.NoError(t, err)
	require.NoError(t, backend.Close())

	_, err = indexStore.LoadSnapshot(context.Background())
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestNewIndexStore_NilBackend(t *testing.T) {
	_, err := NewIndexStore(nil)
	assert.ErrorIs(t, err, ErrBackendRequired)
}
