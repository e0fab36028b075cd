package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/docsift/core"
	"github.com/poiesic/docsift/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) storage.FactStore {
	t.Helper()
	store, err := NewFactStore(filepath.Join(t.TempDir(), "facts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestFactStore_GetMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetFacts(context.Background(), "missing.pdf")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestFactStore_UpdateMergesByConfidence(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpdateFacts(ctx, "2020-03-01_구매요청.pdf", core.BusinessFacts{
		Drafter: core.Fact{Value: "김철수", Confidence: 90},
		Amount:  core.Fact{Value: "300,000", Confidence: 40},
	}))
	require.NoError(t, store.UpdateFacts(ctx, "2020-03-01_구매요청.pdf", core.BusinessFacts{
		Drafter: core.Fact{Value: "박영수", Confidence: 50},
		Amount:  core.Fact{Value: "3,000,000", Confidence: 85},
		Date:    core.Fact{Value: "2020-03-01", Confidence: 70},
	}))

	facts, err := store.GetFacts(ctx, "2020-03-01_구매요청.pdf")
	require.NoError(t, err)
	assert.Equal(t, "김철수", facts.Drafter.Value)
	assert.Equal(t, 90, facts.Drafter.Confidence)
	assert.Equal(t, "3,000,000", facts.Amount.Value)
	assert.Equal(t, "2020-03-01", facts.Date.Value)
	assert.False(t, facts.Department.IsSet())
}

func TestFactStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facts.db")
	ctx := context.Background()

	store, err := NewFactStore(path)
	require.NoError(t, err)
	require.NoError(t, store.UpdateFacts(ctx, "a.pdf", core.BusinessFacts{
		Department: core.Fact{Value: "방송기술팀", Confidence: 60},
	}))
	require.NoError(t, store.Close())

	store, err = NewFactStore(path)
	require.NoError(t, err)
	defer store.Close()

	facts, err := store.GetFacts(ctx, "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "방송기술팀", facts.Department.Value)
}

func TestFactStore_EmptyFilename(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetFacts(context.Background(), "")
	assert.ErrorIs(t, err, storage.ErrEmptyFilename)
}

func TestNewFactStore_EmptyPath(t *testing.T) {
	_, err := NewFactStore("")
	assert.Error(t, err)
}

func TestNewFactStore_OpenFailureReturnsNilInterface(t *testing.T) {
	file := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	store, err := NewFactStore(filepath.Join(file, "facts.db"))
	assert.Error(t, err)
	assert.True(t, store == nil)
}
