package badger

import (
	"context"
	"testing"

	"github.com/poiesic/docsift/core"
	"github.com/poiesic/docsift/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactStore_UpdateAndGet(t *testing.T) {
	_, factStore, backend, err := NewMemoryStores()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()

	_, err = factStore.GetFacts(ctx, "a.pdf")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, factStore.UpdateFacts(ctx, "a.pdf", core.BusinessFacts{
		Drafter: core.Fact{Value: "김철수", Confidence: 80},
	}))
	require.NoError(t, factStore.UpdateFacts(ctx, "a.pdf", core.BusinessFacts{
		Drafter:    core.Fact{Value: "오탐", Confidence: 20},
		Department: core.Fact{Value: "기술팀", Confidence: 60},
	}))

	facts, err := factStore.GetFacts(ctx, "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "김철수", facts.Drafter.Value)
	assert.Equal(t, "기술팀", facts.Department.Value)
}

func TestFactStore_EmptyFilename(t *testing.T) {
	_, factStore, backend, err := NewMemoryStores()
	require.NoError(t, err)
	defer backend.Close()

	_, err = factStore.GetFacts(context.Background(), "")
	assert.ErrorIs(t, err, storage.ErrEmptyFilename)
	assert.ErrorIs(t, factStore.UpdateFacts(context.Background(), "", core.BusinessFacts{}), storage.ErrEmptyFilename)
}
