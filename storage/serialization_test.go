package storage

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/docsift/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRoundTrip(t *testing.T) {
	snapshot := &core.IndexSnapshot{
		Version: core.SnapshotVersion,
		BuiltAt: time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC),
		Records: []*core.DocumentRecord{
			{Path: "2020/a.pdf", Filename: "a.pdf", Year: 2020, Keywords: []string{"alpha"}},
			{Path: "b.txt", Filename: "b.txt", HasText: true, Excerpt: "hello"},
		},
	}

	data := MarshalSnapshot(snapshot)
	decoded, err := UnmarshalSnapshot(data)
	require.NoError(t, err)
	assert.Equal(t, snapshot, decoded)
}

func TestUnmarshalSnapshot_Corrupt(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty data", []byte{}},
		{"garbage", []byte("not a snapshot at all")},
		{"trailing bytes", append(MarshalSnapshot(&core.IndexSnapshot{Version: core.SnapshotVersion}), 0x01)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalSnapshot(tt.data)
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrIndexCorrupt)
		})
	}
}

func TestNopFactStore(t *testing.T) {
	var store FactStore = NopFactStore{}
	_, err := store.GetFacts(context.Background(), "a.pdf")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, store.UpdateFacts(context.Background(), "a.pdf", core.BusinessFacts{}))
	assert.NoError(t, store.Close())
}
