package index

import (
	"sort"
	"time"

	"github.com/poiesic/docsift/core"
)

// Sources of a published index, as reported in metrics.
const (
	SourceBuild    = "build"
	SourceSnapshot = "snapshot"
)

// Index is an immutable view of every indexed document. Records returned by
// an Index are shared and must not be modified.
type Index struct {
	docs    []*core.DocumentRecord
	byPath  map[string]*core.DocumentRecord
	builtAt time.Time
	source  string
}

// NewIndex sorts records by path. When two records share a path the later
// one wins.
func NewIndex(records []*core.DocumentRecord, builtAt time.Time, source string) *Index {
	byPath := make(map[string]*core.DocumentRecord, len(records))
	for _, r := range records {
		byPath[r.Path] = r
	}
	docs := make([]*core.DocumentRecord, 0, len(byPath))
	for _, r := range byPath {
		docs = append(docs, r)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	return &Index{docs: docs, byPath: byPath, builtAt: builtAt, source: source}
}

// Get returns the record stored under the corpus-relative path.
func (i *Index) Get(path string) (*core.DocumentRecord, bool) {
	r, ok := i.byPath[path]
	return r, ok
}

// Documents returns every record sorted by path.
func (i *Index) Documents() []*core.DocumentRecord {
	return append([]*core.DocumentRecord(nil), i.docs...)
}

// Len returns the number of indexed documents.
func (i *Index) Len() int {
	return len(i.docs)
}

// BuiltAt returns when the index was built. For a loaded snapshot this is
// the original build time.
func (i *Index) BuiltAt() time.Time {
	return i.builtAt
}

// Source reports whether the index was built or loaded from a snapshot.
func (i *Index) Source() string {
	return i.source
}

// Snapshot returns the persisted form of the index.
func (i *Index) Snapshot() *core.IndexSnapshot {
	return &core.IndexSnapshot{
		Version: core.SnapshotVersion,
		BuiltAt: i.builtAt,
		Records: i.Documents(),
	}
}
