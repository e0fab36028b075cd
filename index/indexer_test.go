package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/docsift/cache"
	"github.com/poiesic/docsift/core"
	"github.com/poiesic/docsift/corpus"
	"github.com/poiesic/docsift/extract"
	"github.com/poiesic/docsift/ingestion"
	"github.com/poiesic/docsift/query"
	"github.com/poiesic/docsift/storage"
	"github.com/poiesic/docsift/storage/badger"
)

var fixedNow = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// fakeTexts serves canned extraction results by relative path and counts
// calls. Unknown paths get a short direct-text result.
type fakeTexts struct {
	mu      sync.Mutex
	results map[string]core.ExtractionResult
	single  int
	batched int
}

func newFakeTexts() *fakeTexts {
	return &fakeTexts{results: make(map[string]core.ExtractionResult)}
}

func (f *fakeTexts) result(rel string) core.ExtractionResult {
	if res, ok := f.results[rel]; ok {
		return res
	}
	return core.ExtractionResult{Text: "body of " + rel, PageCount: 1, Method: core.MethodDirect, Reason: core.ReasonOK}
}

func (f *fakeTexts) ExtractText(_ context.Context, doc corpus.File) core.ExtractionResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.single++
	return f.result(doc.RelPath)
}

func (f *fakeTexts) ExtractBatch(_ context.Context, docs []corpus.File) map[string]core.ExtractionResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]core.ExtractionResult, len(docs))
	for _, d := range docs {
		f.batched++
		out[d.RelPath] = f.result(d.RelPath)
	}
	return out
}

func (f *fakeTexts) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.single + f.batched
}

// corruptStore always fails to decode its snapshot.
type corruptStore struct {
	saved int
}

func (s *corruptStore) SaveSnapshot(context.Context, *core.IndexSnapshot) error {
	s.saved++
	return nil
}

func (s *corruptStore) LoadSnapshot(context.Context) (*core.IndexSnapshot, error) {
	return nil, fmt.Errorf("%w: bad magic", core.ErrIndexCorrupt)
}

func (s *corruptStore) DeleteSnapshot(context.Context) error { return nil }

func (s *corruptStore) Close() error { return nil }

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestStores(t *testing.T) (storage.IndexStore, storage.FactStore) {
	t.Helper()
	indexStore, factStore, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })
	return indexStore, factStore
}

func newTestScanner(t *testing.T, root string) *corpus.Scanner {
	t.Helper()
	s, err := corpus.NewScanner(root)
	require.NoError(t, err)
	return s
}

// smallCorpus writes three text documents under root.
func smallCorpus(t *testing.T, root string) {
	t.Helper()
	writeFile(t, filepath.Join(root, "2020", "2020-05-12_purchase_request.txt"), "purchase")
	writeFile(t, filepath.Join(root, "2019", "2019-11-03_review.txt"), "review")
	writeFile(t, filepath.Join(root, "manual.md"), "manual")
}

func TestNewIndexer_Validation(t *testing.T) {
	root := t.TempDir()
	scanner := newTestScanner(t, root)
	store, _ := newTestStores(t)

	_, err := NewIndexer(nil, newFakeTexts(), store)
	assert.ErrorIs(t, err, ErrScannerRequired)

	_, err = NewIndexer(scanner, nil, store)
	assert.ErrorIs(t, err, ErrPipelineRequired)

	_, err = NewIndexer(scanner, newFakeTexts(), nil)
	assert.ErrorIs(t, err, ErrStoreRequired)

	_, err = NewIndexer(scanner, newFakeTexts(), store, WithConfig(Config{BatchThreshold: 0, BatchSize: 1}))
	assert.Error(t, err)

	_, err = NewIndexer(scanner, newFakeTexts(), store, WithClock(nil))
	assert.Error(t, err)

	idx, err := NewIndexer(scanner, newFakeTexts(), store)
	require.NoError(t, err)
	assert.Nil(t, idx.Current())
}

func TestBuildIndex_EndToEnd(t *testing.T) {
	root := t.TempDir()
	pdfPath := filepath.Join(root, "2020", "2020-05-12_purchase_request.pdf")
	require.NoError(t, os.MkdirAll(filepath.Dir(pdfPath), 0o755))
	require.NoError(t, extract.WriteTestPDF(pdfPath, []string{
		"Purchase request for laboratory equipment",
		"Department: Engineering",
		"Total: 1,200,000 KRW",
		"Prepared by: Jane Park",
	}))
	writeFile(t, filepath.Join(root, "2020", "2020-06-01_notes.txt"), "Meeting notes about the budget review.")
	writeFile(t, filepath.Join(root, "2020", "scan.png"), "not really a png")
	writeFile(t, filepath.Join(root, "manual.md"), "# Manual\nHow to file a request.")
	writeFile(t, filepath.Join(root, "misc", "ignored.txt"), "outside any partition")

	caches, err := cache.NewManager(cache.DefaultConfig())
	require.NoError(t, err)
	extractor, err := extract.NewExtractor(extract.DefaultConfig(), extract.WithOCREngine(extract.Unavailable{}))
	require.NoError(t, err)
	pipeline, err := ingestion.NewPipeline(extractor, caches.Text, ingestion.WithPoolSize(2))
	require.NoError(t, err)
	defer pipeline.Release()

	store, _ := newTestStores(t)
	indexer, err := NewIndexer(newTestScanner(t, root), pipeline, store,
		WithCaches(caches), WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)

	idx, err := indexer.BuildIndex(context.Background(), BuildOptions{})
	require.NoError(t, err)
	assert.Same(t, idx, indexer.Current())
	assert.Equal(t, SourceBuild, idx.Source())
	assert.Equal(t, fixedNow, idx.BuiltAt())

	var paths []string
	for _, rec := range idx.Documents() {
		paths = append(paths, rec.Path)
	}
	assert.Equal(t, []string{
		"2020/2020-05-12_purchase_request.pdf",
		"2020/2020-06-01_notes.txt",
		"2020/scan.png",
		"manual.md",
	}, paths)

	pdf, ok := idx.Get("2020/2020-05-12_purchase_request.pdf")
	require.True(t, ok)
	assert.True(t, pdf.HasText)
	assert.False(t, pdf.ImageOnly)
	assert.Empty(t, pdf.ExtractError)
	assert.Equal(t, 2020, pdf.Year)
	assert.Equal(t, 5, pdf.Month)
	assert.Equal(t, "purchase request", pdf.Title)
	assert.Equal(t, "Engineering", pdf.Facts.Department.Value)
	assert.Equal(t, "1,200,000원", pdf.Facts.Amount.Value)
	assert.Equal(t, "Jane Park", pdf.Drafter)
	assert.Contains(t, pdf.Excerpt, "Purchase request for laboratory equipment")

	scan, ok := idx.Get("2020/scan.png")
	require.True(t, ok)
	assert.Equal(t, core.ReasonEngineUnavailable, scan.ExtractError)
	assert.True(t, scan.ImageOnly)
	assert.False(t, scan.HasText)
	assert.Equal(t, "scan", scan.Title)

	snapshot, err := store.LoadSnapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, snapshot.Records, 4)
}

func TestBuildIndex_MissingRoot(t *testing.T) {
	store, _ := newTestStores(t)
	indexer, err := NewIndexer(newTestScanner(t, filepath.Join(t.TempDir(), "missing")), newFakeTexts(), store)
	require.NoError(t, err)

	_, err = indexer.BuildIndex(context.Background(), BuildOptions{})
	assert.ErrorIs(t, err, corpus.ErrRootUnreadable)
	assert.Nil(t, indexer.Current())
}

func TestBuildIndex_Idempotent(t *testing.T) {
	root := t.TempDir()
	smallCorpus(t, root)
	store, _ := newTestStores(t)

	indexer, err := NewIndexer(newTestScanner(t, root), newFakeTexts(), store)
	require.NoError(t, err)

	first, err := indexer.BuildIndex(context.Background(), BuildOptions{Force: true})
	require.NoError(t, err)
	second, err := indexer.BuildIndex(context.Background(), BuildOptions{Force: true})
	require.NoError(t, err)

	strip := func(idx *Index) []core.DocumentRecord {
		var out []core.DocumentRecord
		for _, rec := range idx.Documents() {
			r := rec.Clone()
			r.IndexedAt = time.Time{}
			out = append(out, *r)
		}
		return out
	}
	assert.Equal(t, strip(first), strip(second))
	assert.NotSame(t, first, second)
}

func TestBuildIndex_LoadsSnapshot(t *testing.T) {
	root := t.TempDir()
	smallCorpus(t, root)
	store, _ := newTestStores(t)

	builder, err := NewIndexer(newTestScanner(t, root), newFakeTexts(), store,
		WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	built, err := builder.BuildIndex(context.Background(), BuildOptions{})
	require.NoError(t, err)

	texts := newFakeTexts()
	loader, err := NewIndexer(newTestScanner(t, root), texts, store)
	require.NoError(t, err)
	loaded, err := loader.BuildIndex(context.Background(), BuildOptions{})
	require.NoError(t, err)

	assert.Equal(t, SourceSnapshot, loaded.Source())
	assert.Zero(t, texts.calls(), "snapshot load must not extract text")
	assert.Equal(t, built.Len(), loaded.Len())
	assert.True(t, fixedNow.Equal(loaded.BuiltAt()))

	forced, err := loader.BuildIndex(context.Background(), BuildOptions{Force: true})
	require.NoError(t, err)
	assert.Equal(t, SourceBuild, forced.Source())
	assert.Equal(t, 3, texts.calls())
}

func TestBuildIndex_CorruptSnapshotRebuilds(t *testing.T) {
	root := t.TempDir()
	smallCorpus(t, root)
	store := &corruptStore{}
	texts := newFakeTexts()

	indexer, err := NewIndexer(newTestScanner(t, root), texts, store)
	require.NoError(t, err)

	idx, err := indexer.BuildIndex(context.Background(), BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, SourceBuild, idx.Source())
	assert.Equal(t, 3, idx.Len())
	assert.Equal(t, 3, texts.calls())
	assert.Equal(t, 1, store.saved)
}

func TestBuildIndex_BatchPath(t *testing.T) {
	root := t.TempDir()
	for i := range 25 {
		writeFile(t, filepath.Join(root, "2021", fmt.Sprintf("2021-01-%02d_doc.txt", i+1)), "x")
	}
	store, _ := newTestStores(t)
	texts := newFakeTexts()

	indexer, err := NewIndexer(newTestScanner(t, root), texts, store,
		WithConfig(Config{BatchThreshold: 20, BatchSize: 10, ExcerptLength: 50, FactPages: 1}))
	require.NoError(t, err)

	idx, err := indexer.BuildIndex(context.Background(), BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, 25, idx.Len())
	assert.Equal(t, 25, texts.batched)
	assert.Zero(t, texts.single)
}

func TestBuildIndex_RecordsExtractionFailures(t *testing.T) {
	root := t.TempDir()
	smallCorpus(t, root)
	store, _ := newTestStores(t)
	texts := newFakeTexts()
	texts.results["2019/2019-11-03_review.txt"] = core.FailedExtraction(core.ReasonTimeout)
	texts.results["manual.md"] = core.ExtractionResult{}

	indexer, err := NewIndexer(newTestScanner(t, root), texts, store)
	require.NoError(t, err)
	idx, err := indexer.BuildIndex(context.Background(), BuildOptions{})
	require.NoError(t, err)
	require.Equal(t, 3, idx.Len())

	review, _ := idx.Get("2019/2019-11-03_review.txt")
	assert.Equal(t, core.ReasonTimeout, review.ExtractError)
	assert.False(t, review.ImageOnly)
	assert.Equal(t, 2019, review.Year)

	manual, _ := idx.Get("manual.md")
	assert.Equal(t, core.ReasonReadError, manual.ExtractError)
}

func TestBuildIndex_Cancelled(t *testing.T) {
	root := t.TempDir()
	smallCorpus(t, root)
	store, _ := newTestStores(t)
	indexer, err := NewIndexer(newTestScanner(t, root), newFakeTexts(), store)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = indexer.BuildIndex(ctx, BuildOptions{Force: true})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, indexer.Current())
}

func TestBuildIndex_ClearsCaches(t *testing.T) {
	root := t.TempDir()
	smallCorpus(t, root)
	store, _ := newTestStores(t)
	caches, err := cache.NewManager(cache.DefaultConfig())
	require.NoError(t, err)

	caches.Metadata.Put("stale", core.DocumentFeatures{Path: "stale"})
	caches.Text.Put("stale", core.ExtractionResult{Text: "old", Method: core.MethodDirect, Reason: core.ReasonOK})
	caches.Answers.Put(query.KeyOf("stale question"), core.Answer{Text: "old"})

	indexer, err := NewIndexer(newTestScanner(t, root), newFakeTexts(), store, WithCaches(caches))
	require.NoError(t, err)
	_, err = indexer.BuildIndex(context.Background(), BuildOptions{Force: true})
	require.NoError(t, err)

	assert.Zero(t, caches.Metadata.Len())
	assert.Zero(t, caches.Text.Len())
	assert.Zero(t, caches.Answers.Len())
}

func TestBuildIndex_ProgressReported(t *testing.T) {
	root := t.TempDir()
	smallCorpus(t, root)
	store, _ := newTestStores(t)
	indexer, err := NewIndexer(newTestScanner(t, root), newFakeTexts(), store)
	require.NoError(t, err)

	var buf syncBuffer
	progress := NewProgressTracker(&buf, 1)
	_, err = indexer.BuildIndex(context.Background(), BuildOptions{Force: true, Progress: progress})
	require.NoError(t, err)
	assert.Equal(t, 3, progress.Current())
	assert.Contains(t, buf.String(), "3/3")
}

func TestIndexer_File(t *testing.T) {
	root := t.TempDir()
	smallCorpus(t, root)
	writeFile(t, filepath.Join(root, "2020", "photo.JPG"), "jpg")
	store, _ := newTestStores(t)
	indexer, err := NewIndexer(newTestScanner(t, root), newFakeTexts(), store)
	require.NoError(t, err)

	_, err = indexer.File("manual.md")
	assert.ErrorIs(t, err, ErrNotBuilt)

	_, err = indexer.BuildIndex(context.Background(), BuildOptions{})
	require.NoError(t, err)

	file, err := indexer.File("2020/photo.JPG")
	require.NoError(t, err)
	assert.Equal(t, corpus.KindImage, file.Kind)
	assert.Equal(t, "2020", file.Source)
	assert.Equal(t, filepath.Join(root, "2020", "photo.JPG"), file.AbsPath)

	file, err = indexer.File("manual.md")
	require.NoError(t, err)
	assert.Equal(t, corpus.KindText, file.Kind)
	assert.Empty(t, file.Source)

	_, err = indexer.File("nope.pdf")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestIndexer_EnsureFacts(t *testing.T) {
	root := t.TempDir()
	smallCorpus(t, root)
	store, factStore := newTestStores(t)
	texts := newFakeTexts()

	indexer, err := NewIndexer(newTestScanner(t, root), texts, store,
		WithFactStore(factStore), WithConfig(Config{BatchThreshold: 20, BatchSize: 10, ExcerptLength: 10, FactPages: 1}))
	require.NoError(t, err)
	_, err = indexer.BuildIndex(context.Background(), BuildOptions{})
	require.NoError(t, err)

	const path = "2020/2020-05-12_purchase_request.txt"
	require.NoError(t, factStore.UpdateFacts(context.Background(), "2020-05-12_purchase_request.txt", core.BusinessFacts{
		Department: core.Fact{Value: "Procurement", Confidence: 95, Rule: "manual"},
	}))

	// only the first page is scanned for facts
	texts.results[path] = core.ExtractionResult{
		Text:      "Department: Finance\nTotal: 5,000 USD\fPrepared by: Jane Park",
		PageCount: 2,
		Method:    core.MethodDirect,
		Reason:    core.ReasonOK,
	}

	facts, err := indexer.EnsureFacts(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Procurement", facts.Department.Value, "stored fact has higher confidence")
	assert.Equal(t, "5,000 USD", facts.Amount.Value)
	assert.False(t, facts.Drafter.IsSet())

	got, ok := indexer.Facts(path)
	require.True(t, ok)
	assert.Equal(t, facts, got)

	stored, err := factStore.GetFacts(context.Background(), "2020-05-12_purchase_request.txt")
	require.NoError(t, err)
	assert.Equal(t, "5,000 USD", stored.Amount.Value)

	calls := texts.calls()
	again, err := indexer.EnsureFacts(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, facts, again)
	assert.Equal(t, calls, texts.calls(), "second call is served from the overlay")

	_, err = indexer.BuildIndex(context.Background(), BuildOptions{Force: true})
	require.NoError(t, err)
	got, _ = indexer.Facts(path)
	assert.Equal(t, "Finance", got.Department.Value, "rebuild drops the overlay")
}

func TestIndexer_EnsureFactsExtractionFailure(t *testing.T) {
	root := t.TempDir()
	smallCorpus(t, root)
	store, _ := newTestStores(t)
	texts := newFakeTexts()
	indexer, err := NewIndexer(newTestScanner(t, root), texts, store)
	require.NoError(t, err)
	_, err = indexer.BuildIndex(context.Background(), BuildOptions{})
	require.NoError(t, err)

	texts.results["manual.md"] = core.FailedExtraction(core.ReasonReadError)
	_, err = indexer.EnsureFacts(context.Background(), "manual.md")
	assert.ErrorIs(t, err, core.ErrExtractionFailed)

	_, err = indexer.EnsureFacts(context.Background(), "missing.md")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

// rebuildingTexts runs onExtract once, after the first single-document
// extraction of target has produced its result.
type rebuildingTexts struct {
	*fakeTexts
	target    string
	onExtract func()
	fired     bool
}

func (r *rebuildingTexts) ExtractText(ctx context.Context, doc corpus.File) core.ExtractionResult {
	res := r.fakeTexts.ExtractText(ctx, doc)
	if doc.RelPath == r.target && !r.fired && r.onExtract != nil {
		r.fired = true
		r.onExtract()
	}
	return res
}

func TestIndexer_EnsureFactsDuringRebuild(t *testing.T) {
	root := t.TempDir()
	smallCorpus(t, root)
	store, _ := newTestStores(t)

	const path = "2020/2020-05-12_purchase_request.txt"
	texts := &rebuildingTexts{fakeTexts: newFakeTexts(), target: path}
	indexer, err := NewIndexer(newTestScanner(t, root), texts, store)
	require.NoError(t, err)
	_, err = indexer.BuildIndex(context.Background(), BuildOptions{})
	require.NoError(t, err)
	first := indexer.Current()

	texts.results[path] = core.ExtractionResult{
		Text:      "Department: Finance",
		PageCount: 1,
		Method:    core.MethodDirect,
		Reason:    core.ReasonOK,
	}
	texts.onExtract = func() {
		texts.results[path] = core.ExtractionResult{
			Text:      "Department: Legal",
			PageCount: 1,
			Method:    core.MethodDirect,
			Reason:    core.ReasonOK,
		}
		_, err := indexer.BuildIndex(context.Background(), BuildOptions{Force: true})
		require.NoError(t, err)
	}

	_, err = indexer.EnsureFacts(context.Background(), path)
	require.NoError(t, err)
	require.NotSame(t, first, indexer.Current())

	got, ok := indexer.Facts(path)
	require.True(t, ok)
	assert.Equal(t, "Legal", got.Department.Value, "facts from the replaced index are discarded")
}

// syncBuffer is a bytes.Buffer safe for the progress tracker's writes.
type syncBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
