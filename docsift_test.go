package docsift

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/docsift/ai"
	"github.com/poiesic/docsift/ai/mock"
	"github.com/poiesic/docsift/backfill"
	"github.com/poiesic/docsift/config"
	"github.com/poiesic/docsift/core"
	"github.com/poiesic/docsift/corpus"
	"github.com/poiesic/docsift/extract"
	"github.com/poiesic/docsift/index"
)

const purchaseOrder = "2020/2020-05-12_purchase_order.txt"

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func testCorpus(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "2020", "2020-05-12_purchase_order.txt"),
		"Purchase order for lab equipment\nDepartment: Procurement\nTotal: 1,200,000원\n")
	writeFile(t, filepath.Join(root, "2019", "2019-11-03_inspection_report.txt"),
		"Annual inspection of the boiler room. No defects found.")
	writeFile(t, filepath.Join(root, "2020", "scan.png"), "not an image")
	writeFile(t, filepath.Join(root, "manual.md"), "# Manual\nHow to file a request.")
	return root
}

func testConfig(t *testing.T, root string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Corpus.Root = root
	cfg.Index.StorePath = ""
	cfg.Facts.Store = config.FactStoreBadger
	cfg.Extraction.Workers = 2
	return cfg
}

func newTestEngine(t *testing.T, cfg *config.Config, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithOCREngine(extract.Unavailable{})}, opts...)
	e, err := New(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig(t, "")
	_, err := New(cfg)
	assert.Error(t, err)
}

func TestNew_StorePathIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "store")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	cfg := testConfig(t, testCorpus(t))
	cfg.Index.StorePath = file
	_, err := New(cfg, WithOCREngine(extract.Unavailable{}))
	assert.Error(t, err)
}

func TestNew_SQLitePathUnwritable(t *testing.T) {
	file := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	cfg := testConfig(t, testCorpus(t))
	cfg.Facts.Store = config.FactStoreSQLite
	cfg.Facts.SQLitePath = filepath.Join(file, "data", "facts.db")

	var err error
	assert.NotPanics(t, func() {
		_, err = New(cfg, WithOCREngine(extract.Unavailable{}))
	})
	assert.Error(t, err)
}

func TestEngine_BuildIndex(t *testing.T) {
	e := newTestEngine(t, testConfig(t, testCorpus(t)))

	idx, err := e.BuildIndex(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 4, idx.Len())
	assert.Equal(t, index.SourceBuild, idx.Source())

	rec, ok := idx.Get(purchaseOrder)
	require.True(t, ok)
	assert.Equal(t, 2020, rec.Year)
	assert.Equal(t, "Procurement", rec.Facts.Department.Value)

	scan, ok := idx.Get("2020/scan.png")
	require.True(t, ok)
	assert.True(t, scan.ImageOnly)
	assert.Equal(t, core.ReasonEngineUnavailable, scan.ExtractError)
}

func TestEngine_BuildIndexMissingRoot(t *testing.T) {
	e := newTestEngine(t, testConfig(t, filepath.Join(t.TempDir(), "missing")))

	_, err := e.BuildIndex(context.Background(), false)
	assert.ErrorIs(t, err, corpus.ErrRootUnreadable)
}

func TestEngine_SnapshotSurvivesRestart(t *testing.T) {
	cfg := testConfig(t, testCorpus(t))
	cfg.Index.StorePath = filepath.Join(t.TempDir(), "index")

	first, err := New(cfg, WithOCREngine(extract.Unavailable{}))
	require.NoError(t, err)
	_, err = first.BuildIndex(context.Background(), false)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second := newTestEngine(t, cfg)
	idx, err := second.BuildIndex(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, index.SourceSnapshot, idx.Source())
	assert.Equal(t, 4, idx.Len())

	idx, err = second.BuildIndex(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, index.SourceBuild, idx.Source())
}

func TestEngine_Search(t *testing.T) {
	e := newTestEngine(t, testConfig(t, testCorpus(t)))

	// the first query builds the index
	results, err := e.Search(context.Background(), "2020 purchase order", 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, purchaseOrder, results[0].Record.Path)
	for _, r := range results {
		assert.Equal(t, 2020, r.Record.Year, "year filter excludes other years")
	}

	rec, err := e.FindBestMatch(context.Background(), "inspection report")
	require.NoError(t, err)
	assert.Equal(t, "2019/2019-11-03_inspection_report.txt", rec.Path)

	_, err = e.FindBestMatch(context.Background(), "zebra xylophone")
	assert.ErrorIs(t, err, core.ErrNoRelevantDocument)
}

func TestEngine_ExtractText(t *testing.T) {
	e := newTestEngine(t, testConfig(t, testCorpus(t)))

	res, err := e.ExtractText(context.Background(), "manual.md")
	require.NoError(t, err)
	assert.Contains(t, res.Text, "How to file a request.")
	assert.Equal(t, core.MethodDirect, res.Method)

	res, err = e.ExtractText(context.Background(), "2020/scan.png")
	assert.ErrorIs(t, err, core.ErrExtractionFailed)
	assert.Equal(t, core.ReasonEngineUnavailable, res.Reason)

	_, err = e.ExtractText(context.Background(), "2020/absent.txt")
	assert.ErrorIs(t, err, index.ErrDocumentNotFound)
}

func TestEngine_Ask(t *testing.T) {
	answerer := mock.NewMockAnswerer()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	e := newTestEngine(t, testConfig(t, testCorpus(t)),
		WithAnswerer(answerer), WithClock(func() time.Time { return now }))

	answer, err := e.Ask(context.Background(), "2020 purchase order total")
	require.NoError(t, err)
	assert.True(t, answer.Found)
	assert.False(t, answer.Cached)
	assert.Equal(t, "2020 purchase order total <- "+purchaseOrder, answer.Text)
	assert.Equal(t, now, answer.CreatedAt)
	require.NotNil(t, answer.Source)
	assert.Equal(t, purchaseOrder, answer.Source.Path)
	assert.Equal(t, "1,200,000원", answer.Source.Facts.Amount.Value)

	sources := answerer.LastSources()
	require.Len(t, sources, 1)
	assert.Contains(t, sources[0].Content, "Total: 1,200,000원")
	assert.Positive(t, sources[0].Relevance)

	t.Run("repeat is cached", func(t *testing.T) {
		again, err := e.Ask(context.Background(), "  TOTAL purchase order 2020 ")
		require.NoError(t, err)
		assert.True(t, again.Cached)
		assert.Equal(t, answer.Text, again.Text)
		assert.Equal(t, 1, answerer.CallCount())
	})

	t.Run("rebuild clears answers", func(t *testing.T) {
		_, err := e.BuildIndex(context.Background(), true)
		require.NoError(t, err)
		again, err := e.Ask(context.Background(), "2020 purchase order total")
		require.NoError(t, err)
		assert.False(t, again.Cached)
		assert.Equal(t, 2, answerer.CallCount())
	})
}

func TestEngine_AskNoMatch(t *testing.T) {
	answerer := mock.NewMockAnswerer()
	e := newTestEngine(t, testConfig(t, testCorpus(t)), WithAnswerer(answerer))

	answer, err := e.Ask(context.Background(), "zebra xylophone")
	assert.ErrorIs(t, err, core.ErrNoRelevantDocument)
	assert.False(t, answer.Found)
	assert.Nil(t, answer.Source)
	assert.Zero(t, answerer.CallCount())
}

func TestEngine_AskAnswererFailure(t *testing.T) {
	cause := errors.New("model offline")
	answerer := mock.NewMockAnswerer()
	answerer.AnswerFunc = func(context.Context, string, []ai.Source) (string, error) {
		return "", cause
	}
	e := newTestEngine(t, testConfig(t, testCorpus(t)), WithAnswerer(answerer))

	_, err := e.Ask(context.Background(), "purchase order")
	assert.ErrorIs(t, err, cause)

	answerer.Reset()
	answer, err := e.Ask(context.Background(), "purchase order")
	require.NoError(t, err)
	assert.False(t, answer.Cached, "failures are not cached")
}

func TestEngine_DefaultAnswererQuotesSource(t *testing.T) {
	e := newTestEngine(t, testConfig(t, testCorpus(t)))

	answer, err := e.Ask(context.Background(), "inspection report 2019")
	require.NoError(t, err)
	assert.Equal(t, "Annual inspection of the boiler room. No defects found.", answer.Text)
}

func TestEngine_SQLiteFactStore(t *testing.T) {
	cfg := testConfig(t, testCorpus(t))
	cfg.Facts.Store = config.FactStoreSQLite
	cfg.Facts.SQLitePath = filepath.Join(t.TempDir(), "facts.db")
	e := newTestEngine(t, cfg, WithAnswerer(mock.NewMockAnswerer()))

	answer, err := e.Ask(context.Background(), "purchase order")
	require.NoError(t, err)
	assert.Equal(t, "Procurement", answer.Source.Facts.Department.Value)

	stored, err := e.factStore.GetFacts(context.Background(), "2020-05-12_purchase_order.txt")
	require.NoError(t, err)
	assert.Equal(t, "Procurement", stored.Department.Value)
}

func TestEngine_Stats(t *testing.T) {
	reg := prometheus.NewRegistry()
	e := newTestEngine(t, testConfig(t, testCorpus(t)), WithRegisterer(reg))

	before := e.Stats()
	assert.Zero(t, before.Documents)
	assert.Empty(t, before.Source)
	assert.Equal(t, "unavailable", before.OCREngine)
	assert.Len(t, before.Caches, 3)

	_, err := e.Search(context.Background(), "purchase", 0)
	require.NoError(t, err)

	after := e.Stats()
	assert.Equal(t, 4, after.Documents)
	assert.Equal(t, index.SourceBuild, after.Source)
	assert.False(t, after.BuiltAt.IsZero())

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestEngine_BackfillFacts(t *testing.T) {
	e := newTestEngine(t, testConfig(t, testCorpus(t)))

	summary, err := e.BackfillFacts(context.Background(), &backfill.Config{
		BatchSize: 2, ReportInterval: 2, MaxRetries: 1, RetryDelay: time.Millisecond,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Documents)
	assert.Equal(t, 1, summary.Skipped, "the image cannot be read without ocr")
	assert.Equal(t, 4, summary.Filled+summary.Empty+summary.Skipped)

	stored, err := e.factStore.GetFacts(context.Background(), "2020-05-12_purchase_order.txt")
	require.NoError(t, err)
	assert.Equal(t, "1,200,000원", stored.Amount.Value)
}
