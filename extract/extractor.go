package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/docsift/core"
	"github.com/poiesic/docsift/metrics"
)

// Config bounds direct extraction and controls the OCR fallback.
type Config struct {
	MaxPages       int    // pages read from a PDF text layer
	MaxTextLength  int    // rune budget of a result
	SamplePages    int    // pages inspected by the text-layer heuristic
	MinTextLength  int    // sampled runes below which a PDF is image-only
	OCRLang        string // tesseract language hint
	MaxMergeLength int    // see Normalizer
}

// DefaultConfig returns the default extraction settings.
func DefaultConfig() Config {
	return Config{
		MaxPages:       30,
		MaxTextLength:  50000,
		SamplePages:    3,
		MinTextLength:  50,
		OCRLang:        "kor+eng",
		MaxMergeLength: DefaultMaxMergeLength,
	}
}

// Validate checks that every bound is usable.
func (c Config) Validate() error {
	if c.MaxPages <= 0 {
		return fmt.Errorf("max pages must be positive, got %d", c.MaxPages)
	}
	if c.MaxTextLength <= 0 {
		return fmt.Errorf("max text length must be positive, got %d", c.MaxTextLength)
	}
	if c.SamplePages <= 0 {
		return fmt.Errorf("sample pages must be positive, got %d", c.SamplePages)
	}
	if c.MinTextLength < 0 {
		return fmt.Errorf("min text length cannot be negative, got %d", c.MinTextLength)
	}
	if c.OCRLang == "" {
		return errors.New("ocr language cannot be empty")
	}
	return nil
}

var (
	plainTextExts = map[string]bool{".txt": true, ".md": true}
	imageExts     = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".tif": true, ".tiff": true}
)

// Extractor obtains the text of one document, reading the PDF text layer
// first and falling back to OCR when there is none.
type Extractor struct {
	cfg        Config
	ocr        OCREngine
	normalizer Normalizer
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor) error

// WithOCREngine sets the OCR engine. Default is Unavailable.
func WithOCREngine(engine OCREngine) Option {
	return func(e *Extractor) error {
		if engine == nil {
			engine = Unavailable{}
		}
		e.ocr = engine
		return nil
	}
}

// WithMetrics records OCR invocations.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Extractor) error {
		e.metrics = m
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger.With("component", "extract")
		return nil
	}
}

// NewExtractor creates an Extractor.
func NewExtractor(cfg Config, opts ...Option) (*Extractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Extractor{
		cfg:        cfg,
		ocr:        Unavailable{},
		normalizer: Normalizer{MaxMergeLength: cfg.MaxMergeLength},
		logger:     slog.Default().With("component", "extract"),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// OCREngine returns the engine used for the fallback path.
func (e *Extractor) OCREngine() OCREngine {
	return e.ocr
}

// Extract returns the text of the document at path. Failures are reported
// through the result's Reason, never as an error.
func (e *Extractor) Extract(ctx context.Context, path string) core.ExtractionResult {
	if err := ctx.Err(); err != nil {
		return core.FailedExtraction(reasonFor(err))
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case plainTextExts[ext]:
		return e.readPlain(path)
	case ext == ".pdf":
		return e.readPDF(ctx, path)
	case imageExts[ext]:
		e.logger.Debug("image document routed to ocr", "path", path)
		return e.recognize(ctx, path, 0)
	default:
		return core.FailedExtraction(core.ReasonUnsupportedType)
	}
}

func (e *Extractor) readPlain(path string) core.ExtractionResult {
	data, err := os.ReadFile(path)
	if err != nil {
		e.logger.Warn("failed to read document", "path", path, "err", err)
		return core.FailedExtraction(core.ReasonReadError)
	}
	text := truncate(strings.TrimSpace(string(data)), e.cfg.MaxTextLength)
	if text == "" {
		return core.ExtractionResult{PageCount: 1, Method: core.MethodDirect, Reason: core.ReasonNoTextRecognized}
	}
	return core.ExtractionResult{Text: text, PageCount: 1, Method: core.MethodDirect, Reason: core.ReasonOK}
}

func (e *Extractor) readPDF(ctx context.Context, path string) core.ExtractionResult {
	layer, err := readPDF(path, e.cfg.MaxPages, e.cfg.MaxTextLength)
	if err != nil {
		e.logger.Info("direct extraction failed, using ocr", "path", path, "err", err)
		return e.recognize(ctx, path, layer.pageCount)
	}

	decision := HasTextLayer(layer.pages, e.cfg.SamplePages, e.cfg.MinTextLength)
	if !decision.HasText {
		e.logger.Info("document classified image-only, using ocr",
			"path", path, "sampled_chars", decision.Sampled, "sampled_pages", decision.Pages, "reason", decision.Reason)
		return e.recognize(ctx, path, layer.pageCount)
	}
	e.logger.Debug("text layer found",
		"path", path, "sampled_chars", decision.Sampled, "sampled_pages", decision.Pages, "reason", decision.Reason)

	text := truncate(strings.TrimSpace(strings.Join(layer.pages, PageSeparator)), e.cfg.MaxTextLength)
	return core.ExtractionResult{Text: text, PageCount: layer.pageCount, Method: core.MethodDirect, Reason: core.ReasonOK}
}

func (e *Extractor) recognize(ctx context.Context, path string, pageCount int) core.ExtractionResult {
	e.metrics.OCRInvoked()

	res, err := e.ocr.Recognize(ctx, path, e.cfg.OCRLang)
	if pageCount == 0 {
		pageCount = res.Pages
	}
	if err != nil {
		reason := reasonFor(err)
		e.logger.Warn("ocr failed", "path", path, "engine", e.ocr.Name(), "reason", reason, "err", err)
		result := core.FailedExtraction(reason)
		result.PageCount = pageCount
		return result
	}

	text := truncate(e.normalizer.Normalize(res.Text), e.cfg.MaxTextLength)
	if text == "" {
		return core.ExtractionResult{PageCount: pageCount, Method: core.MethodOCR, Reason: core.ReasonNoTextRecognized}
	}
	return core.ExtractionResult{Text: text, PageCount: pageCount, Method: core.MethodOCR, Reason: core.ReasonOK}
}

// reasonFor maps an extraction error onto a reason code.
func reasonFor(err error) core.Reason {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return core.ReasonTimeout
	case errors.Is(err, ErrEngineUnavailable):
		return core.ReasonEngineUnavailable
	case errors.Is(err, ErrNoTextRecognized):
		return core.ReasonNoTextRecognized
	case errors.Is(err, ErrUnsupportedType):
		return core.ReasonUnsupportedType
	default:
		return core.ReasonReadError
	}
}

// truncate limits s to max runes.
func truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	rs := []rune(s)
	return string(rs[:max])
}
