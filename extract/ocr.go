package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// OCRResult is the recognized text of one document.
type OCRResult struct {
	Text  string
	Pages int // pages or images recognized
}

// OCREngine recognizes text in scanned documents.
type OCREngine interface {
	// Recognize returns the text of the PDF or image at path. lang is an
	// engine language hint such as "kor+eng".
	Recognize(ctx context.Context, path, lang string) (OCRResult, error)
	// Available reports whether the engine can run on this host.
	Available() bool
	Name() string
}

// Unavailable is the engine used when no OCR program is installed. Every
// call fails immediately with ErrEngineUnavailable.
type Unavailable struct{}

func (Unavailable) Recognize(_ context.Context, _, _ string) (OCRResult, error) {
	return OCRResult{}, ErrEngineUnavailable
}

func (Unavailable) Available() bool { return false }

func (Unavailable) Name() string { return "unavailable" }

// Tesseract runs the tesseract CLI. PDFs are first rasterized with pdftoppm.
type Tesseract struct {
	runner   CommandRunner
	lookPath func(string) (string, error)
	dpi      int
	maxPages int
	tempDir  string
	logger   *slog.Logger
}

// TesseractOption configures a Tesseract engine.
type TesseractOption func(*Tesseract) error

// WithRunner sets the command runner. Default is ExecRunner.
func WithRunner(r CommandRunner) TesseractOption {
	return func(t *Tesseract) error {
		if r == nil {
			return fmt.Errorf("command runner cannot be nil")
		}
		t.runner = r
		return nil
	}
}

// WithLookPath overrides how binaries are located. Default is exec.LookPath.
func WithLookPath(fn func(string) (string, error)) TesseractOption {
	return func(t *Tesseract) error {
		t.lookPath = fn
		return nil
	}
}

// WithDPI sets the rasterization resolution. Default is 300.
func WithDPI(dpi int) TesseractOption {
	return func(t *Tesseract) error {
		if dpi <= 0 {
			return fmt.Errorf("dpi must be positive, got %d", dpi)
		}
		t.dpi = dpi
		return nil
	}
}

// WithOCRMaxPages limits how many pages of a PDF are rasterized. Default is 10.
func WithOCRMaxPages(n int) TesseractOption {
	return func(t *Tesseract) error {
		if n <= 0 {
			return fmt.Errorf("max pages must be positive, got %d", n)
		}
		t.maxPages = n
		return nil
	}
}

// WithTempDir sets the parent directory for page images. Default is os.TempDir().
func WithTempDir(dir string) TesseractOption {
	return func(t *Tesseract) error {
		t.tempDir = dir
		return nil
	}
}

// WithOCRLogger sets a custom logger.
func WithOCRLogger(logger *slog.Logger) TesseractOption {
	return func(t *Tesseract) error {
		if logger == nil {
			logger = slog.Default()
		}
		t.logger = logger.With("component", "ocr")
		return nil
	}
}

// NewTesseract creates a Tesseract engine without probing for the binaries.
func NewTesseract(opts ...TesseractOption) (*Tesseract, error) {
	t := &Tesseract{
		runner:   ExecRunner{},
		lookPath: exec.LookPath,
		dpi:      300,
		maxPages: 10,
		logger:   slog.Default().With("component", "ocr"),
	}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// DetectOCR returns a Tesseract engine when tesseract and pdftoppm are both
// installed, and Unavailable otherwise.
func DetectOCR(ctx context.Context, opts ...TesseractOption) OCREngine {
	t, err := NewTesseract(opts...)
	if err != nil {
		slog.Default().Warn("invalid ocr configuration, ocr disabled", "err", err)
		return Unavailable{}
	}
	if !t.Available() {
		t.logger.Warn("tesseract or pdftoppm not on PATH, ocr disabled")
		return Unavailable{}
	}
	if _, err := t.runner.Run(ctx, "tesseract", "--version"); err != nil {
		t.logger.Warn("tesseract not runnable, ocr disabled", "err", err)
		return Unavailable{}
	}
	return t
}

// Available reports whether both binaries are on PATH.
func (t *Tesseract) Available() bool {
	for _, bin := range []string{"tesseract", "pdftoppm"} {
		if _, err := t.lookPath(bin); err != nil {
			return false
		}
	}
	return true
}

func (t *Tesseract) Name() string { return "tesseract" }

// Recognize rasterizes a PDF page by page and runs tesseract on each image.
// Images are recognized directly. Pages that fail are logged and skipped.
func (t *Tesseract) Recognize(ctx context.Context, path, lang string) (OCRResult, error) {
	images := []string{path}
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		dir, err := os.MkdirTemp(t.tempDir, "docsift-ocr-*")
		if err != nil {
			return OCRResult{}, fmt.Errorf("failed to create temp dir: %w", err)
		}
		defer os.RemoveAll(dir)

		images, err = t.rasterize(ctx, path, dir)
		if err != nil {
			return OCRResult{}, err
		}
	}

	var parts []string
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return OCRResult{}, err
		}
		out, err := t.runner.Run(ctx, "tesseract", img, "stdout", "-l", lang, "--psm", "3")
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return OCRResult{}, ctxErr
			}
			t.logger.Warn("tesseract failed on page", "path", path, "page", i+1, "err", err)
			continue
		}
		if text := strings.TrimSpace(string(out)); text != "" {
			parts = append(parts, text)
		}
	}

	if len(parts) == 0 {
		return OCRResult{Pages: len(images)}, ErrNoTextRecognized
	}
	return OCRResult{Text: strings.Join(parts, PageSeparator), Pages: len(images)}, nil
}

func (t *Tesseract) rasterize(ctx context.Context, path, dir string) ([]string, error) {
	prefix := filepath.Join(dir, "page")
	_, err := t.runner.Run(ctx, "pdftoppm",
		"-png", "-r", strconv.Itoa(t.dpi),
		"-f", "1", "-l", strconv.Itoa(t.maxPages),
		path, prefix)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", ErrRasterizeFailed, err)
	}

	images, err := filepath.Glob(prefix + "*.png")
	if err != nil || len(images) == 0 {
		return nil, fmt.Errorf("%w: no page images produced", ErrRasterizeFailed)
	}
	sortPageImages(images)
	return images, nil
}

var pageNumberPattern = regexp.MustCompile(`-(\d+)\.png$`)

// sortPageImages orders pdftoppm output by page number.
func sortPageImages(images []string) {
	page := func(name string) int {
		m := pageNumberPattern.FindStringSubmatch(name)
		if m == nil {
			return 0
		}
		n, _ := strconv.Atoi(m[1])
		return n
	}
	sort.SliceStable(images, func(i, j int) bool {
		return page(images[i]) < page(images[j])
	})
}
