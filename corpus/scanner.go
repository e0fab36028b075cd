// Package corpus enumerates the document files of a corpus.
//
// A corpus is a root directory, its year-partitioned subdirectories
// (one per calendar year, e.g. "2019", "2020") and a few named special
// subdirectories such as "recent" and "archive". All of them are treated
// as one flat set of files, de-duplicated by canonical path.
package corpus

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"
)

// Kind classifies a file by how its text can be obtained.
type Kind int

const (
	// KindText files may carry a text layer.
	KindText Kind = iota + 1
	// KindImage files can only be read through OCR.
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindImage:
		return "image"
	}
	return "unknown"
}

// File is one document found in the corpus.
type File struct {
	RelPath string // slash-separated path relative to the root; the document identity
	AbsPath string // canonical absolute path
	Name    string
	Source  string // top-level directory the file was found under; "" for the root
	Kind    Kind
	Size    int64
	ModTime time.Time
}

// Corpus is the result of a scan, sorted by RelPath.
type Corpus struct {
	Root  string
	Files []File
}

// Len returns the number of files.
func (c *Corpus) Len() int {
	return len(c.Files)
}

// TextFiles returns the files that may carry a text layer.
func (c *Corpus) TextFiles() []File {
	return c.filter(KindText)
}

// ImageFiles returns the image-only candidates.
func (c *Corpus) ImageFiles() []File {
	return c.filter(KindImage)
}

func (c *Corpus) filter(kind Kind) []File {
	var out []File
	for _, f := range c.Files {
		if f.Kind == kind {
			out = append(out, f)
		}
	}
	return out
}

var yearDirPattern = regexp.MustCompile(`^(19|20)\d{2}$`)

// DefaultSpecialDirs are scanned in addition to year directories.
var DefaultSpecialDirs = []string{"recent", "archive"}

var (
	defaultTextExts  = []string{".pdf", ".txt", ".md"}
	defaultImageExts = []string{".png", ".jpg", ".jpeg", ".tif", ".tiff"}
)

// Scanner enumerates a corpus.
type Scanner struct {
	root        string
	specialDirs []string
	kinds       map[string]Kind
	logger      *slog.Logger
}

// Option configures a Scanner.
type Option func(*Scanner) error

// WithSpecialDirs replaces the named special subdirectories.
func WithSpecialDirs(dirs ...string) Option {
	return func(s *Scanner) error {
		s.specialDirs = slices.Clone(dirs)
		return nil
	}
}

// WithExtensions replaces the recognized extensions.
func WithExtensions(text, image []string) Option {
	return func(s *Scanner) error {
		if len(text) == 0 && len(image) == 0 {
			return fmt.Errorf("at least one extension required")
		}
		s.kinds = extensionKinds(text, image)
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewScanner creates a scanner for root.
func NewScanner(root string, opts ...Option) (*Scanner, error) {
	if root == "" {
		return nil, ErrRootRequired
	}
	s := &Scanner{
		root:        root,
		specialDirs: slices.Clone(DefaultSpecialDirs),
		kinds:       extensionKinds(defaultTextExts, defaultImageExts),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "corpus-scanner")
	return s, nil
}

func extensionKinds(text, image []string) map[string]Kind {
	kinds := make(map[string]Kind, len(text)+len(image))
	for _, ext := range text {
		kinds[strings.ToLower(ext)] = KindText
	}
	for _, ext := range image {
		kinds[strings.ToLower(ext)] = KindImage
	}
	return kinds
}

// Root returns the configured corpus root.
func (s *Scanner) Root() string {
	return s.root
}

// Scan enumerates the root's own files plus every file below the year and
// special directories. Only an unreadable root is fatal; unreadable
// subdirectories are logged and skipped.
func (s *Scanner) Scan(ctx context.Context) (*Corpus, error) {
	root, err := canonical(s.root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRootUnreadable, err)
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRootUnreadable, err)
	}

	seen := make(map[string]File)

	for _, entry := range entries {
		if isHidden(entry.Name()) {
			continue
		}
		full := filepath.Join(root, entry.Name())
		if !entry.IsDir() && entry.Type()&fs.ModeSymlink == 0 {
			s.add(seen, root, full, full, "")
			continue
		}
		if !s.isPartition(entry.Name()) {
			if entry.IsDir() {
				s.logger.Debug("skipping unpartitioned directory", "dir", entry.Name())
			} else {
				// symlinked file at the root
				s.add(seen, root, full, full, "")
			}
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.walk(seen, root, full, entry.Name())
	}

	files := make([]File, 0, len(seen))
	for _, f := range seen {
		files = append(files, f)
	}
	slices.SortFunc(files, func(a, b File) int {
		return strings.Compare(a.RelPath, b.RelPath)
	})

	s.logger.Info("corpus scanned", "root", root, "files", len(files))
	return &Corpus{Root: root, Files: files}, nil
}

func (s *Scanner) isPartition(name string) bool {
	return yearDirPattern.MatchString(name) || slices.Contains(s.specialDirs, name)
}

// walk adds every recognized file below dir. dir may be a symlink.
func (s *Scanner) walk(seen map[string]File, root, dir, source string) {
	resolved, err := canonical(dir)
	if err != nil {
		s.logger.Warn("skipping unreadable directory", "dir", dir, "err", err)
		return
	}
	err = filepath.WalkDir(resolved, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			s.logger.Warn("skipping unreadable path", "path", path, "err", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if isHidden(d.Name()) && path != resolved {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		found := path
		if sub, err := filepath.Rel(resolved, path); err == nil {
			found = filepath.Join(dir, sub)
		}
		s.add(seen, root, path, found, source)
		return nil
	})
	if err != nil {
		s.logger.Warn("directory walk failed", "dir", dir, "err", err)
	}
}

// add records path if its extension is recognized and its canonical form
// has not been seen yet. found is where the file was reached from the root,
// which differs from path when a directory symlink was followed.
func (s *Scanner) add(seen map[string]File, root, path, found, source string) {
	kind, ok := s.kinds[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return
	}
	abs, err := canonical(path)
	if err != nil {
		s.logger.Warn("skipping unresolvable file", "path", path, "err", err)
		return
	}
	if _, dup := seen[abs]; dup {
		return
	}
	info, err := os.Stat(abs)
	if err != nil || !info.Mode().IsRegular() {
		return
	}

	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		// target lives outside the root; identify it by where it was found
		rel, err = filepath.Rel(root, found)
		if err != nil {
			return
		}
	}

	seen[abs] = File{
		RelPath: filepath.ToSlash(rel),
		AbsPath: abs,
		Name:    filepath.Base(rel),
		Source:  source,
		Kind:    kind,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
}

func canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
