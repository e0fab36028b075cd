package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/poiesic/docsift/ai"
	"github.com/poiesic/docsift/cache"
	"github.com/poiesic/docsift/corpus"
	"github.com/poiesic/docsift/extract"
	"github.com/poiesic/docsift/index"
	"github.com/poiesic/docsift/search"
)

// Config holds the docsift configuration.
type Config struct {
	Corpus     CorpusConfig     `yaml:"corpus"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Index      IndexConfig      `yaml:"index"`
	Cache      CacheConfig      `yaml:"cache"`
	Scoring    ScoringConfig    `yaml:"scoring"`
	Facts      FactsConfig      `yaml:"facts"`
	AI         AIConfig         `yaml:"ai"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// CorpusConfig locates the document corpus.
type CorpusConfig struct {
	Root        string   `yaml:"root"`
	SpecialDirs []string `yaml:"special_dirs"` // scanned in addition to year directories
}

// ExtractionConfig holds text extraction and worker pool settings.
type ExtractionConfig struct {
	MaxPages       int           `yaml:"max_pages"`
	MaxTextLength  int           `yaml:"max_text_length"`
	SamplePages    int           `yaml:"sample_pages"`
	MinTextLength  int           `yaml:"min_text_length"`
	OCRLang        string        `yaml:"ocr_lang"`
	OCRDPI         int           `yaml:"ocr_dpi"`
	OCRMaxPages    int           `yaml:"ocr_max_pages"`
	OCRDisabled    bool          `yaml:"ocr_disabled"`
	MaxMergeLength int           `yaml:"max_merge_length"`
	Workers        int           `yaml:"workers"` // default: NumCPU/2, min 1
	TaskTimeout    time.Duration `yaml:"task_timeout"`
}

// IndexConfig holds index build and persistence settings.
type IndexConfig struct {
	StorePath      string `yaml:"store_path"` // badger directory; empty keeps the index in memory
	BatchThreshold int    `yaml:"batch_threshold"`
	BatchSize      int    `yaml:"batch_size"`
	ExcerptLength  int    `yaml:"excerpt_length"`
	FactPages      int    `yaml:"fact_pages"`
}

// CacheLimits bounds one cache.
type CacheLimits struct {
	MaxEntries int           `yaml:"max_entries"`
	TTL        time.Duration `yaml:"ttl"`
}

// CacheConfig bounds the three engine caches.
type CacheConfig struct {
	Metadata CacheLimits `yaml:"metadata"`
	Text     CacheLimits `yaml:"text"`
	Answer   CacheLimits `yaml:"answer"`
}

// ScoringConfig holds the relevance weights. A zero weight disables its signal.
type ScoringConfig struct {
	ExactPerRune    float64  `yaml:"exact_per_rune"`
	FuzzyThreshold  float64  `yaml:"fuzzy_threshold"`
	FuzzyMaxLenDiff int      `yaml:"fuzzy_max_len_diff"`
	FuzzyPerRune    float64  `yaml:"fuzzy_per_rune"`
	Substring       float64  `yaml:"substring"`
	SubstringMinLen int      `yaml:"substring_min_len"`
	Keyword         float64  `yaml:"keyword"`
	Overlap         float64  `yaml:"overlap"`
	DocType         float64  `yaml:"doc_type"`
	DocTypePhrases  []string `yaml:"doc_type_phrases"`
}

// FactsConfig selects the structured-fact store.
type FactsConfig struct {
	Store      string  `yaml:"store"` // badger, sqlite, none
	SQLitePath string  `yaml:"sqlite_path"`
	Boost      float64 `yaml:"boost"`
}

// AIConfig holds answer generation settings. When disabled, answers are the
// matched document's own text.
type AIConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Model           string        `yaml:"model"`
	Token           string        `yaml:"token"`
	Temperature     float64       `yaml:"temperature"`
	Timeout         time.Duration `yaml:"timeout"`
	MaxContextRunes int           `yaml:"max_context_runes"`
	MaxAttempts     int           `yaml:"max_attempts"`
}

// MetricsConfig holds the Prometheus endpoint address. Empty disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: info)
}

// Fact store kinds.
const (
	FactStoreBadger = "badger"
	FactStoreSQLite = "sqlite"
	FactStoreNone   = "none"
)

// Default returns the built-in configuration.
func Default() *Config {
	ext := extract.DefaultConfig()
	idx := index.DefaultConfig()
	caches := cache.DefaultConfig()
	w := search.DefaultWeights()
	answer := ai.DefaultConfig()

	return &Config{
		Corpus: CorpusConfig{
			Root:        "./documents",
			SpecialDirs: append([]string(nil), corpus.DefaultSpecialDirs...),
		},
		Extraction: ExtractionConfig{
			MaxPages:       ext.MaxPages,
			MaxTextLength:  ext.MaxTextLength,
			SamplePages:    ext.SamplePages,
			MinTextLength:  ext.MinTextLength,
			OCRLang:        ext.OCRLang,
			OCRDPI:         300,
			OCRMaxPages:    10,
			MaxMergeLength: ext.MaxMergeLength,
			Workers:        defaultWorkers(),
			TaskTimeout:    60 * time.Second,
		},
		Index: IndexConfig{
			StorePath:      ".docsift/index",
			BatchThreshold: idx.BatchThreshold,
			BatchSize:      idx.BatchSize,
			ExcerptLength:  idx.ExcerptLength,
			FactPages:      idx.FactPages,
		},
		Cache: CacheConfig{
			Metadata: CacheLimits{MaxEntries: caches.Metadata.MaxEntries, TTL: caches.Metadata.TTL},
			Text:     CacheLimits{MaxEntries: caches.Text.MaxEntries, TTL: caches.Text.TTL},
			Answer:   CacheLimits{MaxEntries: caches.Answers.MaxEntries, TTL: caches.Answers.TTL},
		},
		Scoring: ScoringConfig{
			ExactPerRune:    w.ExactPerRune,
			FuzzyThreshold:  w.FuzzyThreshold,
			FuzzyMaxLenDiff: w.FuzzyMaxLenDiff,
			FuzzyPerRune:    w.FuzzyPerRune,
			Substring:       w.Substring,
			SubstringMinLen: w.SubstringMinLen,
			Keyword:         w.Keyword,
			Overlap:         w.Overlap,
			DocType:         w.DocType,
			DocTypePhrases:  append([]string(nil), search.DefaultDocTypePhrases...),
		},
		Facts: FactsConfig{
			Store: FactStoreBadger,
			Boost: w.FactBoost,
		},
		AI: AIConfig{
			Host:            answer.Host,
			Model:           answer.Model,
			Token:           answer.Token,
			Temperature:     answer.Temperature,
			Timeout:         answer.Timeout,
			MaxContextRunes: answer.MaxContextRunes,
			MaxAttempts:     answer.MaxAttempts,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

func defaultWorkers() int {
	return max(runtime.NumCPU()/2, 1)
}

// Load reads configuration from a YAML file. A .env file next to the config
// file or in the working directory is loaded first; variables already set
// in the environment win. ${VAR} and ${VAR:-default} in the file are
// expanded before parsing. Keys absent from the file keep their defaults,
// and a missing file yields the defaults. DOCSIFT_* variables override the
// result.
func Load(path string) (*Config, error) {
	if path != "" {
		_ = godotenv.Load(filepath.Join(filepath.Dir(path), ".env"))
	}
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		switch {
		case err == nil:
			data = expandEnvVars(data)
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// envOverrides maps environment variables onto string settings.
var envOverrides = []struct {
	name  string
	field func(*Config) *string
}{
	{"DOCSIFT_CORPUS_ROOT", func(c *Config) *string { return &c.Corpus.Root }},
	{"DOCSIFT_INDEX_PATH", func(c *Config) *string { return &c.Index.StorePath }},
	{"DOCSIFT_AI_HOST", func(c *Config) *string { return &c.AI.Host }},
	{"DOCSIFT_AI_MODEL", func(c *Config) *string { return &c.AI.Model }},
	{"DOCSIFT_AI_TOKEN", func(c *Config) *string { return &c.AI.Token }},
	{"DOCSIFT_METRICS_ADDR", func(c *Config) *string { return &c.Metrics.Addr }},
	{"DOCSIFT_LOG_LEVEL", func(c *Config) *string { return &c.Logging.Level }},
}

func (c *Config) applyEnv() {
	for _, o := range envOverrides {
		if v, ok := os.LookupEnv(o.name); ok && v != "" {
			*o.field(c) = v
		}
	}
}

// ApplyDefaults fills settings that must be positive but were left zero.
// Zero scoring weights are kept: they disable a signal.
func (c *Config) ApplyDefaults() {
	def := Default()
	if c.Extraction.Workers <= 0 {
		c.Extraction.Workers = def.Extraction.Workers
	}
	if c.Extraction.TaskTimeout <= 0 {
		c.Extraction.TaskTimeout = def.Extraction.TaskTimeout
	}
	if c.Extraction.OCRDPI <= 0 {
		c.Extraction.OCRDPI = def.Extraction.OCRDPI
	}
	if c.Extraction.OCRMaxPages <= 0 {
		c.Extraction.OCRMaxPages = def.Extraction.OCRMaxPages
	}
	if c.Extraction.OCRLang == "" {
		c.Extraction.OCRLang = def.Extraction.OCRLang
	}
	if c.Index.BatchThreshold <= 0 {
		c.Index.BatchThreshold = def.Index.BatchThreshold
	}
	if c.Index.BatchSize <= 0 {
		c.Index.BatchSize = def.Index.BatchSize
	}
	if c.Facts.Store == "" {
		c.Facts.Store = def.Facts.Store
	}
	if c.Facts.Store == FactStoreSQLite && c.Facts.SQLitePath == "" {
		c.Facts.SQLitePath = ".docsift/facts.db"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
	c.Logging.Level = strings.ToLower(c.Logging.Level)
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.Corpus.Root == "" {
		return errors.New("corpus.root is required")
	}
	if err := c.ExtractConfig().Validate(); err != nil {
		return fmt.Errorf("extraction: %w", err)
	}
	if c.Index.ExcerptLength < 0 || c.Index.FactPages < 0 {
		return errors.New("index.excerpt_length and index.fact_pages cannot be negative")
	}
	for name, l := range map[string]CacheLimits{
		cache.MetadataCache: c.Cache.Metadata,
		cache.TextCache:     c.Cache.Text,
		cache.AnswerCache:   c.Cache.Answer,
	} {
		if l.MaxEntries <= 0 {
			return fmt.Errorf("cache.%s.max_entries must be positive, got %d", name, l.MaxEntries)
		}
		if l.TTL < 0 {
			return fmt.Errorf("cache.%s.ttl cannot be negative", name)
		}
	}
	if err := c.Weights().Validate(); err != nil {
		return fmt.Errorf("scoring: %w", err)
	}
	switch c.Facts.Store {
	case FactStoreBadger, FactStoreNone:
	case FactStoreSQLite:
		if c.Facts.SQLitePath == "" {
			return errors.New("facts.sqlite_path is required for the sqlite store")
		}
	default:
		return fmt.Errorf("facts.store must be badger, sqlite or none, got %q", c.Facts.Store)
	}
	if c.AI.Enabled {
		if err := c.AnswerConfig().Validate(); err != nil {
			return err
		}
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}

// ExtractConfig returns the extractor settings.
func (c *Config) ExtractConfig() extract.Config {
	return extract.Config{
		MaxPages:       c.Extraction.MaxPages,
		MaxTextLength:  c.Extraction.MaxTextLength,
		SamplePages:    c.Extraction.SamplePages,
		MinTextLength:  c.Extraction.MinTextLength,
		OCRLang:        c.Extraction.OCRLang,
		MaxMergeLength: c.Extraction.MaxMergeLength,
	}
}

// IndexConfig returns the index build settings.
func (c *Config) IndexConfig() index.Config {
	return index.Config{
		BatchThreshold: c.Index.BatchThreshold,
		BatchSize:      c.Index.BatchSize,
		ExcerptLength:  c.Index.ExcerptLength,
		FactPages:      c.Index.FactPages,
	}
}

// CacheConfig returns the cache bounds.
func (c *Config) CacheConfig() cache.Config {
	return cache.Config{
		Metadata: cache.Limits{MaxEntries: c.Cache.Metadata.MaxEntries, TTL: c.Cache.Metadata.TTL},
		Text:     cache.Limits{MaxEntries: c.Cache.Text.MaxEntries, TTL: c.Cache.Text.TTL},
		Answers:  cache.Limits{MaxEntries: c.Cache.Answer.MaxEntries, TTL: c.Cache.Answer.TTL},
	}
}

// Weights returns the scoring weights, including the fact boost.
func (c *Config) Weights() search.Weights {
	return search.Weights{
		ExactPerRune:    c.Scoring.ExactPerRune,
		FuzzyThreshold:  c.Scoring.FuzzyThreshold,
		FuzzyMaxLenDiff: c.Scoring.FuzzyMaxLenDiff,
		FuzzyPerRune:    c.Scoring.FuzzyPerRune,
		Substring:       c.Scoring.Substring,
		SubstringMinLen: c.Scoring.SubstringMinLen,
		Keyword:         c.Scoring.Keyword,
		Overlap:         c.Scoring.Overlap,
		DocType:         c.Scoring.DocType,
		FactBoost:       c.Facts.Boost,
	}
}

// AnswerConfig returns the answer generation settings.
func (c *Config) AnswerConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithHost(c.AI.Host),
		ai.WithModel(c.AI.Model),
		ai.WithToken(c.AI.Token),
		ai.WithTemperature(c.AI.Temperature),
		ai.WithTimeout(c.AI.Timeout),
		ai.WithMaxContextRunes(c.AI.MaxContextRunes),
		ai.WithRetry(c.AI.MaxAttempts, ai.DefaultConfig().RetryDelay),
	)
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
