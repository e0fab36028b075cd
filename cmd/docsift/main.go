// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/docsift"
	"github.com/poiesic/docsift/backfill"
	"github.com/poiesic/docsift/config"
	"github.com/poiesic/docsift/core"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "docsift",
		Usage: "Find and question documents in a dated corpus",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file",
				Value:   "docsift.yaml",
				EnvVars: []string{"DOCSIFT_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error); overrides the config file",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "Serve Prometheus metrics on this address, e.g. :9090",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "index",
				Usage:  "Build or load the document index",
				Action: indexCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "force",
						Aliases: []string{"f"},
						Usage:   "Ignore the persisted index and rescan the corpus",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Rank documents against a query",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of results; 0 shows all",
						Value:   10,
					},
					&cli.BoolFlag{
						Name:  "explain",
						Usage: "Show the score of each signal",
					},
				},
			},
			{
				Name:      "ask",
				Usage:     "Answer a question from the best matching document; interactive without arguments",
				ArgsUsage: "[question]",
				Action:    askCommand,
			},
			{
				Name:      "extract",
				Usage:     "Print the text of an indexed document",
				ArgsUsage: "<path>",
				Action:    extractCommand,
			},
			{
				Name:   "facts",
				Usage:  "Extract and store business facts for every indexed document",
				Action: factsCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of documents to process in each batch",
						Value: backfill.DefaultBatchSize,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N documents",
						Value: 50,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum attempts per document for transient failures",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 500 * time.Millisecond,
					},
				},
			},
			{
				Name:   "stats",
				Usage:  "Show index and cache statistics",
				Action: statsCommand,
			},
		},
	}
}

// session is an open engine plus whatever the command line attached to it.
type session struct {
	engine  *docsift.Engine
	metrics *http.Server
}

func (s *session) Close() {
	if s.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.metrics.Shutdown(ctx); err != nil {
			slog.Warn("metrics server shutdown failed", "err", err)
		}
	}
	if err := s.engine.Close(); err != nil {
		slog.Error("error closing engine", "err", err)
	}
}

func openSession(c *cli.Context) (*session, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if !c.IsSet("log-level") {
		if err := installLogger(cfg.Logging.Level); err != nil {
			return nil, err
		}
	}

	opts := []docsift.Option{docsift.WithProgress(c.App.ErrWriter)}

	addr := cfg.Metrics.Addr
	if c.IsSet("metrics-addr") {
		addr = c.String("metrics-addr")
	}
	var srv *http.Server
	if addr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		opts = append(opts, docsift.WithRegisterer(reg))
		srv = serveMetrics(addr, reg)
	}

	engine, err := docsift.New(cfg, opts...)
	if err != nil {
		if srv != nil {
			srv.Close()
		}
		return nil, fmt.Errorf("failed to open engine: %w", err)
	}
	return &session{engine: engine, metrics: srv}, nil
}

func serveMetrics(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server error", "addr", addr, "err", err)
		}
	}()
	return srv
}

func commandContext(c *cli.Context) (context.Context, context.CancelFunc) {
	parent := c.Context
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func indexCommand(c *cli.Context) error {
	ctx, cancel := commandContext(c)
	defer cancel()

	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.Close()

	start := time.Now()
	idx, err := s.engine.BuildIndex(ctx, c.Bool("force"))
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Indexed %d documents (%s) in %s\n",
		idx.Len(), idx.Source(), time.Since(start).Round(time.Millisecond))
	return nil
}

func searchCommand(c *cli.Context) error {
	q := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(q) == "" {
		return errors.New("a query is required")
	}

	ctx, cancel := commandContext(c)
	defer cancel()

	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.Close()

	results, err := s.engine.Search(ctx, q, c.Int("limit"))
	if err != nil {
		return err
	}
	w := c.App.Writer
	if len(results) == 0 {
		fmt.Fprintln(w, "No matching documents.")
		return nil
	}
	for i, r := range results {
		fmt.Fprintf(w, "%2d. %s  [%.2f]\n", i+1, r.Record.Path, r.Score)
		if c.Bool("explain") {
			sig := r.Signals
			fmt.Fprintf(w, "    exact=%.2f fuzzy=%.2f substring=%.2f keyword=%.2f overlap=%.2f doctype=%.2f fact=%.2f\n",
				sig.Exact, sig.Fuzzy, sig.Substring, sig.Keyword, sig.Overlap, sig.DocType, sig.Fact)
		}
	}
	return nil
}

func askCommand(c *cli.Context) error {
	ctx, cancel := commandContext(c)
	defer cancel()

	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.Close()

	if c.Args().Present() {
		return ask(ctx, c, s.engine, strings.Join(c.Args().Slice(), " "))
	}

	w := c.App.Writer
	scanner := bufio.NewScanner(c.App.Reader)
	for {
		fmt.Fprint(w, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(w)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}
		if err := ask(ctx, c, s.engine, line); err != nil {
			if ctx.Err() != nil {
				return err
			}
			fmt.Fprintf(c.App.ErrWriter, "error: %v\n", err)
		}
	}
}

func ask(ctx context.Context, c *cli.Context, engine *docsift.Engine, q string) error {
	answer, err := engine.Ask(ctx, q)
	w := c.App.Writer
	if errors.Is(err, core.ErrNoRelevantDocument) {
		fmt.Fprintln(w, "No relevant document found.")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(w, answer.Text)
	suffix := ""
	if answer.Cached {
		suffix = " (cached)"
	}
	fmt.Fprintf(w, "\nSource: %s%s\n", answer.Source.Path, suffix)
	for _, field := range []core.FactField{core.FactDate, core.FactAmount, core.FactDepartment, core.FactDrafter} {
		if fact := answer.Source.Facts.Get(field); fact.IsSet() {
			fmt.Fprintf(w, "  %s: %s\n", field, fact.Value)
		}
	}
	return nil
}

func extractCommand(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return errors.New("exactly one document path is required")
	}

	ctx, cancel := commandContext(c)
	defer cancel()

	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.Close()

	res, err := s.engine.ExtractText(ctx, c.Args().First())
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.ErrWriter, "method=%s pages=%d\n", res.Method, res.PageCount)
	fmt.Fprintln(c.App.Writer, res.Text)
	return nil
}

func factsCommand(c *cli.Context) error {
	cfg := &backfill.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := commandContext(c)
	defer cancel()

	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.Close()

	summary, err := s.engine.BackfillFacts(ctx, cfg)
	if err != nil {
		return fmt.Errorf("fact backfill failed: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "%d documents: %d with facts, %d without, %d unreadable\n",
		summary.Documents, summary.Filled, summary.Empty, summary.Skipped)
	return nil
}

func statsCommand(c *cli.Context) error {
	ctx, cancel := commandContext(c)
	defer cancel()

	s, err := openSession(c)
	if err != nil {
		return err
	}
	defer s.Close()

	if _, err := s.engine.BuildIndex(ctx, false); err != nil {
		return err
	}
	stats := s.engine.Stats()

	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Documents:\t%d\n", stats.Documents)
	fmt.Fprintf(tw, "Built at:\t%s\n", stats.BuiltAt.Format(time.RFC3339))
	fmt.Fprintf(tw, "Source:\t%s\n", stats.Source)
	fmt.Fprintf(tw, "OCR engine:\t%s\n", stats.OCREngine)
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "CACHE\tSIZE\tCAPACITY\tHITS\tMISSES\tEVICTIONS\tEXPIRED")
	for _, cs := range stats.Caches {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\n",
			cs.Name, cs.Size, cs.Capacity, cs.Hits, cs.Misses, cs.Evictions, cs.Expired)
	}
	return tw.Flush()
}

func setupLogger(c *cli.Context) error {
	level := c.String("log-level")
	if level == "" {
		level = "info"
	}
	return installLogger(level)
}

func installLogger(levelStr string) error {
	// Map string to slog.Level
	var level slog.Level
	switch strings.ToLower(levelStr) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return nil
}
