package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/poiesic/docsift/core"
	"github.com/poiesic/docsift/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS facts (
	filename        TEXT PRIMARY KEY,
	date            TEXT NOT NULL DEFAULT '',
	date_conf       INTEGER NOT NULL DEFAULT 0,
	amount          TEXT NOT NULL DEFAULT '',
	amount_conf     INTEGER NOT NULL DEFAULT 0,
	department      TEXT NOT NULL DEFAULT '',
	department_conf INTEGER NOT NULL DEFAULT 0,
	drafter         TEXT NOT NULL DEFAULT '',
	drafter_conf    INTEGER NOT NULL DEFAULT 0,
	updated_at      INTEGER NOT NULL
);`

// FactStore is a storage.FactStore backed by a SQLite file.
type FactStore struct {
	db   *sql.DB
	path string
}

var _ storage.FactStore = (*FactStore)(nil)

// NewFactStore opens (creating if needed) the fact database at dbPath.
func NewFactStore(dbPath string) (storage.FactStore, error) {
	s, err := openFactStore(dbPath)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func openFactStore(dbPath string) (*FactStore, error) {
	if dbPath == "" {
		return nil, errors.New("fact store path required")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// WAL mode lets readers proceed while a merge is in flight
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &FactStore{db: db, path: dbPath}, nil
}

// Path returns the database file path.
func (s *FactStore) Path() string {
	return s.path
}

// GetFacts returns the facts stored for filename.
func (s *FactStore) GetFacts(ctx context.Context, filename string) (core.BusinessFacts, error) {
	if filename == "" {
		return core.BusinessFacts{}, storage.ErrEmptyFilename
	}
	facts, err := scanFacts(s.db.QueryRowContext(ctx, selectFacts, filename))
	if errors.Is(err, sql.ErrNoRows) {
		return core.BusinessFacts{}, storage.ErrNotFound
	}
	if err != nil {
		return core.BusinessFacts{}, fmt.Errorf("querying facts: %w", err)
	}
	return facts, nil
}

// UpdateFacts merges facts into the stored row. Existing values with equal
// or higher confidence are kept.
func (s *FactStore) UpdateFacts(ctx context.Context, filename string, facts core.BusinessFacts) error {
	if filename == "" {
		return storage.ErrEmptyFilename
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := scanFacts(tx.QueryRowContext(ctx, selectFacts, filename))
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("querying facts: %w", err)
	}
	if !current.MergeAll(facts) {
		return nil
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO facts (filename, date, date_conf, amount, amount_conf,
			department, department_conf, drafter, drafter_conf, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(filename) DO UPDATE SET
			date = excluded.date, date_conf = excluded.date_conf,
			amount = excluded.amount, amount_conf = excluded.amount_conf,
			department = excluded.department, department_conf = excluded.department_conf,
			drafter = excluded.drafter, drafter_conf = excluded.drafter_conf,
			updated_at = excluded.updated_at`,
		filename,
		current.Date.Value, current.Date.Confidence,
		current.Amount.Value, current.Amount.Confidence,
		current.Department.Value, current.Department.Confidence,
		current.Drafter.Value, current.Drafter.Confidence,
		time.Now().UTC().Unix(),
	)
	if err != nil {
		return fmt.Errorf("upserting facts: %w", err)
	}
	return tx.Commit()
}

// Close closes the database connection.
func (s *FactStore) Close() error {
	return s.db.Close()
}

const selectFacts = `
	SELECT date, date_conf, amount, amount_conf, department, department_conf, drafter, drafter_conf
	FROM facts WHERE filename = ?`

func scanFacts(row *sql.Row) (core.BusinessFacts, error) {
	var f core.BusinessFacts
	err := row.Scan(
		&f.Date.Value, &f.Date.Confidence,
		&f.Amount.Value, &f.Amount.Confidence,
		&f.Department.Value, &f.Department.Confidence,
		&f.Drafter.Value, &f.Drafter.Confidence,
	)
	return f, err
}
