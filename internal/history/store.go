// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history records conversion batches in a SQLite ledger so past
// runs can be listed and exported. The ledger is write-only from the
// engine's point of view: nothing in it influences a later conversion.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/heicconv/pkg/types"
)

const dbFile = "history.db"

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrBatchNotFound is returned when no batch matches an ID or prefix.
var ErrBatchNotFound = errors.New("batch not found")

// Store manages the history SQLite database.
type Store struct {
	db *sql.DB
}

// Batch is one recorded request with its aggregate counts. Results is only
// populated by Store.Batch.
type Batch struct {
	ID         string                   `json:"id" yaml:"id"`
	StartedAt  time.Time                `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time                `json:"finished_at" yaml:"finished_at"`
	Request    types.ConversionRequest  `json:"request" yaml:"request"`
	Codec      string                   `json:"codec" yaml:"codec"`
	Converted  int                      `json:"converted" yaml:"converted"`
	Skipped    int                      `json:"skipped" yaml:"skipped"`
	Failed     int                      `json:"failed" yaml:"failed"`
	Cancelled  bool                     `json:"cancelled,omitempty" yaml:"cancelled,omitempty"`
	Results    []types.ConversionResult `json:"results,omitempty" yaml:"results,omitempty"`
}

// DefaultDir returns the directory used when none is configured.
func DefaultDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "heicconv")
	}
	return "."
}

// NewStore opens or creates dir/history.db and its schema.
func NewStore(cfg types.HistoryConfig) (*Store, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = DefaultDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS batches (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			root TEXT NOT NULL,
			recursive INTEGER NOT NULL,
			overwrite INTEGER NOT NULL,
			remove_source INTEGER NOT NULL,
			codec TEXT,
			converted INTEGER NOT NULL,
			skipped INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			cancelled INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS results (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			batch_id TEXT NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			source_path TEXT NOT NULL,
			destination_path TEXT,
			outcome TEXT NOT NULL,
			reason TEXT,
			error_kind TEXT,
			error TEXT,
			source_deleted INTEGER NOT NULL,
			warning TEXT,
			duration_ms INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_batch ON results(batch_id, seq)`,
		`CREATE INDEX IF NOT EXISTS idx_batches_started ON batches(started_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores one finished batch and returns its generated ID.
func (s *Store) Record(ctx context.Context, req types.ConversionRequest, codecName string, startedAt time.Time, report types.BatchReport) (string, error) {
	id := uuid.NewString()
	finishedAt := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO batches (id, started_at, finished_at, root, recursive, overwrite, remove_source,
			codec, converted, skipped, failed, cancelled)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, startedAt.UTC().Format(timeLayout), finishedAt.Format(timeLayout),
		req.SourcePath, req.Recursive, req.Overwrite, req.RemoveSource,
		codecName, report.Converted(), report.Skipped(), report.Failed(), report.Cancelled,
	)
	if err != nil {
		return "", fmt.Errorf("inserting batch: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO results (batch_id, seq, source_path, destination_path, outcome, reason,
			error_kind, error, source_deleted, warning, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range report.Results {
		_, err := stmt.ExecContext(ctx,
			id, i, r.SourcePath, r.DestinationPath, string(r.Outcome), r.Reason,
			string(r.ErrorKind), r.Error, r.SourceDeleted, r.Warning, r.Duration.Milliseconds(),
		)
		if err != nil {
			return "", fmt.Errorf("inserting result %s: %w", r.SourcePath, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing batch: %w", err)
	}
	return id, nil
}

// Batches returns the most recent batches, newest first, without results.
func (s *Store) Batches(ctx context.Context, limit int) ([]Batch, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, root, recursive, overwrite, remove_source,
			codec, converted, skipped, failed, cancelled
		 FROM batches ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying batches: %w", err)
	}
	defer rows.Close()

	var batches []Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

// Batch returns one batch with its results in report order. id may be a
// unique prefix of the full ID.
func (s *Store) Batch(ctx context.Context, id string) (Batch, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, root, recursive, overwrite, remove_source,
			codec, converted, skipped, failed, cancelled
		 FROM batches WHERE substr(id, 1, length(?)) = ? LIMIT 2`, id, id)
	if err != nil {
		return Batch{}, fmt.Errorf("querying batch: %w", err)
	}
	var matches []Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			rows.Close()
			return Batch{}, err
		}
		matches = append(matches, b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Batch{}, err
	}

	switch len(matches) {
	case 0:
		return Batch{}, fmt.Errorf("%w: %s", ErrBatchNotFound, id)
	case 1:
	default:
		return Batch{}, fmt.Errorf("batch id %q is ambiguous", id)
	}

	b := matches[0]
	b.Results, err = s.results(ctx, b.ID)
	if err != nil {
		return Batch{}, err
	}
	return b, nil
}

func (s *Store) results(ctx context.Context, batchID string) ([]types.ConversionResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source_path, destination_path, outcome, reason, error_kind, error,
			source_deleted, warning, duration_ms
		 FROM results WHERE batch_id = ? ORDER BY seq`, batchID)
	if err != nil {
		return nil, fmt.Errorf("querying results: %w", err)
	}
	defer rows.Close()

	var out []types.ConversionResult
	for rows.Next() {
		var (
			r                                    types.ConversionResult
			dest, reason, kind, errText, warning sql.NullString
			outcome                              string
			durationMS                           sql.NullInt64
		)
		if err := rows.Scan(&r.SourcePath, &dest, &outcome, &reason, &kind, &errText,
			&r.SourceDeleted, &warning, &durationMS); err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		r.DestinationPath = dest.String
		r.Outcome = types.Outcome(outcome)
		r.Reason = reason.String
		r.ErrorKind = types.ErrorKind(kind.String)
		r.Error = errText.String
		r.Warning = warning.String
		r.Duration = time.Duration(durationMS.Int64) * time.Millisecond
		out = append(out, r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBatch(row scanner) (Batch, error) {
	var (
		b                 Batch
		started, finished string
		codecName         sql.NullString
	)
	err := row.Scan(&b.ID, &started, &finished, &b.Request.SourcePath,
		&b.Request.Recursive, &b.Request.Overwrite, &b.Request.RemoveSource,
		&codecName, &b.Converted, &b.Skipped, &b.Failed, &b.Cancelled)
	if err != nil {
		return Batch{}, fmt.Errorf("scanning batch: %w", err)
	}
	b.Codec = codecName.String
	b.StartedAt, _ = time.Parse(timeLayout, started)
	b.FinishedAt, _ = time.Parse(timeLayout, finished)
	return b, nil
}
