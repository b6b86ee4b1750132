package usage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Record represents one completed ai! block run.
type Record struct {
	ID           string
	Timestamp    time.Time
	File         string
	Model        string
	InputTokens  int
	OutputTokens int
	Rounds       int // backend round trips, 1 for a plain answer
}

// Summary holds aggregated totals over block runs.
type Summary struct {
	TotalBlocks       int
	TotalInputTokens  int64
	TotalOutputTokens int64
	TotalRounds       int64
}

// Store is an append-only SQLite history of block runs. A nil *Store is
// valid: Record and Close become no-ops, so callers without a configured
// history path need no branching.
type Store struct {
	db *sql.DB
}

// Open creates a store at the given database path. The schema is
// created automatically on first use.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open usage database: %w", err)
	}
	s, err := New(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing database handle and creates the schema if it is
// missing. The caller keeps ownership of the handle's driver choice.
func New(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate usage schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS block_runs (
		id            TEXT PRIMARY KEY,
		timestamp     TEXT NOT NULL,
		file          TEXT NOT NULL,
		model         TEXT NOT NULL,
		input_tokens  INTEGER NOT NULL,
		output_tokens INTEGER NOT NULL,
		rounds        INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_block_runs_timestamp ON block_runs(timestamp);
	CREATE INDEX IF NOT EXISTS idx_block_runs_file ON block_runs(file);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record persists a block run. If rec.ID is empty, a UUIDv7 is
// generated. The context is used for cancellation only.
func (s *Store) Record(ctx context.Context, rec Record) error {
	if s == nil {
		return nil
	}
	if rec.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generate block run ID: %w", err)
		}
		rec.ID = id.String()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO block_runs
			(id, timestamp, file, model, input_tokens, output_tokens, rounds)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.Timestamp.UTC().Format(time.RFC3339),
		rec.File,
		rec.Model,
		rec.InputTokens,
		rec.OutputTokens,
		rec.Rounds,
	)
	if err != nil {
		return fmt.Errorf("insert block run: %w", err)
	}
	return nil
}

// Summary returns aggregated totals for runs within [start, end).
func (s *Store) Summary(start, end time.Time) (*Summary, error) {
	row := s.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(input_tokens), 0), COALESCE(SUM(output_tokens), 0), COALESCE(SUM(rounds), 0)
		 FROM block_runs
		 WHERE timestamp >= ? AND timestamp < ?`,
		start.UTC().Format(time.RFC3339),
		end.UTC().Format(time.RFC3339),
	)

	var sum Summary
	if err := row.Scan(&sum.TotalBlocks, &sum.TotalInputTokens, &sum.TotalOutputTokens, &sum.TotalRounds); err != nil {
		return nil, fmt.Errorf("query usage summary: %w", err)
	}
	return &sum, nil
}

// SummaryByModel returns per-model totals for runs within [start, end).
func (s *Store) SummaryByModel(start, end time.Time) (map[string]*Summary, error) {
	return s.summaryGroupedBy("model", start, end)
}

// SummaryByFile returns per-file totals for runs within [start, end).
func (s *Store) SummaryByFile(start, end time.Time) (map[string]*Summary, error) {
	return s.summaryGroupedBy("file", start, end)
}

func (s *Store) summaryGroupedBy(column string, start, end time.Time) (map[string]*Summary, error) {
	// column is always a compile-time constant from our own methods,
	// never user input, so embedding it directly is safe.
	query := fmt.Sprintf(
		`SELECT COALESCE(%s, ''), COUNT(*), COALESCE(SUM(input_tokens), 0), COALESCE(SUM(output_tokens), 0), COALESCE(SUM(rounds), 0)
		 FROM block_runs
		 WHERE timestamp >= ? AND timestamp < ?
		 GROUP BY %s
		 ORDER BY SUM(input_tokens + output_tokens) DESC`,
		column, column,
	)

	rows, err := s.db.Query(query,
		start.UTC().Format(time.RFC3339),
		end.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("query usage by %s: %w", column, err)
	}
	defer rows.Close()

	result := make(map[string]*Summary)
	for rows.Next() {
		var key string
		var sum Summary
		if err := rows.Scan(&key, &sum.TotalBlocks, &sum.TotalInputTokens, &sum.TotalOutputTokens, &sum.TotalRounds); err != nil {
			return nil, fmt.Errorf("scan usage by %s: %w", column, err)
		}
		result[key] = &sum
	}
	return result, rows.Err()
}
