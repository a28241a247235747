package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ErrUnknownTable is returned when a table name is not part of the schema.
var ErrUnknownTable = errors.New("unknown table")

// Store renders dialect-specific statements and caches insert queries per table.
type Store struct {
	dialect Dialect

	mu      sync.Mutex
	inserts map[string]string
}

// NewStore returns a Store for the given dialect.
func NewStore(d Dialect) *Store {
	return &Store{
		dialect: d,
		inserts: make(map[string]string),
	}
}

// Dialect returns the SQL flavour the store renders for.
func (s *Store) Dialect() Dialect { return s.dialect }

func (s *Store) insertQuery(t Table) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q, ok := s.inserts[t.Name]; ok {
		return q
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(t.Columns)), ", ")
	q := s.dialect.Rebind(fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT DO NOTHING RETURNING id",
		t.Name, strings.Join(t.Columns, ", "), placeholders,
	))
	s.inserts[t.Name] = q
	return q
}

// Insert adds one row to t and returns its generated id. A row suppressed by
// a key conflict is not an error; Insert then returns id 0.
func (s *Store) Insert(ctx context.Context, ex DBExecutor, t Table, args ...any) (int64, error) {
	if len(args) != len(t.Columns) {
		return 0, errors.Errorf("insert %s: got %d values for %d columns", t.Name, len(args), len(t.Columns))
	}
	var id int64
	err := ex.QueryRowContext(ctx, s.insertQuery(t), args...).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrapf(err, "insert %s", t.Name)
	}
	return id, nil
}

// LastProcessedLine returns the highest line number among committed Word rows,
// or 0 when nothing has been ingested.
func (s *Store) LastProcessedLine(ctx context.Context, ex DBExecutor) (int64, error) {
	var line int64
	err := ex.QueryRowContext(ctx, "SELECT COALESCE(MAX(line_number), 0) FROM Word").Scan(&line)
	if err != nil {
		return 0, errors.Wrap(err, "read checkpoint")
	}
	return line, nil
}

// CountRows returns the number of rows in the named entry table.
func (s *Store) CountRows(ctx context.Context, ex DBExecutor, table string) (int64, error) {
	if !isEntryTable(table) {
		return 0, errors.Wrapf(ErrUnknownTable, "%q", table)
	}
	var n int64
	if err := ex.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, errors.Wrapf(err, "count %s", table)
	}
	return n, nil
}

// CountAll returns row counts for every entry table in schema order.
func (s *Store) CountAll(ctx context.Context, ex DBExecutor) ([]TableCount, error) {
	out := make([]TableCount, 0, len(EntryTables))
	for _, t := range EntryTables {
		n, err := s.CountRows(ctx, ex, t.Name)
		if err != nil {
			return nil, err
		}
		out = append(out, TableCount{Table: t.Name, Rows: n})
	}
	return out, nil
}

func isEntryTable(name string) bool {
	for _, t := range EntryTables {
		if t.Name == name {
			return true
		}
	}
	return false
}

// StartRun records the beginning of an ingestion pass.
func (s *Store) StartRun(ctx context.Context, ex DBExecutor, runID, feed string, startLine int64, at time.Time) error {
	_, err := ex.ExecContext(ctx, s.dialect.Rebind(
		`INSERT INTO IngestRun (run_id, feed, start_line, started_at) VALUES (?, ?, ?, ?)`),
		runID, feed, startLine, at.UTC().Format(time.RFC3339))
	return errors.Wrap(err, "record run start")
}

// FinishRun stores the outcome of an ingestion pass started with StartRun.
func (s *Store) FinishRun(ctx context.Context, ex DBExecutor, runID string, lastLine, ingested, failed int64, at time.Time) error {
	_, err := ex.ExecContext(ctx, s.dialect.Rebind(
		`UPDATE IngestRun SET last_line = ?, ingested = ?, failed = ?, finished_at = ? WHERE run_id = ?`),
		lastLine, ingested, failed, at.UTC().Format(time.RFC3339), runID)
	return errors.Wrap(err, "record run finish")
}

// LatestRun returns the most recently started run, or nil if none exist.
func (s *Store) LatestRun(ctx context.Context, ex DBExecutor) (*Run, error) {
	var r Run
	var feed, finished sql.NullString
	var last, ingested, failed sql.NullInt64
	err := ex.QueryRowContext(ctx,
		`SELECT run_id, feed, start_line, last_line, ingested, failed, started_at, finished_at
		 FROM IngestRun ORDER BY started_at DESC, run_id DESC LIMIT 1`,
	).Scan(&r.ID, &feed, &r.StartLine, &last, &ingested, &failed, &r.StartedAt, &finished)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read latest run")
	}
	r.Feed = feed.String
	r.LastLine = last.Int64
	r.Ingested = ingested.Int64
	r.Failed = failed.Int64
	r.FinishedAt = finished.String
	return &r, nil
}
