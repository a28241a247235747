package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupScratchDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })

	_, err = conn.Exec("CREATE TABLE test (id INTEGER PRIMARY KEY, val TEXT)")
	require.NoError(t, err)
	return conn
}

func insertVal(val string) WriteFunc {
	return func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "INSERT INTO test (val) VALUES (?)", val)
		return err
	}
}

func countScratch(t *testing.T, conn *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, conn.QueryRow("SELECT COUNT(*) FROM test").Scan(&n))
	return n
}

func TestBatchWriterTransactions(t *testing.T) {
	conn := setupScratchDB(t)
	ctx := context.Background()

	bw := NewBatchWriter(conn, 2)
	require.NoError(t, bw.Submit(ctx, 1, insertVal("A")))
	assert.Equal(t, 1, bw.Pending())
	require.NoError(t, bw.Submit(ctx, 2, insertVal("B")))
	assert.Equal(t, 0, bw.Pending(), "full buffer flushes on submit")

	assert.Equal(t, 2, countScratch(t, conn))
	require.NoError(t, bw.Close(ctx))
}

func TestBatchWriterIsolatesFailingRecord(t *testing.T) {
	conn := setupScratchDB(t)
	ctx := context.Background()

	bw := NewBatchWriter(conn, 3)
	var failed []int64
	bw.OnError = func(line int64, err error) {
		assert.Error(t, err)
		failed = append(failed, line)
	}
	var stats FlushStats
	bw.OnFlush = func(s FlushStats) { stats = s }

	require.NoError(t, bw.Submit(ctx, 7, insertVal("C")))
	require.NoError(t, bw.Submit(ctx, 8, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO test (val) VALUES (?)", "partial"); err != nil {
			return err
		}
		return fmt.Errorf("intentional error")
	}))
	require.NoError(t, bw.Submit(ctx, 9, insertVal("D")))

	assert.Equal(t, []int64{8}, failed)
	assert.Equal(t, 3, stats.Records)
	assert.Equal(t, 2, stats.Committed)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, int64(9), stats.LastCommitted)

	var partial int
	require.NoError(t, conn.QueryRow("SELECT COUNT(*) FROM test WHERE val = 'partial'").Scan(&partial))
	assert.Zero(t, partial, "failed record must be rolled back")
	assert.Equal(t, 2, countScratch(t, conn))
}

func TestBatchWriterFlushesBySize(t *testing.T) {
	ctx := context.Background()
	bw := NewBatchWriter(nil, 5)
	flushes := 0
	bw.OnFlush = func(FlushStats) { flushes++ }

	called := 0
	for i := 1; i <= 12; i++ {
		require.NoError(t, bw.Submit(ctx, int64(i), func(ctx context.Context, tx *sql.Tx) error {
			assert.Nil(t, tx)
			called++
			return nil
		}))
	}
	assert.Equal(t, 10, called)
	require.NoError(t, bw.Close(ctx))
	assert.Equal(t, 12, called)
	assert.Equal(t, 3, flushes)
}

func TestBatchWriterRunsInSubmissionOrder(t *testing.T) {
	ctx := context.Background()
	bw := NewBatchWriter(nil, 4)
	var order []int64
	for _, line := range []int64{3, 1, 2} {
		line := line
		require.NoError(t, bw.Submit(ctx, line, func(context.Context, *sql.Tx) error {
			order = append(order, line)
			return nil
		}))
	}
	stats := bw.Flush(ctx)
	assert.Equal(t, []int64{3, 1, 2}, order)
	assert.Equal(t, int64(3), stats.LastCommitted)
}

func TestBatchWriterEmptyFlushIsSilent(t *testing.T) {
	bw := NewBatchWriter(nil, 2)
	bw.OnFlush = func(FlushStats) { t.Fatal("OnFlush called for empty buffer") }
	assert.Zero(t, bw.Flush(context.Background()).Records)
}

func TestBatchWriterClosed(t *testing.T) {
	ctx := context.Background()
	bw := NewBatchWriter(nil, 2)
	require.NoError(t, bw.Close(ctx))
	assert.ErrorIs(t, bw.Submit(ctx, 1, func(context.Context, *sql.Tx) error { return nil }), ErrBatchWriterClosed)
	assert.ErrorIs(t, bw.Close(ctx), ErrBatchWriterClosed)
}

func TestBatchWriterBeginFailureIsReported(t *testing.T) {
	conn := setupScratchDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	bw := NewBatchWriter(conn, 1)
	var failed []int64
	bw.OnError = func(line int64, err error) { failed = append(failed, line) }
	require.NoError(t, bw.Submit(ctx, 4, insertVal("E")))

	assert.Equal(t, []int64{4}, failed)
	assert.Zero(t, countScratch(t, conn))
}
