package ingest

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
)

// WriteFunc is a callback that performs database writes inside a transaction.
type WriteFunc func(ctx context.Context, tx *sql.Tx) error

// Job is one record's worth of writes tagged with its feed line.
type Job struct {
	Line  int64
	Write WriteFunc
}

// FlushStats summarizes one flushed batch.
type FlushStats struct {
	Records   int
	Committed int
	Failed    int
	// LastCommitted is the highest line committed in the batch, 0 if none.
	LastCommitted int64
	Elapsed       time.Duration
}

// BatchWriter buffers jobs and, once the buffer is full, runs each of them in
// its own transaction in submission order. A failing job is rolled back and
// reported through OnError; it never affects its neighbours.
type BatchWriter struct {
	db     *sql.DB
	buf    []Job
	cap    int
	closed bool

	// OnError is called for every job whose writes were rolled back.
	OnError func(line int64, err error)
	// OnFlush is called after every non-empty flush.
	OnFlush func(FlushStats)
}

// ErrBatchWriterClosed is returned by Submit after Close.
var ErrBatchWriterClosed = errors.New("batch writer closed")

// NewBatchWriter creates a new BatchWriter.
// db: the database connection to use for transactions; nil runs jobs with a nil tx.
// bufferSize: flush when buffer reaches this size.
func NewBatchWriter(db *sql.DB, bufferSize int) *BatchWriter {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &BatchWriter{
		db:  db,
		buf: make([]Job, 0, bufferSize),
		cap: bufferSize,
	}
}

// Submit enqueues a job and flushes when the buffer is full.
func (bw *BatchWriter) Submit(ctx context.Context, line int64, w WriteFunc) error {
	if bw.closed {
		return ErrBatchWriterClosed
	}
	bw.buf = append(bw.buf, Job{Line: line, Write: w})
	if len(bw.buf) >= bw.cap {
		bw.Flush(ctx)
	}
	return nil
}

// Pending returns the number of buffered jobs.
func (bw *BatchWriter) Pending() int { return len(bw.buf) }

// Flush runs every buffered job and clears the buffer.
func (bw *BatchWriter) Flush(ctx context.Context) FlushStats {
	stats := FlushStats{Records: len(bw.buf)}
	if len(bw.buf) == 0 {
		return stats
	}
	start := time.Now()
	for _, job := range bw.buf {
		if err := bw.execute(ctx, job); err != nil {
			stats.Failed++
			if bw.OnError != nil {
				bw.OnError(job.Line, err)
			}
			continue
		}
		stats.Committed++
		if job.Line > stats.LastCommitted {
			stats.LastCommitted = job.Line
		}
	}
	stats.Elapsed = time.Since(start)
	bw.buf = bw.buf[:0]
	if bw.OnFlush != nil {
		bw.OnFlush(stats)
	}
	return stats
}

func (bw *BatchWriter) execute(ctx context.Context, job Job) error {
	// If no DB is configured (e.g. testing without DB), just run callbacks with nil tx
	if bw.db == nil {
		return job.Write(ctx, nil)
	}

	tx, err := bw.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin record tx")
	}
	defer func() {
		_ = tx.Rollback() // ignored if committed
	}()

	if err := job.Write(ctx, tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrapf(err, "commit line %d", job.Line)
	}
	return nil
}

// Close flushes remaining jobs and stops accepting submissions.
func (bw *BatchWriter) Close(ctx context.Context) error {
	if bw.closed {
		return ErrBatchWriterClosed
	}
	bw.closed = true
	bw.Flush(ctx)
	return nil
}
