// Package ingest drives resumable, fault-isolated loading of a wiktextract
// feed into the relational schema.
package ingest

import (
	"context"
	"database/sql"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/japaniel/kaikki/pkg/db"
	"github.com/japaniel/kaikki/pkg/feed"
	"github.com/japaniel/kaikki/pkg/metrics"
	"github.com/japaniel/kaikki/pkg/wiktionary"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DefaultBatchSize is the number of parsed records decomposed per flush.
const DefaultBatchSize = 100

// ErrInvalidBatchSize is returned when BatchSize is not positive.
var ErrInvalidBatchSize = errors.New("batch size must be positive")

// Progress is reported after every flushed batch.
type Progress struct {
	// Processed counts entries committed during this run so far.
	Processed int64
	// Line is the highest line committed so far.
	Line    int64
	Batch   int
	Elapsed time.Duration
}

// Result summarizes one pass over the feed.
type Result struct {
	RunID string
	// Checkpoint is the line the run resumed after.
	Checkpoint int64
	// LastLine is the highest line committed by the end of the run.
	LastLine int64
	Read     int64
	Skipped  int64
	Ingested int64
	Failed   int64
}

// Ingester handles the ingestion of feed lines into the database.
type Ingester struct {
	DB         *sql.DB
	Store      *db.Store
	Decomposer RecordDecomposer
	BatchSize  int
	// Ledger receives failed line numbers; nil discards them.
	Ledger FailureRecorder
	Logger *zap.Logger
	// Metrics is optional.
	Metrics *metrics.Metrics
	// ProgressFile, when set, is rewritten with the checkpoint after each flush.
	ProgressFile string
	// RunID tags the run's bookkeeping row; generated when empty.
	RunID string
	// OnProgress is called after each flushed batch.
	OnProgress func(Progress)
}

// NewIngester creates a new Ingester.
func NewIngester(conn *sql.DB, store *db.Store) *Ingester {
	return &Ingester{
		DB:         conn,
		Store:      store,
		Decomposer: NewDecomposer(store),
		BatchSize:  DefaultBatchSize,
		Logger:     zap.NewNop(),
	}
}

// Ingest opens feedPath and loads it. See IngestReader.
func (ig *Ingester) Ingest(ctx context.Context, feedPath string) (Result, error) {
	rc, err := feed.Open(feedPath)
	if err != nil {
		return Result{}, err
	}
	defer rc.Close()
	return ig.IngestReader(ctx, feedPath, rc)
}

// IngestReader reads r line by line, skipping every line at or below the
// sink's checkpoint. Lines that fail to parse, and records the sink rejects,
// go to the ledger and the pass continues. The returned error is non-nil only
// when the pass could not complete: the checkpoint could not be read, the
// feed could not be read, or ctx was canceled. Records already parsed when
// ctx is canceled are still committed.
func (ig *Ingester) IngestReader(ctx context.Context, name string, r io.Reader) (Result, error) {
	if ig.BatchSize <= 0 {
		return Result{}, errors.Wrapf(ErrInvalidBatchSize, "got %d", ig.BatchSize)
	}
	logger := ig.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	checkpoint, err := ig.Store.LastProcessedLine(ctx, ig.DB)
	if err != nil {
		return Result{}, err
	}

	res := Result{RunID: ig.RunID, Checkpoint: checkpoint, LastLine: checkpoint}
	if res.RunID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return res, errors.Wrap(err, "generate run id")
		}
		res.RunID = id.String()
	}
	logger = logger.With(zap.String("run_id", res.RunID))

	// Run bookkeeping is informational; a failed write never stops the pass.
	if err := ig.Store.StartRun(ctx, ig.DB, res.RunID, name, checkpoint, time.Now()); err != nil {
		logger.Warn("run bookkeeping not started", zap.Error(err))
	}
	if checkpoint > 0 {
		logger.Info("resuming", zap.Int64("checkpoint", checkpoint), zap.Int64("first_line", checkpoint+1))
	}
	ig.Metrics.SetCheckpoint(checkpoint)

	fail := func(line int64, reason string, err error) {
		res.Failed++
		ig.Metrics.Failed(reason)
		logger.Warn("failed to process line", zap.Int64("line", line), zap.String("reason", reason), zap.Error(err))
		if ig.Ledger != nil {
			ig.Ledger.Record(line)
		}
	}

	bw := NewBatchWriter(ig.DB, ig.BatchSize)
	bw.OnError = func(line int64, err error) { fail(line, metrics.ReasonWrite, err) }
	bw.OnFlush = func(s FlushStats) {
		res.Ingested += int64(s.Committed)
		if s.LastCommitted > res.LastLine {
			res.LastLine = s.LastCommitted
		}
		ig.Metrics.Committed(s.Committed, res.LastLine)
		ig.Metrics.ObserveBatch(s.Elapsed)
		logger.Info("batch committed",
			zap.Int64("processed", res.Ingested),
			zap.Int64("line", res.LastLine),
			zap.Int("batch", s.Records),
			zap.Int("batch_failed", s.Failed),
			zap.Duration("batch_elapsed", s.Elapsed))
		if ig.ProgressFile != "" && s.Committed > 0 {
			if err := WriteProgressFile(ig.ProgressFile, res.LastLine); err != nil {
				logger.Warn("progress file not updated", zap.Error(err))
			}
		}
		if ig.OnProgress != nil {
			ig.OnProgress(Progress{Processed: res.Ingested, Line: res.LastLine, Batch: s.Records, Elapsed: s.Elapsed})
		}
	}

	// Pending records are committed even after cancellation; each is atomic.
	flushCtx := context.WithoutCancel(ctx)
	lr := feed.NewLineReader(r)
	var runErr error

Loop:
	for {
		select {
		case <-ctx.Done():
			runErr = ctx.Err()
			break Loop
		default:
		}

		text, line, err := lr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			runErr = err
			break
		}
		res.Read++
		ig.Metrics.LineRead()
		if line <= checkpoint {
			res.Skipped++
			ig.Metrics.LineSkipped()
			continue
		}

		entry, err := wiktionary.ParseLine(text)
		if err != nil {
			fail(line, metrics.ReasonParse, err)
			continue
		}

		lineNo := line
		err = bw.Submit(flushCtx, lineNo, func(ctx context.Context, tx *sql.Tx) error {
			inserted, err := ig.Decomposer.Ingest(ctx, tx, entry, lineNo)
			if err != nil {
				return err
			}
			if !inserted {
				logger.Debug("entry already present", zap.Int64("line", lineNo))
			}
			return nil
		})
		if err != nil {
			runErr = err
			break
		}
	}

	if err := bw.Close(flushCtx); err != nil && runErr == nil {
		runErr = err
	}

	if err := ig.Store.FinishRun(flushCtx, ig.DB, res.RunID, res.LastLine, res.Ingested, res.Failed, time.Now()); err != nil {
		logger.Warn("run bookkeeping not updated", zap.Error(err))
	}

	logger.Info("ingestion finished",
		zap.Int64("read", res.Read),
		zap.Int64("skipped", res.Skipped),
		zap.Int64("ingested", res.Ingested),
		zap.Int64("failed", res.Failed),
		zap.Int64("checkpoint", res.LastLine),
		zap.Error(runErr))
	return res, runErr
}
