package ingest

import (
	"bufio"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/japaniel/kaikki/pkg/metrics"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// FailureRecorder receives the numbers of lines that could not be ingested.
// Record must never fail the caller.
type FailureRecorder interface {
	Record(line int64)
}

// Ledger appends failed line numbers to a text file, one per line. Writes are
// best-effort: an append that fails is logged and counted, and the next
// Record reopens the file.
type Ledger struct {
	path    string
	logger  *zap.Logger
	Metrics *metrics.Metrics

	mu       sync.Mutex
	f        *os.File
	recorded int
	dropped  int
}

// NewLedger returns a ledger appending to path. The file is created on the
// first Record.
func NewLedger(path string, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{path: path, logger: logger}
}

// Record appends line to the ledger.
func (l *Ledger) Record(line int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.appendLocked(line); err != nil {
		l.dropped++
		l.Metrics.LedgerError()
		l.logger.Error("failure ledger write failed",
			zap.String("path", l.path), zap.Int64("line", line), zap.Error(err))
		if l.f != nil {
			l.f.Close()
			l.f = nil
		}
		return
	}
	l.recorded++
}

func (l *Ledger) appendLocked(line int64) error {
	if l.f == nil {
		f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return errors.Wrap(err, "open ledger")
		}
		l.f = f
	}
	_, err := l.f.WriteString(strconv.FormatInt(line, 10) + "\n")
	return errors.Wrap(err, "append ledger")
}

// Recorded returns how many lines were written successfully.
func (l *Ledger) Recorded() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.recorded
}

// Dropped returns how many lines could not be written.
func (l *Ledger) Dropped() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dropped
}

// Close releases the ledger file. Record may still be called afterwards.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return errors.Wrap(err, "close ledger")
}

// ReadLedger returns the line numbers stored in a ledger file in file order.
// A missing file holds no failures.
func ReadLedger(path string) ([]int64, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "open ledger")
	}
	defer f.Close()

	var lines []int64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "ledger entry %q", text)
		}
		lines = append(lines, n)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "scan ledger")
	}
	return lines, nil
}

// DistinctLines drops repeated line numbers, keeping first occurrences in
// order. A parse failure beyond the checkpoint is ledgered again on every
// resumed run, so raw ledgers can hold duplicates.
func DistinctLines(lines []int64) []int64 {
	seen := make(map[int64]struct{}, len(lines))
	out := make([]int64, 0, len(lines))
	for _, n := range lines {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
