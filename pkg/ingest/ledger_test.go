package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/japaniel/kaikki/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestLedgerAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "failed_lines.txt")
	l := NewLedger(path, zaptest.NewLogger(t))
	l.Record(2)
	l.Record(17)
	require.NoError(t, l.Close())

	// Appends survive reopening.
	l = NewLedger(path, nil)
	l.Record(40)
	require.NoError(t, l.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "2\n17\n40\n", string(b))

	lines, err := ReadLedger(path)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 17, 40}, lines)
	assert.Equal(t, 1, l.Recorded())
}

func TestLedgerNeverFailsCaller(t *testing.T) {
	m := metrics.New()
	l := NewLedger(filepath.Join(t.TempDir(), "missing", "dir", "failed.txt"), zaptest.NewLogger(t))
	l.Metrics = m
	l.Record(1)
	l.Record(2)

	assert.Equal(t, 0, l.Recorded())
	assert.Equal(t, 2, l.Dropped())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.LedgerErrors))
	assert.NoError(t, l.Close())
}

func TestReadLedgerMissingFile(t *testing.T) {
	lines, err := ReadLedger(filepath.Join(t.TempDir(), "none.txt"))
	require.NoError(t, err)
	assert.Nil(t, lines)
}

func TestReadLedgerRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "failed.txt")
	require.NoError(t, os.WriteFile(path, []byte("3\n\nnope\n"), 0o644))
	_, err := ReadLedger(path)
	assert.Error(t, err)
}

func TestDistinctLines(t *testing.T) {
	assert.Equal(t, []int64{2, 9, 4}, DistinctLines([]int64{2, 9, 2, 4, 9}))
	assert.Empty(t, DistinctLines(nil))
}
