package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.LineRead()
	m.LineSkipped()
	m.Committed(1, 3)
	m.Failed(ReasonParse)
	m.LedgerError()
	m.SetCheckpoint(9)
	m.ObserveBatch(time.Second)
}

func TestCounters(t *testing.T) {
	m := New()
	m.LineRead()
	m.LineRead()
	m.LineSkipped()
	m.Committed(1, 7)
	m.Failed(ReasonParse)
	m.Failed(ReasonWrite)
	m.Failed(ReasonWrite)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.LinesRead))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LinesSkipped))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecordsIngested))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.Checkpoint))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecordsFailed.WithLabelValues(ReasonParse)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RecordsFailed.WithLabelValues(ReasonWrite)))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.Committed(1, 12)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "kaikki_records_ingested_total 1")
	assert.Contains(t, rec.Body.String(), "kaikki_checkpoint_line 12")
}
