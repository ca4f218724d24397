package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersAndRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)
	assert.Same(t, reg, m.Registry())

	m.RecordFileProcessed("pdf", "completed", 2*time.Second)
	m.RecordRecognition("ok")
	m.RecordRecognition("error")
	m.RecordRecognition("error")
	m.RecordCacheHit()
	m.RecordAnalysis("completed", 10*time.Millisecond)
	m.RecordInconsistency("steel_ratio", "medium")
	m.SetQueueDepth(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.FilesProcessed.WithLabelValues("pdf", "completed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RecognizerAttempts.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecognizerCacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysesTotal.WithLabelValues("completed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.QueueDepth))
}

func TestDoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	assert.Error(t, err)
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordFileProcessed("pdf", "error", time.Second)
		m.RecordElement("slab")
		m.RecordRecognition("ok")
		m.RecordCacheHit()
		m.RecordAnalysis("error", 0)
		m.RecordInconsistency("concrete_strength", "high")
		m.SetQueueDepth(1)
	})
	assert.Nil(t, m.Registry())
}
