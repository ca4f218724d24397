// Package metrics provides the Prometheus metrics for drawing processing and
// structural analyses. All methods are safe to call on a nil *Metrics.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all Prometheus metrics of the service.
type Metrics struct {
	FilesProcessed      *prometheus.CounterVec
	FileProcessDuration *prometheus.HistogramVec
	ElementsExtracted   *prometheus.CounterVec

	RecognizerAttempts  *prometheus.CounterVec
	RecognizerCacheHits prometheus.Counter

	AnalysesTotal    *prometheus.CounterVec
	AnalysisDuration prometheus.Histogram
	Inconsistencies  *prometheus.CounterVec

	QueueDepth prometheus.Gauge

	registry *prometheus.Registry
}

// New creates the metrics and registers them on registry.
func New(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{registry: registry}
	m.initMetrics()
	for _, c := range m.collectors() {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) initMetrics() {
	m.FilesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "structural_files_processed_total",
			Help: "Drawings processed partitioned by format and final status.",
		},
		[]string{"format", "status"},
	)
	m.FileProcessDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "structural_file_process_duration_seconds",
			Help:    "Time taken to extract and persist one drawing.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"format"},
	)
	m.ElementsExtracted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "structural_elements_extracted_total",
			Help: "Structural elements extracted partitioned by type.",
		},
		[]string{"type"},
	)
	m.RecognizerAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "structural_recognizer_attempts_total",
			Help: "Recognition attempts partitioned by result (ok, low_confidence, error).",
		},
		[]string{"result"},
	)
	m.RecognizerCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "structural_recognizer_cache_hits_total",
			Help: "Recognitions served from the result cache.",
		},
	)
	m.AnalysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "structural_analyses_total",
			Help: "Analysis runs partitioned by final status.",
		},
		[]string{"status"},
	)
	m.AnalysisDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "structural_analysis_duration_seconds",
			Help:    "Time taken to load elements, compute and persist one analysis.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		},
	)
	m.Inconsistencies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "structural_inconsistencies_total",
			Help: "Detected code violations partitioned by type and severity.",
		},
		[]string{"type", "severity"},
	)
	m.QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "structural_queue_depth",
			Help: "Jobs waiting in the background worker queue.",
		},
	)
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.FilesProcessed, m.FileProcessDuration, m.ElementsExtracted,
		m.RecognizerAttempts, m.RecognizerCacheHits,
		m.AnalysesTotal, m.AnalysisDuration, m.Inconsistencies,
		m.QueueDepth,
	}
}

// Registry returns the registry the metrics were registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) RecordFileProcessed(format, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.FilesProcessed.WithLabelValues(format, status).Inc()
	m.FileProcessDuration.WithLabelValues(format).Observe(d.Seconds())
}

func (m *Metrics) RecordElement(elementType string) {
	if m == nil {
		return
	}
	m.ElementsExtracted.WithLabelValues(elementType).Inc()
}

func (m *Metrics) RecordRecognition(result string) {
	if m == nil {
		return
	}
	m.RecognizerAttempts.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordCacheHit() {
	if m == nil {
		return
	}
	m.RecognizerCacheHits.Inc()
}

func (m *Metrics) RecordAnalysis(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.AnalysesTotal.WithLabelValues(status).Inc()
	if d > 0 {
		m.AnalysisDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) RecordInconsistency(typ, severity string) {
	if m == nil {
		return
	}
	m.Inconsistencies.WithLabelValues(typ, severity).Inc()
}

func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(n))
}
