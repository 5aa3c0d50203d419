// Package metrics provides Prometheus metrics for cupctl invocations.
//
// cupctl is a single-invocation tool, so metrics are not served over
// HTTP. Instead they are written in the node_exporter textfile
// collector format at the end of a run (see WriteTextfile).
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

// Textfile output constants.
const (
	textfileName       = "cupctl.prom"
	textfilePermission = 0o644
)

// Manager manages all Prometheus metrics for cupctl.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	// Lifecycle metrics - create/clone/rename/delete outcomes
	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	stepsCompleted    *prometheus.CounterVec
	stepsUndone       *prometheus.CounterVec

	// Artifact metrics
	filesWritten prometheus.Counter
	archiveBytes prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "cupctl",
		subsystem:        "lifecycle",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.NewRegistry(),
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.operations = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "operations_total",
			Help:      "Total number of cup lifecycle operations by operation and status",
		},
		[]string{"op", "status"},
	)

	m.operationDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "operation_duration_seconds",
			Help:      "Duration of cup lifecycle operations in seconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"op"},
	)

	m.stepsCompleted = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "steps_completed_total",
			Help:      "Total number of completed lifecycle steps by operation",
		},
		[]string{"op"},
	)

	m.stepsUndone = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "steps_undone_total",
			Help:      "Total number of lifecycle steps unwound after a failure",
		},
		[]string{"op"},
	)

	m.filesWritten = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "files_written_total",
		Help:      "Total number of artifact files written",
	})

	m.archiveBytes = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "archive_bytes",
		Help:      "Size in bytes of packaged cup archives",
		Buckets:   prometheus.ExponentialBuckets(1024, 4, 10),
	})
}

// RecordOperation records the outcome and duration of one lifecycle operation.
func (m *Manager) RecordOperation(op, status string, duration time.Duration) {
	m.operations.WithLabelValues(op, status).Inc()
	m.operationDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordStep records a completed lifecycle step.
func (m *Manager) RecordStep(op string) {
	m.stepsCompleted.WithLabelValues(op).Inc()
}

// RecordStepUndone records a step that was unwound after a failure.
func (m *Manager) RecordStepUndone(op string) {
	m.stepsUndone.WithLabelValues(op).Inc()
}

// RecordFilesWritten adds to the artifact file counter.
func (m *Manager) RecordFilesWritten(n int) {
	m.filesWritten.Add(float64(n))
}

// RecordArchiveBytes observes the size of a packaged archive.
func (m *Manager) RecordArchiveBytes(n int64) {
	m.archiveBytes.Observe(float64(n))
}

// WriteTextfile gathers the registry and writes it to
// <dir>/cupctl.prom in the Prometheus text exposition format. The
// write goes through a temp file and rename so the node_exporter
// textfile collector never reads a partial file.
func (m *Manager) WriteTextfile(dir string) error {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExport, err)
	}

	tmp, err := os.CreateTemp(dir, textfileName+".*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExport, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	encoder := expfmt.NewEncoder(tmp, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, family := range families {
		if err := encoder.Encode(family); err != nil {
			_ = tmp.Close()
			return fmt.Errorf("%w: %w", ErrExport, err)
		}
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrExport, err)
	}
	if err := os.Chmod(tmp.Name(), textfilePermission); err != nil {
		return fmt.Errorf("%w: %w", ErrExport, err)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(dir, textfileName)); err != nil {
		return fmt.Errorf("%w: %w", ErrExport, err)
	}
	return nil
}

// Package-level helpers delegating to the global manager.

// RecordOperation records the outcome and duration of one lifecycle operation.
func RecordOperation(op, status string, duration time.Duration) {
	globalManager.RecordOperation(op, status, duration)
}

// RecordStep records a completed lifecycle step.
func RecordStep(op string) { globalManager.RecordStep(op) }

// RecordStepUndone records a step that was unwound after a failure.
func RecordStepUndone(op string) { globalManager.RecordStepUndone(op) }

// RecordFilesWritten adds to the artifact file counter.
func RecordFilesWritten(n int) { globalManager.RecordFilesWritten(n) }

// RecordArchiveBytes observes the size of a packaged archive.
func RecordArchiveBytes(n int64) { globalManager.RecordArchiveBytes(n) }

// WriteTextfile exports the global registry to dir.
func WriteTextfile(dir string) error { return globalManager.WriteTextfile(dir) }
