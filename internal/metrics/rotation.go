package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RotationMetrics holds metrics describing one rotation run.
//
// Counters accumulate per-file and per-artifact events as the engine
// processes groups; gauges capture the final shape of the run. The
// process is short-lived, so the values are exported by dumping the
// registry to a textfile rather than serving a scrape endpoint.
type RotationMetrics struct {
	// FilesRotated counts base log files snapshotted into a new generation 1.
	FilesRotated prometheus.Counter

	// FilesCompressed counts generation artifacts compressed during the run.
	FilesCompressed prometheus.Counter

	// FilesDeleted counts generation artifacts removed by the retention sweep.
	FilesDeleted prometheus.Counter

	// Errors counts per-group and per-file failures. The process exits
	// nonzero whenever this is above zero.
	Errors prometheus.Counter

	// GroupsProcessed counts log groups the engine visited, including
	// groups skipped because their directory was missing.
	GroupsProcessed prometheus.Counter

	// BytesFreed is the net bytes reclaimed by deletions and compression.
	// Negative when compression inflated incompressible inputs.
	BytesFreed prometheus.Gauge

	// RunDuration is the wall-clock duration of the last run in seconds.
	RunDuration prometheus.Gauge

	// LastRunTimestamp is the Unix time the last run completed.
	LastRunTimestamp prometheus.Gauge

	// DryRun is 1 when the run only simulated mutations, else 0.
	DryRun prometheus.Gauge
}

// NewRotationMetrics creates and registers rotation metrics.
// Uses promauto for automatic registration with the default registry.
func NewRotationMetrics() *RotationMetrics {
	return &RotationMetrics{
		FilesRotated: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "logtrim",
				Subsystem: "rotation",
				Name:      "files_rotated_total",
				Help:      "Number of base log files snapshotted into a new generation.",
			},
		),
		FilesCompressed: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "logtrim",
				Subsystem: "rotation",
				Name:      "files_compressed_total",
				Help:      "Number of generation artifacts compressed.",
			},
		),
		FilesDeleted: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "logtrim",
				Subsystem: "rotation",
				Name:      "files_deleted_total",
				Help:      "Number of generation artifacts deleted by the retention sweep.",
			},
		),
		Errors: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "logtrim",
				Subsystem: "rotation",
				Name:      "errors_total",
				Help:      "Number of per-group and per-file failures during the run.",
			},
		),
		GroupsProcessed: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "logtrim",
				Subsystem: "rotation",
				Name:      "groups_processed_total",
				Help:      "Number of log groups visited by the run.",
			},
		),
		BytesFreed: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "logtrim",
				Subsystem: "rotation",
				Name:      "bytes_freed",
				Help:      "Net bytes reclaimed by the run (deletions plus compression savings).",
			},
		),
		RunDuration: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "logtrim",
				Subsystem: "rotation",
				Name:      "run_duration_seconds",
				Help:      "Wall-clock duration of the last rotation run.",
			},
		),
		LastRunTimestamp: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "logtrim",
				Subsystem: "rotation",
				Name:      "last_run_timestamp_seconds",
				Help:      "Unix time the last rotation run completed.",
			},
		),
		DryRun: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "logtrim",
				Subsystem: "rotation",
				Name:      "dry_run",
				Help:      "1 when the last run only simulated mutations, else 0.",
			},
		),
	}
}

// NewRotationMetricsWithRegistry creates rotation metrics registered with a
// custom registry. Useful for testing to avoid conflicts with the default
// registry.
func NewRotationMetricsWithRegistry(reg prometheus.Registerer) *RotationMetrics {
	filesRotated := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "logtrim",
			Subsystem: "rotation",
			Name:      "files_rotated_total",
			Help:      "Number of base log files snapshotted into a new generation.",
		},
	)

	filesCompressed := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "logtrim",
			Subsystem: "rotation",
			Name:      "files_compressed_total",
			Help:      "Number of generation artifacts compressed.",
		},
	)

	filesDeleted := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "logtrim",
			Subsystem: "rotation",
			Name:      "files_deleted_total",
			Help:      "Number of generation artifacts deleted by the retention sweep.",
		},
	)

	errorsTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "logtrim",
			Subsystem: "rotation",
			Name:      "errors_total",
			Help:      "Number of per-group and per-file failures during the run.",
		},
	)

	groupsProcessed := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "logtrim",
			Subsystem: "rotation",
			Name:      "groups_processed_total",
			Help:      "Number of log groups visited by the run.",
		},
	)

	bytesFreed := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "logtrim",
			Subsystem: "rotation",
			Name:      "bytes_freed",
			Help:      "Net bytes reclaimed by the run (deletions plus compression savings).",
		},
	)

	runDuration := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "logtrim",
			Subsystem: "rotation",
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of the last rotation run.",
		},
	)

	lastRunTimestamp := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "logtrim",
			Subsystem: "rotation",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last rotation run completed.",
		},
	)

	dryRun := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "logtrim",
			Subsystem: "rotation",
			Name:      "dry_run",
			Help:      "1 when the last run only simulated mutations, else 0.",
		},
	)

	reg.MustRegister(filesRotated)
	reg.MustRegister(filesCompressed)
	reg.MustRegister(filesDeleted)
	reg.MustRegister(errorsTotal)
	reg.MustRegister(groupsProcessed)
	reg.MustRegister(bytesFreed)
	reg.MustRegister(runDuration)
	reg.MustRegister(lastRunTimestamp)
	reg.MustRegister(dryRun)

	return &RotationMetrics{
		FilesRotated:     filesRotated,
		FilesCompressed:  filesCompressed,
		FilesDeleted:     filesDeleted,
		Errors:           errorsTotal,
		GroupsProcessed:  groupsProcessed,
		BytesFreed:       bytesFreed,
		RunDuration:      runDuration,
		LastRunTimestamp: lastRunTimestamp,
		DryRun:           dryRun,
	}
}

// RecordFileRotated increments the rotated file counter.
func (m *RotationMetrics) RecordFileRotated() {
	m.FilesRotated.Inc()
}

// RecordFileCompressed increments the compressed artifact counter.
func (m *RotationMetrics) RecordFileCompressed() {
	m.FilesCompressed.Inc()
}

// RecordFileDeleted increments the deleted artifact counter.
func (m *RotationMetrics) RecordFileDeleted() {
	m.FilesDeleted.Inc()
}

// RecordError increments the error counter.
func (m *RotationMetrics) RecordError() {
	m.Errors.Inc()
}

// RecordGroupProcessed increments the processed group counter.
func (m *RotationMetrics) RecordGroupProcessed() {
	m.GroupsProcessed.Inc()
}

// RecordRunResult captures the final shape of a completed run.
func (m *RotationMetrics) RecordRunResult(bytesFreed int64, duration time.Duration, completedAt time.Time, dryRun bool) {
	m.BytesFreed.Set(float64(bytesFreed))
	m.RunDuration.Set(duration.Seconds())
	m.LastRunTimestamp.Set(float64(completedAt.Unix()))
	if dryRun {
		m.DryRun.Set(1)
	} else {
		m.DryRun.Set(0)
	}
}
