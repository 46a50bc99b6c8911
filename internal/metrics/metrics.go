// Package metrics records Prometheus metrics for precache runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config configures the recorder.
type Config struct {
	// Namespace is the metrics namespace (default: "precache").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for stage duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the recorder.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "precache",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Recorder holds the run metrics. A nil *Recorder records nothing.
type Recorder struct {
	runsTotal       *prometheus.CounterVec
	stageDuration   *prometheus.HistogramVec
	manifestEntries prometheus.Gauge
	manifestBytes   prometheus.Gauge
	warningsTotal   prometheus.Counter
	filesHashed     prometheus.Counter
}

// New registers the metrics and returns a recorder.
//
// Metrics:
//   - precache_runs_total: runs by mode and status
//   - precache_stage_duration_seconds: duration of each pipeline stage
//   - precache_manifest_entries: entries in the last manifest
//   - precache_manifest_bytes: total size of the last manifest's files
//   - precache_warnings_total: warnings produced
//   - precache_files_hashed_total: files fingerprinted
func New(opts ...Option) *Recorder {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Recorder{
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "runs_total",
			Help:        "Total number of precache runs by mode and status",
			ConstLabels: config.ConstLabels,
		}, []string{"mode", "status"}),

		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "stage_duration_seconds",
			Help:        "Pipeline stage duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"stage"}),

		manifestEntries: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "manifest_entries",
			Help:        "Number of entries in the last manifest",
			ConstLabels: config.ConstLabels,
		}),

		manifestBytes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "manifest_bytes",
			Help:        "Total size in bytes of the files in the last manifest",
			ConstLabels: config.ConstLabels,
		}),

		warningsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "warnings_total",
			Help:        "Total number of warnings produced",
			ConstLabels: config.ConstLabels,
		}),

		filesHashed: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "files_hashed_total",
			Help:        "Total number of files fingerprinted",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// ObserveStage records how long a stage took.
func (r *Recorder) ObserveStage(stage string, d time.Duration) {
	if r == nil {
		return
	}
	r.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// AddFilesHashed counts fingerprinted files.
func (r *Recorder) AddFilesHashed(n int) {
	if r == nil {
		return
	}
	r.filesHashed.Add(float64(n))
}

// RecordRun records a finished run. Manifest gauges are only updated on
// success.
func (r *Recorder) RecordRun(mode string, err error, entries int, size int64, warnings int) {
	if r == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	} else {
		r.manifestEntries.Set(float64(entries))
		r.manifestBytes.Set(float64(size))
	}
	r.runsTotal.WithLabelValues(mode, status).Inc()
	r.warningsTotal.Add(float64(warnings))
}
