package tarbuilder

import "github.com/prometheus/client_golang/prometheus"

// metricsCollector mirrors BuilderStats into Prometheus, grounded on
// gcsfuse's direct use of client_golang for its own filesystem-operation
// counters. It's optional: a Builder built without WithMetrics never
// touches this package.
type metricsCollector struct {
	filesWritten prometheus.Counter
	bytesWritten prometheus.Counter
	warnings     prometheus.Counter
}

func newMetricsCollector(reg prometheus.Registerer, namespace string) *metricsCollector {
	m := &metricsCollector{
		filesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_written_total",
			Help:      "Number of filesystem entries written into the archive.",
		}),
		bytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_written_total",
			Help:      "Padded content bytes written to the sink.",
		}),
		warnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "warnings_total",
			Help:      "Recoverable per-entry failures (failed lookups, entries skipped after a warning).",
		}),
	}

	reg.MustRegister(m.filesWritten, m.bytesWritten, m.warnings)

	return m
}

func (m *metricsCollector) observeFile(n int64) {
	if m == nil {
		return
	}
	m.filesWritten.Inc()
	m.bytesWritten.Add(float64(n))
}

func (m *metricsCollector) observeWarning() {
	if m == nil {
		return
	}
	m.warnings.Inc()
}

// WithMetrics registers the Builder's counters with reg under namespace
// "tarbuilder" and updates them as entries are written.
func WithMetrics(reg prometheus.Registerer) BuilderOption {
	return func(b *Builder) {
		b.metrics = newMetricsCollector(reg, "tarbuilder")
	}
}
