package recce

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics used by the scanner
type Metrics struct {
	PortsProbed         *prometheus.CounterVec
	ProbeDuration       *prometheus.HistogramVec
	ScanDuration        prometheus.Histogram
	ProbesInFlight      prometheus.Gauge
	ResolutionFailures  prometheus.Counter
	ProbeResourceErrors prometheus.Counter
	OperationStatus     *prometheus.CounterVec
}

// NewMetrics initializes and returns a new Metrics instance
func NewMetrics() *Metrics {
	return &Metrics{
		PortsProbed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recce_ports_probed_total",
				Help: "Total number of ports probed, by resulting state.",
			},
			[]string{"state"},
		),
		ProbeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "recce_probe_duration_seconds",
				Help:    "Duration of single connection attempts in seconds.",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
			},
			[]string{"state"},
		),
		ScanDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "recce_scan_duration_seconds",
				Help:    "Duration of complete scans in seconds.",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
			},
		),
		ProbesInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "recce_probes_in_flight",
				Help: "Number of connection attempts currently in progress.",
			},
		),
		ResolutionFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "recce_resolution_failures_total",
				Help: "Total number of scans aborted because the target did not resolve.",
			},
		),
		ProbeResourceErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "recce_probe_resource_errors_total",
				Help: "Total number of probes that could not open a socket.",
			},
		),
		OperationStatus: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recce_operation_status_total",
				Help: "Outcome of top-level operations.",
			},
			[]string{"operation", "status"},
		),
	}
}

// Register registers all metrics with reg
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.PortsProbed,
		m.ProbeDuration,
		m.ScanDuration,
		m.ProbesInFlight,
		m.ResolutionFailures,
		m.ProbeResourceErrors,
		m.OperationStatus,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
