// Package metrics instruments the Coordinator with Prometheus
// collectors, carrying the teacher's prometheus.go pattern
// (github.com/prometheus/client_golang, promauto registration) into
// the ambient observability layer of this repo.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Coordinator holds the Prometheus collectors for one Coordinator
// instance.
type Coordinator struct {
	Devices          prometheus.Gauge
	SyncAttempts     prometheus.Counter
	SyncFailures     prometheus.Counter
	SyncedGauge      prometheus.Gauge
	ExecuteDuration  prometheus.Histogram
	CollectDuration  prometheus.Histogram
	AggregatedErrors *prometheus.CounterVec
}

// NewCoordinator registers a fresh set of collectors on reg (pass
// prometheus.DefaultRegisterer for the global registry, or a private
// registry in tests).
func NewCoordinator(reg prometheus.Registerer) *Coordinator {
	factory := promauto.With(reg)
	return &Coordinator{
		Devices: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "usrpsync",
			Name:      "devices",
			Help:      "Number of devices currently registered with the coordinator.",
		}),
		SyncAttempts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "usrpsync",
			Name:      "sync_attempts_total",
			Help:      "Number of setTimeToZeroNextPps synchronization rounds attempted.",
		}),
		SyncFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "usrpsync",
			Name:      "sync_failures_total",
			Help:      "Number of synchronizeUsrps calls that exhausted syncAttempts.",
		}),
		SyncedGauge: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "usrpsync",
			Name:      "synced",
			Help:      "1 if the fleet is currently considered PPS-synchronized, 0 otherwise.",
		}),
		ExecuteDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "usrpsync",
			Name:      "execute_duration_seconds",
			Help:      "Wall-clock duration of execute() fan-out, including synchronization.",
			Buckets:   prometheus.DefBuckets,
		}),
		CollectDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "usrpsync",
			Name:      "collect_duration_seconds",
			Help:      "Wall-clock duration of collect() fan-out.",
			Buckets:   prometheus.DefBuckets,
		}),
		AggregatedErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "usrpsync",
			Name:      "aggregated_errors_total",
			Help:      "Per-device failures observed during execute()/collect() fan-out.",
		}, []string{"device", "operation"}),
	}
}
