// Package metrics exposes Prometheus instrumentation for the billing engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "billbook",
		Name:      "operations_total",
		Help:      "Bill operations applied, by operation and mode.",
	}, []string{"operation", "mode"})

	storageFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "billbook",
		Name:      "storage_failures_total",
		Help:      "Persistence failures, by operation.",
	}, []string{"operation"})

	items = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "billbook",
		Name:      "items",
		Help:      "Line items on the live bill of each mode.",
	}, []string{"mode"})
)

// Operation counts one applied operation.
func Operation(op, mode string) {
	operations.WithLabelValues(op, mode).Inc()
}

// StorageFailure counts one failed persistence call.
func StorageFailure(op string) {
	storageFailures.WithLabelValues(op).Inc()
}

// Items records the item count of a mode's live bill.
func Items(mode string, n int) {
	items.WithLabelValues(mode).Set(float64(n))
}
