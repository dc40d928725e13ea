// Package metrics wires a small set of Prometheus counters over the
// Filesystem Callback Layer's operations, grounded on the retrieval
// pack's Prometheus usage (github.com/prometheus/client_golang).
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the counters incremented by every filesystem callback.
type Collector struct {
	ops      *prometheus.CounterVec
	opErrors *prometheus.CounterVec
}

// New registers a fresh set of counters against the given registerer. Pass
// prometheus.DefaultRegisterer in production, or prometheus.NewRegistry()
// in a test that wants isolation.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "remotefs",
			Name:      "operations_total",
			Help:      "Total filesystem callback invocations by operation.",
		}, []string{"op"}),
		opErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "remotefs",
			Name:      "operation_errors_total",
			Help:      "Total filesystem callback invocations that returned a non-OK status, by operation.",
		}, []string{"op"}),
	}
	reg.MustRegister(c.ops, c.opErrors)
	return c
}

// ObserveOp records one invocation of op, tallying it as an error when ok
// is false.
func (c *Collector) ObserveOp(op string, ok bool) {
	c.ops.WithLabelValues(op).Inc()
	if !ok {
		c.opErrors.WithLabelValues(op).Inc()
	}
}

// Handler returns the HTTP handler the mount command exposes its metrics
// on, when metrics are enabled.
func Handler() http.Handler {
	return promhttp.Handler()
}
