// Package metrics exposes Prometheus collectors for the ledger engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the ledger collectors. A nil *Metrics records nothing.
type Metrics struct {
	operations  *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	unitsSold   prometheus.Counter
	reportRows  *prometheus.CounterVec
	publishFail prometheus.Counter
}

// New registers the ledger metrics against the provided registerer.
func New(registerer prometheus.Registerer) *Metrics {
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stockledger_operations_total",
		Help: "Ledger operations partitioned by operation and outcome.",
	}, []string{"operation", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stockledger_operation_duration_seconds",
		Help:    "Duration in seconds of ledger operations.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	unitsSold := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stockledger_units_sold_total",
		Help: "Units sold across all committed sales.",
	})
	reportRows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stockledger_report_rows_total",
		Help: "Rows produced by reports.",
	}, []string{"report"})
	publishFail := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stockledger_event_publish_failures_total",
		Help: "Stock change events that could not be published.",
	})
	registerer.MustRegister(operations, duration, unitsSold, reportRows, publishFail)
	return &Metrics{
		operations:  operations,
		duration:    duration,
		unitsSold:   unitsSold,
		reportRows:  reportRows,
		publishFail: publishFail,
	}
}

// Observe records the outcome and duration of one operation started at start.
// outcome is "ok" for a nil error and the supplied label otherwise.
func (m *Metrics) Observe(operation string, start time.Time, outcome string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) UnitsSold(n int32) {
	if m == nil || n <= 0 {
		return
	}
	m.unitsSold.Add(float64(n))
}

func (m *Metrics) ReportRows(report string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.reportRows.WithLabelValues(report).Add(float64(n))
}

func (m *Metrics) PublishFailed() {
	if m == nil {
		return
	}
	m.publishFail.Inc()
}
