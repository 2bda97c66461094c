// Package observability provides Prometheus metrics and OpenTelemetry tracing
// for evaluation runs.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the gate.
type Metrics struct {
	registry *prometheus.Registry

	// Run metrics
	RunsTotal     *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec
	StageErrors   *prometheus.CounterVec

	// Reconciliation metrics
	TradesReconciled prometheus.Counter
	UnmatchedExits   prometheus.Counter
	OpenAtEnd        prometheus.Counter
	JoinMisses       prometheus.Counter
	AmbiguousEvents  prometheus.Counter

	// Result gauges, last run wins
	LastWinRate prometheus.Gauge
	LastMCC     prometheus.Gauge

	// Storage metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a Metrics instance on its own registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "backtest_gate"
	}

	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of evaluation runs by tool and outcome",
		}, []string{"tool", "outcome"}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"stage"}),
		StageErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_errors_total",
			Help:      "Total number of stage failures by stage and kind",
		}, []string{"stage", "kind"}),

		TradesReconciled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "trades_total",
			Help:      "Total number of closed trades reconciled",
		}),
		UnmatchedExits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "unmatched_exits_total",
			Help:      "Total number of EXIT events with no open trade",
		}),
		OpenAtEnd: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "open_at_end_total",
			Help:      "Total number of ENTRY events never closed",
		}),
		JoinMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "join_misses_total",
			Help:      "Total number of price lookups with no exact timestamp match",
		}),
		AmbiguousEvents: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "ambiguous_events_total",
			Help:      "Total number of event rows matching both ENTRY and EXIT",
		}),

		LastWinRate: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "result",
			Name:      "win_rate",
			Help:      "Win rate of the last evaluated run",
		}),
		LastMCC: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "result",
			Name:      "mcc",
			Help:      "MCC of the last scored run",
		}),

		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Database query duration",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes all metrics in text exposition format for the node
// exporter textfile collector. The write is atomic.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordRun records the outcome of a tool invocation.
func RecordRun(tool, outcome string) {
	DefaultMetrics.RunsTotal.WithLabelValues(tool, outcome).Inc()
}

// RecordStage records a stage duration and, if err is non-nil, its failure kind.
func RecordStage(stage string, seconds float64, err error, kind string) {
	DefaultMetrics.StageDuration.WithLabelValues(stage).Observe(seconds)
	if err != nil {
		DefaultMetrics.StageErrors.WithLabelValues(stage, kind).Inc()
	}
}

// RecordReconcile records reconciliation counters.
func RecordReconcile(trades, unmatchedExits, openAtEnd, joinMisses, ambiguous int) {
	DefaultMetrics.TradesReconciled.Add(float64(trades))
	DefaultMetrics.UnmatchedExits.Add(float64(unmatchedExits))
	DefaultMetrics.OpenAtEnd.Add(float64(openAtEnd))
	DefaultMetrics.JoinMisses.Add(float64(joinMisses))
	DefaultMetrics.AmbiguousEvents.Add(float64(ambiguous))
}

// RecordResult sets the last-run result gauges. A nil mcc leaves the gauge unchanged.
func RecordResult(winRate float64, mcc *float64) {
	DefaultMetrics.LastWinRate.Set(winRate)
	if mcc != nil {
		DefaultMetrics.LastMCC.Set(*mcc)
	}
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
