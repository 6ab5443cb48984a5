// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	RowsIngested    *prometheus.CounterVec
	IngestionErrors *prometheus.CounterVec

	// Pipeline metrics
	PipelineRunsTotal    *prometheus.CounterVec
	PipelineDuration     *prometheus.HistogramVec
	RowsComputed         *prometheus.CounterVec
	RowsWritten          *prometheus.CounterVec
	WritesSkipped        *prometheus.CounterVec
	OrdersWithoutTouches prometheus.Gauge
	UnmatchedOrders      prometheus.Gauge
	ReportsGenerated     *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulPipeline prometheus.Gauge
}

// NewMetrics creates a Metrics instance registered with reg.
// A nil reg registers with the default Prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "ltv_attribution"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		// Ingestion metrics
		RowsIngested: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "rows_ingested_total",
			Help:      "Total number of source rows loaded by table",
		}, []string{"table"}),
		IngestionErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "errors_total",
			Help:      "Total number of ingestion failures by table",
		}, []string{"table"}),

		// Pipeline metrics
		PipelineRunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline phase runs by status",
		}, []string{"phase", "status"}),
		PipelineDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Pipeline phase duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}, []string{"phase"}),
		RowsComputed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "rows_computed_total",
			Help:      "Total number of derived rows computed by table",
		}, []string{"table"}),
		RowsWritten: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "rows_written_total",
			Help:      "Total number of derived rows written by table",
		}, []string{"table"}),
		WritesSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "writes_skipped_total",
			Help:      "Total number of table replaces skipped because the result was empty",
		}, []string{"table"}),
		OrdersWithoutTouches: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "orders_without_touches",
			Help:      "Orders with no touch inside the lookback window in the last run",
		}),
		UnmatchedOrders: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "unmatched_orders",
			Help:      "Orders whose customer is missing from dim_customer in the last run",
		}),
		ReportsGenerated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reporting",
			Name:      "reports_generated_total",
			Help:      "Total number of reports generated by format",
		}, []string{"format"}),

		// Database metrics
		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulPipeline: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_pipeline_timestamp",
			Help:      "Unix timestamp of last successful pipeline run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordPipelineRun records one pipeline phase.
func (m *Metrics) RecordPipelineRun(phase, status string, d time.Duration) {
	m.PipelineRunsTotal.WithLabelValues(phase, status).Inc()
	m.PipelineDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// RecordRowsIngested adds n loaded rows for table.
func (m *Metrics) RecordRowsIngested(table string, n int) {
	m.RowsIngested.WithLabelValues(table).Add(float64(n))
}

// RecordIngestionError counts a failed table load.
func (m *Metrics) RecordIngestionError(table string) {
	m.IngestionErrors.WithLabelValues(table).Inc()
}

// RecordRowsComputed adds n computed rows for table.
func (m *Metrics) RecordRowsComputed(table string, n int) {
	m.RowsComputed.WithLabelValues(table).Add(float64(n))
}

// RecordRowsWritten adds n written rows for table.
func (m *Metrics) RecordRowsWritten(table string, n int) {
	m.RowsWritten.WithLabelValues(table).Add(float64(n))
}

// RecordWriteSkipped counts a replace skipped for an empty result.
func (m *Metrics) RecordWriteSkipped(table string) {
	m.WritesSkipped.WithLabelValues(table).Inc()
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, d time.Duration, err error) {
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(d.Seconds())
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordReportGenerated counts a rendered report.
func (m *Metrics) RecordReportGenerated(format string) {
	m.ReportsGenerated.WithLabelValues(format).Inc()
}

// MarkPipelineSuccess stamps the health gauge with t.
func (m *Metrics) MarkPipelineSuccess(t time.Time) {
	m.LastSuccessfulPipeline.Set(float64(t.Unix()))
}
