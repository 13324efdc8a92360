package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	reportsGenerated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "reports_service",
		Subsystem: "report",
		Name:      "generated_total",
		Help:      "Number of reports generated.",
	})
	reportRows = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "reports_service",
		Subsystem: "report",
		Name:      "rows_total",
		Help:      "Total report rows emitted across all generations.",
	})
	reportDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "reports_service",
		Subsystem: "report",
		Name:      "generation_seconds",
		Help:      "Wall time of a full report generation pass.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	})
	lastReportGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "reports_service",
		Subsystem: "report",
		Name:      "last_generated_timestamp_seconds",
		Help:      "Unix timestamp of the most recent report generation.",
	})
	subdomainFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reports_service",
		Subsystem: "subdomain",
		Name:      "failures_total",
		Help:      "Subdomains skipped during report generation.",
	}, []string{"subdomain"})
)

func init() {
	prometheus.MustRegister(reportsGenerated, reportRows, reportDuration, lastReportGauge, subdomainFailures)
}

// RecordReportGenerated updates the generation counters and watermark.
func RecordReportGenerated(rows int, elapsed time.Duration) {
	reportsGenerated.Inc()
	reportRows.Add(float64(rows))
	reportDuration.Observe(elapsed.Seconds())
	lastReportGauge.Set(float64(time.Now().Unix()))
}

// RecordSubdomainFailure counts a skipped subdomain.
func RecordSubdomainFailure(subdomain string) {
	subdomainFailures.WithLabelValues(subdomain).Inc()
}
