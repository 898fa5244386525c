package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "influx_export",
		Name:      "build_info",
		Help:      "Build information for the influx-export binary.",
	}, []string{"version", "commit", "date"})

	ExportTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "influx_export",
		Name:      "runs_total",
		Help:      "Total number of export runs by status.",
	}, []string{"status"})

	ExportedRows = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "influx_export",
		Name:      "rows_total",
		Help:      "Total number of rows written to CSV files.",
	})

	QueryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "influx_export",
		Name:      "query_duration_seconds",
		Help:      "Duration of InfluxDB queries.",
		Buckets:   prometheus.DefBuckets,
	})

	ExportDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "influx_export",
		Name:      "duration_seconds",
		Help:      "End-to-end duration of export runs.",
		Buckets:   prometheus.DefBuckets,
	})
)
