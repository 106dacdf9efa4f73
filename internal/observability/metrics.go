package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sales_dashboard_http_requests_total",
		Help: "HTTP requests served, by method and status code",
	}, []string{"method", "code"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sales_dashboard_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	PipelineDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sales_dashboard_pipeline_duration_seconds",
		Help:    "Time spent filtering and aggregating one selection",
		Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
	})

	DatasetRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sales_dashboard_dataset_records",
		Help: "Order rows currently loaded",
	})

	ExportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sales_dashboard_exports_total",
		Help: "Downloads generated, by format and result",
	}, []string{"format", "result"})
)
