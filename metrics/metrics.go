// Package metrics holds the Prometheus collectors shared by the API and the
// importer.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RowsRead = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inspections_import_rows_read_total",
		Help: "Total number of CSV data rows read by the importer.",
	})
	RowsKept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inspections_import_rows_kept_total",
		Help: "Total number of rows normalized into inspection records.",
	})
	RowsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inspections_import_rows_dropped_total",
		Help: "Total number of rows rejected during normalization, by reason.",
	}, []string{"reason"})
	CollectionWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inspections_import_collection_writes_total",
		Help: "Collection rewrites performed by the importer, by collection and result.",
	}, []string{"collection", "result"})
	ImportDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "inspections_import_duration_seconds",
		Help:    "Wall time of a full import run.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inspections_api_request_duration_seconds",
		Help:    "API request latency by route and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "status"})
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inspections_api_cache_lookups_total",
		Help: "Response cache lookups, by outcome.",
	}, []string{"outcome"})

	Predictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inspections_api_predictions_total",
		Help: "Score prediction requests, by outcome.",
	}, []string{"outcome"})
	PredictorSamples = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "inspections_predictor_training_samples",
		Help: "Facilities used to fit the current score model.",
	})
)

// Handler exposes the default registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

// Middleware records request latency labelled by the matched route pattern so
// path parameters do not explode label cardinality.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		RequestDuration.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Observe(time.Since(start).Seconds())
	}
}

// CacheHit and CacheMiss count response cache outcomes.
func CacheHit() { CacheLookups.WithLabelValues("hit").Inc() }
func CacheMiss() { CacheLookups.WithLabelValues("miss").Inc() }

// PredictionServed counts prediction requests by outcome ("ok", "not_found",
// "insufficient_data").
func PredictionServed(outcome string) { Predictions.WithLabelValues(outcome).Inc() }
