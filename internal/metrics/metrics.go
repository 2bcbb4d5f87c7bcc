// Package metrics holds the Prometheus instruments for facet indexing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Rebuild results.
const (
	ResultOK       = "ok"
	ResultError    = "error"
	ResultCanceled = "canceled"
)

var (
	rebuildTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "propindex_rebuild_total",
		Help: "Facet tree rebuilds by result",
	}, []string{"result"})

	rebuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "propindex_rebuild_duration_seconds",
		Help:    "Facet tree rebuild duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
	})

	treeKeys = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "propindex_tree_keys",
		Help: "Key nodes in the visible facet tree",
	})

	treeValues = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "propindex_tree_values",
		Help: "Value nodes in the visible facet tree",
	})

	treeFiles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "propindex_tree_files",
		Help: "Files carrying at least one indexed property",
	})
)

// ObserveRebuild records one finished rebuild.
func ObserveRebuild(result string, d time.Duration) {
	rebuildTotal.WithLabelValues(result).Inc()
	rebuildDuration.Observe(d.Seconds())
}

// SetTreeSize publishes the size of the tree that just became visible.
func SetTreeSize(keys, values, files int) {
	treeKeys.Set(float64(keys))
	treeValues.Set(float64(values))
	treeFiles.Set(float64(files))
}
