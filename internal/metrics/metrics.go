// Package metrics registers the Prometheus collectors shared across the
// storage and ledger layers.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// CommitTotal counts store commits by result (ok, conflict, error).
	CommitTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tallyhour_kv_commit_total",
		Help: "Atomic store commits by result.",
	}, []string{"result"})

	// CascadeRetryTotal counts ledger cascade attempts that hit a version
	// conflict and were retried with fresh reads.
	CascadeRetryTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tallyhour_cascade_retry_total",
		Help: "Ledger cascade commits retried after version conflicts.",
	})

	// DistributionTotal counts profit distribution runs by result.
	DistributionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tallyhour_distribution_total",
		Help: "Profit distribution runs by result.",
	}, []string{"result"})
)

// Handler returns the /metrics endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
