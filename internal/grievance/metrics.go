package grievance

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	submitted     *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	cacheRequests *prometheus.CounterVec
	collisions    prometheus.Counter
}

// newMetrics registers on reg; a nil reg yields working but unregistered
// collectors.
func newMetrics(reg prometheus.Registerer) *metrics {
	promautoFactory := promauto.With(reg)
	return &metrics{
		submitted: promautoFactory.NewCounterVec(prometheus.CounterOpts{
			Name: "sampark_grievances_submitted_total",
			Help: "grievances accepted, by category",
		}, []string{"category"}),
		transitions: promautoFactory.NewCounterVec(prometheus.CounterOpts{
			Name: "sampark_grievance_transitions_total",
			Help: "status changes recorded, by new status",
		}, []string{"status"}),
		cacheRequests: promautoFactory.NewCounterVec(prometheus.CounterOpts{
			Name: "sampark_view_cache_requests_total",
			Help: "my-grievances cache lookups, by result",
		}, []string{"result"}),
		collisions: promautoFactory.NewCounter(prometheus.CounterOpts{
			Name: "sampark_tracking_code_collisions_total",
			Help: "generated tracking codes that were already in use",
		}),
	}
}
