package memsync

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	optimisticOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gajni_client",
			Name:      "optimistic_ops_total",
			Help:      "Mutations applied to in-memory state ahead of remote confirmation.",
		},
		[]string{"op"},
	)

	remoteFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gajni_client",
			Name:      "remote_failures_total",
			Help:      "Remote store calls that failed and were absorbed.",
		},
		[]string{"op"},
	)
)
