package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var cacheWriteFailures = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "gajni_client",
		Name:      "cache_write_failures_total",
		Help:      "Snapshot writes that failed and were swallowed.",
	},
)
