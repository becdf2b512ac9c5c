// Package metrics exposes the engine's Prometheus counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PresenceUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "echomatch_presence_updates_total",
		Help: "Number of accepted presence updates.",
	})

	Swipes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "echomatch_swipes_total",
		Help: "Number of recorded swipes by action.",
	}, []string{"action"})

	MatchesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "echomatch_matches_created_total",
		Help: "Number of match records created.",
	})

	SwipeConflictRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "echomatch_swipe_conflict_retries_total",
		Help: "Number of swipe transactions retried after a write conflict.",
	})

	VectorRebuilds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "echomatch_vector_rebuilds_total",
		Help: "Number of preference-vector rebuild runs.",
	})

	PublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "echomatch_presence_publish_failures_total",
		Help: "Number of presence events that failed to publish.",
	})
)
