// Package metrics defines and registers all Prometheus metrics for the session
// client. It is the single source of truth for metric names, labels, and help
// strings.
//
// Metrics are registered with the default Prometheus registry on package init
// via promauto; the host application decides whether to expose them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "session"

// Result label values shared by the counters below.
const (
	ResultSuccess    = "success"
	ResultFailure    = "failure"
	ResultSuperseded = "superseded"
)

// ── Session operations ───────────────────────────────────────────────────────

// AuthOperationsTotal counts session operations by outcome.
// Labels:
//   - operation: "login", "register", "logout", "update_profile", "change_password"
//   - result: "success", "failure" or "superseded"
var AuthOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_operations_total",
		Help:      "Total number of session operations, by operation and result.",
	},
	[]string{"operation", "result"},
)

// InvalidationsTotal counts forced logouts caused by the server rejecting the
// stored token.
var InvalidationsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "invalidations_total",
		Help:      "Total number of sessions invalidated by an unauthorized response.",
	},
)

// StartupDuration measures startup reconciliation.
// Label:
//   - outcome: "authenticated", "unauthenticated" or "timeout"
var StartupDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "startup_duration_seconds",
		Help:      "Duration of startup reconciliation until loading was cleared.",
		Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
	},
	[]string{"outcome"},
)

// CachedProfileReadsTotal counts cached profile lookups at startup.
// Label:
//   - result: "hit", "miss" or "error"
var CachedProfileReadsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cached_profile_reads_total",
		Help:      "Total number of cached profile reads, labelled by result.",
	},
	[]string{"result"},
)

// ── Transport ────────────────────────────────────────────────────────────────

// TransportRequestsTotal counts completed requests.
// Label:
//   - category: "ok" or the failure category (e.g. "unauthorized", "network")
var TransportRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transport_requests_total",
		Help:      "Total number of API requests, by outcome category.",
	},
	[]string{"category"},
)

// TransportInFlight tracks requests currently in the Sending state.
var TransportInFlight = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "transport_in_flight",
		Help:      "Current number of API requests in flight.",
	},
)

// SignalsDroppedTotal counts invalidation signals dropped because the
// delivery buffer was full.
var SignalsDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signals_dropped_total",
		Help:      "Total number of invalidation signals dropped on a full buffer.",
	},
)
