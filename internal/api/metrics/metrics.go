// Package metrics defines and registers all custom Prometheus metrics for the
// auth API. It is the single source of truth for metric names, labels, and
// help strings.
//
// Collectors are registered with the default Prometheus registry at package
// init via promauto. HTTP request metrics come from echoprometheus instead.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "auth"

// ── Account metrics ───────────────────────────────────────────────────────────

// SignupsTotal counts signup attempts by outcome.
// Label:
//   - result: "created", "invalid", "conflict", "unknown_role", "error"
var SignupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signups_total",
		Help:      "Total number of signup attempts, by result.",
	},
	[]string{"result"},
)

// SigninsTotal counts signin attempts by outcome.
// Label:
//   - result: "success", "invalid", "not_found", "invalid_password", "throttled", "error"
var SigninsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signins_total",
		Help:      "Total number of signin attempts, by result.",
	},
	[]string{"result"},
)

// SigninDuration measures signin latency, dominated by the password hash
// comparison.
var SigninDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "signin_duration_seconds",
		Help:      "Duration of signin requests from bind to token issue.",
		Buckets:   prometheus.DefBuckets,
	},
)

// ── Access metrics ────────────────────────────────────────────────────────────

// AccessDecisionsTotal counts access guard decisions on protected routes.
// Labels:
//   - route: the registered route path (e.g. "/api/test/admin")
//   - result: "granted", "no_token", "unauthorized", "forbidden"
var AccessDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "access_decisions_total",
		Help:      "Total number of access guard decisions, by route and result.",
	},
	[]string{"route", "result"},
)
