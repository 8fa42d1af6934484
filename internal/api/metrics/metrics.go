// Package metrics defines and registers the custom Prometheus metrics of the
// auth service. It is the single source of truth for metric names, labels, and
// help strings. HTTP request metrics come from echoprometheus in the router.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "auth"

// ── Credential metrics ────────────────────────────────────────────────────────

// AuthAttemptsTotal counts credential operations.
// Labels:
//   - operation: "login", "register", "refresh"
//   - outcome: "success" or the failure class (e.g. "invalid_credentials", "invalid_token")
var AuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "attempts_total",
		Help:      "Total number of login, register and refresh attempts by outcome.",
	},
	[]string{"operation", "outcome"},
)

// ── Guard metrics ─────────────────────────────────────────────────────────────

// GuardRejectionsTotal counts requests short-circuited by the guard chain.
// Label:
//   - guard: "body", "identity", "role", "rate", "throttle"
var GuardRejectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "guard_rejections_total",
		Help:      "Total number of requests rejected by each guard.",
	},
	[]string{"guard"},
)

// RateLimitedPrincipals tracks how many principals the rate limiter holds in memory.
var RateLimitedPrincipals = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "rate_limit_principals",
		Help:      "Number of principals with a rate-limit window in memory.",
	},
)

// ── Audit metrics ─────────────────────────────────────────────────────────────

// AuditQueueDepth tracks the number of audit events waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of audit events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// AuditEventsDroppedTotal counts audit events discarded because a shard was full.
var AuditEventsDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_events_dropped_total",
		Help:      "Total number of audit events dropped because the queue was full.",
	},
)
