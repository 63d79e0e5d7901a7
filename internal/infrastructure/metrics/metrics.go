// Package metrics defines and registers all custom Prometheus metrics for the
// identity service. It is the single source of truth for metric names,
// labels, and help strings.
//
// Collectors register with the default Prometheus registry on package
// initialisation through promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "identity"

// ── Credential metrics ────────────────────────────────────────────────────────

// AuthOperationsTotal counts credential operations by outcome.
// Labels:
//   - operation: "register", "login" or "validate_token"
//   - outcome: "ok" or the lower-cased error kind (e.g. "invalid_credentials")
var AuthOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_operations_total",
		Help:      "Total number of credential operations, by operation and outcome.",
	},
	[]string{"operation", "outcome"},
)

// PasswordHashDuration measures how long a single hash or verify takes,
// including time spent waiting for a hashing slot.
// Label:
//   - op: "hash" or "verify"
var PasswordHashDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "password_hash_duration_seconds",
		Help:      "Duration of password hashing and verification.",
		Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5},
	},
	[]string{"op"},
)

// ── Transaction metrics ───────────────────────────────────────────────────────

// TransactionsTotal counts finished units of work.
// Labels:
//   - scope: "top" for a top-level transaction, "savepoint" for a nested one
//   - result: "commit" or "rollback"
var TransactionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transactions_total",
		Help:      "Total number of units of work run by the transaction coordinator.",
	},
	[]string{"scope", "result"},
)
