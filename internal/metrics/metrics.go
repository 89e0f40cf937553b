// Package metrics defines and registers all custom Prometheus metrics for the
// identity service. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics register with the default Prometheus registry at import time via
// promauto; the /metrics endpoint is exposed by the router.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "identity"

// RegistrationsTotal counts registration attempts.
// Label:
//   - result: "success", "duplicate", "invalid", "error"
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of registration attempts, by result.",
	},
	[]string{"result"},
)

// LoginsTotal counts login attempts.
// Labels:
//   - class: "authenticated" or "anonymous"
//   - result: "success", "not_found", "invalid", "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by identity class and result.",
	},
	[]string{"class", "result"},
)

// DuplicatesTotal counts uniqueness violations, whichever layer caught them.
// Label:
//   - attribute: "cpf" or "email"
var DuplicatesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "duplicates_total",
		Help:      "Total number of rejected registrations due to duplicate attributes.",
	},
	[]string{"attribute"},
)

// DirectoryErrorsTotal counts unclassified directory failures.
// Label:
//   - op: port operation name (e.g. "create", "authenticate")
var DirectoryErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "directory_errors_total",
		Help:      "Total number of identity directory failures, by operation.",
	},
	[]string{"op"},
)

// StaleProvisions tracks identities stuck between creation and credential
// finalization, as seen by the journal sweeper on its last pass.
var StaleProvisions = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "stale_provisions",
		Help:      "Identities pending credential finalization beyond the journal threshold.",
	},
)

// ProvisioningDuration measures the Create-to-FinalizeCredential sequence.
// Label:
//   - class: "authenticated" or "anonymous"
var ProvisioningDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "provisioning_duration_seconds",
		Help:      "Duration of the two-phase identity provisioning sequence.",
		Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
	},
	[]string{"class"},
)
