// Package metrics defines and registers all custom Prometheus metrics for the
// library API. It is the single source of truth for metric names, labels and
// help strings. Metrics register with the default registry on package init;
// HTTP request metrics come from echoprometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "library"

// ── Account metrics ───────────────────────────────────────────────────────────

// RegistrationsTotal counts registration attempts.
// Label:
//   - result: "ok", "no_free_card", "conflict", "invalid" or "error"
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of registration attempts, by result.",
	},
	[]string{"result"},
)

// LoginsTotal counts login attempts.
// Label:
//   - result: "ok", "invalid_credentials" or "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// ── Loan metrics ──────────────────────────────────────────────────────────────

// LoansCreatedTotal counts loans opened.
var LoansCreatedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "loans_created_total",
		Help:      "Total number of loans created.",
	},
)

// LoansReturnedTotal counts returned loans.
// Label:
//   - status: "RETURNED" or "LATE"
var LoansReturnedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "loans_returned_total",
		Help:      "Total number of loans returned, by final status.",
	},
	[]string{"status"},
)

// ── Job metrics ───────────────────────────────────────────────────────────────

// JobsProcessedTotal counts jobs that reached a terminal state.
// Labels:
//   - type: job type (e.g. "book.import")
//   - state: "succeeded" or "failed"
var JobsProcessedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_processed_total",
		Help:      "Total number of background jobs processed, by type and final state.",
	},
	[]string{"type", "state"},
)

// JobDuration measures how long a job takes from dequeue to completion.
// Label:
//   - type: job type
var JobDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "job_duration_seconds",
		Help:      "Duration of background job processing.",
		Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
	},
	[]string{"type"},
)

// JobWaitTimeoutsTotal counts callers that gave up waiting for a job.
// Label:
//   - type: job type
var JobWaitTimeoutsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "job_wait_timeouts_total",
		Help:      "Total number of job waits that hit their timeout.",
	},
	[]string{"type"},
)
