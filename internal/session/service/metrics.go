package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "sessionguard"

// Metrics are the counters the Manager and HousekeepingService update.
// Labels are bounded: token kinds, error kinds, revocation scopes and
// rotation reasons are all closed sets.
type Metrics struct {
	Issued         *prometheus.CounterVec
	VerifyFailures *prometheus.CounterVec
	Revocations    *prometheus.CounterVec
	Rotations      *prometheus.CounterVec
	Swept          prometheus.Counter
}

// NewMetrics creates the counters and registers them with reg. A nil reg
// returns working but unregistered counters.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Issued: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "tokens_issued_total",
			Help:      "Tokens issued, by kind.",
		}, []string{"kind"}),
		VerifyFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "verify_failures_total",
			Help:      "Rejected verifications, by expected kind and failure kind.",
		}, []string{"kind", "error_kind"}),
		Revocations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "revocations_total",
			Help:      "Revocation calls, by scope (single or owner).",
		}, []string{"scope"}),
		Rotations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rotations_total",
			Help:      "Rotation checks, by outcome.",
		}, []string{"reason"}),
		Swept: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "ledger_swept_total",
			Help:      "Expired ledger records deleted by housekeeping.",
		}),
	}
}
