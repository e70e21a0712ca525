package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "authsession"

var (
	SignIns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "signin_total", Help: "Sign-in attempts by provider and outcome."},
		[]string{"provider", "outcome"},
	)
	SignOuts = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "signout_total", Help: "Sign-out attempts by outcome."},
		[]string{"outcome"},
	)
	Restores = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "restore_total", Help: "Session restorations at startup by outcome."},
		[]string{"outcome"},
	)
	StorageWriteFailures = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "storage_write_failures_total", Help: "Persistent storage writes that failed."},
	)
)

// Outcome label values
const (
	OutcomeSuccess  = "success"
	OutcomeError    = "error"
	OutcomeCanceled = "canceled"
	OutcomeEmpty    = "empty"
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(SignIns)
	reg.MustRegister(SignOuts)
	reg.MustRegister(Restores)
	reg.MustRegister(StorageWriteFailures)
}
