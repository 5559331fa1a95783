package appendlog

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	entriesAppended = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "p2pchat",
		Subsystem: "log",
		Name:      "entries_appended_total",
		Help:      "Entries appended to local logs.",
	})
	verifyFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "p2pchat",
		Subsystem: "log",
		Name:      "verify_failures_total",
		Help:      "Log verifications that failed, by failed check.",
	}, []string{"check"})
)
