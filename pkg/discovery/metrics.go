package discovery

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Reasons a datagram is dropped.
const (
	dropUnparsable = "unparsable"
	dropForeign    = "foreign"
	dropIncomplete = "incomplete"
	dropSelf       = "self"
)

var (
	queriesSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "p2pchat",
		Subsystem: "discovery",
		Name:      "queries_sent_total",
		Help:      "Rendezvous queries queued for the multicast group.",
	})
	answersSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "p2pchat",
		Subsystem: "discovery",
		Name:      "answers_sent_total",
		Help:      "Answers queued in reply to rendezvous queries.",
	})
	sendErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "p2pchat",
		Subsystem: "discovery",
		Name:      "send_errors_total",
		Help:      "Datagrams that could not be written to the socket.",
	})
	datagramsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "p2pchat",
		Subsystem: "discovery",
		Name:      "datagrams_received_total",
		Help:      "Datagrams read from the multicast socket.",
	})
	datagramsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "p2pchat",
		Subsystem: "discovery",
		Name:      "datagrams_dropped_total",
		Help:      "Datagrams ignored, by reason.",
	}, []string{"reason"})
	peersFound = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "p2pchat",
		Subsystem: "discovery",
		Name:      "peers_found_total",
		Help:      "Answers from other participants, including repeats.",
	})
)
