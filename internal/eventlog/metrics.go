package eventlog

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// eventsLogged counts events written to a sink.
	// Labels: group, event
	eventsLogged = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tierlog",
		Subsystem: "eventlog",
		Name:      "events_logged_total",
		Help:      "Events written to the output sink",
	}, []string{"group", "event"})

	// eventsRejected counts events that were dropped.
	// Labels: group, event, reason (invalid, sink)
	eventsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tierlog",
		Subsystem: "eventlog",
		Name:      "events_rejected_total",
		Help:      "Events dropped because of invalid pairs or sink failures",
	}, []string{"group", "event", "reason"})
)
