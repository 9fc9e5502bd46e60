package sessionlog

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("tierlog.sessionlog")

var (
	// sessionsConcluded counts emitted session events.
	// Labels: event, outcome (start_failure, exception, finished)
	sessionsConcluded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tierlog",
		Subsystem: "sessionlog",
		Name:      "sessions_concluded_total",
		Help:      "Session events emitted, by lifecycle outcome",
	}, []string{"event", "outcome"})

	// structureBuildFailures counts Finished calls whose session tree did not
	// match the scheme.
	structureBuildFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tierlog",
		Subsystem: "sessionlog",
		Name:      "structure_build_failures_total",
		Help:      "Session structures rejected as not matching the scheme",
	}, []string{"event"})
)

const (
	outcomeStartFailure = "start_failure"
	outcomeException    = "exception"
	outcomeFinished     = "finished"
)
