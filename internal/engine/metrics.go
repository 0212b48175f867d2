package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricAcquisitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "replyctl",
		Name:      "acquisitions_total",
		Help:      "Finished acquisitions by outcome.",
	}, []string{"outcome"})
	metricPolls = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "replyctl",
		Name:      "polls_total",
		Help:      "Page samples taken by the completion detector.",
	})
	metricFailedSamples = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "replyctl",
		Name:      "failed_samples_total",
		Help:      "Samples dropped because the page could not be read.",
	})
	metricRegenerateAcks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "replyctl",
		Name:      "regenerate_acks_total",
		Help:      "Regenerate acknowledgments sent to the remote UI.",
	})
	metricFallbackCycles = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "replyctl",
		Name:      "fallback_cycles_total",
		Help:      "Fallback cycles started.",
	})
)

func recordOutcome(o Outcome) {
	label := o.Kind.String()
	if o.Degraded() {
		label = "fallback_degraded"
	}
	metricAcquisitions.WithLabelValues(label).Inc()
}
