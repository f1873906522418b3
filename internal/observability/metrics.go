package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TurnsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "halcyon_turns_total",
			Help: "Total number of processed conversation turns",
		},
		[]string{"outcome"},
	)

	ModelCallDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "halcyon_model_call_duration_seconds",
			Help: "Generative model call duration in seconds",
		},
	)

	ModelFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "halcyon_model_failures_total",
			Help: "Model calls that failed or returned undecodable output",
		},
		[]string{"step"},
	)

	RiskAlerts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "halcyon_risk_alerts_total",
			Help: "Turns whose merged risk level exceeded the alert threshold",
		},
	)

	StressGateHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "halcyon_stress_gate_hits_total",
			Help: "Messages short-circuited by the stress gate",
		},
	)

	WorkerEventsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "halcyon_worker_events_in_flight",
			Help: "Turn events currently being replayed by the durable worker",
		},
	)
)
