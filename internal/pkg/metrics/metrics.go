// Package metrics defines the prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds every fleetwatch collector plus the Go and process collectors.
	Registry = prometheus.NewRegistry()

	// TelemetryIngested counts readings by outcome: ok, fault, not_found, invalid, error.
	TelemetryIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetwatch_telemetry_ingested_total",
			Help: "Telemetry readings processed, by result.",
		},
		[]string{"result"},
	)

	// AlarmsRaised counts alarms created from faulty readings.
	AlarmsRaised = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetwatch_alarms_raised_total",
			Help: "Alarms raised, by severity.",
		},
		[]string{"severity"},
	)

	// AlarmTransitions counts accepted alarm state changes by target state.
	AlarmTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetwatch_alarm_transitions_total",
			Help: "Alarm lifecycle transitions, by target state.",
		},
		[]string{"state"},
	)

	// NotificationsDropped counts alarm events a sink could not deliver.
	NotificationsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetwatch_notifications_dropped_total",
			Help: "Alarm notifications dropped, by sink.",
		},
		[]string{"sink"},
	)

	// PushSessions is the number of connected dashboard sessions.
	PushSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fleetwatch_push_sessions",
			Help: "Currently connected push sessions.",
		},
	)

	// HTTPRequestDuration observes REST latency.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fleetwatch_http_request_duration_seconds",
			Help:    "Latency of HTTP requests, by route, method and status code.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method", "code"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		TelemetryIngested,
		AlarmsRaised,
		AlarmTransitions,
		NotificationsDropped,
		PushSessions,
		HTTPRequestDuration,
	)
}

// Handler serves the registry in the prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
