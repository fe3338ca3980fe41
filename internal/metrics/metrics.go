// Package metrics holds the prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the process registry; it also carries the Go runtime and
// process collectors.
var Registry = prometheus.NewRegistry()

var (
	Turns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wayfarer_turns_total",
			Help: "Conversation turns handled, by starting stage and outcome",
		},
		[]string{"stage", "outcome"},
	)
	TurnDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wayfarer_turn_duration_seconds",
			Help:    "Wall time of a conversation turn",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
		},
		[]string{"stage"},
	)
	Handoffs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wayfarer_handoffs_total",
			Help: "Stage transitions, by source, target and mechanism (native or text)",
		},
		[]string{"from", "to", "kind"},
	)
	LodgingRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wayfarer_lodging_requests_total",
			Help: "Outbound accommodation search calls, by outcome",
		},
		[]string{"outcome"},
	)
	LodgingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name: "wayfarer_lodging_request_duration_seconds",
			Help: "Latency of accommodation search calls",
		},
	)
	ItineraryWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wayfarer_itinerary_writes_total",
			Help: "Itinerary documents written, by storage backend",
		},
		[]string{"backend"},
	)
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wayfarer_http_requests_total",
			Help: "Gateway HTTP requests, by method, route pattern and status code",
		},
		[]string{"method", "route", "status"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		Turns, TurnDuration, Handoffs, LodgingRequests, LodgingDuration, ItineraryWrites, HTTPRequests,
	)
}

// Handler serves the registry in the prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
