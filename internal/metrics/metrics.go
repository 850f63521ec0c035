// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts responses by route and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "silva_http_requests_total",
		Help: "The total number of HTTP requests by route and status",
	}, []string{"method", "route", "status"})

	// HTTPRequestDuration is bucketed per route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "silva_http_request_duration_seconds",
		Help:    "The request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	ComplaintEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "silva_complaint_events_total",
		Help: "Complaint lifecycle events by action kind",
	}, []string{"action"})

	LoginAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "silva_login_attempts_total",
		Help: "The total number of login attempts by outcome",
	}, []string{"status"})

	RegistrationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "silva_registrations_total",
		Help: "Sign-up attempts by outcome",
	}, []string{"status"})

	ObservationLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "silva_inaturalist_lookups_total",
		Help: "Calls to the iNaturalist observations API by outcome",
	}, []string{"outcome"})

	ObservationLookupDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "silva_inaturalist_lookup_duration_seconds",
		Help:    "Latency of iNaturalist observation lookups",
		Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
	})

	LiveFeedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "silva_live_feed_clients",
		Help: "Admins currently connected to the live activity feed",
	})
)
