package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ridelink"

var (
	SearchesTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "searches_total", Help: "Total ride searches"})
	SearchResults = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "search_results",
		Help:      "Rides returned per search",
		Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
	})
	DanglingDriverRefs = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "dangling_driver_refs_total", Help: "Rides seen whose driver id resolves to no user"})
	TrustRecomputes    = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "trust_recomputes_total", Help: "Trust score recomputations after a review"})
	RidesPublished     = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "rides_published_total", Help: "Rides offered by drivers"})

	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "bookings_total", Help: "Booking outcomes"},
		[]string{"status"},
	)
	PaymentDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "payment_duration_seconds",
		Help:      "Time spent authorizing and capturing a payment",
		Buckets:   []float64{.05, .1, .5, 1, 2, 3, 5, 10},
	})
	AIFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "ai_fallbacks_total", Help: "Assistant answers served from the local fallback"},
		[]string{"feature"},
	)
	ChatSessions = promauto.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "chat_sessions", Help: "Open live chat connections"})

	SideEffectErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "side_effect_errors_total", Help: "Failures writing through to store, index or event bus"},
		[]string{"sink"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
