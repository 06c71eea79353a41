package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

type Prom struct {
	RequestsTotal    *prometheus.CounterVec
	RequestsDuration *prometheus.HistogramVec
	InFlight         *prometheus.GaugeVec

	// Upstream ticketing API
	UpstreamDuration *prometheus.HistogramVec
	UpstreamErrors   *prometheus.CounterVec

	// Catalog snapshot cache
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	// Registration mutations
	RegistrationResults *prometheus.CounterVec
}

func NewProm(reg prometheus.Registerer) *Prom {
	p := &Prom{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "eventgate",
				Name:      "http_requests_total",
				Help:      "Total HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestsDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "eventgate",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency distributions.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "route", "status"},
		),
		InFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "eventgate",
				Name:      "http_in_flight_requests",
				Help:      "Current number of in-flight HTTP requests.",
			},
			[]string{"method", "route"},
		),
		UpstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "eventgate",
				Subsystem: "upstream",
				Name:      "call_duration_seconds",
				Help:      "Upstream API call latency (logical op, not raw path)",
				Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"op", "status"},
		),
		UpstreamErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "eventgate",
				Subsystem: "upstream",
				Name:      "errors_total",
				Help:      "Upstream API errors by logical op and class.",
			},
			[]string{"op", "class"},
		),
		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "eventgate",
				Subsystem: "cache",
				Name:      "hits_total",
				Help:      "Catalog snapshot cache hits.",
			},
			[]string{"key_kind"},
		),
		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "eventgate",
				Subsystem: "cache",
				Name:      "misses_total",
				Help:      "Catalog snapshot cache misses.",
			},
			[]string{"key_kind"},
		),
		RegistrationResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "eventgate",
				Subsystem: "registrations",
				Name:      "results_total",
				Help:      "Registration mutation outcomes.",
			},
			[]string{"action", "result"}, // result=ok|rejected|error
		),
	}
	reg.MustRegister(
		p.RequestsTotal, p.RequestsDuration, p.InFlight,
		p.UpstreamDuration, p.UpstreamErrors,
		p.CacheHits, p.CacheMisses,
		p.RegistrationResults,
	)

	return p
}

func (p *Prom) GinHandleMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		// route template is only available after routing; best effort:
		route := ctx.FullPath()

		if route == "" {
			route = "unmatched"
		}

		method := ctx.Request.Method
		p.InFlight.WithLabelValues(method, route).Inc()
		defer p.InFlight.WithLabelValues(method, route).Dec()
		ctx.Next()

		status := strconv.Itoa(ctx.Writer.Status())
		secs := time.Since(start).Seconds()

		p.RequestsTotal.WithLabelValues(method, route, status).Inc()
		p.RequestsDuration.WithLabelValues(method, route, status).Observe(secs)
	}
}
