package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dbtune",
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by route, method, and status.",
		},
		[]string{"route", "method", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dbtune",
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and method.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	resultUploadsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dbtune",
			Subsystem: "api",
			Name:      "result_uploads_total",
			Help:      "Total number of accepted result uploads.",
		},
	)

	wsClientsConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "dbtune",
			Subsystem: "api",
			Name:      "websocket_clients",
			Help:      "Number of connected WebSocket clients.",
		},
	)
)

// instrumentationMiddleware records request counts and latencies per route.
func (s *server) instrumentationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}

		start := time.Now()
		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		httpRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(wrapper.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
