// Package metrics registers the process-wide Prometheus collectors. Every
// service mounts promhttp on /metrics.
package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RidesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ridehail_rides_created_total",
		Help: "Rides created.",
	})
	RidesAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ridehail_rides_accepted_total",
		Help: "Rides claimed by a driver.",
	})
	RidesCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ridehail_rides_completed_total",
		Help: "Rides completed.",
	})
	RidesCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ridehail_rides_cancelled_total",
		Help: "Rides cancelled.",
	})
	LostAcceptRaces = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ridehail_accept_races_lost_total",
		Help: "Accept attempts that lost the claim race.",
	})

	WsConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ridehail_ws_connections",
		Help: "Authenticated websocket connections.",
	})
	WsEventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ridehail_ws_events_dropped_total",
		Help: "Events dropped because a client's egress buffer was full.",
	})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ridehail_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "status"})
)

// Handler serves the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request latency labelled by method and status class.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		httpDuration.
			WithLabelValues(r.Method, strconv.Itoa(rec.status)).
			Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack keeps websocket upgrades working behind the middleware.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return h.Hijack()
}
