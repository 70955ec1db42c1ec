// Copyright 2021 Ilia Frenkel. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE.txt file.

// Package metrics exposes Prometheus metrics for shares and HTTP requests.
// Metrics implements service.Recorder so that the share service can report
// lifecycle events without knowing about Prometheus.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace is prepended to every metric name.
const Namespace = "goshare"

// Metrics holds a private registry with all the collectors.
type Metrics struct {
	registry *prometheus.Registry

	sharesCreated     *prometheus.CounterVec
	sharesDeleted     *prometheus.CounterVec
	sharesExpired     *prometheus.CounterVec
	passwordsRejected *prometheus.CounterVec

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	httpResponseSize *prometheus.HistogramVec
}

// New creates and registers all collectors, including the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.sharesCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "shares",
		Name:      "created_total",
		Help:      "Number of created shares by kind.",
	}, []string{"kind"})
	m.sharesDeleted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "shares",
		Name:      "deleted_total",
		Help:      "Number of shares deleted by their owners.",
	}, []string{"kind"})
	m.sharesExpired = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "shares",
		Name:      "expired_total",
		Help:      "Number of shares removed by the sweeper.",
	}, []string{"kind"})
	m.passwordsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "shares",
		Name:      "passwords_rejected_total",
		Help:      "Number of missing or incorrect passwords.",
	}, []string{"kind"})

	m.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"method", "route", "status"})
	m.httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
	m.httpResponseSize = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes.",
		Buckets:   prometheus.ExponentialBuckets(64, 4, 10),
	}, []string{"method", "route"})

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.sharesCreated,
		m.sharesDeleted,
		m.sharesExpired,
		m.passwordsRejected,
		m.httpRequests,
		m.httpDuration,
		m.httpResponseSize,
	)

	return m
}

// ShareCreated increments the created counter.
func (m *Metrics) ShareCreated(kind string) {
	m.sharesCreated.WithLabelValues(kind).Inc()
}

// ShareDeleted increments the deleted counter.
func (m *Metrics) ShareDeleted(kind string) {
	m.sharesDeleted.WithLabelValues(kind).Inc()
}

// SharesExpired adds n to the expired counter.
func (m *Metrics) SharesExpired(kind string, n int) {
	m.sharesExpired.WithLabelValues(kind).Add(float64(n))
}

// PasswordRejected increments the rejected passwords counter.
func (m *Metrics) PasswordRejected(kind string) {
	m.passwordsRejected.WithLabelValues(kind).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request count, duration and response size. Requests
// are labelled with the route template rather than the raw path to keep
// the label cardinality low.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := "unknown"
		if cr := mux.CurrentRoute(r); cr != nil {
			if tpl, err := cr.GetPathTemplate(); err == nil {
				route = tpl
			}
		}

		snoop := httpsnoop.CaptureMetrics(next, w, r)

		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(snoop.Code)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(snoop.Duration.Seconds())
		m.httpResponseSize.WithLabelValues(r.Method, route).Observe(float64(snoop.Written))
	})
}
