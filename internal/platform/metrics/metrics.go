// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package metrics collects and exposes Prometheus metrics for the gateway.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the metrics surface used by the domain services.
type Recorder interface {
	RecordGuardDecision(audience, outcome string)
	RecordSessionEvent(event, outcome string)
	RecordIngestOutcome(state string)
	RecordCommitItem(success bool)
	RecordBackendCall(operation string, statusCode int)
	RecordInferenceLatency(duration time.Duration)
}

// Collector is the Prometheus implementation of [Recorder].
type Collector struct {
	guardDecisions   *prometheus.CounterVec
	sessionEvents    *prometheus.CounterVec
	ingestOutcomes   *prometheus.CounterVec
	commitItems      *prometheus.CounterVec
	backendCalls     *prometheus.CounterVec
	inferenceLatency prometheus.Histogram
	httpRequests     *prometheus.CounterVec
	httpLatency      *prometheus.HistogramVec
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		guardDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_guard_decisions_total",
			Help: "Route guard decisions by audience and outcome.",
		}, []string{"audience", "outcome"}),
		sessionEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_session_events_total",
			Help: "Session operations (bootstrap, login, register, logout, invalidate) by outcome.",
		}, []string{"event", "outcome"}),
		ingestOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_ingest_outcomes_total",
			Help: "Ingestion attempts by terminal state.",
		}, []string{"state"}),
		commitItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_commit_items_total",
			Help: "Committed transaction candidates by result.",
		}, []string{"result"}),
		backendCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_backend_calls_total",
			Help: "Backend API calls by operation and status code.",
		}, []string{"operation", "status_code"}),
		inferenceLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "portal_inference_latency_seconds",
			Help:    "Latency of inference model calls.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60},
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_http_requests_total",
			Help: "HTTP requests by route pattern, method and status code.",
		}, []string{"route", "method", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portal_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	reg.MustRegister(
		c.guardDecisions,
		c.sessionEvents,
		c.ingestOutcomes,
		c.commitItems,
		c.backendCalls,
		c.inferenceLatency,
		c.httpRequests,
		c.httpLatency,
	)

	return c
}

// RecordGuardDecision counts one guard decision.
func (c *Collector) RecordGuardDecision(audience, outcome string) {
	c.guardDecisions.WithLabelValues(audience, outcome).Inc()
}

// RecordSessionEvent counts one session operation.
func (c *Collector) RecordSessionEvent(event, outcome string) {
	c.sessionEvents.WithLabelValues(event, outcome).Inc()
}

// RecordIngestOutcome counts an ingestion attempt reaching a terminal state.
func (c *Collector) RecordIngestOutcome(state string) {
	c.ingestOutcomes.WithLabelValues(state).Inc()
}

// RecordCommitItem counts one create-transaction call made during commit.
func (c *Collector) RecordCommitItem(success bool) {
	result := "failed"
	if success {
		result = "saved"
	}
	c.commitItems.WithLabelValues(result).Inc()
}

// RecordBackendCall counts one backend API call. statusCode 0 means the call
// never got a response.
func (c *Collector) RecordBackendCall(operation string, statusCode int) {
	c.backendCalls.WithLabelValues(operation, strconv.Itoa(statusCode)).Inc()
}

// RecordInferenceLatency observes one inference call.
func (c *Collector) RecordInferenceLatency(duration time.Duration) {
	c.inferenceLatency.Observe(duration.Seconds())
}

// Instrument records request count and latency per chi route pattern.
// Patterns keep label cardinality bounded (ids stay out of labels).
func (c *Collector) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: writer, status: http.StatusOK}

		next.ServeHTTP(recorder, request)

		route := "unmatched"
		if routeCtx := chi.RouteContext(request.Context()); routeCtx != nil {
			if pattern := routeCtx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		c.httpRequests.WithLabelValues(route, request.Method, strconv.Itoa(recorder.status)).Inc()
		c.httpLatency.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (recorder *statusRecorder) WriteHeader(code int) {
	recorder.status = code
	recorder.ResponseWriter.WriteHeader(code)
}

// Handler returns the HTTP handler for Prometheus scraping.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// # No-op

// Nop discards every observation. Used by tests and when metrics are off.
type Nop struct{}

func (Nop) RecordGuardDecision(string, string) {}
func (Nop) RecordSessionEvent(string, string) {}
func (Nop) RecordIngestOutcome(string) {}
func (Nop) RecordCommitItem(bool) {}
func (Nop) RecordBackendCall(string, int) {}
func (Nop) RecordInferenceLatency(time.Duration) {}
