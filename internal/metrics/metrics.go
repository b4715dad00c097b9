// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package metrics registers the Prometheus collectors exposed on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "thinkspace"

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route pattern, method and status code.",
	}, []string{"route", "method", "code"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route pattern.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	registrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webinar_registrations_total",
		Help:      "Webinar registration attempts by outcome.",
	}, []string{"outcome"})

	blogViews = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "blog_views_total",
		Help:      "Blog detail page views.",
	})

	webhookDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_deliveries_total",
		Help:      "Webhook delivery attempts by result (delivered, retry, dead).",
	}, []string{"result"})

	jobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scheduler_job_runs_total",
		Help:      "Scheduled job runs by job and result.",
	}, []string{"job", "result"})

	loginFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_failures_total",
		Help:      "Failed login attempts.",
	})
)

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and latency keyed by the chi route
// pattern, so /blog/{slug} is one series regardless of slug.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

// Registration outcomes.
const (
	OutcomeConfirmed = "confirmed"
	OutcomePending   = "pending"
	OutcomeDuplicate = "duplicate"
	OutcomeFull      = "full"
	OutcomeRejected  = "rejected"
)

// RecordRegistration counts a registration attempt.
func RecordRegistration(outcome string) {
	registrations.WithLabelValues(outcome).Inc()
}

// RecordBlogView counts a blog detail view.
func RecordBlogView() {
	blogViews.Inc()
}

// RecordWebhookDelivery counts a delivery attempt result.
func RecordWebhookDelivery(result string) {
	webhookDeliveries.WithLabelValues(result).Inc()
}

// RecordJobRun counts a scheduler job run.
func RecordJobRun(job string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	jobRuns.WithLabelValues(job, result).Inc()
}

// RecordLoginFailure counts a failed login.
func RecordLoginFailure() {
	loginFailures.Inc()
}
