package main

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"inventory/models"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "inventory",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests broken down by route, method and status code.",
	}, []string{"route", "method", "code"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "inventory",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Latency distribution of HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	reconcileTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "inventory",
		Subsystem: "reconcile",
		Name:      "requests_total",
		Help:      "Asset detail updates broken down by asset kind and outcome.",
	}, []string{"kind", "outcome"})

	assignmentRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "inventory",
		Subsystem: "ledger",
		Name:      "records_total",
		Help:      "Assignment audit records appended, by assignment type.",
	}, []string{"type"})
)

func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		httpLatency.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

func countAssignment(rec models.AssignmentLog) {
	kind := "assign"
	if rec.AssignmentType == models.AssignmentUnassign {
		kind = "unassign"
	}
	assignmentRecords.WithLabelValues(kind).Inc()
}

func countReconcile(kind string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = errorOutcome(err)
	}
	reconcileTotal.WithLabelValues(kind, outcome).Inc()
}

func metricsHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
