// Package metrics holds the Prometheus collectors exported on /metrics
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by method, route pattern and status code.",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by method and route pattern.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	AuthAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_attempts_total",
		Help: "Sign-in and registration attempts by method and result.",
	}, []string{"method", "result"})

	FamilyMembershipChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "family_membership_changes_total",
		Help: "Family membership changes by action.",
	}, []string{"action"})
)

// ObserveAuth counts an authentication attempt
func ObserveAuth(method string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	AuthAttemptsTotal.WithLabelValues(method, result).Inc()
}

// MembershipChanged counts a create, join or leave
func MembershipChanged(action string) {
	FamilyMembershipChangesTotal.WithLabelValues(action).Inc()
}
