// Package metrics provides Prometheus metrics collection for the access gate.
package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Global metrics - used by the application.
	// Using atomic.Pointer for lock-free initialization checks on hot path metrics.
	verifyTotal       atomic.Pointer[prometheus.CounterVec]
	gateChecksTotal   atomic.Pointer[prometheus.CounterVec]
	authFailuresTotal atomic.Pointer[prometheus.CounterVec]
)

// Init initializes all Prometheus metrics and registers them with the provided registry.
// This should be called once at application startup.
func Init(reg prometheus.Registerer) error {
	verifyTotalVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "accessgate",
			Subsystem: "bypass",
			Name:      "verify_total",
			Help:      "Total number of bypass verification attempts by outcome",
		},
		[]string{"outcome"},
	)
	if err := reg.Register(verifyTotalVec); err != nil {
		return fmt.Errorf("failed to register verifyTotal: %w", err)
	}

	gateChecksTotalVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "accessgate",
			Subsystem: "gate",
			Name:      "checks_total",
			Help:      "Total number of maintenance gate decisions by result",
		},
		[]string{"result"},
	)
	if err := reg.Register(gateChecksTotalVec); err != nil {
		return fmt.Errorf("failed to register gateChecksTotal: %w", err)
	}

	authFailuresTotalVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "accessgate",
			Subsystem: "admin",
			Name:      "auth_failures_total",
			Help:      "Total number of operator authentication failures",
		},
		[]string{"reason"},
	)
	if err := reg.Register(authFailuresTotalVec); err != nil {
		return fmt.Errorf("failed to register authFailuresTotal: %w", err)
	}

	verifyTotal.Store(verifyTotalVec)
	gateChecksTotal.Store(gateChecksTotalVec)
	authFailuresTotal.Store(authFailuresTotalVec)

	return nil
}

// RecordVerify increments the verification counter.
// Common outcomes: "granted", "denied", "conflict", "error".
func RecordVerify(outcome string) {
	if counter := verifyTotal.Load(); counter != nil {
		counter.WithLabelValues(outcome).Inc()
	}
}

// RecordGateCheck increments the gate decision counter.
// Common results: "window_inactive", "operator", "bypass", "blocked", "error".
func RecordGateCheck(result string) {
	if counter := gateChecksTotal.Load(); counter != nil {
		counter.WithLabelValues(result).Inc()
	}
}

// RecordAuthFailure increments the operator auth failure counter.
// Common reasons: "bad_password", "missing_session", "bad_csrf".
func RecordAuthFailure(reason string) {
	if counter := authFailuresTotal.Load(); counter != nil {
		counter.WithLabelValues(reason).Inc()
	}
}

// Handler returns an HTTP handler for Prometheus metrics in text format.
// This handler should be registered at /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
