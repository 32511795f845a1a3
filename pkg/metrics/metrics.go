// Copyright (c) 2026 VeilForms, Inc.
//
// This file is part of veilkey.
//
// veilkey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@veilforms.com for commercial licensing options.

// Package metrics provides Prometheus instrumentation for veilkey
// operations. Counters and histograms carry operation and store labels
// only; form IDs, user IDs, and token values must never appear in label
// values.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the Prometheus namespace for all veilkey metrics
	Namespace = "veilkey"

	// Label names
	LabelOperation  = "operation"
	LabelStore      = "store"
	LabelStatus     = "status"
	LabelErrorType  = "error_type"
	LabelMethod     = "method"
	LabelStatusCode = "status_code"

	// Status values
	StatusSuccess = "success"
	StatusError   = "error"

	// Operation names
	OpCreateKeys  = "create_keys"
	OpRotate      = "rotate"
	OpEncrypt     = "encrypt"
	OpDecrypt     = "decrypt"
	OpExport      = "export"
	OpImport      = "import"
	OpIssueToken  = "issue_token"
	OpRedeemToken = "redeem_token"
	OpHealthCheck = "health_check"
)

var (
	// OperationsTotal tracks key lifecycle operations by type, store, and status.
	// Use RecordOperation to increment this counter with the appropriate labels.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "operations_total",
			Help:      "Total number of key lifecycle operations by type, store, and status",
		},
		[]string{LabelOperation, LabelStore, LabelStatus},
	)

	// OperationDuration tracks the duration of key lifecycle operations in seconds.
	// Buckets are optimized for typical cryptographic operation latencies.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of key lifecycle operations in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{LabelOperation, LabelStore},
	)

	// ErrorsTotal tracks errors by operation, store, and error type.
	// Error types should be specific (e.g., "token_expired", "decryption_failed").
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "errors_total",
			Help:      "Total number of errors by operation, store, and error type",
		},
		[]string{LabelOperation, LabelStore, LabelErrorType},
	)

	// TokensIssued counts disclosure tokens minted.
	TokensIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "disclosure",
			Name:      "tokens_issued_total",
			Help:      "Total number of one-time disclosure tokens issued",
		},
	)

	// TokensRedeemed counts disclosure token redemption attempts by status
	// (success, expired, consumed, not_found).
	TokensRedeemed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "disclosure",
			Name:      "tokens_redeemed_total",
			Help:      "Total number of disclosure token redemption attempts by status",
		},
		[]string{LabelStatus},
	)

	// HTTPRequestsTotal tracks the total number of HTTP requests by method and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method and status code",
		},
		[]string{LabelMethod, LabelStatusCode},
	)

	// HTTPRequestDuration tracks the duration of HTTP requests in seconds.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{LabelMethod},
	)

	// FormsTotal tracks the number of forms with registered keys per store.
	FormsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "forms_total",
			Help:      "Number of forms with registered keys in each store",
		},
		[]string{LabelStore},
	)

	// Goroutines tracks the current number of goroutines in the server.
	// Updated periodically by the resource collector.
	Goroutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "goroutines",
			Help:      "Current number of goroutines",
		},
	)

	// MemoryAllocBytes tracks the current bytes of allocated heap objects.
	// Updated periodically by the resource collector.
	MemoryAllocBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "memory_alloc_bytes",
			Help:      "Current bytes of allocated heap objects",
		},
	)

	// ServerUptime tracks the server uptime in seconds since startup.
	ServerUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "server_uptime_seconds",
			Help:      "Server uptime in seconds since startup",
		},
	)

	// enabled tracks whether metrics collection is enabled
	enabled atomic.Bool
)

func init() {
	// Metrics are enabled by default
	enabled.Store(true)
}

// RecordOperation records a key lifecycle operation with its duration
// and status.
//
// Parameters:
//   - operation: The operation name (use Op* constants)
//   - store: The store identifier (e.g., "memory", "badger")
//   - status: The operation status (use Status* constants)
//   - duration: The operation duration in seconds
func RecordOperation(operation, store, status string, duration float64) {
	if !enabled.Load() {
		return
	}
	OperationsTotal.WithLabelValues(operation, store, status).Inc()
	OperationDuration.WithLabelValues(operation, store).Observe(duration)
}

// RecordError records an error event with context about where it occurred.
// Error types must stay coarse; never derive them from request data.
func RecordError(operation, store, errorType string) {
	if !enabled.Load() {
		return
	}
	ErrorsTotal.WithLabelValues(operation, store, errorType).Inc()
}

// RecordTokenIssued records the minting of a disclosure token.
func RecordTokenIssued() {
	if !enabled.Load() {
		return
	}
	TokensIssued.Inc()
}

// RecordTokenRedemption records a redemption attempt with its outcome.
func RecordTokenRedemption(status string) {
	if !enabled.Load() {
		return
	}
	TokensRedeemed.WithLabelValues(status).Inc()
}

// RecordHTTPRequest records an HTTP request with its duration and status.
func RecordHTTPRequest(method, statusCode string, duration float64) {
	if !enabled.Load() {
		return
	}
	HTTPRequestsTotal.WithLabelValues(method, statusCode).Inc()
	HTTPRequestDuration.WithLabelValues(method).Observe(duration)
}

// SetFormsTotal sets the number of forms with keys for a store.
func SetFormsTotal(store string, count float64) {
	if !enabled.Load() {
		return
	}
	FormsTotal.WithLabelValues(store).Set(count)
}

// Enable enables metrics collection.
func Enable() {
	enabled.Store(true)
}

// Disable disables metrics collection.
// Useful for testing or when metrics are not desired.
func Disable() {
	enabled.Store(false)
}

// IsEnabled returns whether metrics collection is currently enabled.
func IsEnabled() bool {
	return enabled.Load()
}
