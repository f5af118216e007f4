package metrics

import (
	"time"

	"github.com/yukyu/yukyu/internal/observability"
)

// Data-core metrics following Prometheus conventions
var (
	// Outbound request metrics
	FetchTotal       = "yukyu_fetch_total"
	FetchErrorsTotal = "yukyu_fetch_errors_total"
	FetchDuration    = "yukyu_fetch_duration_ms"

	// CSRF token lifecycle
	CSRFRefreshTotal = "yukyu_csrf_refresh_total"
	CSRFRetryTotal   = "yukyu_csrf_retry_total"

	// Guarded fetch outcomes
	GuardOutcomesTotal = "yukyu_guard_outcomes_total"
	StaleDroppedTotal  = "yukyu_stale_dropped_total"

	// Server lifecycle metrics
	ServerStartTime = "app_server_start_time_seconds"
)

// RecordFetch records one logical outbound request and its duration
func RecordFetch(method string, outcome string, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}

	_ = observability.TelemetrySystem.Counter(
		FetchTotal,
		1,
		map[string]string{
			"method":  method,
			"outcome": outcome,
		},
	)

	_ = observability.TelemetrySystem.Histogram(
		FetchDuration,
		duration,
		map[string]string{
			"method": method,
		},
	)
}

// RecordFetchError records a failed request by error kind
func RecordFetchError(kind string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			FetchErrorsTotal,
			1,
			map[string]string{
				"kind": kind,
			},
		)
	}
}

// RecordCSRFRefresh records a CSRF token fetch (initial, expired, rejected)
func RecordCSRFRefresh(reason string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			CSRFRefreshTotal,
			1,
			map[string]string{
				"reason": reason,
			},
		)
	}
}

// RecordCSRFRetry records the outcome of the single CSRF retry
func RecordCSRFRetry(outcome string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			CSRFRetryTotal,
			1,
			map[string]string{
				"outcome": outcome,
			},
		)
	}
}

// RecordGuardOutcome records what a guarded fetch did with its result
func RecordGuardOutcome(operation string, outcome string) {
	if observability.TelemetrySystem == nil {
		return
	}

	_ = observability.TelemetrySystem.Counter(
		GuardOutcomesTotal,
		1,
		map[string]string{
			"operation": operation,
			"outcome":   outcome,
		},
	)

	if outcome == "stale" {
		_ = observability.TelemetrySystem.Counter(
			StaleDroppedTotal,
			1,
			map[string]string{
				"operation": operation,
			},
		)
	}
}

// SetServerStartTime records the server start time (Unix timestamp)
func SetServerStartTime(timestamp int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			ServerStartTime,
			float64(timestamp),
			nil,
		)
	}
}
