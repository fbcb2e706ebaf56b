// Package observability provides production-grade observability infrastructure
// including structured logging, Prometheus metrics, SLO tracking, and
// OpenTelemetry tracing.
//
// This package centralizes observability concerns to enable:
//   - Cycle tracing across the pipeline's /metrics and /health surface
//   - Structured logging with cycle-ID correlation
//   - Prometheus metrics for per-stage pipeline instrumentation
//   - Trailing-window SLO tracking for cycle success ratio and duration
//
// Subpackages:
//   - logging: Structured logging utilities with slog
//   - metrics: Prometheus metrics registry and recorders
//   - slo: Service level objective gauges over a trailing cycle window
//   - tracing: OpenTelemetry tracing integration for the metrics/health mux
//
// Example usage:
//
//	import (
//	    "newsloop/internal/observability/logging"
//	    "newsloop/internal/observability/metrics"
//	)
//
//	func main() {
//	    logger := logging.NewLogger()
//	    logger.Info("application started")
//
//	    pm := metrics.NewPipelineMetrics()
//	    pm.CycleDurationSeconds.Observe(12.5)
//	}
package observability
