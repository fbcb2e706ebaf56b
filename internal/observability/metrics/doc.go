// Package metrics provides the Prometheus metrics recorded across one
// pipeline cycle: per-stage item counts, cluster lifecycle counts, full-text
// fetch outcomes, synthesis failures, component generation outcomes, publish
// outcomes, cycle duration, and capability budget remaining.
//
// All metrics are registered with the Prometheus default registry via
// promauto and exposed through cmd/worker's /metrics endpoint.
//
// Example usage:
//
//	pm := metrics.NewPipelineMetrics()
//	pm.CycleDurationSeconds.Observe(time.Since(start).Seconds())
package metrics
