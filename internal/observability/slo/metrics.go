// Package slo tracks the pipeline's service level objectives: how often a
// cycle completes successfully, and how long the slowest cycles take
// relative to the soft/hard deadlines configured on the orchestrator.
package slo

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SLO targets for the pipeline's cycle loop.
const (
	// CycleSuccessSLO is the target ratio of cycles that complete without
	// error, measured over the trailing window cmd/worker tracks.
	CycleSuccessSLO = 0.95

	// CycleDurationP95SLO is the target p95 cycle duration in seconds,
	// kept comfortably under the default 8-minute soft deadline.
	CycleDurationP95SLO = 420.0
)

// SLO tracking metrics, updated by cmd/worker after each cycle from a
// trailing window of recent cycle outcomes and durations.
var (
	// SLOCycleSuccessRatio tracks the ratio of successful cycles (0-1)
	// over the trailing window.
	SLOCycleSuccessRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "slo_cycle_success_ratio",
			Help: "Ratio of pipeline cycles completing without error over the trailing window, target: 0.95",
		},
	)

	// SLOCycleDurationP95Seconds tracks the p95 cycle duration in seconds
	// over the trailing window.
	SLOCycleDurationP95Seconds = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "slo_cycle_duration_p95_seconds",
			Help: "p95 pipeline cycle duration in seconds over the trailing window, target: 420",
		},
	)
)

// UpdateCycleSuccessRatio sets the current cycle success ratio.
func UpdateCycleSuccessRatio(ratio float64) {
	SLOCycleSuccessRatio.Set(ratio)
}

// UpdateCycleDurationP95 sets the current p95 cycle duration in seconds.
func UpdateCycleDurationP95(seconds float64) {
	SLOCycleDurationP95Seconds.Set(seconds)
}
