package worker

import (
	"newsloop/internal/pkg/config"
	"fmt"
	"log/slog"
)

// WorkerConfig holds the worker-process tuning knobs that have no home in
// PipelineConfig: everything else this package used to own (cron schedule,
// timezone, crawl timeout, health port) is superseded by
// PipelineConfig.TickInterval/SoftDeadline/HardDeadline/HealthPort, which the
// orchestrator itself is built from.
type WorkerConfig struct {
	// NotifyMaxConcurrent is the maximum number of concurrent notification
	// channel calls notify.Service will make when dispatching one alert.
	// Range: 1-50
	// Default: 10
	NotifyMaxConcurrent int
}

// DefaultConfig returns a WorkerConfig with sensible default values.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		NotifyMaxConcurrent: 10,
	}
}

// Validate checks the configuration values.
func (c *WorkerConfig) Validate() error {
	if err := config.ValidateIntRange(c.NotifyMaxConcurrent, 1, 50); err != nil {
		return fmt.Errorf("notify max concurrent: %w", err)
	}
	return nil
}

// LoadConfigFromEnv loads WorkerConfig from environment variables with
// validation and automatic fallback to the default value on failure. This
// never returns an error: an invalid NOTIFY_MAX_CONCURRENT falls back to the
// default and is recorded on metrics/logged as a warning, rather than
// aborting startup over a non-fatal tuning knob.
//
// Environment variables:
//   - NOTIFY_MAX_CONCURRENT: Integer 1-50 (default: 10)
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) (*WorkerConfig, error) {
	cfg := DefaultConfig()
	fallbackApplied := false

	result := config.LoadEnvInt("NOTIFY_MAX_CONCURRENT", cfg.NotifyMaxConcurrent, func(v int) error {
		return config.ValidateIntRange(v, 1, 50)
	})
	cfg.NotifyMaxConcurrent = result.Value.(int)
	if result.FallbackApplied {
		fallbackApplied = true
		metrics.RecordValidationError("notify_max_concurrent")
		metrics.RecordFallback("notify_max_concurrent", "default")
		for _, warning := range result.Warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", "NotifyMaxConcurrent"),
				slog.String("warning", warning))
		}
	}

	metrics.SetFallbackActive("", fallbackApplied)
	metrics.RecordLoadTimestamp()

	return &cfg, nil
}
