// Package config holds the operator-facing configuration for the news
// pipeline: tick interval, thresholds, concurrency caps, and provider
// credentials. Operational settings load from the environment with
// fail-open fallback to defaults, following the same pattern as the worker
// package — a malformed setting is logged and the default is used. A
// missing DATABASE_URL, a missing API key for the selected provider, or an
// unknown AI_PROVIDER is returned by LoadFromEnv as a configuration error.
package config

import (
	"fmt"
	"log/slog"
	"time"

	pkgconfig "newsloop/internal/pkg/config"
)

// FeedDescriptor is one entry in the static feed list: a publisher name,
// its RSS/Atom URL, and its credibility tier (spec §4.1, §6).
type FeedDescriptor struct {
	Name    string `yaml:"name"`
	FeedURL string `yaml:"feed_url"`
	Tier    int    `yaml:"tier"` // 1, 2, or 3
}

// PipelineConfig is the full set of knobs spec §6's "Operator interface"
// names: tick interval, approve threshold, cluster window, inactivity
// window, hard-max age, concurrency caps per stage, provider keys, and the
// store connection string.
type PipelineConfig struct {
	// DatabaseURL is the Postgres connection string. Required; there is no
	// safe default, so an empty value is a fatal configuration error.
	DatabaseURL string

	// TickInterval is how often a pipeline cycle starts. Default 10m.
	TickInterval time.Duration

	// ApproveThreshold is the minimum adjusted score for an item to be
	// approved for clustering. Default 700.
	ApproveThreshold int

	// ClusterCandidateWindow bounds how far back a cluster's last update
	// can be for it to remain a matching candidate. Default 24h.
	ClusterCandidateWindow time.Duration

	// InactivityWindow is the §4.3 lifecycle rule: a cluster older than
	// this since its last update is closed at the top of the next cycle.
	// Default 24h.
	InactivityWindow time.Duration

	// HardMaxClusterAge closes a cluster regardless of activity once it
	// has been open this long. Default 48h.
	HardMaxClusterAge time.Duration

	// UpdateCooldown suppresses republishing a cluster's article more
	// often than this. Default 30m.
	UpdateCooldown time.Duration

	// SoftDeadline: once a cycle has run this long, no new stage work is
	// started. Default 8m.
	SoftDeadline time.Duration

	// HardDeadline: in-flight work past this point is abandoned for the
	// next cycle. Default 12m.
	HardDeadline time.Duration

	// Concurrency caps, one per stage (spec §5).
	IngestConcurrency          int // default 30
	ScoringConcurrency         int // default 10
	FetchConcurrencyPerCluster int // default 8
	ComponentConcurrency       int // default 5

	// FetchMinTextLength is loaded from FETCH_MIN_TEXT_LENGTH (default 400)
	// but is not passed to the full-text stage, which applies its own fixed
	// 400-character minimum before trying the fallback fetcher.
	FetchMinTextLength int

	// FetchURLCapPerCluster is loaded from FETCH_URL_CAP_PER_CLUSTER
	// (default 10) but is not passed to the full-text stage, which applies
	// its own fixed cap of 10 member URLs per cluster per cycle.
	FetchURLCapPerCluster int

	// AIProvider selects which capability backend to wire: "anthropic" or
	// "openai". Default "anthropic".
	AIProvider      string
	AnthropicAPIKey string
	OpenAIAPIKey    string

	// Feeds is the static list of sources to poll.
	Feeds []FeedDescriptor

	// HealthPort is the listen port of the worker's health server.
	// Prometheus metrics are served by a separate server on METRICS_PORT.
	HealthPort int

	// AlertWebhookURL is loaded from ALERT_WEBHOOK_URL but nothing reads
	// it: operator alerts go through the Discord and Slack channels, which
	// are configured by their own environment settings.
	AlertWebhookURL string
}

// Default returns a PipelineConfig with the spec's stated defaults. It is
// not itself a valid runtime configuration: DatabaseURL and the provider
// API key must still be supplied.
func Default() PipelineConfig {
	return PipelineConfig{
		TickInterval:               10 * time.Minute,
		ApproveThreshold:           700,
		ClusterCandidateWindow:     24 * time.Hour,
		InactivityWindow:           24 * time.Hour,
		HardMaxClusterAge:          48 * time.Hour,
		UpdateCooldown:             30 * time.Minute,
		SoftDeadline:               8 * time.Minute,
		HardDeadline:               12 * time.Minute,
		IngestConcurrency:          30,
		ScoringConcurrency:         10,
		FetchConcurrencyPerCluster: 8,
		ComponentConcurrency:       5,
		FetchMinTextLength:         400,
		FetchURLCapPerCluster:      10,
		AIProvider:                 "anthropic",
		HealthPort:                 9091,
	}
}

// LoadFromEnv loads a PipelineConfig from environment variables, starting
// from Default() and falling back field-by-field on invalid input. It
// never returns an error for operational settings (fail-open); it returns
// an error only for the configuration-error-at-start class named in spec
// §7 — a missing DatabaseURL, a missing API key for the selected
// AIProvider, or an AIProvider other than "anthropic" or "openai".
//
// Feeds is not populated from the environment; callers load the static
// feed list separately (e.g. from a config file) and set it after
// LoadFromEnv returns.
func LoadFromEnv(logger *slog.Logger) (*PipelineConfig, error) {
	cfg := Default()

	cfg.DatabaseURL = pkgconfig.LoadEnvString("DATABASE_URL", "")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("configuration error: DATABASE_URL is required")
	}

	loadDuration(logger, "TICK_INTERVAL", &cfg.TickInterval, 1*time.Minute, time.Hour)
	loadInt(logger, "APPROVE_THRESHOLD", &cfg.ApproveThreshold, 0, 1000)
	loadDuration(logger, "CLUSTER_CANDIDATE_WINDOW", &cfg.ClusterCandidateWindow, time.Hour, 7*24*time.Hour)
	loadDuration(logger, "INACTIVITY_WINDOW", &cfg.InactivityWindow, time.Hour, 7*24*time.Hour)
	loadDuration(logger, "HARD_MAX_CLUSTER_AGE", &cfg.HardMaxClusterAge, time.Hour, 14*24*time.Hour)
	loadDuration(logger, "UPDATE_COOLDOWN", &cfg.UpdateCooldown, 0, 24*time.Hour)
	loadDuration(logger, "SOFT_DEADLINE", &cfg.SoftDeadline, time.Minute, time.Hour)
	loadDuration(logger, "HARD_DEADLINE", &cfg.HardDeadline, time.Minute, 2*time.Hour)

	loadInt(logger, "INGEST_CONCURRENCY", &cfg.IngestConcurrency, 1, 200)
	loadInt(logger, "SCORING_CONCURRENCY", &cfg.ScoringConcurrency, 1, 100)
	loadInt(logger, "FETCH_CONCURRENCY_PER_CLUSTER", &cfg.FetchConcurrencyPerCluster, 1, 50)
	loadInt(logger, "COMPONENT_CONCURRENCY", &cfg.ComponentConcurrency, 1, 50)
	loadInt(logger, "FETCH_MIN_TEXT_LENGTH", &cfg.FetchMinTextLength, 0, 10000)
	loadInt(logger, "FETCH_URL_CAP_PER_CLUSTER", &cfg.FetchURLCapPerCluster, 1, 100)
	loadInt(logger, "HEALTH_PORT", &cfg.HealthPort, 1024, 65535)

	cfg.AIProvider = pkgconfig.LoadEnvString("AI_PROVIDER", cfg.AIProvider)
	cfg.AnthropicAPIKey = pkgconfig.LoadEnvString("ANTHROPIC_API_KEY", "")
	cfg.OpenAIAPIKey = pkgconfig.LoadEnvString("OPENAI_API_KEY", "")
	cfg.AlertWebhookURL = pkgconfig.LoadEnvString("ALERT_WEBHOOK_URL", "")

	switch cfg.AIProvider {
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("configuration error: ANTHROPIC_API_KEY is required when AI_PROVIDER=anthropic")
		}
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("configuration error: OPENAI_API_KEY is required when AI_PROVIDER=openai")
		}
	default:
		return nil, fmt.Errorf("configuration error: unknown AI_PROVIDER %q, want anthropic or openai", cfg.AIProvider)
	}

	return &cfg, nil
}

func loadDuration(logger *slog.Logger, envKey string, field *time.Duration, min, max time.Duration) {
	result := pkgconfig.LoadEnvDuration(envKey, *field, func(d time.Duration) error {
		return pkgconfig.ValidateDuration(d, min, max)
	})
	*field = result.Value.(time.Duration)
	for _, warning := range result.Warnings {
		logger.Warn("configuration fallback applied", slog.String("field", envKey), slog.String("warning", warning))
	}
}

func loadInt(logger *slog.Logger, envKey string, field *int, min, max int) {
	result := pkgconfig.LoadEnvInt(envKey, *field, func(v int) error {
		return pkgconfig.ValidateIntRange(v, min, max)
	})
	*field = result.Value.(int)
	for _, warning := range result.Warnings {
		logger.Warn("configuration fallback applied", slog.String("field", envKey), slog.String("warning", warning))
	}
}
