package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/robfig/cron/v3"

	"newsloop/internal/capability"
	"newsloop/internal/config"
	"newsloop/internal/domain/entity"
	pgRepo "newsloop/internal/infra/adapter/persistence/postgres"
	"newsloop/internal/infra/aiprovider"
	"newsloop/internal/infra/db"
	"newsloop/internal/infra/fulltext"
	"newsloop/internal/infra/ingest"
	"newsloop/internal/infra/notifier"
	"newsloop/internal/observability/logging"
	"newsloop/internal/observability/metrics"
	"newsloop/internal/observability/slo"
	"newsloop/internal/resilience/budget"
	workerPkg "newsloop/internal/infra/worker"
	"newsloop/internal/usecase/notify"
	"newsloop/internal/usecase/pipeline"
	"newsloop/internal/usecase/pipeline/cluster"
	"newsloop/internal/usecase/pipeline/component"
	fulltextUC "newsloop/internal/usecase/pipeline/fulltext"
	"newsloop/internal/usecase/pipeline/imagesel"
	ingestUC "newsloop/internal/usecase/pipeline/ingest"
	"newsloop/internal/usecase/pipeline/publish"
	"newsloop/internal/usecase/pipeline/score"
	"newsloop/internal/usecase/pipeline/synthesize"
)

func waitForMigrations(logger *slog.Logger, database *sql.DB) {
	const probe = "SELECT 1 FROM source_items LIMIT 1"
	for i := 0; i < 10; i++ {
		if _, err := database.Exec(probe); err == nil {
			return
		}
		logger.Info("waiting for migrations, retrying in 3s", slog.Int("attempt", i+1))
		time.Sleep(3 * time.Second)
	}
	logger.Error("migrations did not complete in time")
	os.Exit(1)
}

func main() {
	logger := initLogger()

	cfg, err := config.LoadFromEnv(logger)
	if err != nil {
		logger.Error("configuration error", slog.Any("error", err))
		os.Exit(1)
	}

	feedsPath := os.Getenv("FEEDS_FILE")
	if feedsPath == "" {
		feedsPath = "configs/feeds.yaml"
	}
	feeds, err := config.LoadFeeds(feedsPath)
	if err != nil {
		logger.Error("failed to load feed list", slog.String("path", feedsPath), slog.Any("error", err))
		os.Exit(1)
	}
	cfg.Feeds = feeds
	logger.Info("pipeline configuration loaded",
		slog.Duration("tick_interval", cfg.TickInterval),
		slog.String("ai_provider", cfg.AIProvider),
		slog.Int("feeds", len(cfg.Feeds)))

	database := initDatabase(logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	workerMetrics := workerPkg.NewWorkerMetrics()
	workerMetrics.MustRegister()

	notifyService := setupNotifyService(logger, workerMetrics)

	healthAddr := fmt.Sprintf(":%d", cfg.HealthPort)
	healthServer := workerPkg.NewHealthServer(healthAddr, logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()
	logger.Info("health check server started", slog.String("addr", healthAddr))

	startMetricsServer(ctx, logger, notifyService)

	orchestrator := setupOrchestrator(logger, cfg, database, notifyService)

	startCronWorker(ctx, logger, orchestrator, cfg, workerMetrics, healthServer)
}

// initLogger initializes and returns a structured logger based on environment configuration.
func initLogger() *slog.Logger {
	logger := logging.NewLogger()
	slog.SetDefault(logger)
	return logger
}

// initDatabase opens the database connection and waits for migrations to complete.
func initDatabase(logger *slog.Logger) *sql.DB {
	database := db.Open()
	waitForMigrations(logger, database)
	return database
}

// setupNotifyService wires the Discord/Slack operator-alert channels behind
// notify.Service. Both channels are optional; notify.NewService tolerates an
// empty channel list and simply becomes a no-op sink.
func setupNotifyService(logger *slog.Logger, workerMetrics *workerPkg.WorkerMetrics) notify.Service {
	var channels []notify.Channel

	discordConfig := loadDiscordConfig(logger)
	if discordConfig.Enabled {
		channels = append(channels, notify.NewDiscordChannel(discordConfig))
		logger.Info("Discord channel initialized", slog.String("status", "enabled"))
	} else {
		logger.Info("Discord channel disabled")
	}

	slackConfig := loadSlackConfig(logger)
	if slackConfig.Enabled {
		channels = append(channels, notify.NewSlackChannel(slackConfig))
		logger.Info("Slack channel initialized", slog.String("status", "enabled"))
	} else {
		logger.Info("Slack channel disabled")
	}

	workerConfig, err := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	if err != nil {
		logger.Error("worker configuration error", slog.Any("error", err))
		os.Exit(1)
	}

	svc := notify.NewService(channels, workerConfig.NotifyMaxConcurrent)
	logger.Info("notification service initialized",
		slog.Int("channels", len(channels)),
		slog.Int("max_concurrent", workerConfig.NotifyMaxConcurrent))
	return svc
}

// setupOrchestrator builds the full pipeline.Orchestrator: the five
// postgres repositories, the budget-decorated AI capability provider, the
// full-text fetch primary/fallback pair, the RSS ingest fetcher, the eight
// stage services, and the shared budget tracker and cycle deadlines.
func setupOrchestrator(logger *slog.Logger, cfg *config.PipelineConfig, database *sql.DB, notifyService notify.Service) *pipeline.Orchestrator {
	items := pgRepo.NewSourceItemRepo(database)
	clusters := pgRepo.NewClusterRepo(database)
	articles := pgRepo.NewPublishedArticleRepo(database)
	fetchCycles := pgRepo.NewFetchCycleRepo(database)
	updateLogs := pgRepo.NewUpdateLogRepo(database)

	tracker := budget.New(defaultBudgetLimits())

	var (
		scorer      capability.Scorer
		synthesizer capability.Synthesizer
		selector    capability.ComponentSelector
		renderer    capability.ComponentRenderer
		searcher    capability.Searcher
	)
	switch cfg.AIProvider {
	case "openai":
		p := aiprovider.NewOpenAIProvider(cfg.OpenAIAPIKey, aiprovider.DefaultOpenAIProviderConfig())
		scorer, synthesizer, selector, renderer, searcher = p, p, p, p, p
		logger.Info("AI capability provider initialized", slog.String("provider", "openai"))
	default:
		p := aiprovider.NewAnthropicProvider(cfg.AnthropicAPIKey, aiprovider.DefaultAnthropicConfig())
		scorer, synthesizer, selector, renderer, searcher = p, p, p, p, p
		logger.Info("AI capability provider initialized", slog.String("provider", "anthropic"))
	}

	scorer = budget.WrapScorer(scorer, tracker)
	synthesizer = budget.WrapSynthesizer(synthesizer, tracker)
	selector = budget.WrapComponentSelector(selector, tracker)
	renderer = budget.WrapComponentRenderer(renderer, tracker)
	searcher = budget.WrapSearcher(searcher, tracker)

	httpClient := createHTTPClient()
	primaryFetcher := budget.WrapFetcher(fulltext.NewReadabilityFetcher(httpClient), tracker, budget.CapFetchPrimary)
	fallbackFetcher := budget.WrapFetcher(fulltext.NewGoqueryFetcher(httpClient), tracker, budget.CapFetchFallback)

	feedFetcher := ingest.NewRSSFetcher(httpClient)

	return &pipeline.Orchestrator{
		Feeds:        feedSources(cfg.Feeds),
		SoftDeadline: cfg.SoftDeadline,
		HardDeadline: cfg.HardDeadline,

		Ingest:     ingestUC.NewService(items, feedFetcher, cfg.IngestConcurrency),
		Score:      score.NewService(items, scorer, cfg.ApproveThreshold, cfg.ScoringConcurrency),
		Cluster:    cluster.NewService(items, clusters, cfg.ClusterCandidateWindow, cfg.InactivityWindow, cfg.HardMaxClusterAge),
		Fulltext:   fulltextUC.NewService(items, primaryFetcher, fallbackFetcher, cfg.FetchConcurrencyPerCluster, 30*time.Second),
		ImageSel:   imagesel.NewService(items),
		Synthesize: synthesize.NewService(items, synthesizer),
		Component:  component.NewService(component.NewSelector(selector), component.NewRenderer(searcher, renderer), cfg.ComponentConcurrency),
		Publish:    publish.NewService(articles, clusters, items, updateLogs, cfg.UpdateCooldown),

		Items:       items,
		FetchCycles: fetchCycles,

		Budget:   tracker,
		Notifier: notifyService,
		Metrics:  metrics.NewPipelineMetrics(),
	}
}

// defaultBudgetLimits caps each AI-backed capability's calls per cycle.
// §6 leaves the exact ceiling to the operator; these are conservative
// starting points meant to be overridden once real traffic is observed.
func defaultBudgetLimits() map[string]budget.Limit {
	return map[string]budget.Limit{
		budget.CapScoring:         {Calls: 50},
		budget.CapFetchPrimary:    {Calls: 500},
		budget.CapFetchFallback:   {Calls: 200},
		budget.CapSynthesis:       {Calls: 100},
		budget.CapComponentSelect: {Calls: 100},
		budget.CapComponentRender: {Calls: 200},
		budget.CapSearch:          {Calls: 100},
	}
}

func feedSources(descriptors []config.FeedDescriptor) []entity.FeedSource {
	out := make([]entity.FeedSource, len(descriptors))
	for i, d := range descriptors {
		out[i] = entity.FeedSource{Name: d.Name, FeedURL: d.FeedURL, Tier: entity.FeedTier(d.Tier)}
	}
	return out
}

// createHTTPClient creates an HTTP client with timeouts and connection pooling.
// TLS 1.2+ is enforced for security.
func createHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12, // Enforce TLS 1.2+
			},
		},
	}
}

// loadDiscordConfig loads Discord configuration from environment variables.
//
// Environment variables:
//   - DISCORD_ENABLED: Boolean flag to enable Discord notifications (default: false)
//   - DISCORD_WEBHOOK_URL: Discord webhook URL (required if enabled)
func loadDiscordConfig(logger *slog.Logger) notifier.DiscordConfig {
	enabled := os.Getenv("DISCORD_ENABLED") == "true"
	webhookURL := os.Getenv("DISCORD_WEBHOOK_URL")

	if !enabled {
		return notifier.DiscordConfig{Enabled: false}
	}

	if webhookURL == "" {
		logger.Warn("Discord webhook URL is empty, disabling notifications")
		return notifier.DiscordConfig{Enabled: false}
	}

	u, err := url.Parse(webhookURL)
	if err != nil {
		logger.Warn("invalid Discord webhook URL format, disabling notifications", slog.Any("error", err))
		return notifier.DiscordConfig{Enabled: false}
	}
	if u.Scheme != "https" {
		logger.Warn("Discord webhook URL must use HTTPS, disabling notifications")
		return notifier.DiscordConfig{Enabled: false}
	}
	if u.Host != "discord.com" {
		logger.Warn("invalid Discord webhook host, disabling notifications", slog.String("host", u.Host))
		return notifier.DiscordConfig{Enabled: false}
	}
	if !strings.HasPrefix(u.Path, "/api/webhooks/") {
		logger.Warn("invalid Discord webhook path, disabling notifications", slog.String("path", u.Path))
		return notifier.DiscordConfig{Enabled: false}
	}

	return notifier.DiscordConfig{Enabled: true, WebhookURL: webhookURL, Timeout: 30 * time.Second}
}

// loadSlackConfig loads Slack configuration from environment variables.
//
// Environment variables:
//   - SLACK_ENABLED: Boolean flag to enable Slack notifications (default: false)
//   - SLACK_WEBHOOK_URL: Slack webhook URL (required if enabled)
func loadSlackConfig(logger *slog.Logger) notifier.SlackConfig {
	enabled := os.Getenv("SLACK_ENABLED") == "true"
	webhookURL := os.Getenv("SLACK_WEBHOOK_URL")

	if !enabled {
		return notifier.SlackConfig{Enabled: false}
	}

	if webhookURL == "" {
		logger.Warn("Slack webhook URL is empty, disabling notifications")
		return notifier.SlackConfig{Enabled: false}
	}

	u, err := url.Parse(webhookURL)
	if err != nil {
		logger.Warn("invalid Slack webhook URL format, disabling notifications", slog.Any("error", err))
		return notifier.SlackConfig{Enabled: false}
	}
	if u.Scheme != "https" {
		logger.Warn("Slack webhook URL must use HTTPS, disabling notifications")
		return notifier.SlackConfig{Enabled: false}
	}
	if u.Host != "hooks.slack.com" {
		logger.Warn("invalid Slack webhook host, disabling notifications", slog.String("host", u.Host))
		return notifier.SlackConfig{Enabled: false}
	}
	if !strings.HasPrefix(u.Path, "/services/") {
		logger.Warn("invalid Slack webhook path, disabling notifications", slog.String("path", u.Path))
		return notifier.SlackConfig{Enabled: false}
	}

	return notifier.SlackConfig{Enabled: true, WebhookURL: webhookURL, Timeout: 30 * time.Second}
}

// startCronWorker schedules orchestrator.RunCycle on a fixed interval via
// an "@every" cron spec, matching the teacher's cron-scheduled crawl loop
// but driven by PipelineConfig.TickInterval instead of a fixed daily time —
// this pipeline runs continuously (§1), not once a day.
func startCronWorker(ctx context.Context, logger *slog.Logger, orchestrator *pipeline.Orchestrator, cfg *config.PipelineConfig, metrics *workerPkg.WorkerMetrics, healthServer *workerPkg.HealthServer) {
	c := cron.New()
	window := newCycleWindow(20)

	spec := fmt.Sprintf("@every %s", cfg.TickInterval)
	_, err := c.AddFunc(spec, func() {
		runPipelineCycle(ctx, logger, orchestrator, metrics, window)
	})
	if err != nil {
		logger.Error("failed to schedule pipeline cycle", slog.Any("error", err))
		os.Exit(1)
	}
	c.Start()
	defer c.Stop()

	healthServer.SetReady(true)
	logger.Info("worker started", slog.Duration("tick_interval", cfg.TickInterval))

	// Run one cycle immediately so the first cycle doesn't wait a full tick.
	go runPipelineCycle(ctx, logger, orchestrator, metrics, window)

	<-ctx.Done()
	logger.Info("shutdown signal received, draining in-flight cycle")
	healthServer.SetReady(false)
}

// runPipelineCycle runs exactly one orchestrator cycle and records its
// outcome in worker metrics and the trailing-window SLO gauges.
// Orchestrator.RunCycle never panics the caller; every failure is already
// recorded on the fetch_cycles row and alerted.
func runPipelineCycle(ctx context.Context, logger *slog.Logger, orchestrator *pipeline.Orchestrator, metrics *workerPkg.WorkerMetrics, window *cycleWindow) {
	startTime := time.Now()
	metrics.RecordJobRun("started")
	logger.Info("pipeline cycle started")

	err := orchestrator.RunCycle(ctx)
	duration := time.Since(startTime).Seconds()
	metrics.RecordJobDuration(duration)
	window.record(err == nil, duration)
	slo.UpdateCycleSuccessRatio(window.successRatio())
	slo.UpdateCycleDurationP95(window.durationP95())

	if err != nil {
		logger.Error("pipeline cycle failed", slog.Any("error", err))
		metrics.RecordJobRun("failure")
		return
	}

	metrics.RecordJobRun("success")
	metrics.RecordLastSuccess()
	logger.Info("pipeline cycle completed", slog.Duration("duration", time.Since(startTime)))
}

// cycleWindow tracks the outcome and duration of the last n pipeline cycles
// so the slo package's gauges have a trailing window to compute a success
// ratio and p95 duration over, without requiring a PromQL query to read them
// back.
type cycleWindow struct {
	mu        sync.Mutex
	size      int
	successes []bool
	durations []float64
}

func newCycleWindow(size int) *cycleWindow {
	if size <= 0 {
		size = 20
	}
	return &cycleWindow{size: size}
}

func (w *cycleWindow) record(success bool, durationSeconds float64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.successes = append(w.successes, success)
	if len(w.successes) > w.size {
		w.successes = w.successes[len(w.successes)-w.size:]
	}

	w.durations = append(w.durations, durationSeconds)
	if len(w.durations) > w.size {
		w.durations = w.durations[len(w.durations)-w.size:]
	}
}

func (w *cycleWindow) successRatio() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.successes) == 0 {
		return 1.0
	}
	ok := 0
	for _, s := range w.successes {
		if s {
			ok++
		}
	}
	return float64(ok) / float64(len(w.successes))
}

func (w *cycleWindow) durationP95() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.durations) == 0 {
		return 0
	}
	sorted := make([]float64, len(w.durations))
	copy(sorted, w.durations)
	sort.Float64s(sorted)

	idx := int(float64(len(sorted))*0.95)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
