// Package pipeline implements the cycle orchestrator: the single supervised
// loop that runs the eight stages in order, enforces the soft/hard
// deadlines, records one fetch_cycles row per cycle, and raises operator
// alerts on failure.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"newsloop/internal/capability"
	"newsloop/internal/domain/entity"
	"newsloop/internal/observability/logging"
	"newsloop/internal/observability/metrics"
	"newsloop/internal/repository"
	"newsloop/internal/resilience/budget"
	"newsloop/internal/usecase/notify"
	"newsloop/internal/usecase/pipeline/cluster"
	"newsloop/internal/usecase/pipeline/component"
	"newsloop/internal/usecase/pipeline/fulltext"
	"newsloop/internal/usecase/pipeline/imagesel"
	"newsloop/internal/usecase/pipeline/ingest"
	"newsloop/internal/usecase/pipeline/publish"
	"newsloop/internal/usecase/pipeline/score"
	"newsloop/internal/usecase/pipeline/synthesize"
)

// Default per-cycle limits on how many unscored/unclustered items a single
// cycle will drain; §4 is silent on a per-cycle cap, so this is an Open
// Question resolved here rather than left unbounded, to keep one cycle's
// worst case work bounded under a spike.
const (
	defaultScoreLimit   = 500
	defaultClusterLimit = 500
)

// Orchestrator runs one pipeline cycle end to end: ingest, score, cluster,
// then per affected cluster full-text fetch, image selection and
// synthesis, then a batched component generation pass, then publish.
type Orchestrator struct {
	Feeds []entity.FeedSource

	SoftDeadline time.Duration
	HardDeadline time.Duration

	Ingest     *ingest.Service
	Score      *score.Service
	Cluster    *cluster.Service
	Fulltext   *fulltext.Service
	ImageSel   *imagesel.Service
	Synthesize *synthesize.Service
	Component  *component.Service
	Publish    *publish.Service

	Items       repository.SourceItemRepository
	FetchCycles repository.FetchCycleRepository

	Budget   *budget.Tracker
	Notifier notify.Service

	// Metrics is optional; a nil Metrics disables per-cycle instrumentation.
	Metrics *metrics.PipelineMetrics
}

// RunCycle executes exactly one pipeline cycle. It never returns an error
// to panic the caller's scheduling loop: every failure is recorded on the
// fetch_cycles row and raised as an operator alert, and RunCycle's return
// value exists only so the caller (the scheduler and its tests) can observe
// the outcome.
func (o *Orchestrator) RunCycle(ctx context.Context) error {
	cycleCtx, cancel := context.WithTimeout(ctx, o.hardDeadline())
	defer cancel()

	start := time.Now()
	o.Budget.Reset()
	softDeadline := start.Add(o.softDeadline())

	cycle := &entity.FetchCycle{StartedAt: start, Status: entity.CycleRunning}
	id, err := o.FetchCycles.Start(cycleCtx, cycle)
	if err != nil {
		o.alert(ctx, entity.SeverityCritical, "orchestrator", "cycle could not start", err.Error())
		return fmt.Errorf("start fetch cycle: %w", err)
	}
	cycleCtx = logging.ContextWithCycleID(cycleCtx, id)
	logging.WithCycleID(cycleCtx, slog.Default()).Info("pipeline cycle started")

	runErr := o.runStages(cycleCtx, cycle, softDeadline)
	o.finish(cycleCtx, id, cycle, runErr)
	if o.Metrics != nil {
		o.Metrics.CycleDurationSeconds.Observe(time.Since(start).Seconds())
		if o.Budget != nil {
			for capName, remaining := range o.Budget.Remaining() {
				o.Metrics.BudgetRemaining.WithLabelValues(capName).Set(float64(remaining))
			}
		}
	}
	return runErr
}

func (o *Orchestrator) softDeadline() time.Duration {
	if o.SoftDeadline <= 0 {
		return 8 * time.Minute
	}
	return o.SoftDeadline
}

func (o *Orchestrator) hardDeadline() time.Duration {
	if o.HardDeadline <= 0 {
		return 12 * time.Minute
	}
	return o.HardDeadline
}

func (o *Orchestrator) finish(ctx context.Context, id int64, cycle *entity.FetchCycle, runErr error) {
	now := time.Now()
	cycle.FinishedAt = &now
	if runErr != nil {
		cycle.Status = entity.CycleFailed
		cycle.ErrorText = runErr.Error()
	} else {
		cycle.Status = entity.CycleCompleted
	}

	if err := o.FetchCycles.Finish(ctx, id, cycle); err != nil {
		logging.WithCycleID(ctx, slog.Default()).Error("failed to record fetch cycle outcome",
			slog.String("error", err.Error()))
	}

	if runErr != nil {
		o.alert(ctx, entity.SeverityCritical, "orchestrator", "pipeline cycle failed", runErr.Error())
	}
}

// runStages drives the eight stages in order. Ingest/score/cluster errors
// are treated as fatal for the cycle: each is a store-backed batch
// operation, and a failure there means the cycle has nothing safe to build
// on. Per-cluster failures in full-text fetch and synthesis are not fatal;
// that cluster is simply skipped and picked up again next cycle.
func (o *Orchestrator) runStages(ctx context.Context, cycle *entity.FetchCycle, softDeadline time.Time) error {
	ingestStats, err := o.Ingest.Run(ctx, o.Feeds)
	if err != nil {
		return fmt.Errorf("ingest stage: %w", err)
	}
	cycle.FeedsPolled = ingestStats.FeedsPolled
	cycle.ItemsNew = int(ingestStats.ItemsNew)
	if o.Metrics != nil {
		o.Metrics.ItemsIngestedTotal.Add(float64(ingestStats.ItemsNew))
	}

	if o.pastDeadline(softDeadline, "score") {
		return nil
	}
	scoreStats, err := o.Score.Run(ctx, defaultScoreLimit)
	if err != nil {
		return fmt.Errorf("score stage: %w", err)
	}
	cycle.ItemsScored = int(scoreStats.Scored)
	cycle.ItemsApproved = int(scoreStats.Approved)
	if o.Metrics != nil {
		o.Metrics.ItemsScoredTotal.Add(float64(scoreStats.Scored))
		o.Metrics.ItemsApprovedTotal.Add(float64(scoreStats.Approved))
	}

	if o.pastDeadline(softDeadline, "cluster") {
		return nil
	}
	clusterStats, affected, err := o.Cluster.Run(ctx, defaultClusterLimit)
	if err != nil {
		return fmt.Errorf("cluster stage: %w", err)
	}
	cycle.ClustersAffected = len(affected)
	if o.Metrics != nil {
		o.Metrics.ClustersClosedTotal.Add(float64(clusterStats.ClustersClosed))
		for _, a := range affected {
			if a.Created {
				o.Metrics.ClustersCreatedTotal.Inc()
			} else {
				o.Metrics.ClustersExtendedTotal.Inc()
			}
		}
	}

	candidates, maxNewScore := o.buildCandidates(ctx, affected, softDeadline)

	if len(candidates) == 0 {
		return nil
	}

	publishStats, err := o.Publish.Run(ctx, candidates, maxNewScore)
	if err != nil {
		return fmt.Errorf("publish stage: %w", err)
	}
	cycle.ArticlesPublished = publishStats.Inserted + publishStats.Updated
	if o.Metrics != nil {
		o.Metrics.ArticlesPublishedTotal.WithLabelValues("inserted").Add(float64(publishStats.Inserted))
		o.Metrics.ArticlesPublishedTotal.WithLabelValues("updated").Add(float64(publishStats.Updated))
		o.Metrics.ArticlesPublishedTotal.WithLabelValues("skipped").Add(float64(publishStats.Skipped))
	}

	return nil
}

// buildCandidates runs full-text fetch, image selection, synthesis and
// component generation for every affected cluster, stopping early (but
// without failing the cycle) once the soft deadline passes. It returns the
// publish-ready content for every cluster that made it through, plus the
// per-cycle max new-member score the publish stage's high-score trigger
// needs. The volume trigger's "new since last publish" count is computed by
// the publish stage itself from total cluster membership, not from this
// cycle's arrivals alone, so it is not threaded through here.
func (o *Orchestrator) buildCandidates(ctx context.Context, affected []cluster.Affected, softDeadline time.Time) ([]publish.ArticleContent, map[int64]int) {
	type pending struct {
		clusterID   int64
		synthesis   *capability.SynthesisOutput
		image       *imagesel.Selection
		sourceURLs  []entity.SourceRef
		maxNewScore int
	}

	var staged []pending
	for _, a := range affected {
		if o.pastDeadline(softDeadline, "synthesis") {
			break
		}

		fulltextStats, err := o.Fulltext.RunCluster(ctx, a.ClusterID)
		if o.Metrics != nil && fulltextStats != nil {
			o.Metrics.FetchItemsFetchedTotal.Add(float64(fulltextStats.ItemsFetched))
			o.Metrics.FetchItemsLowTextTotal.Add(float64(fulltextStats.ItemsLowText))
			o.Metrics.FetchItemsFailedTotal.Add(float64(fulltextStats.ItemsFailed))
		}
		if err != nil {
			slog.Warn("full-text fetch failed for cluster, deferring to next cycle",
				slog.Int64("cluster_id", a.ClusterID), slog.String("error", err.Error()))
			continue
		}

		image, err := o.ImageSel.SelectForCluster(ctx, a.ClusterID)
		if err != nil {
			slog.Warn("image selection failed for cluster, deferring to next cycle",
				slog.Int64("cluster_id", a.ClusterID), slog.String("error", err.Error()))
			continue
		}

		out, err := o.Synthesize.Synthesize(ctx, a.ClusterID)
		if err != nil {
			if o.Metrics != nil {
				o.Metrics.SynthesisFailedTotal.Inc()
			}
			var failure *capability.Failure
			if errors.As(err, &failure) && failure.Kind == capability.BudgetExhausted {
				o.alert(ctx, entity.SeverityWarning, "synthesis", "capability budget exhausted", failure.Error())
			}
			slog.Warn("synthesis failed for cluster, deferring to next cycle",
				slog.Int64("cluster_id", a.ClusterID), slog.String("error", err.Error()))
			continue
		}

		members, err := o.Items.ListByCluster(ctx, a.ClusterID)
		if err != nil {
			slog.Warn("could not list cluster members for source attribution",
				slog.Int64("cluster_id", a.ClusterID), slog.String("error", err.Error()))
			continue
		}
		sourceURLs := make([]entity.SourceRef, 0, len(members))
		for _, m := range members {
			sourceURLs = append(sourceURLs, entity.SourceRef{URL: m.URL, Publisher: m.Source})
		}

		staged = append(staged, pending{
			clusterID:   a.ClusterID,
			synthesis:   out,
			image:       image,
			sourceURLs:  sourceURLs,
			maxNewScore: a.MaxNewScore,
		})
	}

	if len(staged) == 0 {
		return nil, nil
	}

	articles := make([]component.Article, len(staged))
	for i, p := range staged {
		articles[i] = component.Article{ClusterID: p.clusterID, Title: p.synthesis.TitlePro, Body: p.synthesis.BodyPro}
	}
	componentResults := o.Component.Run(ctx, articles)
	setByCluster := make(map[int64]entity.ComponentSet, len(componentResults))
	for _, r := range componentResults {
		if r.Err != nil {
			slog.Warn("component generation failed for cluster",
				slog.Int64("cluster_id", r.ClusterID), slog.String("error", r.Err.Error()))
			continue
		}
		setByCluster[r.ClusterID] = r.Set
		if o.Metrics != nil {
			o.Metrics.ComponentsGeneratedTotal.Add(float64(len(r.Set.Order)))
			o.Metrics.ComponentsDroppedTotal.Add(float64(r.Selected - len(r.Set.Order)))
		}
	}

	candidates := make([]publish.ArticleContent, 0, len(staged))
	maxNewScore := make(map[int64]int, len(staged))
	for _, p := range staged {
		content := publish.ArticleContent{
			ClusterID:     p.clusterID,
			TitlePro:      p.synthesis.TitlePro,
			TitleSimple:   p.synthesis.TitleSimple,
			BulletsPro:    p.synthesis.BulletsPro,
			BulletsSimple: p.synthesis.BulletsSimple,
			BodyPro:       p.synthesis.BodyPro,
			BodySimple:    p.synthesis.BodySimple,
			Category:      p.synthesis.Category,
			Emoji:         p.synthesis.Emoji,
			Components:    setByCluster[p.clusterID],
			SourceURLs:    p.sourceURLs,
		}
		if p.image != nil {
			content.ImageURL = p.image.URL
			content.ImageAttribution = p.image.Attribution
		}
		candidates = append(candidates, content)
		maxNewScore[p.clusterID] = p.maxNewScore
	}

	return candidates, maxNewScore
}

func (o *Orchestrator) pastDeadline(softDeadline time.Time, nextStage string) bool {
	if time.Now().Before(softDeadline) {
		return false
	}
	slog.Warn("soft deadline exceeded, deferring remaining stages to next cycle",
		slog.String("next_stage", nextStage))
	return true
}

func (o *Orchestrator) alert(ctx context.Context, severity entity.AlertSeverity, source, title, message string) {
	if o.Notifier == nil {
		return
	}
	if err := o.Notifier.NotifyAlert(ctx, &entity.Alert{
		Severity:   severity,
		Source:     source,
		Title:      title,
		Message:    message,
		OccurredAt: time.Now(),
	}); err != nil {
		slog.Error("failed to dispatch operator alert", slog.String("error", err.Error()))
	}
}
