package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PipelineMetrics holds the Prometheus instruments recorded once per cycle
// by the orchestrator. One instance is constructed at startup and shared
// across every cycle, the same long-lived-instrument pattern WorkerMetrics
// uses for its own cron-job counters.
type PipelineMetrics struct {
	ItemsIngestedTotal    prometheus.Counter
	ItemsScoredTotal      prometheus.Counter
	ItemsApprovedTotal    prometheus.Counter
	ClustersCreatedTotal  prometheus.Counter
	ClustersExtendedTotal prometheus.Counter
	ClustersClosedTotal   prometheus.Counter

	FetchItemsFetchedTotal prometheus.Counter
	FetchItemsLowTextTotal prometheus.Counter
	FetchItemsFailedTotal  prometheus.Counter

	SynthesisFailedTotal prometheus.Counter

	ComponentsGeneratedTotal prometheus.Counter
	ComponentsDroppedTotal   prometheus.Counter

	ArticlesPublishedTotal *prometheus.CounterVec // result: inserted, updated, skipped

	CycleDurationSeconds prometheus.Histogram

	BudgetRemaining *prometheus.GaugeVec // capability
}

// NewPipelineMetrics creates all pipeline instruments. promauto registers
// each one with the default Prometheus registry as it is created, so call
// this once per process.
func NewPipelineMetrics() *PipelineMetrics {
	return &PipelineMetrics{
		ItemsIngestedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_items_ingested_total",
			Help: "Total number of source items ingested from feeds",
		}),
		ItemsScoredTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_items_scored_total",
			Help: "Total number of source items scored",
		}),
		ItemsApprovedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_items_approved_total",
			Help: "Total number of source items approved for clustering",
		}),
		ClustersCreatedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_clusters_created_total",
			Help: "Total number of new clusters created",
		}),
		ClustersExtendedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_clusters_extended_total",
			Help: "Total number of existing clusters extended with new members",
		}),
		ClustersClosedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_clusters_closed_total",
			Help: "Total number of clusters closed for inactivity or age",
		}),
		FetchItemsFetchedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_fulltext_items_fetched_total",
			Help: "Total number of items with full text fetched above the minimum length",
		}),
		FetchItemsLowTextTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_fulltext_items_low_text_total",
			Help: "Total number of items that fell back to a description under the minimum length",
		}),
		FetchItemsFailedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_fulltext_items_failed_total",
			Help: "Total number of items whose full-text fetch failed outright",
		}),
		SynthesisFailedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_synthesis_failed_total",
			Help: "Total number of clusters whose synthesis failed after all retries",
		}),
		ComponentsGeneratedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_components_generated_total",
			Help: "Total number of article components generated",
		}),
		ComponentsDroppedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_components_dropped_total",
			Help: "Total number of selected components dropped for lack of search results",
		}),
		ArticlesPublishedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_articles_published_total",
			Help: "Total number of published_articles writes by outcome",
		}, []string{"result"}),
		CycleDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "pipeline_cycle_duration_seconds",
			Help:    "Duration of one full pipeline cycle",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 900},
		}),
		BudgetRemaining: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pipeline_budget_remaining",
			Help: "Remaining capability calls in the current cycle's budget",
		}, []string{"capability"}),
	}
}
