package publish

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/go-cmp/cmp"

	"newsloop/internal/domain/entity"
	"newsloop/internal/repository"
)

const defaultCooldown = 30 * time.Minute

// ArticleContent is the assembled per-cluster output of the upstream
// stages (synthesis, image selection, component rendering) that this
// stage turns into a published_articles row.
type ArticleContent struct {
	ClusterID        int64
	TitlePro         string
	TitleSimple      string
	BulletsPro       []string
	BulletsSimple    []string
	BodyPro          string
	BodySimple       string
	Category         string
	Emoji            string
	ImageURL         string
	ImageAttribution string
	Components       entity.ComponentSet
	SourceURLs       []entity.SourceRef
}

// Stats summarizes one publish pass.
type Stats struct {
	Inserted int
	Updated  int
	Skipped  int
	Errors   int
}

// Service writes synthesised articles to published_articles and marks
// their source items consumed.
type Service struct {
	Articles   repository.PublishedArticleRepository
	Clusters   repository.ClusterRepository
	Items      repository.SourceItemRepository
	UpdateLogs repository.UpdateLogRepository // optional; nil disables logging
	Cooldown   time.Duration                  // default 30m
}

// NewService constructs a publish Service. updateLogs may be nil, in which
// case no article_updates_log rows are written.
func NewService(articles repository.PublishedArticleRepository, clusters repository.ClusterRepository, items repository.SourceItemRepository, updateLogs repository.UpdateLogRepository, cooldown time.Duration) *Service {
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}
	return &Service{Articles: articles, Clusters: clusters, Items: items, UpdateLogs: updateLogs, Cooldown: cooldown}
}

// candidate bundles one affected cluster's computed score with its content,
// for the descending-score publish ordering §4.8 requires.
type candidate struct {
	content      ArticleContent
	clusterScore int
	memberCount  int // total current members of the cluster, for the volume trigger
	maxNewScore  int
}

// Run publishes every ready candidate, ordered by descending cluster score.
func (s *Service) Run(ctx context.Context, candidates []ArticleContent, maxNewScore map[int64]int) (*Stats, error) {
	now := time.Now()
	stats := &Stats{}

	scored := make([]candidate, 0, len(candidates))
	for _, c := range candidates {
		members, err := s.Items.ListByCluster(ctx, c.ClusterID)
		if err != nil {
			stats.Errors++
			continue
		}
		scores := memberScores(members)
		scored = append(scored, candidate{
			content:      c,
			clusterScore: ClusterScore(scores),
			memberCount:  len(members),
			maxNewScore:  maxNewScore[c.ClusterID],
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].clusterScore > scored[j].clusterScore
	})

	for _, c := range scored {
		if err := s.publishOne(ctx, c, now, stats); err != nil {
			stats.Errors++
		}
	}

	return stats, nil
}

func (s *Service) publishOne(ctx context.Context, c candidate, now time.Time, stats *Stats) error {
	existing, err := s.Articles.GetByClusterID(ctx, c.content.ClusterID)
	if err != nil {
		return fmt.Errorf("lookup existing article for cluster %d: %w", c.content.ClusterID, err)
	}

	article := toEntity(c.content, c.clusterScore, now)

	if existing == nil {
		article.Version = 1
		article.CreatedAt = now
		id, err := s.Articles.Insert(ctx, article)
		if err != nil {
			return fmt.Errorf("insert article for cluster %d: %w", c.content.ClusterID, err)
		}
		if err := s.Clusters.SetPublishedArticleID(ctx, c.content.ClusterID, id); err != nil {
			return fmt.Errorf("link cluster %d to article %d: %w", c.content.ClusterID, id, err)
		}
		stats.Inserted++
		s.logUpdate(ctx, id, entity.TriggerInitial, len(c.content.SourceURLs), 0, 1)
		return s.markConsumed(ctx, c.content.ClusterID)
	}

	// "New members" for the volume trigger means items attached to this
	// cluster since the article was last published, not items attached this
	// cycle: a cluster that gains one new source per cycle would otherwise
	// never cross the threshold, since ListApprovedUnclustered never
	// re-offers an already-clustered item for recounting.
	newSinceLastPublish := c.memberCount - existing.NumSources
	if newSinceLastPublish < 0 {
		newSinceLastPublish = 0
	}

	cooldownElapsed := now.Sub(existing.UpdatedAt) >= s.Cooldown
	if !ShouldUpdate(newSinceLastPublish, c.maxNewScore, cooldownElapsed) {
		stats.Skipped++
		return nil
	}

	article.ID = existing.ID
	article.CreatedAt = existing.CreatedAt

	// §9 Open Question #2: a no-op re-synthesis (identical content) leaves
	// version and updated_at untouched even though a trigger fired.
	if cmp.Equal(snapshotOf(existing), snapshotOf(article)) {
		article.Version = existing.Version
		article.UpdatedAt = existing.UpdatedAt
	} else {
		article.Version = existing.Version + 1
	}

	if err := s.Articles.Update(ctx, article); err != nil {
		return fmt.Errorf("update article for cluster %d: %w", c.content.ClusterID, err)
	}
	stats.Updated++
	s.logUpdate(ctx, existing.ID, updateTrigger(newSinceLastPublish, c.maxNewScore), newSinceLastPublish, existing.Version, article.Version)
	return s.markConsumed(ctx, c.content.ClusterID)
}

// contentSnapshot is the subset of a PublishedArticle's fields that come
// from synthesis, used to detect a no-op re-synthesis.
type contentSnapshot struct {
	TitlePro         string
	TitleSimple      string
	BulletsPro       []string
	BulletsSimple    []string
	BodyPro          string
	BodySimple       string
	Category         string
	Emoji            string
	ImageURL         string
	ImageAttribution string
	Components       entity.ComponentSet
	SourceURLs       []entity.SourceRef
}

func snapshotOf(a *entity.PublishedArticle) contentSnapshot {
	return contentSnapshot{
		TitlePro:         a.TitlePro,
		TitleSimple:      a.TitleSimple,
		BulletsPro:       a.BulletsPro,
		BulletsSimple:    a.BulletsSimple,
		BodyPro:          a.BodyPro,
		BodySimple:       a.BodySimple,
		Category:         a.Category,
		Emoji:            a.Emoji,
		ImageURL:         a.ImageURL,
		ImageAttribution: a.ImageAttribution,
		Components:       a.Components,
		SourceURLs:       a.SourceURLs,
	}
}

// logUpdate records one article_updates_log row. Logging failures are
// observability-only and never fail the publish that triggered them.
func (s *Service) logUpdate(ctx context.Context, articleID int64, trigger entity.UpdateTrigger, sourcesAdded, prevVersion, newVersion int) {
	if s.UpdateLogs == nil {
		return
	}
	entry := &entity.UpdateLogEntry{
		ArticleID:    articleID,
		UpdatedAt:    time.Now(),
		Trigger:      trigger,
		SourcesAdded: sourcesAdded,
		PrevVersion:  prevVersion,
		NewVersion:   newVersion,
	}
	if err := s.UpdateLogs.Insert(ctx, entry); err != nil {
		slog.Warn("failed to record update log entry",
			slog.Int64("article_id", articleID), slog.String("error", err.Error()))
	}
}

func (s *Service) markConsumed(ctx context.Context, clusterID int64) error {
	return s.Items.MarkConsumed(ctx, clusterID)
}

func toEntity(c ArticleContent, clusterScore int, now time.Time) *entity.PublishedArticle {
	return &entity.PublishedArticle{
		ClusterID:        c.ClusterID,
		TitlePro:         c.TitlePro,
		TitleSimple:      c.TitleSimple,
		BulletsPro:       c.BulletsPro,
		BulletsSimple:    c.BulletsSimple,
		BodyPro:          c.BodyPro,
		BodySimple:       c.BodySimple,
		Category:         c.Category,
		Emoji:            c.Emoji,
		ImageURL:         c.ImageURL,
		ImageAttribution: c.ImageAttribution,
		Components:       c.Components,
		AIFinalScore:     clusterScore,
		NumSources:       len(c.SourceURLs),
		UpdatedAt:        now,
		SourceURLs:       c.SourceURLs,
	}
}

func memberScores(members []*entity.SourceItem) []int {
	scores := make([]int, 0, len(members))
	for _, m := range members {
		if m.Score != nil {
			scores = append(scores, *m.Score)
		}
	}
	return scores
}
