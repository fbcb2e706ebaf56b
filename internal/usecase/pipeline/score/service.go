// Package score implements the scoring and approval stage (§4.2): it sends
// unscored items with a usable image to the batch scoring capability, layers
// a source-credibility adjustment on top of the provider's raw score, and
// marks items approved once the adjusted score clears the configured
// threshold.
package score

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"newsloop/internal/capability"
	"newsloop/internal/domain/entity"
	"newsloop/internal/repository"

	"golang.org/x/sync/errgroup"
)

const excerptMaxRunes = 280

// tierCredibility maps a publisher's feed tier to the 1-5 source_tier_score
// the §4.2 adjustment formula expects. Tier1 is the most credible and the
// only tier with no adjustment; unknown feeds get the midpoint, the same as
// Tier2, which the formula turns into -16 rather than Tier3's -32.
var tierCredibility = map[entity.FeedTier]int{
	entity.Tier1:       5,
	entity.Tier2:       3,
	entity.Tier3:       1,
	entity.TierUnknown: 3,
}

// Stats summarizes one scoring pass.
type Stats struct {
	Candidates int64
	Scored     int64
	Approved   int64
	Errors     int64
}

// Service scores every unscored, image-bearing source item and approves the
// ones that clear the threshold.
type Service struct {
	Repo        repository.SourceItemRepository
	Scorer      capability.Scorer
	Threshold   int // default 700
	Concurrency int // default 10
}

// NewService constructs a scoring Service.
func NewService(repo repository.SourceItemRepository, scorer capability.Scorer, threshold, concurrency int) *Service {
	if threshold <= 0 {
		threshold = 700
	}
	if concurrency <= 0 {
		concurrency = 10
	}
	return &Service{Repo: repo, Scorer: scorer, Threshold: threshold, Concurrency: concurrency}
}

// Run fetches up to limit unscored items and scores/approves each, bounded
// by s.Concurrency concurrent requests. Items without an image are skipped
// without spending a scoring call, per §4.2.
func (s *Service) Run(ctx context.Context, limit int) (*Stats, error) {
	items, err := s.Repo.ListUnscored(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list unscored items: %w", err)
	}

	stats := &Stats{}
	sem := make(chan struct{}, s.Concurrency)
	eg, egCtx := errgroup.WithContext(ctx)

	for _, item := range items {
		it := item
		if it.ImageURL == "" {
			continue
		}
		atomic.AddInt64(&stats.Candidates, 1)
		eg.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()
			s.scoreOne(egCtx, it, stats)
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return stats, err
	}
	return stats, nil
}

func (s *Service) scoreOne(ctx context.Context, item *entity.SourceItem, stats *Stats) {
	outputs, err := s.Scorer.Score(ctx, []capability.ScoreInput{{
		Title:   item.Title,
		Source:  item.Source,
		Excerpt: excerpt(item.Description, excerptMaxRunes),
	}})
	if err != nil || len(outputs) != 1 {
		atomic.AddInt64(&stats.Errors, 1)
		slog.Warn("scoring capability call failed",
			slog.Int64("source_item_id", item.ID),
			slog.Any("error", err))
		return
	}

	out := outputs[0]
	adjusted := clamp(out.Score + (tierCredibility[item.Tier]-5)*8)
	approved := adjusted >= s.Threshold

	if err := s.Repo.UpdateScore(ctx, item.ID, adjusted, out.Category, out.Emoji, approved); err != nil {
		atomic.AddInt64(&stats.Errors, 1)
		slog.Warn("persisting score failed",
			slog.Int64("source_item_id", item.ID),
			slog.Any("error", err))
		return
	}

	atomic.AddInt64(&stats.Scored, 1)
	if approved {
		atomic.AddInt64(&stats.Approved, 1)
	}
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 1000 {
		return 1000
	}
	return score
}

// excerpt truncates s to at most maxRunes runes, preferring a clean cut.
func excerpt(s string, maxRunes int) string {
	r := []rune(s)
	if len(r) <= maxRunes {
		return s
	}
	return string(r[:maxRunes])
}
