// Package fulltext implements the full-text fetch stage (§4.4): ensuring
// every member of an affected cluster has usable article text before
// synthesis runs.
package fulltext

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"newsloop/internal/capability"
	"newsloop/internal/domain/entity"
	"newsloop/internal/repository"
	"newsloop/internal/utils/text"

	"golang.org/x/sync/errgroup"
)

const (
	minFullTextChars  = 400
	maxURLsPerCluster = 10
)

// Stats summarizes one full-text fetch pass over one cluster.
type Stats struct {
	ItemsAttempted int64
	ItemsFetched   int64
	ItemsLowText   int64
	ItemsFailed    int64
}

// Service fetches full text for every member of an affected cluster,
// falling back to a secondary provider when the primary fails or returns
// too little text.
type Service struct {
	Items          repository.SourceItemRepository
	Primary        capability.Fetcher
	Fallback       capability.Fetcher
	Concurrency    int           // default 8
	PerCallTimeout time.Duration // default 30s
}

// NewService constructs a full-text fetch Service.
func NewService(items repository.SourceItemRepository, primary, fallback capability.Fetcher, concurrency int, perCallTimeout time.Duration) *Service {
	if concurrency <= 0 {
		concurrency = 8
	}
	if perCallTimeout <= 0 {
		perCallTimeout = 30 * time.Second
	}
	return &Service{Items: items, Primary: primary, Fallback: fallback, Concurrency: concurrency, PerCallTimeout: perCallTimeout}
}

// RunCluster fetches full text for clusterID's members. Per §4.4, the
// candidate set is capped to maxURLsPerCluster, truncated by descending
// member score; a cluster with zero successful fetches returns an error so
// the caller can defer synthesis to the next cycle.
func (s *Service) RunCluster(ctx context.Context, clusterID int64) (*Stats, error) {
	members, err := s.Items.ListByCluster(ctx, clusterID)
	if err != nil {
		return nil, err
	}

	candidates := selectCandidates(members, maxURLsPerCluster)
	stats := &Stats{}
	sem := make(chan struct{}, s.Concurrency)
	eg, egCtx := errgroup.WithContext(ctx)

	for _, item := range candidates {
		it := item
		atomic.AddInt64(&stats.ItemsAttempted, 1)
		eg.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()
			s.fetchOne(egCtx, it, stats)
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return stats, err
	}

	if stats.ItemsFetched == 0 {
		return stats, fmt.Errorf("full-text fetch: no successful fetches for cluster %d", clusterID)
	}
	return stats, nil
}

func (s *Service) fetchOne(ctx context.Context, item *entity.SourceItem, stats *Stats) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.PerCallTimeout)
	defer cancel()

	result, err := s.Primary.Fetch(fetchCtx, item.URL)
	if err != nil || text.CountRunes(result.Text) < minFullTextChars {
		if s.Fallback != nil {
			fbCtx, fbCancel := context.WithTimeout(ctx, s.PerCallTimeout)
			result, err = s.Fallback.Fetch(fbCtx, item.URL)
			fbCancel()
		}
	}

	if err != nil || result == nil || text.CountRunes(result.Text) < minFullTextChars {
		atomic.AddInt64(&stats.ItemsLowText, 1)
		if updateErr := s.Items.UpdateFullText(ctx, item.ID, item.Description, true); updateErr != nil {
			slog.Warn("persisting low-text fallback failed",
				slog.Int64("source_item_id", item.ID),
				slog.Any("error", updateErr))
		}
		return
	}

	if err := s.Items.UpdateFullText(ctx, item.ID, result.Text, false); err != nil {
		atomic.AddInt64(&stats.ItemsFailed, 1)
		slog.Warn("persisting full text failed",
			slog.Int64("source_item_id", item.ID),
			slog.Any("error", err))
		return
	}
	atomic.AddInt64(&stats.ItemsFetched, 1)
}

// selectCandidates truncates members to at most max, by descending score.
func selectCandidates(members []*entity.SourceItem, max int) []*entity.SourceItem {
	sorted := make([]*entity.SourceItem, len(members))
	copy(sorted, members)
	sort.SliceStable(sorted, func(i, j int) bool {
		return scoreOf(sorted[i]) > scoreOf(sorted[j])
	})
	if len(sorted) > max {
		sorted = sorted[:max]
	}
	return sorted
}

func scoreOf(item *entity.SourceItem) int {
	if item.Score == nil {
		return 0
	}
	return *item.Score
}
