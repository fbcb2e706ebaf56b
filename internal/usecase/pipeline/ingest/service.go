package ingest

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"newsloop/internal/domain/entity"
	"newsloop/internal/repository"

	"golang.org/x/sync/errgroup"
)

const (
	// maxItemAge rejects feed entries older than this (§4.1).
	maxItemAge = 14 * 24 * time.Hour
	// maxClockSkew tolerates feed entries dated slightly in the future.
	maxClockSkew = 2 * time.Hour
)

// Stats summarizes one ingest pass over the configured feed list.
type Stats struct {
	FeedsPolled  int
	ItemsSeen    int64
	ItemsNew     int64
	ItemsSkipped int64
	FeedErrors   int64
}

// Service fetches every configured feed in parallel and persists new
// entries as source_items, following §4.1's extraction and concurrency
// rules.
type Service struct {
	Repo        repository.SourceItemRepository
	FeedFetcher FeedFetcher
	Concurrency int // default 30 (spec §5 ingest W)
}

// NewService constructs an ingest Service with the given dependencies.
func NewService(repo repository.SourceItemRepository, fetcher FeedFetcher, concurrency int) *Service {
	if concurrency <= 0 {
		concurrency = 30
	}
	return &Service{Repo: repo, FeedFetcher: fetcher, Concurrency: concurrency}
}

// Run polls every feed in feeds concurrently (bounded by s.Concurrency) and
// persists new source items. Failure of an individual feed is logged and
// does not fail the stage.
func (s *Service) Run(ctx context.Context, feeds []entity.FeedSource) (*Stats, error) {
	stats := &Stats{FeedsPolled: len(feeds)}
	sem := make(chan struct{}, s.Concurrency)
	eg, egCtx := errgroup.WithContext(ctx)

	for _, feed := range feeds {
		f := feed
		eg.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()
			s.pollFeed(egCtx, f, stats)
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return stats, err
	}
	return stats, nil
}

func (s *Service) pollFeed(ctx context.Context, feed entity.FeedSource, stats *Stats) {
	fetchCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	entries, err := s.FeedFetcher.Fetch(fetchCtx, feed.FeedURL)
	if err != nil {
		atomic.AddInt64(&stats.FeedErrors, 1)
		slog.Warn("feed ingest failed",
			slog.String("source", feed.Name),
			slog.String("feed_url", feed.FeedURL),
			slog.Any("error", err))
		return
	}

	now := time.Now()
	for _, entry := range entries {
		atomic.AddInt64(&stats.ItemsSeen, 1)

		item, ok := s.buildSourceItem(entry, feed, now)
		if !ok {
			atomic.AddInt64(&stats.ItemsSkipped, 1)
			continue
		}

		if err := s.Repo.Insert(ctx, item); err != nil {
			if errors.Is(err, entity.ErrDuplicateItem) {
				atomic.AddInt64(&stats.ItemsSkipped, 1)
				continue
			}
			atomic.AddInt64(&stats.FeedErrors, 1)
			slog.Warn("source item insert failed",
				slog.String("source", feed.Name),
				slog.String("url", item.URL),
				slog.Any("error", err))
			continue
		}
		atomic.AddInt64(&stats.ItemsNew, 1)
	}
}

// buildSourceItem applies §4.1's extraction rules to one feed entry. It
// returns ok=false if the entry fails validation (no link, no title, or
// outside the acceptable age window) and should be skipped.
func (s *Service) buildSourceItem(entry FeedEntry, feed entity.FeedSource, now time.Time) (*entity.SourceItem, bool) {
	if entry.Link == "" || entry.Title == "" {
		return nil, false
	}

	canonicalURL, err := entity.CanonicalizeURL(entry.Link)
	if err != nil {
		return nil, false
	}

	publishedAt := now
	if entry.HasPublishedAt {
		publishedAt = entry.PublishedAt
		age := now.Sub(publishedAt)
		if age > maxItemAge || age < -maxClockSkew {
			return nil, false
		}
	}

	item := &entity.SourceItem{
		URL:         canonicalURL,
		GUID:        entry.GUID,
		Source:      feed.Name,
		Fingerprint: entity.Fingerprint(entry.Title, feed.Name),
		Title:       entry.Title,
		Description: entry.Description,
		Author:      entry.Author,
		PublishedAt: publishedAt,
		FetchedAt:   now,
		Tier:        feed.Tier,
	}

	if imgURL := SelectImageURL(entry); imgURL != "" {
		if normalized, err := entity.CanonicalizeURL(imgURL); err == nil {
			item.ImageURL = normalized
		}
	}

	return item, true
}
