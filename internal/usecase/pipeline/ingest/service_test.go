package ingest_test

import (
	"context"
	"testing"
	"time"

	"newsloop/internal/domain/entity"
	"newsloop/internal/usecase/pipeline/ingest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	entries map[string][]ingest.FeedEntry
	errs    map[string]error
}

func (f *stubFetcher) Fetch(_ context.Context, feedURL string) ([]ingest.FeedEntry, error) {
	if err, ok := f.errs[feedURL]; ok {
		return nil, err
	}
	return f.entries[feedURL], nil
}

type stubRepo struct {
	inserted []*entity.SourceItem
	dup      map[string]bool
}

func (r *stubRepo) Insert(_ context.Context, item *entity.SourceItem) error {
	if r.dup[item.Fingerprint] {
		return entity.ErrDuplicateItem
	}
	r.inserted = append(r.inserted, item)
	return nil
}
func (r *stubRepo) Get(context.Context, int64) (*entity.SourceItem, error)       { return nil, nil }
func (r *stubRepo) ListUnscored(context.Context, int) ([]*entity.SourceItem, error) { return nil, nil }
func (r *stubRepo) ListApprovedUnclustered(context.Context, int) ([]*entity.SourceItem, error) {
	return nil, nil
}
func (r *stubRepo) ListByCluster(context.Context, int64) ([]*entity.SourceItem, error) { return nil, nil }
func (r *stubRepo) UpdateScore(context.Context, int64, int, string, string, bool) error { return nil }
func (r *stubRepo) AttachToCluster(context.Context, int64, int64) error                 { return nil }
func (r *stubRepo) UpdateFullText(context.Context, int64, string, bool) error           { return nil }
func (r *stubRepo) MarkConsumed(context.Context, int64) error                           { return nil }

func TestService_Run_InsertsNewItems(t *testing.T) {
	feed := entity.FeedSource{Name: "Example Wire", FeedURL: "https://feeds.example.com/rss", Tier: entity.Tier1}
	fetcher := &stubFetcher{entries: map[string][]ingest.FeedEntry{
		feed.FeedURL: {
			{Title: "Big Story Breaks", Link: "https://example.com/a?utm_source=x", PublishedAt: time.Now(), HasPublishedAt: true},
		},
	}}
	repo := &stubRepo{dup: map[string]bool{}}

	svc := ingest.NewService(repo, fetcher, 4)
	stats, err := svc.Run(context.Background(), []entity.FeedSource{feed})
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.ItemsNew)
	require.Len(t, repo.inserted, 1)
	assert.Equal(t, "https://example.com/a", repo.inserted[0].URL)
}

func TestService_Run_SkipsStaleItems(t *testing.T) {
	feed := entity.FeedSource{Name: "Example Wire", FeedURL: "https://feeds.example.com/rss", Tier: entity.Tier2}
	fetcher := &stubFetcher{entries: map[string][]ingest.FeedEntry{
		feed.FeedURL: {
			{Title: "Old News", Link: "https://example.com/old", PublishedAt: time.Now().Add(-30 * 24 * time.Hour), HasPublishedAt: true},
		},
	}}
	repo := &stubRepo{dup: map[string]bool{}}

	svc := ingest.NewService(repo, fetcher, 4)
	stats, err := svc.Run(context.Background(), []entity.FeedSource{feed})
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.ItemsNew)
	assert.Equal(t, int64(1), stats.ItemsSkipped)
}

func TestService_Run_FeedErrorIsNonFatal(t *testing.T) {
	feed := entity.FeedSource{Name: "Flaky", FeedURL: "https://flaky.example.com/rss", Tier: entity.Tier3}
	fetcher := &stubFetcher{errs: map[string]error{feed.FeedURL: context.DeadlineExceeded}}
	repo := &stubRepo{dup: map[string]bool{}}

	svc := ingest.NewService(repo, fetcher, 4)
	stats, err := svc.Run(context.Background(), []entity.FeedSource{feed})
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.FeedErrors)
}

func TestService_Run_DuplicateFingerprint(t *testing.T) {
	feed := entity.FeedSource{Name: "Example Wire", FeedURL: "https://feeds.example.com/rss", Tier: entity.Tier1}
	fp := entity.Fingerprint("Duplicate Title", feed.Name)
	fetcher := &stubFetcher{entries: map[string][]ingest.FeedEntry{
		feed.FeedURL: {
			{Title: "Duplicate Title", Link: "https://example.com/dup", PublishedAt: time.Now(), HasPublishedAt: true},
		},
	}}
	repo := &stubRepo{dup: map[string]bool{fp: true}}

	svc := ingest.NewService(repo, fetcher, 4)
	stats, err := svc.Run(context.Background(), []entity.FeedSource{feed})
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.ItemsNew)
	assert.Equal(t, int64(1), stats.ItemsSkipped)
}
