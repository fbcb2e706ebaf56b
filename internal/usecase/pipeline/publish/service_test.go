package publish_test

import (
	"context"
	"testing"
	"time"

	"newsloop/internal/domain/entity"
	"newsloop/internal/usecase/pipeline/publish"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubArticles struct {
	byCluster map[int64]*entity.PublishedArticle
	inserted  []*entity.PublishedArticle
	updated   []*entity.PublishedArticle
	nextID    int64
}

func (r *stubArticles) GetByClusterID(_ context.Context, clusterID int64) (*entity.PublishedArticle, error) {
	if r.byCluster == nil {
		return nil, nil
	}
	return r.byCluster[clusterID], nil
}

func (r *stubArticles) Insert(_ context.Context, a *entity.PublishedArticle) (int64, error) {
	r.nextID++
	a.ID = r.nextID
	r.inserted = append(r.inserted, a)
	return a.ID, nil
}

func (r *stubArticles) Update(_ context.Context, a *entity.PublishedArticle) error {
	r.updated = append(r.updated, a)
	return nil
}

type stubClusters struct {
	linked map[int64]int64
}

func (r *stubClusters) Insert(context.Context, *entity.Cluster) (int64, error) { return 0, nil }
func (r *stubClusters) Get(context.Context, int64) (*entity.Cluster, error)    { return nil, nil }
func (r *stubClusters) ListActiveWithin(context.Context, time.Time, time.Duration) ([]*entity.Cluster, error) {
	return nil, nil
}
func (r *stubClusters) CloseStale(context.Context, time.Time, time.Duration, time.Duration) ([]int64, error) {
	return nil, nil
}
func (r *stubClusters) Extend(context.Context, int64, time.Time, int, int, []string, []string, string) error {
	return nil
}
func (r *stubClusters) SetPublishedArticleID(_ context.Context, id, articleID int64) error {
	if r.linked == nil {
		r.linked = map[int64]int64{}
	}
	r.linked[id] = articleID
	return nil
}

type stubItems struct {
	byCluster map[int64][]*entity.SourceItem
	consumed  map[int64]bool
}

func (r *stubItems) Insert(context.Context, *entity.SourceItem) error                { return nil }
func (r *stubItems) Get(context.Context, int64) (*entity.SourceItem, error)          { return nil, nil }
func (r *stubItems) ListUnscored(context.Context, int) ([]*entity.SourceItem, error) { return nil, nil }
func (r *stubItems) ListApprovedUnclustered(context.Context, int) ([]*entity.SourceItem, error) {
	return nil, nil
}
func (r *stubItems) ListByCluster(_ context.Context, id int64) ([]*entity.SourceItem, error) {
	return r.byCluster[id], nil
}
func (r *stubItems) UpdateScore(context.Context, int64, int, string, string, bool) error { return nil }
func (r *stubItems) AttachToCluster(context.Context, int64, int64) error                 { return nil }
func (r *stubItems) UpdateFullText(context.Context, int64, string, bool) error           { return nil }
func (r *stubItems) MarkConsumed(_ context.Context, clusterID int64) error {
	if r.consumed == nil {
		r.consumed = map[int64]bool{}
	}
	r.consumed[clusterID] = true
	return nil
}

type stubUpdateLogs struct {
	entries []*entity.UpdateLogEntry
}

func (r *stubUpdateLogs) Insert(_ context.Context, e *entity.UpdateLogEntry) error {
	r.entries = append(r.entries, e)
	return nil
}

func scorePtr(n int) *int { return &n }

func content(clusterID int64) publish.ArticleContent {
	return publish.ArticleContent{
		ClusterID:     clusterID,
		TitlePro:      "Title Pro",
		TitleSimple:   "Title Simple",
		BulletsPro:    []string{"a", "b", "c"},
		BulletsSimple: []string{"a", "b", "c"},
		BodyPro:       "body",
		BodySimple:    "body",
		Category:      "finance",
		SourceURLs:    []entity.SourceRef{{URL: "https://example.com/a", Publisher: "Example"}},
	}
}

func TestService_Run_InsertsNewArticleAndMarksConsumed(t *testing.T) {
	items := &stubItems{byCluster: map[int64][]*entity.SourceItem{
		1: {{ID: 1, Score: scorePtr(800)}, {ID: 2, Score: scorePtr(600)}},
	}}
	articles := &stubArticles{}
	clusters := &stubClusters{}

	updateLogs := &stubUpdateLogs{}
	svc := publish.NewService(articles, clusters, items, updateLogs, 0)
	stats, err := svc.Run(context.Background(), []publish.ArticleContent{content(1)},
		map[int64]int{1: 800})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Inserted)
	require.Len(t, articles.inserted, 1)
	assert.Equal(t, 1, articles.inserted[0].Version)
	assert.True(t, items.consumed[1])
	assert.Equal(t, int64(1), clusters.linked[1])

	require.Len(t, updateLogs.entries, 1)
	assert.Equal(t, entity.TriggerInitial, updateLogs.entries[0].Trigger)
	assert.Equal(t, 1, updateLogs.entries[0].NewVersion)
}

func TestService_Run_SkipsUpdateWithinCooldown(t *testing.T) {
	now := time.Now()
	existing := &entity.PublishedArticle{ID: 9, ClusterID: 1, Version: 1, UpdatedAt: now}
	items := &stubItems{byCluster: map[int64][]*entity.SourceItem{1: {{ID: 1, Score: scorePtr(900)}}}}
	articles := &stubArticles{byCluster: map[int64]*entity.PublishedArticle{1: existing}}
	clusters := &stubClusters{}

	svc := publish.NewService(articles, clusters, items, nil, 30*time.Minute)
	stats, err := svc.Run(context.Background(), []publish.ArticleContent{content(1)},
		map[int64]int{1: 900})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)
	assert.Empty(t, articles.updated)
}

func TestService_Run_UpdatesAfterCooldownOnHighScoreTrigger(t *testing.T) {
	stale := time.Now().Add(-time.Hour)
	existing := &entity.PublishedArticle{ID: 9, ClusterID: 1, Version: 1, CreatedAt: stale, UpdatedAt: stale}
	items := &stubItems{byCluster: map[int64][]*entity.SourceItem{1: {{ID: 1, Score: scorePtr(900)}}}}
	articles := &stubArticles{byCluster: map[int64]*entity.PublishedArticle{1: existing}}
	clusters := &stubClusters{}

	updateLogs := &stubUpdateLogs{}
	svc := publish.NewService(articles, clusters, items, updateLogs, 30*time.Minute)
	stats, err := svc.Run(context.Background(), []publish.ArticleContent{content(1)},
		map[int64]int{1: 900})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Updated)
	require.Len(t, articles.updated, 1)
	assert.Equal(t, 2, articles.updated[0].Version)
	assert.Equal(t, stale, articles.updated[0].CreatedAt)

	require.Len(t, updateLogs.entries, 1)
	assert.Equal(t, entity.TriggerNewHighScore, updateLogs.entries[0].Trigger)
	assert.Equal(t, 1, updateLogs.entries[0].PrevVersion)
	assert.Equal(t, 2, updateLogs.entries[0].NewVersion)
}

func TestService_Run_OrdersPublishingByDescendingClusterScore(t *testing.T) {
	items := &stubItems{byCluster: map[int64][]*entity.SourceItem{
		1: {{ID: 1, Score: scorePtr(400)}},
		2: {{ID: 2, Score: scorePtr(950)}},
	}}
	articles := &stubArticles{}
	clusters := &stubClusters{}

	svc := publish.NewService(articles, clusters, items, nil, 0)
	_, err := svc.Run(context.Background(), []publish.ArticleContent{content(1), content(2)},
		map[int64]int{1: 400, 2: 950})
	require.NoError(t, err)
	require.Len(t, articles.inserted, 2)
	assert.Equal(t, int64(2), articles.inserted[0].ClusterID)
	assert.Equal(t, int64(1), articles.inserted[1].ClusterID)
}

func TestService_Run_VolumeTriggerCountsSinceLastPublish(t *testing.T) {
	// existing article was published when the cluster had 3 sources; since
	// then two more items attached across separate cycles (one per cycle,
	// never two in the same cycle) so no single cycle's Affected.NewMembers
	// ever reached the volume threshold on its own.
	stale := time.Now().Add(-time.Hour)
	existing := &entity.PublishedArticle{ID: 9, ClusterID: 1, Version: 1, NumSources: 3, CreatedAt: stale, UpdatedAt: stale}
	items := &stubItems{byCluster: map[int64][]*entity.SourceItem{
		1: {
			{ID: 1, Score: scorePtr(100)},
			{ID: 2, Score: scorePtr(100)},
			{ID: 3, Score: scorePtr(100)},
			{ID: 4, Score: scorePtr(100)},
			{ID: 5, Score: scorePtr(100)},
		},
	}}
	articles := &stubArticles{byCluster: map[int64]*entity.PublishedArticle{1: existing}}
	clusters := &stubClusters{}

	updateLogs := &stubUpdateLogs{}
	svc := publish.NewService(articles, clusters, items, updateLogs, 30*time.Minute)
	stats, err := svc.Run(context.Background(), []publish.ArticleContent{content(1)}, map[int64]int{1: 100})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Updated)
	require.Len(t, updateLogs.entries, 1)
	assert.Equal(t, entity.TriggerVolume, updateLogs.entries[0].Trigger)
	assert.Equal(t, 2, updateLogs.entries[0].SourcesAdded)
}

func TestService_Run_NoOpContentLeavesVersionAndTimestampUntouched(t *testing.T) {
	stale := time.Now().Add(-time.Hour)
	c := content(1)
	existing := &entity.PublishedArticle{
		ID: 9, ClusterID: 1, Version: 3, NumSources: 0, CreatedAt: stale, UpdatedAt: stale,
		TitlePro: c.TitlePro, TitleSimple: c.TitleSimple,
		BulletsPro: c.BulletsPro, BulletsSimple: c.BulletsSimple,
		BodyPro: c.BodyPro, BodySimple: c.BodySimple,
		Category: c.Category, Emoji: c.Emoji,
		ImageURL: c.ImageURL, ImageAttribution: c.ImageAttribution,
		Components: c.Components, SourceURLs: c.SourceURLs,
	}
	items := &stubItems{byCluster: map[int64][]*entity.SourceItem{1: {{ID: 1, Score: scorePtr(900)}}}}
	articles := &stubArticles{byCluster: map[int64]*entity.PublishedArticle{1: existing}}
	clusters := &stubClusters{}

	svc := publish.NewService(articles, clusters, items, nil, 30*time.Minute)
	stats, err := svc.Run(context.Background(), []publish.ArticleContent{c}, map[int64]int{1: 900})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Updated)
	require.Len(t, articles.updated, 1)
	assert.Equal(t, 3, articles.updated[0].Version)
	assert.Equal(t, stale, articles.updated[0].UpdatedAt)
}
