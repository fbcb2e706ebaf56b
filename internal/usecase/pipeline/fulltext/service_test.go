package fulltext_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"newsloop/internal/capability"
	"newsloop/internal/domain/entity"
	"newsloop/internal/usecase/pipeline/fulltext"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	results map[string]*capability.FetchResult
	errs    map[string]error
}

func (f *stubFetcher) Fetch(_ context.Context, url string) (*capability.FetchResult, error) {
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	return f.results[url], nil
}

type stubRepo struct {
	members []*entity.SourceItem
	updates map[int64]struct {
		text    string
		lowText bool
	}
}

func (r *stubRepo) Insert(context.Context, *entity.SourceItem) error { return nil }
func (r *stubRepo) Get(context.Context, int64) (*entity.SourceItem, error) { return nil, nil }
func (r *stubRepo) ListUnscored(context.Context, int) ([]*entity.SourceItem, error) { return nil, nil }
func (r *stubRepo) ListApprovedUnclustered(context.Context, int) ([]*entity.SourceItem, error) {
	return nil, nil
}
func (r *stubRepo) ListByCluster(context.Context, int64) ([]*entity.SourceItem, error) {
	return r.members, nil
}
func (r *stubRepo) UpdateScore(context.Context, int64, int, string, string, bool) error { return nil }
func (r *stubRepo) AttachToCluster(context.Context, int64, int64) error                 { return nil }
func (r *stubRepo) UpdateFullText(_ context.Context, id int64, text string, lowText bool) error {
	if r.updates == nil {
		r.updates = map[int64]struct {
			text    string
			lowText bool
		}{}
	}
	r.updates[id] = struct {
		text    string
		lowText bool
	}{text, lowText}
	return nil
}
func (r *stubRepo) MarkConsumed(context.Context, int64) error { return nil }

func score(n int) *int { return &n }

func TestService_RunCluster_UsesPrimaryWhenSufficient(t *testing.T) {
	longText := strings.Repeat("word ", 200)
	item := &entity.SourceItem{ID: 1, URL: "https://example.com/a", Score: score(800)}
	repo := &stubRepo{members: []*entity.SourceItem{item}}
	primary := &stubFetcher{results: map[string]*capability.FetchResult{item.URL: {Text: longText, Method: capability.FetchMethodPrimary}}}

	svc := fulltext.NewService(repo, primary, nil, 4, time.Second)
	stats, err := svc.RunCluster(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.ItemsFetched)
	assert.False(t, repo.updates[1].lowText)
}

func TestService_RunCluster_FallsBackWhenPrimaryTooShort(t *testing.T) {
	longText := strings.Repeat("word ", 200)
	item := &entity.SourceItem{ID: 2, URL: "https://example.com/b", Score: score(700)}
	repo := &stubRepo{members: []*entity.SourceItem{item}}
	primary := &stubFetcher{results: map[string]*capability.FetchResult{item.URL: {Text: "too short"}}}
	fallback := &stubFetcher{results: map[string]*capability.FetchResult{item.URL: {Text: longText, Method: capability.FetchMethodFallback}}}

	svc := fulltext.NewService(repo, primary, fallback, 4, time.Second)
	stats, err := svc.RunCluster(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.ItemsFetched)
	assert.Equal(t, longText, repo.updates[2].text)
}

func TestService_RunCluster_MarksLowTextWhenBothFail(t *testing.T) {
	item := &entity.SourceItem{ID: 3, URL: "https://example.com/c", Description: "fallback description", Score: score(750)}
	repo := &stubRepo{members: []*entity.SourceItem{item}}
	primary := &stubFetcher{errs: map[string]error{item.URL: errors.New("fetch failed")}}
	fallback := &stubFetcher{errs: map[string]error{item.URL: errors.New("fetch failed too")}}

	svc := fulltext.NewService(repo, primary, fallback, 4, time.Second)
	stats, err := svc.RunCluster(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, int64(1), stats.ItemsLowText)
	assert.Equal(t, "fallback description", repo.updates[3].text)
	assert.True(t, repo.updates[3].lowText)
}

func TestService_RunCluster_TruncatesToTopScoredMembers(t *testing.T) {
	var members []*entity.SourceItem
	results := map[string]*capability.FetchResult{}
	longText := strings.Repeat("word ", 200)
	for i := 0; i < 12; i++ {
		url := "https://example.com/item" + string(rune('a'+i))
		members = append(members, &entity.SourceItem{ID: int64(i + 1), URL: url, Score: score(100 + i)})
		results[url] = &capability.FetchResult{Text: longText}
	}
	repo := &stubRepo{members: members}
	primary := &stubFetcher{results: results}

	svc := fulltext.NewService(repo, primary, nil, 4, time.Second)
	stats, err := svc.RunCluster(context.Background(), 1)
	require.NoError(t, err)
	assert.LessOrEqual(t, stats.ItemsAttempted, int64(10))
}
