package component

import (
	"context"

	"newsloop/internal/domain/entity"

	"golang.org/x/sync/errgroup"
)

// Article is the minimal synthesis output component generation needs per
// cluster.
type Article struct {
	ClusterID int64
	Title     string
	Body      string
}

// Result is one article's generated component set, or the error that
// prevented it. Selected is the number of component kinds chosen before
// rendering; Set.Order may be shorter if a kind was dropped for lack of a
// search result.
type Result struct {
	ClusterID int64
	Selected  int
	Set       entity.ComponentSet
	Err       error
}

// Service selects and renders components for a batch of articles with
// bounded fan-out across articles (default 5), per §4.7.
type Service struct {
	Selector    *Selector
	Renderer    *Renderer
	Concurrency int // default 5
}

// NewService constructs a component Service.
func NewService(selector *Selector, renderer *Renderer, concurrency int) *Service {
	if concurrency <= 0 {
		concurrency = 5
	}
	return &Service{Selector: selector, Renderer: renderer, Concurrency: concurrency}
}

// Run generates a component set for each article, bounded by s.Concurrency
// concurrent articles; within one article, component rendering itself fans
// out in parallel (see Renderer.BuildSet).
func (s *Service) Run(ctx context.Context, articles []Article) []Result {
	results := make([]Result, len(articles))
	sem := make(chan struct{}, s.Concurrency)
	eg, egCtx := errgroup.WithContext(ctx)

	for i, a := range articles {
		idx, article := i, a
		eg.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()

			kinds, err := s.Selector.Select(egCtx, article.Title, article.Body)
			if err != nil {
				results[idx] = Result{ClusterID: article.ClusterID, Err: err}
				return nil
			}

			set, err := s.Renderer.BuildSet(egCtx, article.Title, article.Body, kinds)
			results[idx] = Result{ClusterID: article.ClusterID, Selected: len(kinds), Set: set, Err: err}
			return nil
		})
	}
	_ = eg.Wait()

	return results
}
