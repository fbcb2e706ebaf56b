package imagesel

import (
	"context"

	"newsloop/internal/domain/entity"
	"newsloop/internal/repository"
)

// Service picks one representative image per affected cluster.
type Service struct {
	Items repository.SourceItemRepository
}

// NewService constructs an image selection Service.
func NewService(items repository.SourceItemRepository) *Service {
	return &Service{Items: items}
}

// SelectForCluster scores every member image candidate of clusterID and
// returns the winner, or nil if no member has a usable image URL.
func (s *Service) SelectForCluster(ctx context.Context, clusterID int64) (*Selection, error) {
	members, err := s.Items.ListByCluster(ctx, clusterID)
	if err != nil {
		return nil, err
	}

	var candidates []*entity.SourceItem
	for _, m := range members {
		if m.ImageURL != "" {
			candidates = append(candidates, m)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	best := candidates[0]
	bestScore := candidateScore(best)
	for _, c := range candidates[1:] {
		score := candidateScore(c)
		if score > bestScore || (score == bestScore && c.PublishedAt.Before(best.PublishedAt)) {
			best = c
			bestScore = score
		}
	}

	return &Selection{URL: best.ImageURL, Attribution: best.Source, SourceTier: best.Tier}, nil
}
