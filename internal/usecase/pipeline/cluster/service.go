// Package cluster implements the clustering stage (§4.3): closing stale
// clusters, matching newly-approved items against active clusters by event
// identity, and creating new clusters when no match clears the threshold.
package cluster

import (
	"context"
	"fmt"
	"time"

	"newsloop/internal/domain/entity"
	"newsloop/internal/repository"
)

const eventLabelMaxRunes = 80

// Stats summarizes one clustering pass.
type Stats struct {
	ClustersClosed int
	ItemsMatched   int
	ClustersNew    int
	Errors         int
}

// Affected describes one cluster touched this cycle. MaxNewScore feeds the
// publish stage's high-score trigger (§4.8) directly; NewMembers is a
// per-cycle clustering stat only — the publish stage computes its own
// since-last-publish member count from total cluster membership, since an
// item attached one cycle is never re-offered by ListApprovedUnclustered for
// recounting in a later one.
type Affected struct {
	ClusterID   int64
	NewMembers  int
	MaxNewScore int
	Created     bool
}

// Service attaches approved-but-unclustered items to active clusters or
// seeds new ones.
type Service struct {
	Items    repository.SourceItemRepository
	Clusters repository.ClusterRepository

	CandidateWindow   time.Duration // default 24h
	InactivityWindow  time.Duration // default 24h
	HardMaxClusterAge time.Duration // default 48h
}

// NewService constructs a clustering Service.
func NewService(items repository.SourceItemRepository, clusters repository.ClusterRepository, candidateWindow, inactivityWindow, hardMaxAge time.Duration) *Service {
	if candidateWindow <= 0 {
		candidateWindow = 24 * time.Hour
	}
	if inactivityWindow <= 0 {
		inactivityWindow = 24 * time.Hour
	}
	if hardMaxAge <= 0 {
		hardMaxAge = 48 * time.Hour
	}
	return &Service{Items: items, Clusters: clusters, CandidateWindow: candidateWindow, InactivityWindow: inactivityWindow, HardMaxClusterAge: hardMaxAge}
}

// Run closes stale clusters, then matches every approved-and-unclustered
// item against the surviving active candidate set (sequentially, since a
// match mutates shared cluster state that a later item in the same pass may
// need to see). It returns the clusters affected this cycle, each annotated
// with this cycle's new-member count and max new-member score.
func (s *Service) Run(ctx context.Context, limit int) (*Stats, []Affected, error) {
	now := time.Now()
	stats := &Stats{}

	closed, err := s.Clusters.CloseStale(ctx, now, s.InactivityWindow, s.HardMaxClusterAge)
	if err != nil {
		return nil, nil, fmt.Errorf("close stale clusters: %w", err)
	}
	stats.ClustersClosed = len(closed)

	items, err := s.Items.ListApprovedUnclustered(ctx, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("list approved unclustered items: %w", err)
	}

	affected := make(map[int64]*Affected)
	var order []int64
	for _, item := range items {
		candidates, err := s.Clusters.ListActiveWithin(ctx, now, s.CandidateWindow)
		if err != nil {
			stats.Errors++
			continue
		}

		clusterID, created, err := s.matchOrCreate(ctx, item, candidates, now)
		if err != nil {
			stats.Errors++
			continue
		}

		if err := s.Items.AttachToCluster(ctx, item.ID, clusterID); err != nil {
			stats.Errors++
			continue
		}

		a, ok := affected[clusterID]
		if !ok {
			a = &Affected{ClusterID: clusterID, Created: created}
			affected[clusterID] = a
			order = append(order, clusterID)
		}
		a.NewMembers++
		if score := scoreOf(item); score > a.MaxNewScore {
			a.MaxNewScore = score
		}

		if created {
			stats.ClustersNew++
		} else {
			stats.ItemsMatched++
		}
	}

	result := make([]Affected, 0, len(order))
	for _, id := range order {
		result = append(result, *affected[id])
	}
	return stats, result, nil
}

func scoreOf(item *entity.SourceItem) int {
	if item.Score == nil {
		return 0
	}
	return *item.Score
}

func (s *Service) matchOrCreate(ctx context.Context, item *entity.SourceItem, candidates []*entity.Cluster, now time.Time) (int64, bool, error) {
	features := ExtractFeatures(item.Title, item.Description)

	if match := BestMatch(features, candidates); match != nil {
		if err := s.extend(ctx, match, item, features, now); err != nil {
			return 0, false, err
		}
		return match.ID, false, nil
	}

	label := truncateRunes(item.Title, eventLabelMaxRunes)
	score := 0
	if item.Score != nil {
		score = *item.Score
	}
	c := &entity.Cluster{
		EventLabel:    label,
		Keywords:      features.Keywords,
		Entities:      features.Entities,
		Category:      item.Category,
		Status:        entity.ClusterActive,
		SourceCount:   1,
		TopScore:      score,
		CreatedAt:     now,
		LastUpdatedAt: now,
	}
	id, err := s.Clusters.Insert(ctx, c)
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (s *Service) extend(ctx context.Context, c *entity.Cluster, item *entity.SourceItem, features Features, now time.Time) error {
	score := 0
	if item.Score != nil {
		score = *item.Score
	}
	topScore := c.TopScore
	if score > topScore {
		topScore = score
	}

	members, err := s.Items.ListByCluster(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("list cluster members for majority category: %w", err)
	}
	category := majorityCategory(append(members, item))

	keywords := UnionSorted(c.Keywords, features.Keywords)
	entities := UnionSorted(c.Entities, features.Entities)

	return s.Clusters.Extend(ctx, c.ID, now, c.SourceCount+1, topScore, keywords, entities, category)
}

func majorityCategory(items []*entity.SourceItem) string {
	counts := make(map[string]int, len(items))
	for _, it := range items {
		if it.Category == "" {
			continue
		}
		counts[it.Category]++
	}
	var best string
	var bestCount int
	for cat, n := range counts {
		if n > bestCount {
			best, bestCount = cat, n
		}
	}
	return best
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
