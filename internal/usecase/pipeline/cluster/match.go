package cluster

import (
	"newsloop/internal/domain/entity"
)

const (
	// minKeywordOverlap and minEntityOverlap are the §4.3 shortlist
	// thresholds: a cluster only enters scoring if it clears one of them.
	minKeywordOverlap = 3
	minEntityOverlap  = 1

	// matchThreshold (tau) is the minimum match score to attach to a
	// cluster rather than start a new one.
	matchThreshold = 0.75

	titleWeight   = 0.55
	keywordWeight = 0.25
	entityWeight  = 0.20
)

// Features is the derived candidate-matching state for one item.
type Features struct {
	NormalizedTitle string
	Keywords        []string
	Entities        []string
}

// ExtractFeatures computes the §4.3 matching features for an item.
func ExtractFeatures(title, excerpt string) Features {
	return Features{
		NormalizedTitle: NormalizeTitle(title),
		Keywords:        ExtractKeywords(title, excerpt),
		Entities:        ExtractEntities(title),
	}
}

// shortlist returns clusters whose keyword or entity overlap with f clears
// the §4.3 thresholds.
func shortlist(f Features, clusters []*entity.Cluster) []*entity.Cluster {
	var out []*entity.Cluster
	for _, c := range clusters {
		if IntersectionSize(f.Keywords, c.Keywords) >= minKeywordOverlap ||
			IntersectionSize(f.Entities, c.Entities) >= minEntityOverlap {
			out = append(out, c)
		}
	}
	return out
}

// matchScore computes S = 0.55*title_sim + 0.25*jaccard(keywords) +
// 0.20*jaccard(entities) for f against c.
func matchScore(f Features, c *entity.Cluster) float64 {
	titleSim := TitleSimilarity(f.NormalizedTitle, NormalizeTitle(c.EventLabel))
	keywordSim := Jaccard(f.Keywords, c.Keywords)
	entitySim := Jaccard(f.Entities, c.Entities)
	return titleWeight*titleSim + keywordWeight*keywordSim + entityWeight*entitySim
}

// BestMatch finds the highest-scoring shortlisted cluster for f that clears
// matchThreshold, breaking ties by most recent LastUpdatedAt. It returns
// nil if no candidate qualifies.
func BestMatch(f Features, candidates []*entity.Cluster) *entity.Cluster {
	var best *entity.Cluster
	var bestScore float64

	for _, c := range shortlist(f, candidates) {
		score := matchScore(f, c)
		if score < matchThreshold {
			continue
		}
		if best == nil || score > bestScore ||
			(score == bestScore && c.LastUpdatedAt.After(best.LastUpdatedAt)) {
			best = c
			bestScore = score
		}
	}
	return best
}
