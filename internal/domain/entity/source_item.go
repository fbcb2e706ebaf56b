package entity

import "time"

// FeedTier is a publisher reputation class used in scoring adjustments and
// image selection.
type FeedTier int

const (
	TierUnknown FeedTier = iota
	Tier1
	Tier2
	Tier3
)

// FeedSource describes one configured RSS/Atom feed to poll during ingest.
type FeedSource struct {
	Name    string
	FeedURL string
	Tier    FeedTier
}

// SourceItem is one article from one publisher's feed, as defined by the
// ingest stage and mutated in place by scoring, clustering and full-text
// fetch.
type SourceItem struct {
	ID          int64
	URL         string // canonical form
	GUID        string // as given by the feed
	Source      string
	Fingerprint string // sha256 of normalised title + source

	Title       string
	Description string
	FullText    string
	ImageURL    string
	Author      string
	PublishedAt time.Time
	FetchedAt   time.Time

	Score    *int // 0..1000, nil until scored
	Category string
	Emoji    string
	Approved bool
	Consumed bool
	LowText  bool

	ClusterID *int64

	Tier FeedTier
}

// IsScored reports whether the scoring stage has already assigned a score.
func (s *SourceItem) IsScored() bool {
	return s.Score != nil
}

// IsClustered reports whether the item has been attached to a cluster.
func (s *SourceItem) IsClustered() bool {
	return s.ClusterID != nil
}
