// Package ingest implements the pipeline's first stage: turning a
// configured list of feed descriptors into new source_items rows.
package ingest

import (
	"context"
	"time"
)

// MediaAsset is one image-shaped candidate attached to a feed entry,
// carrying just enough of the original metadata for §4.1's priority rules
// and §4.5's image scoring to run without re-parsing the feed.
type MediaAsset struct {
	URL      string
	MIMEType string
	Width    int
	Height   int
}

// FeedEntry is one raw item parsed out of an RSS/Atom feed, before
// canonicalization, fingerprinting, or age filtering are applied.
type FeedEntry struct {
	Title           string
	Link            string
	GUID            string
	Description     string
	Author          string
	PublishedAt     time.Time
	HasPublishedAt  bool
	MediaContent    []MediaAsset
	MediaThumbnail  []MediaAsset
	ImageEnclosures []MediaAsset
}

// FeedFetcher parses a single RSS/Atom feed URL into its entries.
type FeedFetcher interface {
	Fetch(ctx context.Context, feedURL string) ([]FeedEntry, error)
}
