// Package ingest adapts the gofeed RSS/Atom parser to the pipeline's
// FeedFetcher capability, with the same circuit breaker and retry wrapping
// the teacher applies to its feed fetches.
package ingest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"newsloop/internal/resilience/circuitbreaker"
	"newsloop/internal/resilience/retry"
	"newsloop/internal/usecase/pipeline/ingest"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
	"github.com/sony/gobreaker"
)

// RSSFetcher implements ingest.FeedFetcher using gofeed.
type RSSFetcher struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

// NewRSSFetcher creates a new RSSFetcher with the given HTTP client.
func NewRSSFetcher(client *http.Client) *RSSFetcher {
	return &RSSFetcher{
		client:         client,
		circuitBreaker: circuitbreaker.New(circuitbreaker.FeedIngestConfig()),
		retryConfig:    retry.FeedFetchConfig(),
	}
}

// Fetch retrieves and parses an RSS/Atom feed from the given URL.
func (f *RSSFetcher) Fetch(ctx context.Context, feedURL string) ([]ingest.FeedEntry, error) {
	var entries []ingest.FeedEntry

	retryErr := retry.WithBackoff(ctx, f.retryConfig, func() error {
		cbResult, err := f.circuitBreaker.Execute(func() (interface{}, error) {
			return f.doFetch(ctx, feedURL)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("feed ingest circuit breaker open, request rejected",
					slog.String("capability", "feed-ingest"),
					slog.String("url", feedURL),
					slog.String("state", f.circuitBreaker.State().String()))
			}
			return err
		}
		entries = cbResult.([]ingest.FeedEntry)
		return nil
	})
	if retryErr != nil {
		return nil, retryErr
	}
	return entries, nil
}

func (f *RSSFetcher) doFetch(ctx context.Context, feedURL string) ([]ingest.FeedEntry, error) {
	fp := gofeed.NewParser()
	fp.UserAgent = "NewsloopBot"
	fp.Client = f.client

	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]ingest.FeedEntry, 0, len(feed.Items))
	for _, it := range feed.Items {
		entry := ingest.FeedEntry{
			Title:       it.Title,
			Link:        it.Link,
			GUID:        it.GUID,
			Description: it.Description,
		}
		if it.Author != nil {
			entry.Author = it.Author.Name
		} else if len(it.Authors) > 0 {
			entry.Author = it.Authors[0].Name
		}
		if it.PublishedParsed != nil {
			entry.PublishedAt = *it.PublishedParsed
			entry.HasPublishedAt = true
		} else if it.UpdatedParsed != nil {
			entry.PublishedAt = *it.UpdatedParsed
			entry.HasPublishedAt = true
		}

		if it.Extensions != nil {
			if media, ok := it.Extensions["media"]; ok {
				entry.MediaContent = append(entry.MediaContent, mediaAssetsFromExtension(media["content"])...)
				entry.MediaThumbnail = append(entry.MediaThumbnail, mediaAssetsFromExtension(media["thumbnail"])...)
			}
		}
		for _, enc := range it.Enclosures {
			if enc.URL == "" {
				continue
			}
			if isImageMIME(enc.Type) {
				entry.ImageEnclosures = append(entry.ImageEnclosures, ingest.MediaAsset{URL: enc.URL, MIMEType: enc.Type})
			}
		}

		entries = append(entries, entry)
	}
	return entries, nil
}

func mediaAssetsFromExtension(exts []ext.Extension) []ingest.MediaAsset {
	assets := make([]ingest.MediaAsset, 0, len(exts))
	for _, e := range exts {
		url := e.Attrs["url"]
		if url == "" {
			continue
		}
		asset := ingest.MediaAsset{URL: url, MIMEType: e.Attrs["type"]}
		asset.Width = atoiSafe(e.Attrs["width"])
		asset.Height = atoiSafe(e.Attrs["height"])
		assets = append(assets, asset)
	}
	return assets
}

func isImageMIME(mime string) bool {
	switch mime {
	case "image/jpeg", "image/jpg", "image/png", "image/webp", "image/gif":
		return true
	default:
		return false
	}
}

func atoiSafe(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}
