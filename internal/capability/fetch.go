package capability

import "context"

// FetchMethod tags which provider produced a FetchResult's text.
type FetchMethod string

const (
	FetchMethodPrimary  FetchMethod = "primary"
	FetchMethodFallback FetchMethod = "fallback"
)

// FetchResult is the plain-text extraction of a single URL.
type FetchResult struct {
	Text        string
	Method      FetchMethod
	ContentType string
}

// Fetcher extracts readable plain text from a single article URL. The core
// calls the primary fetcher first and falls back to a second implementation
// when the primary fails or returns text shorter than the configured
// minimum.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*FetchResult, error)
}
