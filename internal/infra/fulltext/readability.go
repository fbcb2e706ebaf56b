// Package fulltext adapts go-readability and goquery to the pipeline's
// Fetcher capability, one primary and one fallback implementation, each
// wrapped with the same circuit breaker and retry machinery the teacher
// applies to outbound scraper calls.
package fulltext

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"github.com/sony/gobreaker"

	"newsloop/internal/capability"
	"newsloop/internal/resilience/circuitbreaker"
	"newsloop/internal/resilience/retry"
)

const maxFetchBodyBytes = 5 << 20 // 5 MiB

// ReadabilityFetcher extracts article text using go-readability's
// Mozilla-Readability port. It is the primary provider named by §4.4.
type ReadabilityFetcher struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

// NewReadabilityFetcher constructs the primary full-text Fetcher.
func NewReadabilityFetcher(client *http.Client) *ReadabilityFetcher {
	return &ReadabilityFetcher{
		client:         client,
		circuitBreaker: circuitbreaker.New(circuitbreaker.FetchPrimaryConfig()),
		retryConfig:    retry.FetchConfig(),
	}
}

// Fetch downloads urlStr and extracts its readable text.
func (f *ReadabilityFetcher) Fetch(ctx context.Context, urlStr string) (*capability.FetchResult, error) {
	var result *capability.FetchResult

	retryErr := retry.WithBackoff(ctx, f.retryConfig, func() error {
		cbResult, err := f.circuitBreaker.Execute(func() (interface{}, error) {
			return f.doFetch(ctx, urlStr)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("primary fetch circuit breaker open, request rejected",
					slog.String("capability", "fetch-primary"),
					slog.String("url", urlStr))
			}
			return err
		}
		result = cbResult.(*capability.FetchResult)
		return nil
	})
	if retryErr != nil {
		return nil, retryErr
	}
	return result, nil
}

func (f *ReadabilityFetcher) doFetch(ctx context.Context, urlStr string) (*capability.FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "NewsloopBot")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, errFetchStatus(urlStr, resp.StatusCode)
	}

	body := io.LimitReader(resp.Body, maxFetchBodyBytes)
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, err
	}

	article, err := readability.FromReader(body, parsedURL)
	if err != nil {
		return nil, err
	}

	return &capability.FetchResult{
		Text:        strings.TrimSpace(article.TextContent),
		Method:      capability.FetchMethodPrimary,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

type fetchStatusError struct {
	url    string
	status int
}

func (e *fetchStatusError) Error() string {
	return "fetch: unexpected status from " + e.url
}

func errFetchStatus(url string, status int) error {
	return &fetchStatusError{url: url, status: status}
}
