package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/deeprlabs/deepr"
)

// ReadabilityFetcher downloads a page and extracts its main article
// content with go-readability, trading HTTPFetcher's raw-text dump for
// boilerplate-free article text (title, byline, content).
type ReadabilityFetcher struct {
	client *http.Client
}

// NewReadability creates a readability-based fetcher.
func NewReadability() *ReadabilityFetcher {
	return &ReadabilityFetcher{client: &http.Client{Timeout: 15 * time.Second}}
}

// Fetch downloads and parses the URL through go-readability's article
// extractor.
func (f *ReadabilityFetcher) Fetch(ctx context.Context, rawURL string) (deepr.FetchResult, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return deepr.FetchResult{}, errors.New("fetch url is empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, trimmed, nil)
	if err != nil {
		return deepr.FetchResult{}, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")

	resp, err := f.client.Do(req)
	if err != nil {
		return deepr.FetchResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return deepr.FetchResult{}, fmt.Errorf("fetch http %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return deepr.FetchResult{}, err
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return deepr.FetchResult{}, err
	}

	article, err := readability.FromReader(strings.NewReader(string(body)), parsed)
	if err != nil {
		return deepr.FetchResult{}, fmt.Errorf("readability: %w", err)
	}

	return deepr.FetchResult{
		Title:       strings.TrimSpace(article.Title),
		Description: strings.TrimSpace(article.Excerpt),
		Content:     strings.TrimSpace(article.TextContent),
	}, nil
}
