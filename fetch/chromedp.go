package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	readability "github.com/go-shiori/go-readability"

	"github.com/deeprlabs/deepr"
)

// ChromeDPFetcher renders a page in headless Chrome before extracting its
// article text, for JS-heavy pages the plain HTTP/readability fetchers
// can't see through.
type ChromeDPFetcher struct {
	Timeout time.Duration
}

// NewChromeDP creates a headless-browser fetcher with the given timeout.
func NewChromeDP(timeout time.Duration) *ChromeDPFetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &ChromeDPFetcher{Timeout: timeout}
}

// Fetch navigates to the URL, waits for the DOM to settle, and runs the
// rendered HTML through go-readability.
func (f *ChromeDPFetcher) Fetch(ctx context.Context, rawURL string) (deepr.FetchResult, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return deepr.FetchResult{}, errors.New("fetch url is empty")
	}

	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()

	renderedHTML, err := f.render(ctx, trimmed)
	if err != nil {
		return deepr.FetchResult{}, fmt.Errorf("chromedp: %w", err)
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return deepr.FetchResult{}, err
	}

	article, err := readability.FromReader(strings.NewReader(renderedHTML), parsed)
	if err != nil {
		return deepr.FetchResult{}, fmt.Errorf("readability: %w", err)
	}

	return deepr.FetchResult{
		Title:       strings.TrimSpace(article.Title),
		Description: strings.TrimSpace(article.Excerpt),
		Content:     strings.TrimSpace(article.TextContent),
	}, nil
}

func (f *ChromeDPFetcher) render(ctx context.Context, rawURL string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.UserAgent("deepr-research-agent/1.0"),
	)
	actx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	bctx, cancelBrowser := chromedp.NewContext(actx)
	defer cancelBrowser()

	var renderedHTML string
	err := chromedp.Run(bctx,
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &renderedHTML, chromedp.ByQuery),
	)
	return renderedHTML, err
}
