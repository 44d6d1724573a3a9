package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/deeprlabs/deepr"
	"golang.org/x/net/html"
)

const maxFetchBytes = 32 * 1024 // avoids overwhelming LLM context with a single page

// HTTPFetcher retrieves raw text from a URL via a plain GET, stripping
// markup with an HTML tokenizer rather than regex.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTP creates an HTTP fetcher with a modest timeout.
func NewHTTP() *HTTPFetcher {
	return &HTTPFetcher{client: &http.Client{Timeout: 15 * time.Second}}
}

// NewHTTPWithClient creates an HTTP fetcher using the supplied client.
func NewHTTPWithClient(client *http.Client) *HTTPFetcher {
	return &HTTPFetcher{client: client}
}

// Fetch downloads the URL content and extracts plain text plus any links.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (deepr.FetchResult, error) {
	trimmed := strings.TrimSpace(url)
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
		body, _ := io.ReadAll(resp.Body)
		return deepr.FetchResult{}, fmt.Errorf("fetch http %d: %s", resp.StatusCode, string(body))
	}

	title, text, links := extractText(resp.Body)
	if len(text) > maxFetchBytes {
		text = text[:maxFetchBytes] + "\n[TRUNCATED]"
	}
	return deepr.FetchResult{Title: title, Content: text, Links: links}, nil
}

// extractText walks the HTML token stream, skipping script/style/nav/
// header/footer subtrees, concatenating visible text and collecting
// hrefs as it goes.
func extractText(r io.Reader) (title, text string, links []string) {
	z := html.NewTokenizer(r)
	var b strings.Builder
	var skipDepth int
	var inTitle bool

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		tok := z.Token()

		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			switch tok.Data {
			case "script", "style", "nav", "header", "footer":
				if tt == html.StartTagToken {
					skipDepth++
				}
			case "title":
				inTitle = true
			case "a":
				for _, attr := range tok.Attr {
					if attr.Key == "href" && attr.Val != "" {
						links = append(links, attr.Val)
					}
				}
			case "br", "p", "div", "li":
				b.WriteString("\n")
			}
		case html.EndTagToken:
			switch tok.Data {
			case "script", "style", "nav", "header", "footer":
				if skipDepth > 0 {
					skipDepth--
				}
			case "title":
				inTitle = false
			}
		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			trimmed := strings.TrimSpace(tok.Data)
			if trimmed == "" {
				continue
			}
			if inTitle {
				title = trimmed
				continue
			}
			b.WriteString(trimmed)
			b.WriteString(" ")
		}
	}

	return title, collapseWhitespace(b.String()), links
}

func collapseWhitespace(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
