package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/deeprlabs/deepr"
)

const serperEndpoint = "https://google.serper.dev/search"

// Serper calls the Serper Google-SERP proxy API.
type Serper struct {
	APIKey  string
	BaseURL string // overridable for tests; defaults to serperEndpoint

	client *http.Client
}

// NewSerper constructs a Serper search provider.
func NewSerper(apiKey string) *Serper {
	return &Serper{APIKey: apiKey, BaseURL: serperEndpoint, client: &http.Client{Timeout: 10 * time.Second}}
}

// Search posts a query to Serper and returns its organic results.
func (s *Serper) Search(ctx context.Context, query string) ([]deepr.SearchResult, error) {
	if strings.TrimSpace(s.APIKey) == "" {
		return nil, errors.New("serper: API key is missing")
	}

	payload, err := json.Marshal(map[string]any{"q": query, "num": 5})
	if err != nil {
		return nil, err
	}

	base := s.BaseURL
	if base == "" {
		base = serperEndpoint
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base, strings.NewReader(string(payload)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", s.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serper http %d", resp.StatusCode)
	}

	var raw struct {
		Organic []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
			Date    string `json:"date"`
		} `json:"organic"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}

	results := make([]deepr.SearchResult, 0, len(raw.Organic))
	for _, r := range raw.Organic {
		results = append(results, deepr.SearchResult{Title: r.Title, URL: r.Link, Snippet: r.Snippet, Date: r.Date})
		if len(results) >= 5 {
			break
		}
	}
	return results, nil
}
