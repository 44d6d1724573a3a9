package search

import (
	"context"
	"testing"

	"github.com/deeprlabs/deepr"
)

type fakeProvider struct {
	results []deepr.SearchResult
	err     error
}

func (f fakeProvider) Search(_ context.Context, _ string) ([]deepr.SearchResult, error) {
	return f.results, f.err
}

func TestMultiMergesAndDedupesByURL(t *testing.T) {
	a := fakeProvider{results: []deepr.SearchResult{
		{Title: "One", URL: "https://example.com/one"},
		{Title: "Dup", URL: "https://Example.com/Dup  "},
	}}
	b := fakeProvider{results: []deepr.SearchResult{
		{Title: "Dup again", URL: "https://example.com/dup"},
		{Title: "Two", URL: "https://example.com/two"},
	}}

	m := NewMulti(a, b)
	results, err := m.Search(context.Background(), "q")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3 after dedup: %+v", len(results), results)
	}
}

func TestMultiSkipsProvidersThatError(t *testing.T) {
	ok := fakeProvider{results: []deepr.SearchResult{{Title: "ok", URL: "https://example.com/ok"}}}
	bad := fakeProvider{err: context.DeadlineExceeded}

	m := NewMulti(ok, bad)
	results, err := m.Search(context.Background(), "q")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
}
