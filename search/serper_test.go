package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSerperSearchParsesOrganicResults(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-KEY") != "test-key" {
			t.Errorf("missing or wrong API key header: %q", r.Header.Get("X-API-KEY"))
		}
		w.Write([]byte(`{"organic":[{"title":"A","link":"https://a.example","snippet":"s1","date":"2024-01-01"},{"title":"B","link":"https://b.example","snippet":"s2"}]}`))
	}))
	defer ts.Close()

	s := NewSerper("test-key")
	s.BaseURL = ts.URL

	results, err := s.Search(context.Background(), "query")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].URL != "https://a.example" || results[0].Date != "2024-01-01" {
		t.Errorf("unexpected first result: %+v", results[0])
	}
}

func TestSerperSearchRequiresAPIKey(t *testing.T) {
	s := NewSerper("")
	if _, err := s.Search(context.Background(), "q"); err == nil {
		t.Error("expected error for missing API key")
	}
}
