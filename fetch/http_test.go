package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTTPFetcherExtractsTitleTextAndLinks(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>My Page</title><style>.x{color:red}</style></head>
<body>
<nav>skip this nav</nav>
<p>Hello <a href="/about">about</a> world.</p>
</body></html>`))
	}))
	defer ts.Close()

	f := NewHTTP()
	res, err := f.Fetch(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.Title != "My Page" {
		t.Errorf("got title %q, want %q", res.Title, "My Page")
	}
	if strings.Contains(res.Content, "skip this nav") {
		t.Errorf("content should not include nav text: %q", res.Content)
	}
	if !strings.Contains(res.Content, "Hello") || !strings.Contains(res.Content, "world") {
		t.Errorf("content missing expected text: %q", res.Content)
	}
	if len(res.Links) != 1 || res.Links[0] != "/about" {
		t.Errorf("got links %v, want [/about]", res.Links)
	}
}

func TestHTTPFetcherRejectsEmptyURL(t *testing.T) {
	f := NewHTTP()
	if _, err := f.Fetch(context.Background(), "   "); err == nil {
		t.Error("expected error for empty url")
	}
}

func TestHTTPFetcherPropagatesNonOKStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("nope"))
	}))
	defer ts.Close()

	f := NewHTTP()
	if _, err := f.Fetch(context.Background(), ts.URL); err == nil {
		t.Error("expected error for 404 response")
	}
}
