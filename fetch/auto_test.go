package fetch

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/deeprlabs/deepr"
)

type fakeFetchProvider struct {
	result deepr.FetchResult
	err    error
}

func (f fakeFetchProvider) Fetch(_ context.Context, _ string) (deepr.FetchResult, error) {
	return f.result, f.err
}

func TestAutoReturnsFastResultWhenSubstantial(t *testing.T) {
	fast := fakeFetchProvider{result: deepr.FetchResult{Title: "ok", Content: strings.Repeat("x", 300)}}
	slow := fakeFetchProvider{err: errors.New("slow should not be called")}

	a := NewAuto(fast, slow)
	res, err := a.Fetch(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.Title != "ok" {
		t.Errorf("got title %q, want fast-tier result", res.Title)
	}
}

func TestAutoFallsBackWhenFastContentIsThin(t *testing.T) {
	fast := fakeFetchProvider{result: deepr.FetchResult{Title: "thin", Content: "too short"}}
	slow := fakeFetchProvider{result: deepr.FetchResult{Title: "rendered", Content: strings.Repeat("y", 300)}}

	a := NewAuto(fast, slow)
	res, err := a.Fetch(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.Title != "rendered" {
		t.Errorf("got title %q, want slow-tier fallback result", res.Title)
	}
}

func TestAutoFallsBackWhenFastErrors(t *testing.T) {
	fast := fakeFetchProvider{err: errors.New("boom")}
	slow := fakeFetchProvider{result: deepr.FetchResult{Title: "rendered", Content: strings.Repeat("y", 300)}}

	a := NewAuto(fast, slow)
	res, err := a.Fetch(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.Title != "rendered" {
		t.Errorf("got title %q, want slow-tier fallback result", res.Title)
	}
}

func TestAutoErrorsWhenNoSlowTierConfigured(t *testing.T) {
	fast := fakeFetchProvider{err: errors.New("boom")}

	a := NewAuto(fast, nil)
	if _, err := a.Fetch(context.Background(), "https://example.com"); err == nil {
		t.Error("expected error when fast fails and no slow tier is configured")
	}
}
