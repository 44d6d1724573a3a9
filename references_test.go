package deepr

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCleanQuoteStripsPunctuationNoise(t *testing.T) {
	got := cleanQuote("Rayleigh  scattering, explained!! (simply)")
	want := "Rayleigh scattering explained simply"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestNormalizeAndEnrichReferencesDropsEmptyURLsAndCleansQuote(t *testing.T) {
	store := urlStoreStub{records: map[string]BoostedURLView{}, added: map[string]bool{}}
	sched := &scheduler{state: &SchedulerState{URLStore: store}}

	refs := []Reference{
		{URL: ""},
		{URL: "https://example.com/a", ExactQuote: "blue skies, really!"},
	}
	out := sched.normalizeAndEnrichReferences(context.Background(), refs)

	if len(out) != 1 {
		t.Fatalf("got %d references, want 1 after dropping the empty-URL one", len(out))
	}
	if out[0].ExactQuote != "blue skies really" {
		t.Errorf("got quote %q, want punctuation stripped", out[0].ExactQuote)
	}
	if !store.added["https://example.com/a"] {
		t.Error("expected the reference's URL to be recorded in the URL store")
	}
}

func TestNormalizeAndEnrichReferencesMergesTitleFromStore(t *testing.T) {
	store := urlStoreStub{records: map[string]BoostedURLView{
		"https://example.com/a": {URL: "https://example.com/a", Title: "Known title", Description: "a known description"},
	}}
	sched := &scheduler{state: &SchedulerState{URLStore: store}}

	refs := []Reference{{URL: "https://example.com/a"}}
	out := sched.normalizeAndEnrichReferences(context.Background(), refs)

	if len(out) != 1 {
		t.Fatalf("got %d references, want 1", len(out))
	}
	if out[0].Title != "Known title" {
		t.Errorf("got title %q, want merged title from the URL store", out[0].Title)
	}
	if out[0].ExactQuote != "a known description" {
		t.Errorf("got quote %q, want the store's description as a fallback quote", out[0].ExactQuote)
	}
}

func TestProbeLastModifiedDatesFillsDateTimeFromHeader(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Last-Modified", "Sun, 01 Jan 2023 00:00:00 GMT")
	}))
	defer ts.Close()

	refs := []Reference{{URL: ts.URL}}
	probeLastModifiedDates(context.Background(), refs)

	if refs[0].DateTime.IsZero() {
		t.Fatal("expected DateTime to be filled in from the Last-Modified header")
	}
	if refs[0].DateTime.Year() != 2023 {
		t.Errorf("got year %d, want 2023", refs[0].DateTime.Year())
	}
}

func TestProbeLastModifiedDatesLeavesDateTimeZeroWithoutHeader(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer ts.Close()

	refs := []Reference{{URL: ts.URL}}
	probeLastModifiedDates(context.Background(), refs)

	if !refs[0].DateTime.IsZero() {
		t.Errorf("expected DateTime to stay zero, got %v", refs[0].DateTime)
	}
}

func TestProbeLastModifiedDatesSkipsAlreadyDatedReferences(t *testing.T) {
	already := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	refs := []Reference{{URL: "https://does-not-matter.invalid", DateTime: already}}
	probeLastModifiedDates(context.Background(), refs)

	if !refs[0].DateTime.Equal(already) {
		t.Errorf("got %v, want the pre-set DateTime left untouched", refs[0].DateTime)
	}
}

// urlStoreStub is a minimal URLStoreView double for reference-enrichment
// tests that don't need ranking or diversity-capping.
type urlStoreStub struct {
	records map[string]BoostedURLView
	added   map[string]bool
}

func (u urlStoreStub) Add(url, title, description string, weight float64) {
	if u.added == nil {
		return
	}
	u.added[url] = true
}

func (u urlStoreStub) RankedFor(_ context.Context, _ string, _ RankOptions) []BoostedURLView {
	return nil
}

func (u urlStoreStub) Size() int { return len(u.records) }

func (u urlStoreStub) Get(normalizedURL string) (BoostedURLView, bool) {
	rec, ok := u.records[normalizedURL]
	return rec, ok
}
