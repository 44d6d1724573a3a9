package deepr

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/deeprlabs/deepr/urlstore"
)

var (
	nonWordRE    = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	multiSpaceRE = regexp.MustCompile(`\s+`)
)

// normalizeAndEnrichReferences implements spec §4.1.1's reference
// normalize-and-enrich step: references with no URL are dropped, the
// remaining URLs are normalized and recorded in the URL store (so an
// accepted answer's citations are always present there, per the
// invariant that every reference is a real discovered URL), the cited
// quote is cleaned of punctuation noise, and title/description are
// filled in from whatever the URL store already knows about that URL.
// DateTime is backfilled afterward by concurrently probing each URL's
// Last-Modified header.
func (s *scheduler) normalizeAndEnrichReferences(ctx context.Context, refs []Reference) []Reference {
	cleaned := make([]Reference, 0, len(refs))
	for _, ref := range refs {
		norm, ok := urlstore.Normalize(ref.URL)
		if !ok {
			continue
		}
		ref.URL = norm

		title, description := ref.Title, ""
		if rec, found := s.state.URLStore.Get(norm); found {
			if title == "" {
				title = rec.Title
			}
			description = rec.Description
		}
		ref.Title = title

		quote := ref.ExactQuote
		if quote == "" {
			if description != "" {
				quote = description
			} else {
				quote = title
			}
		}
		ref.ExactQuote = cleanQuote(quote)

		s.state.URLStore.Add(norm, title, description, 0)
		cleaned = append(cleaned, ref)
	}

	probeLastModifiedDates(ctx, cleaned)
	return cleaned
}

// cleanQuote strips everything but letters, numbers and whitespace, then
// collapses runs of whitespace, so near-duplicate quotes that differ
// only in punctuation compare equal during attribution checks.
func cleanQuote(quote string) string {
	stripped := nonWordRE.ReplaceAllString(quote, " ")
	return strings.TrimSpace(multiSpaceRE.ReplaceAllString(stripped, " "))
}

var lastModifiedClient = &http.Client{Timeout: 5 * time.Second}

// probeLastModifiedDates fills in DateTime for every reference that
// doesn't already carry one, probing each URL's Last-Modified header
// concurrently; a probe that errors or finds no header is left empty
// rather than failing the answer, mirroring dispatchVisit's fan-out
// shape for Visit fetches.
func probeLastModifiedDates(ctx context.Context, refs []Reference) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i := range refs {
		if !refs[i].DateTime.IsZero() {
			continue
		}
		i := i
		g.Go(func() error {
			t, err := probeLastModified(gctx, refs[i].URL)
			if err == nil {
				refs[i].DateTime = t
			}
			return nil
		})
	}
	_ = g.Wait()
}

func probeLastModified(ctx context.Context, rawURL string) (time.Time, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return time.Time{}, err
	}
	resp, err := lastModifiedClient.Do(req)
	if err != nil {
		return time.Time{}, err
	}
	defer resp.Body.Close()

	header := resp.Header.Get("Last-Modified")
	if header == "" {
		return time.Time{}, fmt.Errorf("no Last-Modified header for %s", rawURL)
	}
	return http.ParseTime(header)
}
