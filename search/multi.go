package search

import (
	"context"
	"strings"

	"github.com/deeprlabs/deepr"
	"golang.org/x/sync/errgroup"
)

// Multi fans a single query out across several providers concurrently and
// merges the results, deduplicating by URL. A provider failing does not
// fail the whole call; its results are simply absent.
type Multi struct {
	Providers []deepr.SearchProvider
}

// NewMulti constructs a Multi provider over the given backends, in the
// order results should be preferred when deduplicating.
func NewMulti(providers ...deepr.SearchProvider) *Multi {
	return &Multi{Providers: providers}
}

// Search runs query against every configured provider concurrently.
func (m *Multi) Search(ctx context.Context, query string) ([]deepr.SearchResult, error) {
	if len(m.Providers) == 0 {
		return nil, nil
	}

	perProvider := make([][]deepr.SearchResult, len(m.Providers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, p := range m.Providers {
		i, p := i, p
		g.Go(func() error {
			res, err := p.Search(gctx, query)
			if err != nil {
				return nil // one backend's outage doesn't sink the merge
			}
			perProvider[i] = res
			return nil
		})
	}
	_ = g.Wait()

	seen := map[string]bool{}
	var merged []deepr.SearchResult
	for _, results := range perProvider {
		for _, r := range results {
			key := strings.ToLower(strings.TrimSpace(r.URL))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, r)
		}
	}
	return merged, nil
}
