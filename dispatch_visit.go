package deepr

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// dispatchVisit implements spec §4.1.3: resolve 1-based indices against
// the per-step URL list, union with top-ranked URLs, drop visited, cap,
// fetch concurrently, record url-typed knowledge items, disable visit for
// the next step.
func (s *scheduler) dispatchVisit(ctx context.Context, step StepAction, ranked []BoostedURLView) (*StepAction, disableSet, error) {
	targets := resolveVisitTargets(step.VisitIndices, ranked, s.state.VisitedURLs, defaultMaxURLsPerStep)
	if len(targets) == 0 {
		s.publishStep(step, "visit: no unvisited targets resolved", nil, false)
		return nil, disableSet{Visit: true}, nil
	}

	type fetched struct {
		url    string
		result FetchResult
		err    error
	}
	out := make([]fetched, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, url := range targets {
		i, url := i, url
		g.Go(func() error {
			if s.agent.fetcher == nil {
				out[i] = fetched{url: url, err: fmt.Errorf("no fetch provider configured")}
				return nil
			}
			res, err := s.agent.fetcher.Fetch(gctx, url)
			out[i] = fetched{url: url, result: res, err: err}
			return nil
		})
	}
	_ = g.Wait()

	for _, f := range out {
		if f.err != nil {
			s.state.BadURLs[f.url] = true
			continue
		}
		s.state.VisitedURLs[f.url] = true
		s.state.PageText[f.url] = f.result.Content
		s.state.Knowledge.Add(KnowledgeItem{
			Question:   fmt.Sprintf("What is in %s?", f.url),
			Answer:     f.result.Content,
			Type:       KnowledgeURL,
			References: []Reference{{URL: f.url, Title: f.result.Title}},
		})
		if f.result.Date != "" {
			s.state.URLStore.Add(f.url, f.result.Title, f.result.Description, 0)
		}
	}

	s.publishStep(step, fmt.Sprintf("visited %d URLs", len(targets)), targets, false)
	return nil, disableSet{Visit: true}, nil
}

// resolveVisitTargets translates 1-based indices into the per-step URL
// list the prompt showed, unions with the top-ranked list, drops
// already-visited URLs, and caps the result. Out-of-range indices are
// clamped (dropped) rather than erroring the step.
func resolveVisitTargets(indices []int, ranked []BoostedURLView, visited map[string]bool, cap int) []string {
	seen := map[string]bool{}
	var out []string

	add := func(url string) bool {
		if url == "" || visited[url] || seen[url] {
			return false
		}
		seen[url] = true
		out = append(out, url)
		return len(out) >= cap
	}

	for _, idx := range indices {
		if idx < 1 || idx > len(ranked) {
			continue
		}
		if add(ranked[idx-1].URL) {
			return out
		}
	}
	for _, r := range ranked {
		if add(r.URL) {
			return out
		}
	}
	return out
}
