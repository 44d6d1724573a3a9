package deepr

import (
	"context"
	"fmt"
	"strings"

	"github.com/deeprlabs/deepr/urlstore"
	"golang.org/x/sync/errgroup"
)

// dispatchSearch implements spec §4.1.2: dedup/cap queries, execute,
// ingest results into the URL store, synthesize a side-info knowledge
// item, then run a query-rewriter second pass. Disables search for the
// next step.
func (s *scheduler) dispatchSearch(ctx context.Context, step StepAction) (*StepAction, disableSet, error) {
	queries := dedupAndCap(step.SearchQueries, s.state.AllKeywords, defaultMaxQueriesPerStep)
	if len(queries) == 0 {
		s.publishStep(step, "search: no novel queries to run; thinking harder", nil, false)
		return nil, disableSet{Search: true}, nil
	}

	firstPass := s.runQueries(ctx, queries)
	for _, q := range queries {
		s.state.AllKeywords[strings.ToLower(q)] = true
	}

	refined := s.rewriteQueries(ctx, firstPass)
	refined = dedupAndCap(refined, s.state.AllKeywords, defaultMaxQueriesPerStep)
	secondPass := s.runQueries(ctx, refined)
	for _, q := range refined {
		s.state.AllKeywords[strings.ToLower(q)] = true
	}

	all := append(firstPass, secondPass...)
	if len(all) == 0 {
		s.publishStep(step, "search: both passes returned zero results; think harder", nil, false)
		return nil, disableSet{Search: true}, nil
	}

	for _, q := range queries {
		var snippets strings.Builder
		for _, r := range firstPass {
			fmt.Fprintf(&snippets, "- %s: %s\n", r.Title, r.Snippet)
		}
		s.state.Knowledge.Add(KnowledgeItem{
			Question: fmt.Sprintf("What do sources say about %s?", q),
			Answer:   snippets.String(),
			Type:     KnowledgeSideInfo,
		})
	}

	s.publishStep(step, fmt.Sprintf("searched %d+%d queries, found %d results", len(queries), len(refined), len(all)), nil, false)
	return nil, disableSet{Search: true}, nil
}

// runQueries executes each query against the search provider concurrently
// and merges results into the URL store, per spec §5's concurrent-fan-out
// allowance for search passes.
func (s *scheduler) runQueries(ctx context.Context, queries []string) []SearchResult {
	if s.agent.searcher == nil || len(queries) == 0 {
		return nil
	}
	results := make([][]SearchResult, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			res, err := s.agent.searcher.Search(gctx, q)
			if err != nil {
				s.agent.debugf("search %q failed: %v", q, err)
				return nil // transient upstream failure: narrative, not abort
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	var all []SearchResult
	for _, res := range results {
		for _, r := range res {
			if _, ok := urlstore.Normalize(r.URL); !ok {
				continue
			}
			s.state.URLStore.Add(r.URL, r.Title, r.Snippet, 1)
			all = append(all, r)
		}
	}
	return all
}

// rewriteQueries proposes refined queries from the first pass's snippets.
// If only_hostnames is set, appends a site: constraint to each.
func (s *scheduler) rewriteQueries(ctx context.Context, firstPass []SearchResult) []string {
	if s.agent.llm == nil || len(firstPass) == 0 {
		return nil
	}
	var schema struct {
		Queries []struct {
			Query string `json:"query"`
		} `json:"queries"`
	}
	var snippets strings.Builder
	for _, r := range firstPass {
		fmt.Fprintf(&snippets, "- %s | %s | %s\n", r.Title, r.URL, r.Snippet)
	}
	sys := "Given first-pass search snippets, propose refined search queries that would surface more specific or authoritative sources. Output {queries: [{query}]}."
	if _, err := s.agent.llm.GenerateObject(ctx, sys, snippets.String(), schema, &schema); err != nil {
		return nil
	}
	out := make([]string, 0, len(schema.Queries))
	for _, q := range schema.Queries {
		query := q.Query
		if len(s.agent.onlyHostnames) > 0 {
			query += " site:" + s.agent.onlyHostnames[0]
		}
		if query != "" {
			out = append(out, query)
		}
	}
	return out
}

func dedupAndCap(queries []string, seen map[string]bool, cap int) []string {
	out := make([]string, 0, len(queries))
	for _, q := range queries {
		q = strings.TrimSpace(q)
		if q == "" || seen[strings.ToLower(q)] {
			continue
		}
		out = append(out, q)
		if len(out) >= cap {
			break
		}
	}
	return out
}
