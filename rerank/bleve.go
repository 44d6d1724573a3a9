// Package rerank provides a local, no-network implementation of the
// urlstore.Reranker interface, resolving the Open Question left by
// spec.md's "optional call to an external reranker" (see SPEC_FULL.md
// §10, decision 1): rather than calling a remote rerank API, deepr scores
// candidates against the current question with an in-memory BM25 index
// built fresh per call.
package rerank

import (
	"context"
	"fmt"

	"github.com/blevesearch/bleve/v2"
)

// candidateDoc is what gets indexed per URL: its title and description,
// the only text the scheduler has on hand before a page is fetched.
type candidateDoc struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// CandidateLookup supplies the title/description text urlstore doesn't pass
// through its Reranker interface (which only carries bare URLs); the
// Bleve reranker is constructed with a lookup function that the caller
// wires to its own records.
type CandidateLookup func(url string) (title, description string)

// Bleve is a Reranker backed by a transient in-memory bleve index,
// rebuilt for every Rerank call since the candidate set changes every
// scheduler step.
type Bleve struct {
	lookup CandidateLookup
}

// New creates a Bleve reranker. lookup resolves a URL to the title and
// description text to index; it must be non-nil.
func New(lookup CandidateLookup) *Bleve {
	return &Bleve{lookup: lookup}
}

// Rerank scores each candidate URL against question using BM25 relevance
// over its indexed title+description. Returns raw bleve scores aligned
// with candidates; urlstore.Store normalizes these before use.
func (b *Bleve) Rerank(ctx context.Context, question string, candidates []string) ([]float64, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	mapping := bleve.NewIndexMapping()
	idx, err := bleve.NewMemOnly(mapping)
	if err != nil {
		return nil, fmt.Errorf("rerank: new index: %w", err)
	}
	defer idx.Close()

	for i, url := range candidates {
		title, description := b.lookup(url)
		doc := candidateDoc{URL: url, Title: title, Description: description}
		if err := idx.Index(fmt.Sprintf("%d", i), doc); err != nil {
			return nil, fmt.Errorf("rerank: index candidate: %w", err)
		}
	}

	q := bleve.NewMatchQuery(question)
	req := bleve.NewSearchRequest(q)
	req.Size = len(candidates)
	result, err := idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("rerank: search: %w", err)
	}

	scores := make([]float64, len(candidates))
	for _, hit := range result.Hits {
		var i int
		if _, err := fmt.Sscanf(hit.ID, "%d", &i); err != nil || i < 0 || i >= len(scores) {
			continue
		}
		scores[i] = hit.Score
	}
	return scores, nil
}
