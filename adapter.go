package deepr

import (
	"context"

	"github.com/deeprlabs/deepr/evaluator"
	"github.com/deeprlabs/deepr/urlstore"
)

// storeAdapter wraps *urlstore.Store so the scheduler can depend on the
// narrow URLStoreView interface without package urlstore ever importing
// package deepr back (urlstore.Reranker and deepr.Reranker are distinct,
// identical-shape interfaces bridged here, not shared directly).
type storeAdapter struct {
	store    *urlstore.Store
	reranker Reranker
}

// rerankerAdapter satisfies urlstore.Reranker by delegating to a
// deepr.Reranker, bridging the two packages' independently-declared,
// structurally-identical interfaces.
type rerankerAdapter struct {
	r Reranker
}

func (a rerankerAdapter) Rerank(ctx context.Context, question string, candidates []string) ([]float64, error) {
	return a.r.Rerank(ctx, question, candidates)
}

// newStoreAdapter creates a URLStoreView backed by a fresh urlstore.Store.
// reranker may be nil.
func newStoreAdapter(reranker Reranker) *storeAdapter {
	store := urlstore.New(wrapReranker(reranker))
	return &storeAdapter{store: store, reranker: reranker}
}

func wrapReranker(r Reranker) urlstore.Reranker {
	if r == nil {
		return nil
	}
	return rerankerAdapter{r: r}
}

func (a *storeAdapter) Add(url, title, description string, weight float64) {
	a.store.Add(url, title, description, weight)
}

func (a *storeAdapter) AddWithDate(url, title, description, date string, weight float64) {
	a.store.AddWithDate(url, title, description, date, weight)
}

func (a *storeAdapter) Size() int {
	return a.store.Size()
}

func (a *storeAdapter) Get(normalizedURL string) (BoostedURLView, bool) {
	rec, ok := a.store.Get(normalizedURL)
	if !ok {
		return BoostedURLView{}, false
	}
	return BoostedURLView{URL: rec.URL, Title: rec.Title, Description: rec.Description}, true
}

// evalLLMAdapter satisfies evaluator.LLMProvider by delegating to a
// deepr.LLMProvider and recording the resulting usage against the
// request's TokenTracker, since evaluator's narrower interface has no
// usage return of its own to bubble up.
type evalLLMAdapter struct {
	llm     LLMProvider
	tracker *TokenTracker
}

func newEvalLLMAdapter(llm LLMProvider, tracker *TokenTracker) evalLLMAdapter {
	return evalLLMAdapter{llm: llm, tracker: tracker}
}

func (a evalLLMAdapter) GenerateObject(ctx context.Context, systemPrompt, userPrompt string, schema any, out any) error {
	resp, err := a.llm.GenerateObject(ctx, systemPrompt, userPrompt, schema, out)
	if err != nil {
		return err
	}
	a.tracker.Add(resp.Usage)
	return nil
}

// toEvaluatorRefs narrows deepr.Reference to evaluator.Reference.
func toEvaluatorRefs(refs []Reference) []evaluator.Reference {
	out := make([]evaluator.Reference, 0, len(refs))
	for _, r := range refs {
		out = append(out, evaluator.Reference{ExactQuote: r.ExactQuote, URL: r.URL})
	}
	return out
}

// toEvaluatorCriteria narrows deepr.EvaluationCriterion's types to
// evaluator.CriterionType.
func toEvaluatorCriteria(criteria []EvaluationCriterion) []evaluator.CriterionType {
	out := make([]evaluator.CriterionType, 0, len(criteria))
	for _, c := range criteria {
		out = append(out, evaluator.CriterionType(c.Type))
	}
	return out
}

func (a *storeAdapter) RankedFor(ctx context.Context, question string, opts RankOptions) []BoostedURLView {
	boosted := a.store.RankedFor(ctx, question, urlstore.RankOptions{
		Visited:      opts.Visited,
		Bad:          opts.Bad,
		OnlyHosts:    opts.OnlyHosts,
		BoostHosts:   opts.BoostHosts,
		BadHosts:     opts.BadHosts,
		DiversityCap: opts.DiversityCap,
		Limit:        opts.Limit,
	})
	out := make([]BoostedURLView, 0, len(boosted))
	for _, b := range boosted {
		out = append(out, BoostedURLView{
			URL:         b.URL,
			Title:       b.Title,
			Description: b.Description,
			FinalScore:  b.FinalScore,
		})
	}
	return out
}
