package deepr

import (
	"context"
	"time"
)

// SearchResult is a single item returned by a SearchProvider.
type SearchResult struct {
	Title   string
	URL     string
	Snippet string
	Date    string
}

// SearchProvider executes a query and returns results.
type SearchProvider interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

// LocalizedSearchProvider is an optional extension a SearchProvider may
// implement to accept language/geo/time hints. The scheduler issues every
// query through plain Search and does not call SearchLocalized; the query
// rewriter produces only query strings, no hints.
type LocalizedSearchProvider interface {
	SearchLocalized(ctx context.Context, query, titleLang, bodyLang, tbs, location string) ([]SearchResult, error)
}

// FetchResult is what a FetchProvider returns for a single URL.
type FetchResult struct {
	Title       string
	Description string
	Content     string
	Date        string
	Links       []string
}

// FetchProvider retrieves the readable content of a URL.
type FetchProvider interface {
	Fetch(ctx context.Context, url string) (FetchResult, error)
}

// TokenUsage reports the token cost of a single LLM call.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// LLMResponse is returned by LLMProvider.Generate.
type LLMResponse struct {
	Text      string
	Reasoning string // some reasoning models emit content here instead of Text
	Usage     TokenUsage
	Cost      float64
}

// LLMProvider is implemented by user-supplied language model clients.
// GenerateObject additionally constrains the model's output to a JSON
// schema; callers should retry on schema violation (the scheduler retries
// up to twice, per spec).
type LLMProvider interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (LLMResponse, error)
	GenerateObject(ctx context.Context, systemPrompt, userPrompt string, schema any, out any) (LLMResponse, error)
}

// Reranker scores candidate URLs against a question. Implementations may
// be local (e.g. a BM25 index, see package rerank) or a network call; a
// nil Reranker makes rerank_boost always zero.
type Reranker interface {
	Rerank(ctx context.Context, question string, candidates []string) ([]float64, error)
}

// SandboxResult is the output of a successful Sandbox.Solve call.
type SandboxResult struct {
	Code   string
	Output string
}

// Sandbox executes LLM-authored code for the Coding dispatch.
type Sandbox interface {
	Solve(ctx context.Context, issue string, context string) (SandboxResult, error)
}

// Reference is a citation attached to an Answer action.
type Reference struct {
	ExactQuote string
	URL        string
	Title      string
	DateTime   time.Time
}

// Result is returned by Agent.Answer.
type Result struct {
	Answer      StepAction // the terminal Answer action
	Cost        float64
	VisitedURLs []string
	ReadURLs    []string
	AllURLs     []string
}

// AnswerOption configures a single call to Agent.Answer.
type AnswerOption func(*answerConfig)

type answerConfig struct {
	priorKnowledge []KnowledgeItem
}

// WithKnowledge seeds the request's KnowledgeBase with items carried over
// from a prior Result, so follow-up questions don't re-search what is
// already known.
func WithKnowledge(items []KnowledgeItem) AnswerOption {
	return func(c *answerConfig) { c.priorKnowledge = items }
}
