package evaluator

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLLM replays canned responses in call order, recording how many
// times it was invoked so tests can assert short-circuit behavior.
type fakeLLM struct {
	responses []any
	calls     int
}

func (f *fakeLLM) GenerateObject(ctx context.Context, systemPrompt, userPrompt string, schema any, out any) error {
	resp := f.responses[f.calls]
	f.calls++
	b, _ := json.Marshal(resp)
	return json.Unmarshal(b, out)
}

func TestEvaluateShortCircuitsOnFirstFailure(t *testing.T) {
	llm := &fakeLLM{responses: []any{
		definitiveSchema{Pass: true},
		freshnessSchema{Pass: false, Think: "stale"},
	}}
	e := New(llm)

	outcome, err := e.Evaluate(context.Background(), "q", "a",
		[]CriterionType{Definitive, Freshness, Strict}, nil, nil)
	require.NoError(t, err)
	assert.False(t, outcome.Accepted)
	assert.Equal(t, Freshness, outcome.Verdict.Type)
	assert.Equal(t, 2, llm.calls, "strict must not be consulted after freshness fails")
}

func TestEvaluateAllPass(t *testing.T) {
	llm := &fakeLLM{responses: []any{
		definitiveSchema{Pass: true},
		strictSchema{Pass: true},
	}}
	e := New(llm)

	outcome, err := e.Evaluate(context.Background(), "q", "a",
		[]CriterionType{Definitive, Strict}, nil, nil)
	require.NoError(t, err)
	assert.True(t, outcome.Accepted)
}

func TestAttributionMechanicalCheck(t *testing.T) {
	e := New(&fakeLLM{})
	refs := []Reference{{URL: "http://a.com", ExactQuote: "the sky is blue"}}
	knowledge := KnowledgeText{"http://a.com": "Today the sky is blue and clear."}

	outcome, err := e.Evaluate(context.Background(), "q", "a", []CriterionType{Attribution}, refs, knowledge)
	require.NoError(t, err)
	assert.True(t, outcome.Accepted)

	missing := KnowledgeText{"http://a.com": "completely unrelated text"}
	outcome, err = e.Evaluate(context.Background(), "q", "a", []CriterionType{Attribution}, refs, missing)
	require.NoError(t, err)
	assert.False(t, outcome.Accepted)
}
