// Package deepr implements a deep-research agent: given a user question it
// iteratively searches the web, visits and reads pages, reflects on what it
// still doesn't know, optionally runs code, and produces a cited answer.
//
// # Architecture
//
// The Scheduler (Agent.Answer) runs a bounded, budget-aware loop. At each
// step it asks an LLM to pick one of {search, visit, reflect, answer,
// coding}, conditioned on which actions are currently allowed, then
// dispatches that action and updates the request's SchedulerState:
//
//  1. Pick the current gap (round-robin over open questions).
//  2. Seed evaluation criteria for the original question on first sight.
//  3. Rank known URLs, capping diversity to 2 per hostname.
//  4. Compose a prompt exposing only the currently-allowed actions.
//  5. Ask the LLM for the next step; retry on schema failure.
//  6. Dispatch the action, update the diary, re-enable actions for the
//     next step.
//
// When the token budget is exhausted without an accepted answer, the
// scheduler makes exactly one forced-answer ("beast mode") call using the
// accumulated reviewer feedback as binding guidance.
//
// # Cost and token tracking
//
// TokenTracker accumulates usage across every LLM call, and ActionTracker
// publishes one StepEvent per dispatched action, consumed by the stream
// package to produce user-visible progress.
//
// # Basic usage
//
//	agent := deepr.New(
//	    deepr.WithLLM(myLLM),
//	    deepr.WithSearchProvider(search.NewDuckDuckGo()),
//	    deepr.WithFetchProvider(fetch.NewHTTP()),
//	    deepr.WithTokenBudget(500_000),
//	)
//
//	result, err := agent.Answer(ctx, "What is the capital of France?")
//	fmt.Println(result.Answer.AnswerText)
package deepr
