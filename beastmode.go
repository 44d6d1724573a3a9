package deepr

import (
	"context"
	"fmt"
	"strings"
)

// finishWithForcedAnswer implements spec §4.1.6: the forced-answer
// terminal reached when the token budget crosses its reserved threshold
// or the context is cancelled. Exactly one LLM call, never recursive
// (the original logic's recursive retry was a bug, not a feature, per
// Design Note "Beast mode is not recursive"), and its answer is accepted
// unconditionally — per spec §7, a forced answer is the contract's
// guaranteed response, not a partial failure.
func (s *scheduler) finishWithForcedAnswer(ctx context.Context) (Result, error) {
	sys := buildBeastModeSystemPrompt(s.state.FinalAnswerImprovements)
	user := buildSchedulerUserPrompt(s.state.Knowledge, s.state.OriginalQuestion)

	var out nextStepSchema
	resp, err := s.agent.llm.GenerateObject(ctx, sys, user, nextStepSchema{}, &out)
	if err != nil {
		return Result{}, fmt.Errorf("%w: forced answer: %w", ErrBudgetExhausted, err)
	}
	s.state.TokenTracker.Add(resp.Usage)

	final := StepAction{
		Type:           ActionAnswer,
		Think:          out.Think,
		AnswerText:     out.AnswerText,
		References:     toReferences(out.References),
		IsFinal:        true,
		MarkdownAnswer: out.MDAnswer,
	}

	s.publishStep(final, "answer: forced terminal reached", nil, true)
	return s.finish(final), nil
}

func buildBeastModeSystemPrompt(improvements []string) string {
	var b strings.Builder
	b.WriteString("You are out of budget to research further. Give your best final answer now, using only the knowledge already gathered below. Do not hedge about having run out of time or budget; answer as definitively as the evidence allows.\n")
	if len(improvements) > 0 {
		b.WriteString("\nEarlier attempts at this answer were rejected for these reasons; address every one of them this time:\n")
		for _, imp := range improvements {
			b.WriteString("- ")
			b.WriteString(imp)
			b.WriteString("\n")
		}
	}
	return b.String()
}
