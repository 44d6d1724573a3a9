package deepr

import (
	"context"
	"fmt"
	"strings"
)

// dispatchCoding implements spec §4.1.5: hand the issue, current
// knowledge, and top-20 URL snippets to the sandbox collaborator, record
// a coding-typed knowledge item on success, disable coding for the next
// step.
func (s *scheduler) dispatchCoding(ctx context.Context, step StepAction) (*StepAction, disableSet, error) {
	if s.agent.sandbox == nil {
		s.publishStep(step, "coding: no sandbox configured; skipping", nil, false)
		return nil, disableSet{Coding: true}, nil
	}

	knowledgeContext := renderKnowledgeContext(s.state.Knowledge)
	ranked := s.rankURLs(ctx, s.state.OriginalQuestion)
	if len(ranked) > maxRankedURLsForPrompt {
		ranked = ranked[:maxRankedURLsForPrompt]
	}
	if len(ranked) > 0 {
		var b strings.Builder
		b.WriteString(knowledgeContext)
		b.WriteString("Top URLs:\n")
		for _, u := range ranked {
			fmt.Fprintf(&b, "- %s: %s - %s\n", u.URL, u.Title, u.Description)
		}
		knowledgeContext = b.String()
	}
	result, err := s.agent.sandbox.Solve(ctx, step.CodingIssue, knowledgeContext)
	if err != nil {
		s.publishStep(step, fmt.Sprintf("coding failed: %v", err), nil, false)
		return nil, disableSet{Coding: true}, nil
	}

	s.state.Knowledge.Add(KnowledgeItem{
		Question:   fmt.Sprintf("solution to %s?", step.CodingIssue),
		Answer:     result.Output,
		Type:       KnowledgeCoding,
		SourceCode: result.Code,
	})

	s.publishStep(step, "coding: produced a solution", nil, false)
	return nil, disableSet{Coding: true}, nil
}

func renderKnowledgeContext(kb *KnowledgeBase) string {
	var b strings.Builder
	for _, item := range kb.Items() {
		fmt.Fprintf(&b, "Q: %s\nA: %s\n\n", item.Question, item.Answer)
	}
	return b.String()
}
