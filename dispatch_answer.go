package deepr

import (
	"context"
	"fmt"

	"github.com/deeprlabs/deepr/evaluator"
)

// dispatchAnswer implements spec §4.1.1: the trivial direct-answer
// shortcut, unseen-reference fetching ahead of evaluation, and the
// three-way accept / reject-sub-question / reject-original-question
// branching that drives the evaluator.
func (s *scheduler) dispatchAnswer(ctx context.Context, question string, step StepAction) (*StepAction, disableSet, error) {
	if s.state.TotalStep == 0 && question == s.state.OriginalQuestion && len(step.References) == 0 && !s.agent.noDirectAnswer {
		step.IsFinal = true
		s.publishStep(step, "answer: trivial direct answer accepted", nil, true)
		return &step, disableSet{}, nil
	}

	step.References = s.normalizeAndEnrichReferences(ctx, step.References)
	s.fetchUnseenReferences(ctx, step.References)

	criteria := s.state.EvaluationCriteria[question]
	outcome, err := s.evaluator.Evaluate(ctx, question, step.AnswerText, toEvaluatorCriteria(criteria), toEvaluatorRefs(step.References), s.pageTextForRefs(step.References))
	if err != nil {
		return nil, disableSet{}, fmt.Errorf("evaluate answer: %w", err)
	}

	if outcome.Accepted {
		step.IsFinal = true
		if question != s.state.OriginalQuestion {
			s.state.Knowledge.Add(KnowledgeItem{
				Question:   question,
				Answer:     step.AnswerText,
				Type:       KnowledgeQA,
				References: step.References,
			})
			s.state.removeGap(question)
			s.publishStep(step, "answer: sub-question accepted", nil, false)
			return nil, disableSet{Answer: true}, nil
		}
		s.publishStep(step, "answer: accepted", nil, true)
		return &step, disableSet{}, nil
	}

	if question != s.state.OriginalQuestion {
		s.publishStep(step, fmt.Sprintf("answer: sub-question rejected (%s)", outcome.Verdict.Type), nil, false)
		return nil, disableSet{Answer: true}, nil
	}

	remainingCriteria := s.decrementCriterion(question, outcome.Verdict.Type)
	if outcome.Verdict.Type == evaluator.Strict && outcome.Verdict.ImprovementPlan != "" {
		s.state.FinalAnswerImprovements = append(s.state.FinalAnswerImprovements, outcome.Verdict.ImprovementPlan)
	}

	if remainingCriteria == 0 {
		s.forceTerminal = true
		s.publishStep(step, "answer: exhausted all evaluation criteria; forcing an answer", nil, false)
		return nil, disableSet{}, nil
	}

	s.recordFailedAttempt(ctx, question, step.AnswerText, outcome.Verdict)
	s.state.Diary = nil
	s.state.Step = 0

	s.publishStep(step, fmt.Sprintf("answer: rejected (%s): %s", outcome.Verdict.Type, outcome.Verdict.Think), nil, false)
	return nil, disableSet{Answer: true}, nil
}

// fetchUnseenReferences implements the evaluator precondition that every
// reference's exact_quote be checked against real fetched page text, not
// whatever the model claims: any URL cited in the candidate answer that
// hasn't already been visited is fetched before evaluation runs.
func (s *scheduler) fetchUnseenReferences(ctx context.Context, refs []Reference) {
	if s.agent.fetcher == nil {
		return
	}
	for _, r := range refs {
		if r.URL == "" || s.state.VisitedURLs[r.URL] || s.state.BadURLs[r.URL] {
			continue
		}
		res, err := s.agent.fetcher.Fetch(ctx, r.URL)
		if err != nil {
			s.state.BadURLs[r.URL] = true
			continue
		}
		s.state.VisitedURLs[r.URL] = true
		s.state.PageText[r.URL] = res.Content
	}
}

func (s *scheduler) pageTextForRefs(refs []Reference) evaluator.KnowledgeText {
	out := make(evaluator.KnowledgeText, len(refs))
	for _, r := range refs {
		if text, ok := s.state.PageText[r.URL]; ok {
			out[r.URL] = cleanQuote(text)
		}
	}
	return out
}

// decrementCriterion spends one attempt against the criterion that just
// failed, dropping it once its attempts are exhausted, and returns how
// many criteria remain afterward.
func (s *scheduler) decrementCriterion(question string, failing evaluator.CriterionType) int {
	criteria := s.state.EvaluationCriteria[question]
	out := criteria[:0]
	for _, c := range criteria {
		if CriterionType(failing) == c.Type {
			c.RemainingAttempts--
			if c.RemainingAttempts <= 0 {
				continue
			}
		}
		out = append(out, c)
	}
	s.state.EvaluationCriteria[question] = out
	return len(out)
}

type errorAnalysisSchema struct {
	Analysis string `json:"analysis"`
}

const errorAnalysisSystemPrompt = "The candidate answer below failed an evaluation criterion. Explain concisely what was wrong and what the next attempt should do differently. Output {analysis}."

// recordFailedAttempt asks the LLM to diagnose the rejection and pushes
// the diagnosis as a qa knowledge item, so the next attempt at the
// original question sees why its predecessor was rejected.
func (s *scheduler) recordFailedAttempt(ctx context.Context, question, answer string, verdict evaluator.Verdict) {
	user := fmt.Sprintf("Question:\n%s\n\nRejected answer:\n%s\n\nFailing criterion: %s\nReasoning: %s", question, answer, verdict.Type, verdict.Think)

	var out errorAnalysisSchema
	analysis := fmt.Sprintf("failed %s: %s", verdict.Type, verdict.Think)
	if s.agent.llm != nil {
		resp, err := s.agent.llm.GenerateObject(ctx, errorAnalysisSystemPrompt, user, errorAnalysisSchema{}, &out)
		if err == nil {
			s.state.TokenTracker.Add(resp.Usage)
			analysis = out.Analysis
		}
	}

	s.state.Knowledge.Add(KnowledgeItem{
		Question: fmt.Sprintf("Why was this answer to %q rejected?", question),
		Answer:   analysis,
		Type:     KnowledgeQA,
	})
}
