package deepr

import (
	"context"
	"fmt"
	"time"

	"github.com/deeprlabs/deepr/evaluator"
)

const budgetThreshold = 0.85

// maxRankedURLsForPrompt caps how many ranked URLs are handed to the
// model per step; applyURLCountGates still gates off the full,
// pre-truncation ranked length per spec's step 4.
const maxRankedURLsForPrompt = 20

// scheduler runs the main loop of spec.md §4.1 against one request's
// SchedulerState.
type scheduler struct {
	agent     *Agent
	state     *SchedulerState
	evaluator *evaluator.Evaluator

	// forceTerminal is set by dispatchAnswer when the original question
	// runs out of evaluation criteria (spec §4.1.1's "if no criteria
	// remain, exit the loop"); run() checks it after every iteration.
	forceTerminal bool
}

// run is the entry point called by Agent.Answer / Agent.AnswerStreaming.
func (s *scheduler) run(ctx context.Context) (Result, error) {
	for s.state.TokenTracker.Total() < int(budgetThreshold*float64(s.state.TokenTracker.Budget())) {
		select {
		case <-ctx.Done():
			return s.finishWithForcedAnswer(ctx)
		default:
		}

		final, err := s.iterate(ctx)
		if err != nil {
			return Result{}, err
		}
		if final != nil {
			return s.finish(*final), nil
		}
		if s.forceTerminal {
			return s.finishWithForcedAnswer(ctx)
		}

		if s.agent.stepSleep > 0 {
			time.Sleep(s.agent.stepSleep)
		}
	}
	return s.finishWithForcedAnswer(ctx)
}

// iterate runs exactly one loop iteration (spec §4.1 steps 1-8). It
// returns a non-nil StepAction only when that step produced the final,
// accepted answer.
func (s *scheduler) iterate(ctx context.Context) (*StepAction, error) {
	question := s.state.currentQuestion()

	s.seedEvaluationCriteria(question)
	s.applyFreshnessLockout(question)

	full := s.rankURLs(ctx, question)
	s.applyURLCountGates(full)
	ranked := full
	if len(ranked) > maxRankedURLsForPrompt {
		ranked = ranked[:maxRankedURLsForPrompt]
	}

	if s.state.Allow == (AllowFlags{}) {
		return nil, ErrNoAllowedActions
	}

	step, err := s.nextStep(ctx, question, ranked)
	if err != nil {
		return nil, fmt.Errorf("scheduler: choosing next step: %w", err)
	}

	final, disableNext, err := s.dispatch(ctx, question, *step, ranked)
	if err != nil {
		return nil, fmt.Errorf("scheduler: dispatch %s: %w", step.Type, err)
	}

	s.state.TotalStep++
	s.state.Step++
	s.state.Allow = allowAll()
	applyDisable(&s.state.Allow, disableNext)

	return final, nil
}

// disableSet names which allow flags a dispatch handler wants forced off
// for the step immediately following its own, per spec's "disable X for
// the next step" dispatch rules. Zero value disables nothing.
type disableSet struct {
	Answer, Search, Visit, Reflect, Coding bool
}

func applyDisable(allow *AllowFlags, d disableSet) {
	if d.Answer {
		allow.Answer = false
	}
	if d.Search {
		allow.Search = false
	}
	if d.Visit {
		allow.Visit = false
	}
	if d.Reflect {
		allow.Reflect = false
	}
	if d.Coding {
		allow.Coding = false
	}
}

// applyURLCountGates implements step 4's tail: disable visit when there
// are no ranked URLs, disable search when there are more than 200.
func (s *scheduler) applyURLCountGates(ranked []BoostedURLView) {
	if len(ranked) == 0 {
		s.state.Allow.Visit = false
	}
	if len(ranked) > 200 {
		s.state.Allow.Search = false
	}
}

// rankURLs implements spec §4.2's filter → rank → diversity-cap pipeline,
// called fresh each iteration against the current question. It returns
// the full diversity-capped list, uncapped by count, so the caller can
// gate search/visit off its true length before truncating for the
// prompt (see maxRankedURLsForPrompt).
func (s *scheduler) rankURLs(ctx context.Context, question string) []BoostedURLView {
	return s.state.URLStore.RankedFor(ctx, question, RankOptions{
		Visited:      s.state.VisitedURLs,
		Bad:          s.state.BadURLs,
		OnlyHosts:    s.agent.onlyHostnames,
		BoostHosts:   s.agent.boostHostnames,
		BadHosts:     s.agent.badHostnames,
		DiversityCap: 2,
	})
}

// applyFreshnessLockout implements step 3: on the very first iteration,
// if the original question carries a freshness criterion, disable answer
// and reflect so the agent must search first.
func (s *scheduler) applyFreshnessLockout(question string) {
	if question != s.state.OriginalQuestion || s.state.TotalStep != 0 {
		return
	}
	for _, c := range s.state.EvaluationCriteria[s.state.OriginalQuestion] {
		if c.Type == CriterionFreshness {
			s.state.Allow.Answer = false
			s.state.Allow.Reflect = false
			return
		}
	}
}

// seedEvaluationCriteria implements step 2: on the first iteration for a
// given question, select a criteria subset via the LLM and give each
// max_bad_attempts lives; strict is appended unconditionally. Sub
// questions get an empty criterion list.
func (s *scheduler) seedEvaluationCriteria(question string) {
	if _, seeded := s.state.EvaluationCriteria[question]; seeded {
		return
	}
	if question != s.state.OriginalQuestion {
		s.state.EvaluationCriteria[question] = nil
		return
	}

	selected := s.selectCriteriaTypes(question)
	criteria := make([]EvaluationCriterion, 0, len(selected)+1)
	for _, t := range selected {
		criteria = append(criteria, EvaluationCriterion{Type: t, RemainingAttempts: s.agent.maxBadAttempts})
	}
	criteria = append(criteria, EvaluationCriterion{Type: CriterionStrict, RemainingAttempts: s.agent.maxBadAttempts})
	s.state.EvaluationCriteria[question] = criteria
}

func (s *scheduler) finish(final StepAction) Result {
	capped := func(urls []string) []string {
		if limit := s.agent.maxReturnedURLs; limit > 0 && len(urls) > limit {
			return urls[:limit]
		}
		return urls
	}
	visited := capped(keys(s.state.VisitedURLs))
	return Result{
		Answer:      final,
		Cost:        0,
		VisitedURLs: visited,
		ReadURLs:    visited,
		AllURLs:     capped(allURLKeys(s.state)),
	}
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func allURLKeys(state *SchedulerState) []string {
	seen := map[string]bool{}
	for u := range state.VisitedURLs {
		seen[u] = true
	}
	for u := range state.BadURLs {
		seen[u] = true
	}
	return keys(seen)
}
