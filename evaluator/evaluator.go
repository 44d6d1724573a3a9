// Package evaluator implements the multi-criterion judgement of candidate
// answers described in spec.md §4.3: a fixed, short-circuited sequence of
// per-criterion checks, where the first failure wins. Each criterion is
// one independent LLM call, except attribution, which is a substring
// check of each cited quote against the cached page text.
package evaluator

import (
	"context"
	"fmt"
)

// CriterionType names one of the six checks. Mirrors deepr.CriterionType;
// kept as its own type here so this package has no import on deepr
// (evaluator is a leaf collaborator, not a consumer of the scheduler).
type CriterionType string

const (
	Definitive   CriterionType = "definitive"
	Freshness    CriterionType = "freshness"
	Plurality    CriterionType = "plurality"
	Attribution  CriterionType = "attribution"
	Completeness CriterionType = "completeness"
	Strict       CriterionType = "strict"
)

// evaluationOrder is fixed: criteria are checked in this sequence and the
// first failure short-circuits the rest (spec §4.3).
var evaluationOrder = []CriterionType{Definitive, Freshness, Plurality, Attribution, Completeness, Strict}

// Reference is the minimal citation shape the attribution check needs.
type Reference struct {
	ExactQuote string
	URL        string
}

// KnowledgeText is the minimal fetched-page-text lookup the attribution
// check needs; callers supply a map from normalized URL to cached page
// text (never re-fetched at evaluation time, per SPEC_FULL §4.3).
type KnowledgeText map[string]string

// LLMProvider is the narrow subset of deepr.LLMProvider the evaluator
// collaborates with, declared locally to keep the one-way dependency
// (deepr imports evaluator; evaluator never imports deepr).
type LLMProvider interface {
	GenerateObject(ctx context.Context, systemPrompt, userPrompt string, schema any, out any) error
}

// Verdict is the result of one criterion's check.
type Verdict struct {
	Pass            bool
	Type            CriterionType
	Think           string
	ImprovementPlan string // only meaningful when Type == Strict and Pass == false

	// criterion-specific diagnostics, populated only on the relevant type
	DaysAgo      int
	MaxAgeDays   int
	Required     int
	Provided     int
	ExpectedList []string
	ProvidedList []string
}

// Outcome is the overall result of Evaluate.
type Outcome struct {
	Accepted bool
	Verdict  Verdict // the failing verdict, or the final passing one
}

// Evaluator runs the fixed-order, short-circuited criteria sequence.
type Evaluator struct {
	llm LLMProvider
}

// New creates an Evaluator bound to an LLM collaborator.
func New(llm LLMProvider) *Evaluator {
	return &Evaluator{llm: llm}
}

// Evaluate checks candidateAnswer against the requested subset of
// criteria, in the fixed evaluationOrder, skipping any criterion not in
// the subset. The first failing criterion is returned immediately; if
// all requested criteria pass, Outcome.Accepted is true.
func (e *Evaluator) Evaluate(ctx context.Context, question, candidateAnswer string, criteria []CriterionType, refs []Reference, knowledge KnowledgeText) (Outcome, error) {
	requested := toSet(criteria)
	last := Verdict{Pass: true, Type: Strict}
	for _, c := range evaluationOrder {
		if !requested[c] {
			continue
		}
		verdict, err := e.check(ctx, c, question, candidateAnswer, refs, knowledge)
		if err != nil {
			return Outcome{}, fmt.Errorf("evaluator: %s check: %w", c, err)
		}
		if !verdict.Pass {
			return Outcome{Accepted: false, Verdict: verdict}, nil
		}
		last = verdict
	}
	return Outcome{Accepted: true, Verdict: last}, nil
}

func (e *Evaluator) check(ctx context.Context, c CriterionType, question, answer string, refs []Reference, knowledge KnowledgeText) (Verdict, error) {
	switch c {
	case Definitive:
		return e.checkDefinitive(ctx, question, answer)
	case Freshness:
		return e.checkFreshness(ctx, question, answer, refs)
	case Plurality:
		return e.checkPlurality(ctx, question, answer)
	case Attribution:
		return e.checkAttribution(ctx, question, answer, refs, knowledge)
	case Completeness:
		return e.checkCompleteness(ctx, question, answer)
	case Strict:
		return e.checkStrict(ctx, question, answer)
	default:
		return Verdict{}, fmt.Errorf("unknown criterion: %s", c)
	}
}

func toSet(criteria []CriterionType) map[CriterionType]bool {
	set := make(map[CriterionType]bool, len(criteria))
	for _, c := range criteria {
		set[c] = true
	}
	return set
}
