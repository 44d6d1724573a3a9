package deepr

import "context"

// CriterionType names one of the six evaluator criteria.
type CriterionType string

const (
	CriterionDefinitive   CriterionType = "definitive"
	CriterionFreshness    CriterionType = "freshness"
	CriterionPlurality    CriterionType = "plurality"
	CriterionAttribution  CriterionType = "attribution"
	CriterionCompleteness CriterionType = "completeness"
	CriterionStrict       CriterionType = "strict"
)

// EvaluationCriterion tracks how many more failures a question's answer
// may accumulate against one criterion before that criterion is dropped.
type EvaluationCriterion struct {
	Type             CriterionType
	RemainingAttempts int
}

// AllowFlags gates which actions the scheduler may pick for the next step.
// Passed through the loop as a value rather than mutated via globals, per
// Design Note "Allow flags".
type AllowFlags struct {
	Answer  bool
	Search  bool
	Visit   bool
	Reflect bool
	Coding  bool
}

// allowAll returns the flags reset to their initial, fully-open state.
func allowAll() AllowFlags {
	return AllowFlags{Answer: true, Search: true, Visit: true, Reflect: true, Coding: true}
}

// SchedulerState holds everything mutated across one request's loop
// iterations. It is created fresh per request and never shared.
type SchedulerState struct {
	OriginalQuestion string

	Gaps          []string // open questions; original is always Gaps[0]
	AllQuestions  map[string]bool
	AllKeywords   map[string]bool

	Knowledge *KnowledgeBase
	URLStore  URLStoreView

	VisitedURLs map[string]bool
	BadURLs     map[string]bool
	PageText    map[string]string // normalized URL -> fetched content, for attribution checks

	Diary []string

	EvaluationCriteria map[string][]EvaluationCriterion
	FinalAnswerImprovements []string

	Allow AllowFlags

	Step      int // resets to 0 on failed-answer reset
	TotalStep int // strictly increasing across the whole request

	TokenTracker  *TokenTracker
	ActionTracker *ActionTracker
}

// URLStoreView is the subset of urlstore.Store the scheduler depends on,
// declared here (rather than importing package urlstore into every
// dispatch file's signature) to keep the dependency direction one way:
// package urlstore never imports package deepr.
type URLStoreView interface {
	Add(url, title, description string, weight float64)
	RankedFor(ctx context.Context, question string, opts RankOptions) []BoostedURLView
	Size() int
	Get(normalizedURL string) (BoostedURLView, bool)
}

// RankOptions mirrors urlstore.RankOptions, declared locally for the same
// one-way-dependency reason as URLStoreView.
type RankOptions struct {
	Visited      map[string]bool
	Bad          map[string]bool
	OnlyHosts    []string
	BoostHosts   []string
	BadHosts     []string
	DiversityCap int
	Limit        int
}

// BoostedURLView mirrors urlstore.BoostedURL's public fields the scheduler
// needs when building prompts and resolving Visit indices.
type BoostedURLView struct {
	URL         string
	Title       string
	Description string
	FinalScore  float64
}

// newSchedulerState creates a fresh, fully-open state for one request.
func newSchedulerState(question string, store URLStoreView, tracker *TokenTracker, actions *ActionTracker, seed []KnowledgeItem) *SchedulerState {
	return &SchedulerState{
		OriginalQuestion:    question,
		Gaps:                []string{question},
		AllQuestions:        map[string]bool{question: true},
		AllKeywords:         map[string]bool{},
		Knowledge:           NewKnowledgeBase(seed),
		URLStore:            store,
		VisitedURLs:         map[string]bool{},
		BadURLs:             map[string]bool{},
		PageText:            map[string]string{},
		EvaluationCriteria:  map[string][]EvaluationCriterion{},
		Allow:               allowAll(),
		TokenTracker:        tracker,
		ActionTracker:       actions,
	}
}

// currentQuestion implements spec.md §4.1 step 1: round-robin over gaps.
func (s *SchedulerState) currentQuestion() string {
	if len(s.Gaps) == 0 {
		return s.OriginalQuestion
	}
	return s.Gaps[s.TotalStep%len(s.Gaps)]
}

// removeGap deletes a sub-question from Gaps once it's been answered.
func (s *SchedulerState) removeGap(question string) {
	out := s.Gaps[:0]
	for _, g := range s.Gaps {
		if g != question {
			out = append(out, g)
		}
	}
	s.Gaps = out
}
