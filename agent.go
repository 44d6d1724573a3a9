package deepr

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/deeprlabs/deepr/evaluator"
)

// Agent coordinates the scheduler and its collaborators for one or more
// Answer calls. Construct with New and functional options; an Agent may
// be reused across requests (it holds no per-request state itself — that
// lives in SchedulerState, created fresh inside Answer).
type Agent struct {
	llm      LLMProvider
	searcher SearchProvider
	fetcher  FetchProvider
	sandbox  Sandbox
	reranker Reranker

	tokenBudget    int
	maxBadAttempts int
	debug          bool
	stepSleep      time.Duration

	onlyHostnames  []string
	boostHostnames []string
	badHostnames   []string

	noDirectAnswer   bool
	maxReturnedURLs  int
	debugSnapshotDir string
}

// New constructs an Agent with optional configuration.
func New(opts ...Option) *Agent {
	a := &Agent{
		tokenBudget:     defaultTokenBudget,
		maxBadAttempts:  defaultMaxBadAttempts,
		maxReturnedURLs: defaultMaxReturnedURLs,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Answer runs the scheduler loop (spec.md §4.1) for a conversation ending
// in a user turn until a terminal answer is produced or the budget is
// exhausted. Per-step events are drained and discarded; use
// AnswerStreaming to receive them.
func (a *Agent) Answer(ctx context.Context, question string, opts ...AnswerOption) (Result, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Result{}, errors.New("question is empty")
	}
	if a.llm == nil {
		return Result{}, errors.New("llm is not configured")
	}

	var cfg answerConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	store := newStoreAdapter(a.reranker)
	tracker := NewTokenTracker(a.tokenBudget)
	actions := NewActionTracker()
	state := newSchedulerState(question, store, tracker, actions, cfg.priorKnowledge)

	// Nobody outside wants per-step events on this path; drain them so
	// Publish never blocks against a full, unconsumed channel.
	go func() {
		for range actions.Events() {
		}
	}()

	sched := &scheduler{agent: a, state: state, evaluator: evaluator.New(newEvalLLMAdapter(a.llm, tracker))}
	result, err := sched.run(ctx)
	actions.Close()
	return result, err
}

// AnswerStreaming is Answer, but additionally calls onStep for every
// StepEvent the scheduler publishes; internal/server uses this to feed a
// *stream.Channel.
func (a *Agent) AnswerStreaming(ctx context.Context, question string, onStep func(StepEvent), opts ...AnswerOption) (Result, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Result{}, errors.New("question is empty")
	}
	if a.llm == nil {
		return Result{}, errors.New("llm is not configured")
	}

	var cfg answerConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	store := newStoreAdapter(a.reranker)
	tracker := NewTokenTracker(a.tokenBudget)
	actions := NewActionTracker()
	state := newSchedulerState(question, store, tracker, actions, cfg.priorKnowledge)

	if onStep != nil {
		go func() {
			for ev := range actions.Events() {
				onStep(ev)
			}
		}()
	}

	sched := &scheduler{agent: a, state: state, evaluator: evaluator.New(newEvalLLMAdapter(a.llm, tracker))}
	result, err := sched.run(ctx)
	actions.Close()
	return result, err
}
