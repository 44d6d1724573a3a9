package deepr

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("github.com/deeprlabs/deepr")

var (
	tokenCounter, _ = meter.Int64Counter(
		"deepr.tokens.total",
		metric.WithDescription("cumulative LLM tokens consumed across all providers"),
	)
	stepCounter, _ = meter.Int64Counter(
		"deepr.steps.total",
		metric.WithDescription("scheduler steps dispatched, labeled by action type"),
	)
)

// TokenTracker accumulates total token usage for a single request and
// answers whether the request is over its budget. The scheduler checks
// Total against 0.85*budget before starting each loop iteration, per the
// reserved-terminal-capacity rule.
type TokenTracker struct {
	mu     sync.Mutex
	budget int
	total  int
}

// NewTokenTracker creates a tracker bounded by budget tokens.
func NewTokenTracker(budget int) *TokenTracker {
	return &TokenTracker{budget: budget}
}

// Add records usage from one LLM call.
func (t *TokenTracker) Add(usage TokenUsage) {
	t.mu.Lock()
	t.total += usage.TotalTokens
	t.mu.Unlock()
	tokenCounter.Add(context.Background(), int64(usage.TotalTokens))
}

// Total returns tokens consumed so far.
func (t *TokenTracker) Total() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// Budget returns the configured budget.
func (t *TokenTracker) Budget() int {
	return t.budget
}

// OverThreshold reports whether Total has crossed frac*budget. The main
// loop in scheduler.run makes the same comparison against 0.85 inline
// rather than calling this method.
func (t *TokenTracker) OverThreshold(frac float64) bool {
	if t.budget <= 0 {
		return false
	}
	return float64(t.Total()) >= frac*float64(t.budget)
}

// StepEvent is published once per dispatched action. The stream package
// subscribes to a channel of these to produce user-visible progress.
type StepEvent struct {
	TotalStep int
	Type      ActionType
	Think     string
	URLs      []string // populated for ActionVisit, emitted as url chunks ahead of think text
	Final     bool      // true exactly once, on the terminal answer
}

// ActionTracker is a single-producer event source: the scheduler publishes
// one StepEvent per dispatch; the stream package is the sole consumer.
// This mirrors Design Note 1 — a channel with one producer and one
// consumer instead of a general pub/sub bus.
type ActionTracker struct {
	events chan StepEvent
	once   sync.Once
}

// NewActionTracker creates a tracker whose channel buffers up to 256
// events, so a slow consumer does not stall the scheduler until that many
// are pending.
func NewActionTracker() *ActionTracker {
	return &ActionTracker{events: make(chan StepEvent, 256)}
}

// Publish sends an event. It blocks while the channel's buffer is full,
// so Events() must be drained by a running consumer (Answer always starts
// one; AnswerStreaming starts one when onStep is non-nil).
func (a *ActionTracker) Publish(ev StepEvent) {
	stepCounter.Add(context.Background(), 1, metric.WithAttributes(attribute.String("action", string(ev.Type))))
	a.events <- ev
}

// Events returns the channel the stream package's consumer reads from.
func (a *ActionTracker) Events() <-chan StepEvent {
	return a.events
}

// Close signals no more events will be published. Must be called exactly
// once, after the terminal StepEvent.
func (a *ActionTracker) Close() {
	a.once.Do(func() { close(a.events) })
}
