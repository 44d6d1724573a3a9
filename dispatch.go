package deepr

import (
	"context"
	"fmt"
)

// dispatch routes a chosen StepAction to its handler, publishes the
// resulting StepEvent, and returns the terminal answer (if this step
// produced one) plus which allow flags the next step should have forced
// off.
func (s *scheduler) dispatch(ctx context.Context, question string, step StepAction, ranked []BoostedURLView) (*StepAction, disableSet, error) {
	s.agent.debugf("dispatch %s: %s", step.Type, step.Think)

	switch step.Type {
	case ActionSearch:
		return s.dispatchSearch(ctx, step)
	case ActionVisit:
		return s.dispatchVisit(ctx, step, ranked)
	case ActionReflect:
		return s.dispatchReflect(ctx, step)
	case ActionAnswer:
		return s.dispatchAnswer(ctx, question, step)
	case ActionCoding:
		return s.dispatchCoding(ctx, step)
	default:
		return nil, disableSet{}, fmt.Errorf("unhandled action type: %s", step.Type)
	}
}

// publishStep records a diary entry and emits a StepEvent; every dispatch
// handler calls this exactly once.
func (s *scheduler) publishStep(step StepAction, narrative string, urls []string, final bool) {
	s.state.Diary = append(s.state.Diary, narrative)
	s.state.ActionTracker.Publish(StepEvent{
		TotalStep: s.state.TotalStep,
		Type:      step.Type,
		Think:     step.Think,
		URLs:      urls,
		Final:     final,
	})
}
