package deepr

import (
	"context"
	"fmt"
	"strings"
)

// dispatchReflect implements spec §4.1.4: dedup proposed sub-questions
// against AllQuestions, cap, push survivors onto Gaps, disable reflect
// for the next step.
func (s *scheduler) dispatchReflect(ctx context.Context, step StepAction) (*StepAction, disableSet, error) {
	survivors := make([]string, 0, len(step.ReflectQuestions))
	for _, q := range step.ReflectQuestions {
		q = strings.TrimSpace(q)
		if q == "" || s.state.AllQuestions[q] {
			continue
		}
		survivors = append(survivors, q)
		if len(survivors) >= defaultMaxReflectPerStep {
			break
		}
	}

	if len(survivors) == 0 {
		s.publishStep(step, "reflect: no novel sub-questions; thinking differently", nil, false)
		return nil, disableSet{Reflect: true}, nil
	}

	for _, q := range survivors {
		s.state.Gaps = append(s.state.Gaps, q)
		s.state.AllQuestions[q] = true
	}

	s.publishStep(step, fmt.Sprintf("reflected: added %d sub-questions", len(survivors)), nil, false)
	return nil, disableSet{Reflect: true}, nil
}
