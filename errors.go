package deepr

import "errors"

var (
	// ErrBudgetExhausted is returned internally when the main loop exits
	// without an accepted answer and the forced-answer terminal also
	// fails; callers should treat this as a fatal request error per §7.
	ErrBudgetExhausted = errors.New("deepr: token budget exhausted without an accepted answer")

	// ErrSchemaRetriesExceeded is wrapped into dispatch/nextStep errors
	// when the LLM never returns a conformant structured output within
	// maxRetries attempts.
	ErrSchemaRetriesExceeded = errors.New("deepr: exceeded schema retries")

	// ErrNoAllowedActions indicates every action was disabled going into
	// a step, which should never happen if the scheduler's gating logic
	// is correct; surfaced rather than silently looping.
	ErrNoAllowedActions = errors.New("deepr: no actions allowed for this step")
)
