package deepr

// ActionType names one of the five dispatchable step kinds.
type ActionType string

const (
	ActionSearch  ActionType = "search"
	ActionVisit   ActionType = "visit"
	ActionReflect ActionType = "reflect"
	ActionAnswer  ActionType = "answer"
	ActionCoding  ActionType = "coding"
)

// StepAction is a closed tagged union: exactly one of the embedded field
// groups is meaningful, selected by Type. The LLM is only ever asked for
// the union of currently-enabled variants (see buildSchedulerSystemPrompt
// and toStepAction in prompts.go),
// so Type is set by the caller that parses the model's structured output,
// never inferred after the fact.
type StepAction struct {
	Type  ActionType
	Think string

	// ActionSearch
	SearchQueries []string

	// ActionVisit
	VisitIndices []int

	// ActionReflect
	ReflectQuestions []string

	// ActionAnswer
	AnswerText       string
	References       []Reference
	IsFinal          bool
	MarkdownAnswer   string

	// ActionCoding
	CodingIssue string
}
