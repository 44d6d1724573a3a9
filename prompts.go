package deepr

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// maxRetries is how many times the scheduler retries an LLM call that
// returned output violating the requested schema, per spec §4.1 step 6
// and §7 ("retried up to twice").
const maxRetries = 2

// nextStepSchema is the structured-output shape the LLM fills in to
// choose the next step. Only the fields relevant to Action matter; the
// rest are left zero. The system prompt narrows Action's allowed values
// to the currently-enabled actions (schema narrowing at prompt-build
// time, per Design Note "Tagged action variants").
type nextStepSchema struct {
	Action       string            `json:"action"`
	Think        string            `json:"think"`
	Queries      []string          `json:"queries,omitempty"`
	URLIndices   []int             `json:"url_indices,omitempty"`
	SubQuestions []string          `json:"sub_questions,omitempty"`
	AnswerText   string            `json:"answer,omitempty"`
	References   []referenceSchema `json:"references,omitempty"`
	IsFinal      bool              `json:"is_final,omitempty"`
	MDAnswer     string            `json:"md_answer,omitempty"`
	Issue        string            `json:"issue,omitempty"`
}

type referenceSchema struct {
	ExactQuote string `json:"exact_quote"`
	URL        string `json:"url"`
	Title      string `json:"title"`
	DateTime   string `json:"date_time,omitempty"`
}

// nextStep asks the LLM to choose the next action, retrying on schema
// violation up to maxRetries times before giving up.
func (s *scheduler) nextStep(ctx context.Context, question string, ranked []BoostedURLView) (*StepAction, error) {
	sys := buildSchedulerSystemPrompt(s.state.Allow, ranked, s.state.Diary, s.state.Gaps, s.state.AllKeywords)
	user := buildSchedulerUserPrompt(s.state.Knowledge, question)
	s.agent.debugf("next-step prompt\n[SYSTEM]\n%s\n[USER]\n%s", sys, user)
	if dir := s.agent.debugSnapshotDir; dir != "" {
		snap, err := json.MarshalIndent(map[string]any{"step": s.state.TotalStep, "system": sys, "user": user, "schema": nextStepSchema{}, "allow": s.state.Allow}, "", "  ")
		if err == nil && os.MkdirAll(dir, 0o755) == nil {
			if f, err := os.CreateTemp(dir, fmt.Sprintf("step-%03d-*.json", s.state.TotalStep)); err == nil {
				_, _ = f.Write(snap)
				_ = f.Close()
			}
		}
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		var out nextStepSchema
		resp, err := s.agent.llm.GenerateObject(ctx, sys, user, nextStepSchema{}, &out)
		if err != nil {
			lastErr = err
			continue
		}
		s.state.TokenTracker.Add(resp.Usage)
		s.agent.debugf("next-step response: %+v", out)
		action, err := toStepAction(out, s.state.Allow)
		if err != nil {
			lastErr = err
			continue
		}
		return &action, nil
	}
	return nil, fmt.Errorf("%w: %d retries choosing next step: %w", ErrSchemaRetriesExceeded, maxRetries, lastErr)
}

func toStepAction(out nextStepSchema, allow AllowFlags) (StepAction, error) {
	t := ActionType(strings.ToLower(strings.TrimSpace(out.Action)))
	switch t {
	case ActionSearch:
		if !allow.Search {
			return StepAction{}, fmt.Errorf("search is not currently allowed")
		}
		return StepAction{Type: t, Think: out.Think, SearchQueries: out.Queries}, nil
	case ActionVisit:
		if !allow.Visit {
			return StepAction{}, fmt.Errorf("visit is not currently allowed")
		}
		return StepAction{Type: t, Think: out.Think, VisitIndices: out.URLIndices}, nil
	case ActionReflect:
		if !allow.Reflect {
			return StepAction{}, fmt.Errorf("reflect is not currently allowed")
		}
		return StepAction{Type: t, Think: out.Think, ReflectQuestions: out.SubQuestions}, nil
	case ActionAnswer:
		if !allow.Answer {
			return StepAction{}, fmt.Errorf("answer is not currently allowed")
		}
		return StepAction{
			Type:           t,
			Think:          out.Think,
			AnswerText:     out.AnswerText,
			References:     toReferences(out.References),
			IsFinal:        out.IsFinal,
			MarkdownAnswer: out.MDAnswer,
		}, nil
	case ActionCoding:
		if !allow.Coding {
			return StepAction{}, fmt.Errorf("coding is not currently allowed")
		}
		return StepAction{Type: t, Think: out.Think, CodingIssue: out.Issue}, nil
	default:
		return StepAction{}, fmt.Errorf("unknown or disallowed action: %q", out.Action)
	}
}

func toReferences(in []referenceSchema) []Reference {
	out := make([]Reference, 0, len(in))
	for _, r := range in {
		out = append(out, Reference{ExactQuote: r.ExactQuote, URL: r.URL, Title: r.Title})
	}
	return out
}

// buildSchedulerSystemPrompt enumerates only the currently-allowed
// actions, the top ranked URLs (1-based indices, for Visit resolution),
// the diary, and previously failed keywords, per spec §4.1 step 5.
func buildSchedulerSystemPrompt(allow AllowFlags, ranked []BoostedURLView, diary []string, gaps []string, keywords map[string]bool) string {
	var b strings.Builder
	b.WriteString("You are a deep-research agent. At each step choose exactly one action from the currently allowed set below, and always explain your reasoning in \"think\".\n\n")
	b.WriteString("Allowed actions:\n")
	if allow.Search {
		b.WriteString("- search: propose up to 5 web search queries.\n")
	}
	if allow.Visit {
		b.WriteString("- visit: choose 1-based indices from the URL list below to read in full.\n")
	}
	if allow.Reflect {
		b.WriteString("- reflect: propose up to 2 sub-questions that, if answered, would help answer the original question.\n")
	}
	if allow.Answer {
		b.WriteString("- answer: provide a final answer with references; set is_final true only if you are confident it is complete and correct.\n")
	}
	if allow.Coding {
		b.WriteString("- coding: describe a coding issue to hand to a sandboxed interpreter.\n")
	}

	if len(ranked) > 0 {
		b.WriteString("\nKnown URLs (1-based index, score):\n")
		for i, u := range ranked {
			fmt.Fprintf(&b, "%d. %s (score=%.2f) %s\n", i+1, u.URL, u.FinalScore, u.Title)
		}
	}

	if len(gaps) > 0 {
		b.WriteString("\nOpen questions:\n")
		for _, g := range gaps {
			b.WriteString("- ")
			b.WriteString(g)
			b.WriteString("\n")
		}
	}

	if len(keywords) > 0 {
		b.WriteString("\nAlready-tried search keywords (avoid repeating):\n")
		for k := range keywords {
			b.WriteString("- ")
			b.WriteString(k)
			b.WriteString("\n")
		}
	}

	if len(diary) > 0 {
		b.WriteString("\nDiary of prior steps:\n")
		b.WriteString(strings.Join(diary, "\n"))
		b.WriteString("\n")
	}

	return b.String()
}

func buildSchedulerUserPrompt(kb *KnowledgeBase, question string) string {
	var b strings.Builder
	if kb.Len() > 0 {
		b.WriteString("Knowledge gathered so far (Q/A pairs):\n")
		for _, item := range kb.Items() {
			fmt.Fprintf(&b, "Q: %s\nA: %s\n\n", item.Question, item.Answer)
		}
	}
	b.WriteString("Current question:\n")
	b.WriteString(question)
	return b.String()
}

// criteriaSchema is the structured output of the criterion-selection call
// (spec §4.1 step 2).
type criteriaSchema struct {
	Criteria []string `json:"criteria"`
}

const criteriaSelectionSystemPrompt = "Given the question, decide which evaluation criteria apply, from: definitive, freshness, plurality, attribution, completeness. Only include a criterion if it is clearly relevant. Output {criteria: [...]}."

func (s *scheduler) selectCriteriaTypes(question string) []CriterionType {
	var out criteriaSchema
	_, err := s.agent.llm.GenerateObject(context.Background(), criteriaSelectionSystemPrompt, question, criteriaSchema{}, &out)
	if err != nil {
		return nil
	}
	selected := make([]CriterionType, 0, len(out.Criteria))
	for _, c := range out.Criteria {
		switch CriterionType(strings.ToLower(strings.TrimSpace(c))) {
		case CriterionDefinitive, CriterionFreshness, CriterionPlurality, CriterionAttribution, CriterionCompleteness:
			selected = append(selected, CriterionType(strings.ToLower(strings.TrimSpace(c))))
		}
	}
	return selected
}

func (a *Agent) debugf(format string, args ...any) {
	if a.debug {
		fmt.Printf("[DEEPR DEBUG] "+format+"\n", args...)
	}
}
