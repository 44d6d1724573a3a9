package evaluator

import (
	"context"
	"strings"
)

type definitiveSchema struct {
	Pass  bool   `json:"pass"`
	Think string `json:"think"`
}

const definitiveSystemPrompt = "You judge whether an answer is definitive rather than an evasive 'I don't know'-shaped non-answer. Output {pass, think}."

func (e *Evaluator) checkDefinitive(ctx context.Context, question, answer string) (Verdict, error) {
	var out definitiveSchema
	err := e.llm.GenerateObject(ctx, definitiveSystemPrompt, userPrompt(question, answer), definitiveSchema{}, &out)
	if err != nil {
		return Verdict{}, err
	}
	return Verdict{Pass: out.Pass, Type: Definitive, Think: out.Think}, nil
}

type freshnessSchema struct {
	Pass       bool   `json:"pass"`
	Think      string `json:"think"`
	DaysAgo    int    `json:"days_ago"`
	MaxAgeDays int    `json:"max_age_days"`
}

const freshnessSystemPrompt = "If the question implies recency, judge whether every load-bearing claim has a source no older than the implied time window. If the question does not imply recency, pass. Output {pass, think, days_ago, max_age_days}."

func (e *Evaluator) checkFreshness(ctx context.Context, question, answer string, refs []Reference) (Verdict, error) {
	var out freshnessSchema
	err := e.llm.GenerateObject(ctx, freshnessSystemPrompt, userPromptWithRefs(question, answer, refs), freshnessSchema{}, &out)
	if err != nil {
		return Verdict{}, err
	}
	return Verdict{Pass: out.Pass, Type: Freshness, Think: out.Think, DaysAgo: out.DaysAgo, MaxAgeDays: out.MaxAgeDays}, nil
}

type pluralitySchema struct {
	Pass     bool   `json:"pass"`
	Think    string `json:"think"`
	Required int    `json:"required"`
	Provided int    `json:"provided"`
}

const pluralitySystemPrompt = "If the question asks for N items, judge whether the answer supplies at least N. If the question does not ask for a count, pass. Output {pass, think, required, provided}."

func (e *Evaluator) checkPlurality(ctx context.Context, question, answer string) (Verdict, error) {
	var out pluralitySchema
	err := e.llm.GenerateObject(ctx, pluralitySystemPrompt, userPrompt(question, answer), pluralitySchema{}, &out)
	if err != nil {
		return Verdict{}, err
	}
	return Verdict{Pass: out.Pass, Type: Plurality, Think: out.Think, Required: out.Required, Provided: out.Provided}, nil
}

type completenessSchema struct {
	Pass     bool     `json:"pass"`
	Think    string   `json:"think"`
	Expected []string `json:"expected"`
	Provided []string `json:"provided"`
}

const completenessSystemPrompt = "Judge whether every aspect listed in the question is addressed by the answer. Output {pass, think, expected, provided}."

func (e *Evaluator) checkCompleteness(ctx context.Context, question, answer string) (Verdict, error) {
	var out completenessSchema
	err := e.llm.GenerateObject(ctx, completenessSystemPrompt, userPrompt(question, answer), completenessSchema{}, &out)
	if err != nil {
		return Verdict{}, err
	}
	return Verdict{Pass: out.Pass, Type: Completeness, Think: out.Think, ExpectedList: out.Expected, ProvidedList: out.Provided}, nil
}

type strictSchema struct {
	Pass            bool   `json:"pass"`
	Think           string `json:"think"`
	ImprovementPlan string `json:"improvement_plan"`
}

const strictSystemPrompt = "Perform a catch-all quality review of the answer against the question. If it fails, supply a concrete improvement_plan the writer should follow on the next attempt. Output {pass, think, improvement_plan}."

func (e *Evaluator) checkStrict(ctx context.Context, question, answer string) (Verdict, error) {
	var out strictSchema
	err := e.llm.GenerateObject(ctx, strictSystemPrompt, userPrompt(question, answer), strictSchema{}, &out)
	if err != nil {
		return Verdict{}, err
	}
	return Verdict{Pass: out.Pass, Type: Strict, Think: out.Think, ImprovementPlan: out.ImprovementPlan}, nil
}

// checkAttribution is deliberately not an LLM call: spec defines it as a
// mechanical test ("every factual claim is backed by a reference whose
// exact_quote appears in the fetched page text"), which is a string
// containment check against the cached page text, not a judgement call.
// See DESIGN.md for this decision.
func (e *Evaluator) checkAttribution(ctx context.Context, question, answer string, refs []Reference, knowledge KnowledgeText) (Verdict, error) {
	if len(refs) == 0 {
		return Verdict{Pass: false, Type: Attribution, Think: "answer carries no references to attribute claims to"}, nil
	}
	for _, ref := range refs {
		text, ok := knowledge[ref.URL]
		if !ok || !strings.Contains(text, ref.ExactQuote) {
			return Verdict{
				Pass:  false,
				Type:  Attribution,
				Think: "exact_quote for " + ref.URL + " was not found verbatim in the fetched page text",
			}, nil
		}
	}
	return Verdict{Pass: true, Type: Attribution, Think: "all exact quotes verified against cached page text"}, nil
}

func userPrompt(question, answer string) string {
	return "Question:\n" + question + "\n\nCandidate answer:\n" + answer
}

func userPromptWithRefs(question, answer string, refs []Reference) string {
	var b strings.Builder
	b.WriteString(userPrompt(question, answer))
	b.WriteString("\n\nReferences:\n")
	for _, r := range refs {
		b.WriteString("- ")
		b.WriteString(r.URL)
		b.WriteString(": \"")
		b.WriteString(r.ExactQuote)
		b.WriteString("\"\n")
	}
	return b.String()
}
