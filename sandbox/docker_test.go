package sandbox

import (
	"context"
	"testing"

	"github.com/deeprlabs/deepr"
)

type scriptedLLM struct {
	language, code string
}

func (s scriptedLLM) Generate(_ context.Context, _, _ string) (deepr.LLMResponse, error) {
	return deepr.LLMResponse{}, nil
}

func (s scriptedLLM) GenerateObject(_ context.Context, _, _ string, _ any, out any) (deepr.LLMResponse, error) {
	switch v := out.(type) {
	case *codeSchema:
		v.Language = s.language
		v.Code = s.code
	}
	return deepr.LLMResponse{}, nil
}

func TestDockerSolveRunsAuthoredScript(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	llm := scriptedLLM{language: "python", code: `print("42")`}
	d := NewDocker(llm, DefaultPolicy())

	result, err := d.Solve(context.Background(), "what is the answer?", "")
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if result.Output != "42" {
		t.Errorf("Output = %q, want %q", result.Output, "42")
	}
}

func TestDockerSolveRequiresLLM(t *testing.T) {
	d := NewDocker(nil, DefaultPolicy())
	if _, err := d.Solve(context.Background(), "issue", ""); err == nil {
		t.Error("expected error when no LLM is configured")
	}
}
