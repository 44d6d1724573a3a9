package mcpsrv

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/deeprlabs/deepr"
)

type fakeLLM struct{ answer string }

func (f fakeLLM) Generate(_ context.Context, _, _ string) (deepr.LLMResponse, error) {
	return deepr.LLMResponse{Text: f.answer}, nil
}

func (f fakeLLM) GenerateObject(_ context.Context, _, _ string, _ any, out any) (deepr.LLMResponse, error) {
	typeName := reflect.TypeOf(out).Elem().Name()
	if typeName == "nextStepSchema" {
		payload := `{"action":"answer","think":"done","answer":"` + f.answer + `"}`
		if err := json.Unmarshal([]byte(payload), out); err != nil {
			return deepr.LLMResponse{}, err
		}
	}
	return deepr.LLMResponse{Usage: deepr.TokenUsage{TotalTokens: 1}}, nil
}

func newTestServer(answer string) *Server {
	agent := deepr.New(deepr.WithLLM(fakeLLM{answer: answer}))
	return New(agent)
}

func textContent(t *testing.T, result *mcplib.CallToolResult) string {
	t.Helper()
	if len(result.Content) != 1 {
		t.Fatalf("got %d content items, want 1", len(result.Content))
	}
	tc, ok := result.Content[0].(mcplib.TextContent)
	if !ok {
		t.Fatalf("content item is %T, want mcplib.TextContent", result.Content[0])
	}
	return tc.Text
}

func TestHandleResearchReturnsAnswer(t *testing.T) {
	s := newTestServer("the final answer")

	req := mcplib.CallToolRequest{}
	req.Params.Arguments = map[string]any{"question": "what is up"}

	result, err := s.handleResearch(context.Background(), req)
	if err != nil {
		t.Fatalf("handleResearch: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", textContent(t, result))
	}

	var payload struct {
		Answer string `json:"answer"`
	}
	if err := json.Unmarshal([]byte(textContent(t, result)), &payload); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if payload.Answer != "the final answer" {
		t.Errorf("got answer %q, want %q", payload.Answer, "the final answer")
	}
}

func TestHandleResearchRequiresQuestion(t *testing.T) {
	s := newTestServer("irrelevant")

	req := mcplib.CallToolRequest{}
	req.Params.Arguments = map[string]any{}

	result, err := s.handleResearch(context.Background(), req)
	if err != nil {
		t.Fatalf("handleResearch: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected an error result when question is missing")
	}
}

func TestNewRegistersResearchTool(t *testing.T) {
	s := newTestServer("irrelevant")
	if s.MCPServer() == nil {
		t.Fatal("expected a non-nil underlying MCP server")
	}
}
