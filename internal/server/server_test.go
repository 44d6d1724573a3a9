package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/deeprlabs/deepr"
)

// fakeLLM answers any nextStepSchema-shaped query with a direct answer and
// lets every other schema fall back to its zero value, so tests exercise
// the HTTP plumbing without depending on the scheduler's full decision
// logic (an empty criteria list is a legitimate answer, not an error).
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

func TestLastUserMessagePicksLastUserRole(t *testing.T) {
	msgs := []chatMessage{
		{Role: "system", Content: "be helpful"},
		{Role: "user", Content: "first question"},
		{Role: "assistant", Content: "an answer"},
		{Role: "user", Content: "second question"},
	}
	if got := lastUserMessage(msgs); got != "second question" {
		t.Errorf("got %q, want %q", got, "second question")
	}
}

func TestLastUserMessageReturnsEmptyWithNoUserRole(t *testing.T) {
	msgs := []chatMessage{{Role: "system", Content: "be helpful"}}
	if got := lastUserMessage(msgs); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestHealthzReturnsOK(t *testing.T) {
	s := newTestServer("irrelevant")
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rec.Code)
	}
}

func TestChatCompletionsBlockingReturnsAnswer(t *testing.T) {
	s := newTestServer("the final answer")

	body, _ := json.Marshal(chatCompletionRequest{
		Model:    "deepr",
		Messages: []chatMessage{{Role: "user", Content: "what is up"}},
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, body %s", rec.Code, rec.Body.String())
	}

	var resp chatCompletionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Choices) != 1 || resp.Choices[0].Message.Content != "the final answer" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestChatCompletionsRejectsMissingUserMessage(t *testing.T) {
	s := newTestServer("irrelevant")

	body, _ := json.Marshal(chatCompletionRequest{Messages: []chatMessage{{Role: "system", Content: "hi"}}})
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400", rec.Code)
	}
}

func TestChatCompletionsStreamingEmitsDoneMarker(t *testing.T) {
	s := newTestServer("streamed answer")

	body, _ := json.Marshal(chatCompletionRequest{
		Model:    "deepr",
		Messages: []chatMessage{{Role: "user", Content: "what is up"}},
		Stream:   true,
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
		t.Errorf("got content-type %q", ct)
	}

	var sawDone bool
	scanner := bufio.NewScanner(rec.Body)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == "data: [DONE]" {
			sawDone = true
		}
	}
	if !sawDone {
		t.Errorf("expected a data: [DONE] marker in the SSE stream, body:\n%s", rec.Body.String())
	}
}
