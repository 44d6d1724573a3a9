package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGenerateReturnsTextAndUsage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("got Authorization %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": "hello there"}}},
			"usage":   map[string]int{"prompt_tokens": 10, "completion_tokens": 2, "total_tokens": 12},
		})
	}))
	defer ts.Close()

	p := New(ts.URL, "gpt-test", "test-key")
	resp, err := p.Generate(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Text != "hello there" {
		t.Errorf("got text %q", resp.Text)
	}
	if resp.Usage.TotalTokens != 12 {
		t.Errorf("got total tokens %d, want 12", resp.Usage.TotalTokens)
	}
}

func TestGenerateObjectUnmarshalsIntoOut(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.ResponseFormat["type"] != "json_object" {
			t.Errorf("expected json_object response format, got %v", req.ResponseFormat)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": `{"answer":"42"}`}}},
		})
	}))
	defer ts.Close()

	p := New(ts.URL, "gpt-test", "")
	var out struct {
		Answer string `json:"answer"`
	}
	if _, err := p.GenerateObject(context.Background(), "sys", "user", map[string]string{"answer": "string"}, &out); err != nil {
		t.Fatalf("GenerateObject: %v", err)
	}
	if out.Answer != "42" {
		t.Errorf("got answer %q, want 42", out.Answer)
	}
}

func TestGenerateRetriesOnTooManyRequests(t *testing.T) {
	attempts := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": "ok"}}},
		})
	}))
	defer ts.Close()

	p := New(ts.URL, "gpt-test", "")
	resp, err := p.Generate(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Text != "ok" {
		t.Errorf("got text %q", resp.Text)
	}
	if attempts != 2 {
		t.Errorf("got %d attempts, want 2", attempts)
	}
}

func TestNormalizeEndpointAddsScheme(t *testing.T) {
	if got := normalizeEndpoint("api.example.com"); got != "https://api.example.com" {
		t.Errorf("got %q", got)
	}
	if got := normalizeEndpoint("http://localhost:8000"); got != "http://localhost:8000" {
		t.Errorf("got %q", got)
	}
}
