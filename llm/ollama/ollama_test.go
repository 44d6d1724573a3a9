package ollama

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
		if !strings.HasSuffix(r.URL.Path, "/api/chat") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"message":           map[string]string{"role": "assistant", "content": "hello"},
			"prompt_eval_count": 5,
			"eval_count":        3,
		})
	}))
	defer ts.Close()

	p := New(ts.URL, "llama-test")
	resp, err := p.Generate(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Text != "hello" {
		t.Errorf("got text %q", resp.Text)
	}
	if resp.Usage.TotalTokens != 8 {
		t.Errorf("got total tokens %d, want 8", resp.Usage.TotalTokens)
	}
}

func TestGenerateObjectRequestsJSONFormat(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Format != "json" {
			t.Errorf("got format %q, want json", req.Format)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"role": "assistant", "content": `{"answer":"42"}`},
		})
	}))
	defer ts.Close()

	p := New(ts.URL, "llama-test")
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

func TestNewDefaultsEndpoint(t *testing.T) {
	p := New("", "llama-test")
	if p.Endpoint != "http://localhost:11434" {
		t.Errorf("got endpoint %q", p.Endpoint)
	}
}

func TestGenerateRetriesOnServiceUnavailable(t *testing.T) {
	attempts := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"role": "assistant", "content": "ok"},
		})
	}))
	defer ts.Close()

	p := New(ts.URL, "llama-test")
	resp, err := p.Generate(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Text != "ok" {
		t.Errorf("got text %q", resp.Text)
	}
}
