// Package ollama implements deepr.LLMProvider against a local or remote
// Ollama server's /api/chat endpoint.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/deeprlabs/deepr"
)

// Provider implements deepr.LLMProvider against Ollama.
type Provider struct {
	Endpoint string // e.g. http://localhost:11434
	Model    string
	Debug    bool

	client *http.Client
}

// New constructs an Ollama provider. endpoint defaults to
// http://localhost:11434 when empty.
func New(endpoint, model string) *Provider {
	if endpoint == "" {
		endpoint = "http://localhost:11434"
	}
	return &Provider{
		Endpoint: endpoint,
		Model:    model,
		client:   &http.Client{Timeout: 10 * time.Minute},
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
	Stream   bool      `json:"stream"`
	Format   string    `json:"format,omitempty"`
}

type chatResponse struct {
	Message message `json:"message"`
	// Ollama reports token counts under these names rather than OpenAI's
	// prompt_tokens/completion_tokens.
	PromptEvalCount int `json:"prompt_eval_count"`
	EvalCount       int `json:"eval_count"`
}

// Generate issues a plain chat completion with no output constraint.
func (p *Provider) Generate(ctx context.Context, systemPrompt, userPrompt string) (deepr.LLMResponse, error) {
	return p.call(ctx, systemPrompt, userPrompt, "")
}

// GenerateObject asks Ollama for JSON output (format: "json") and
// unmarshals the result into out.
func (p *Provider) GenerateObject(ctx context.Context, systemPrompt, userPrompt string, schema any, out any) (deepr.LLMResponse, error) {
	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return deepr.LLMResponse{}, fmt.Errorf("ollama: marshal schema: %w", err)
	}
	sys := systemPrompt + "\n\nRespond with a single JSON object only, matching this shape:\n" + string(schemaJSON)

	resp, err := p.call(ctx, sys, userPrompt, "json")
	if err != nil {
		return deepr.LLMResponse{}, err
	}
	if err := json.Unmarshal([]byte(resp.Text), out); err != nil {
		return deepr.LLMResponse{}, fmt.Errorf("ollama: model response did not match schema: %w", err)
	}
	return resp, nil
}

func (p *Provider) call(ctx context.Context, systemPrompt, userPrompt, format string) (deepr.LLMResponse, error) {
	if p.Debug {
		log.Printf("[DEEPR DEBUG] ollama request (%s)\n[SYSTEM]\n%s\n\n[USER]\n%s", p.Model, systemPrompt, userPrompt)
	}

	url := strings.TrimRight(p.Endpoint, "/") + "/api/chat"
	reqBody := chatRequest{
		Model: p.Model,
		Messages: []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Format: format,
	}

	body, err := doRequestWithRetries(ctx, p.client, url, reqBody)
	if err != nil {
		return deepr.LLMResponse{}, err
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return deepr.LLMResponse{}, fmt.Errorf("ollama: parse response: %w", err)
	}

	text := strings.TrimSpace(parsed.Message.Content)
	if p.Debug {
		log.Printf("[DEEPR DEBUG] ollama response\n%s", text)
	}

	return deepr.LLMResponse{
		Text: text,
		Usage: deepr.TokenUsage{
			PromptTokens:     parsed.PromptEvalCount,
			CompletionTokens: parsed.EvalCount,
			TotalTokens:      parsed.PromptEvalCount + parsed.EvalCount,
		},
	}, nil
}

func doRequestWithRetries(ctx context.Context, client *http.Client, url string, reqBody any) ([]byte, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("ollama: marshal request: %w", err)
	}

	const maxRetries = 5
	baseDelay := 1 * time.Second

	for attempt := 0; attempt <= maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
		if err != nil {
			return nil, fmt.Errorf("ollama: build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("ollama: request failed: %w", err)
		}

		if resp.StatusCode == http.StatusOK {
			body, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			return body, err
		}

		errBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusServiceUnavailable && attempt < maxRetries {
			delay := baseDelay * time.Duration(1<<attempt)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
				continue
			}
		}

		return nil, fmt.Errorf("ollama: http %d: %s", resp.StatusCode, string(errBody))
	}

	return nil, fmt.Errorf("ollama: exceeded retries")
}
