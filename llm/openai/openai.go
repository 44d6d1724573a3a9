// Package openai implements deepr.LLMProvider against any server exposing
// an OpenAI-compatible /v1/chat/completions endpoint (OpenAI itself,
// vLLM, LiteLLM, Ollama's /v1 shim, ...).
package openai

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

// Provider implements deepr.LLMProvider.
type Provider struct {
	Endpoint string // base URL, e.g. https://api.openai.com or http://localhost:8000/v1
	Model    string
	APIKey   string // optional; leave empty for keyless servers
	Debug    bool

	client *http.Client
}

// New constructs an OpenAI-compatible provider.
func New(endpoint, model, apiKey string) *Provider {
	return &Provider{
		Endpoint: endpoint,
		Model:    model,
		APIKey:   apiKey,
		client:   &http.Client{Timeout: 10 * time.Minute},
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []message      `json:"messages"`
	Stream         bool           `json:"stream"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
}

type chatChoice struct {
	Message message `json:"message"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Usage   struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Generate issues a plain chat completion with no output constraint.
func (p *Provider) Generate(ctx context.Context, systemPrompt, userPrompt string) (deepr.LLMResponse, error) {
	return p.call(ctx, systemPrompt, userPrompt, nil)
}

// GenerateObject asks the model for a JSON object and unmarshals it into
// out. The schema is described to the model via the system prompt and
// response_format: json_object; the Go struct behind out is still the
// source of truth once it comes back.
func (p *Provider) GenerateObject(ctx context.Context, systemPrompt, userPrompt string, schema any, out any) (deepr.LLMResponse, error) {
	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return deepr.LLMResponse{}, fmt.Errorf("openai: marshal schema: %w", err)
	}
	sys := systemPrompt + "\n\nRespond with a single JSON object only, matching this shape:\n" + string(schemaJSON)

	resp, err := p.call(ctx, sys, userPrompt, map[string]any{"type": "json_object"})
	if err != nil {
		return deepr.LLMResponse{}, err
	}
	if err := json.Unmarshal([]byte(resp.Text), out); err != nil {
		return deepr.LLMResponse{}, fmt.Errorf("openai: model response did not match schema: %w", err)
	}
	return resp, nil
}

func (p *Provider) call(ctx context.Context, systemPrompt, userPrompt string, responseFormat map[string]any) (deepr.LLMResponse, error) {
	if p.Debug {
		log.Printf("[DEEPR DEBUG] openai request (%s)\n[SYSTEM]\n%s\n\n[USER]\n%s", p.Model, systemPrompt, userPrompt)
	}

	url := strings.TrimRight(normalizeEndpoint(p.Endpoint), "/")
	if !strings.HasSuffix(url, "/chat/completions") {
		if !strings.HasSuffix(url, "/v1") {
			url += "/v1"
		}
		url += "/chat/completions"
	}

	reqBody := chatRequest{
		Model: p.Model,
		Messages: []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		ResponseFormat: responseFormat,
	}

	body, err := doRequestWithRetries(ctx, p.client, url, p.APIKey, reqBody)
	if err != nil {
		return deepr.LLMResponse{}, err
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return deepr.LLMResponse{}, fmt.Errorf("openai: parse response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return deepr.LLMResponse{}, fmt.Errorf("openai: response contained no choices")
	}

	text := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if p.Debug {
		log.Printf("[DEEPR DEBUG] openai response\n%s", text)
	}

	return deepr.LLMResponse{
		Text: text,
		Usage: deepr.TokenUsage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		},
	}, nil
}

func normalizeEndpoint(endpoint string) string {
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return "https://" + endpoint
	}
	return endpoint
}

func doRequestWithRetries(ctx context.Context, client *http.Client, url, apiKey string, reqBody any) ([]byte, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("openai: marshal request: %w", err)
	}

	const maxRetries = 5
	baseDelay := 1 * time.Second

	for attempt := 0; attempt <= maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
		if err != nil {
			return nil, fmt.Errorf("openai: build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+apiKey)
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("openai: request failed: %w", err)
		}

		if resp.StatusCode == http.StatusOK {
			body, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			return body, err
		}

		errBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if (resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusGatewayTimeout) && attempt < maxRetries {
			delay := baseDelay * time.Duration(1<<attempt)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
				continue
			}
		}

		return nil, fmt.Errorf("openai: http %d: %s", resp.StatusCode, string(errBody))
	}

	return nil, fmt.Errorf("openai: exceeded retries")
}
