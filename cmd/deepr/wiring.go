package main

import (
	"context"
	"fmt"
	"time"

	"github.com/deeprlabs/deepr"
	"github.com/deeprlabs/deepr/config"
	"github.com/deeprlabs/deepr/fetch"
	"github.com/deeprlabs/deepr/llm/ollama"
	"github.com/deeprlabs/deepr/llm/openai"
	"github.com/deeprlabs/deepr/sandbox"
	"github.com/deeprlabs/deepr/search"
	"github.com/deeprlabs/deepr/telemetry"
)

// buildAgent wires an Agent's collaborators from cfg, returning a
// shutdown func that flushes telemetry.
func buildAgent(cfg *config.Config) (*deepr.Agent, telemetry.Shutdown, error) {
	otlpEndpoint := ""
	if cfg.Telemetry.Enabled {
		otlpEndpoint = cfg.Telemetry.OTLPEndpoint
	}
	shutdown, err := telemetry.Init(context.Background(), otlpEndpoint, cfg.Telemetry.ServiceName, "dev", true)
	if err != nil {
		return nil, nil, fmt.Errorf("telemetry init: %w", err)
	}

	llm, err := buildLLM(cfg)
	if err != nil {
		return nil, nil, err
	}

	opts := []deepr.Option{
		deepr.WithLLM(llm),
		deepr.WithSearchProvider(buildSearch(cfg)),
		deepr.WithFetchProvider(buildFetch(cfg)),
		deepr.WithTokenBudget(cfg.General.TokenBudget),
		deepr.WithMaxBadAttempts(cfg.General.MaxBadAttempts),
		deepr.WithDebug(cfg.General.Debug),
		deepr.WithNoDirectAnswer(cfg.General.NoDirectAnswer),
		deepr.WithMaxReturnedURLs(cfg.General.MaxReturnedURLs),
	}
	if cfg.General.StepSleep > 0 {
		opts = append(opts, deepr.WithStepSleep(cfg.General.StepSleep))
	}
	if cfg.General.DebugSnapshotDir != "" {
		opts = append(opts, deepr.WithDebugSnapshotDir(cfg.General.DebugSnapshotDir))
	}
	if box := buildSandbox(cfg, llm); box != nil {
		opts = append(opts, deepr.WithSandbox(box))
	}

	return deepr.New(opts...), shutdown, nil
}

func buildLLM(cfg *config.Config) (deepr.LLMProvider, error) {
	switch cfg.LLM.Backend {
	case "ollama":
		return ollama.New(cfg.LLM.Endpoint, cfg.LLM.Model), nil
	case "openai", "":
		return openai.New(cfg.LLM.Endpoint, cfg.LLM.Model, cfg.LLM.APIKey), nil
	default:
		return nil, fmt.Errorf("unknown llm backend %q", cfg.LLM.Backend)
	}
}

func buildSearch(cfg *config.Config) deepr.SearchProvider {
	var providers []deepr.SearchProvider
	for _, name := range cfg.Search.Providers {
		switch name {
		case "brave":
			if cfg.Search.BraveKey != "" {
				providers = append(providers, search.NewBrave(cfg.Search.BraveKey))
			}
		case "tavily":
			if cfg.Search.TavilyKey != "" {
				providers = append(providers, search.NewTavily(cfg.Search.TavilyKey, "basic"))
			}
		case "serper":
			if cfg.Search.SerperKey != "" {
				providers = append(providers, search.NewSerper(cfg.Search.SerperKey))
			}
		case "duckduckgo", "":
			providers = append(providers, search.NewDuckDuckGo())
		}
	}
	if len(providers) == 0 {
		return search.NewDuckDuckGo()
	}
	if len(providers) == 1 {
		return providers[0]
	}
	return search.NewMulti(providers...)
}

func buildFetch(cfg *config.Config) deepr.FetchProvider {
	fast := fetch.NewReadability()
	if !cfg.Fetch.UseBrowser {
		return fast
	}
	timeout := cfg.Fetch.BrowserTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return fetch.NewAuto(fast, fetch.NewChromeDP(timeout))
}

func buildSandbox(cfg *config.Config, llm deepr.LLMProvider) deepr.Sandbox {
	if cfg.Sandbox.Provider != "docker" {
		return nil
	}
	policy := sandbox.DefaultPolicy()
	if cfg.Sandbox.PolicyFile != "" {
		if loaded, err := sandbox.LoadPolicy(cfg.Sandbox.PolicyFile); err == nil {
			policy = loaded
		}
	}
	if cfg.Sandbox.Image != "" {
		policy.Image = cfg.Sandbox.Image
	}
	return sandbox.NewDocker(llm, policy)
}
