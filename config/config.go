// Package config loads deepr's runtime configuration from a YAML/JSON
// file, environment variables, and flag defaults via viper.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the research agent, its server, and
// its sandbox.
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Search    SearchConfig    `mapstructure:"search"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Sandbox   SandboxConfig   `mapstructure:"sandbox"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	MCP       MCPConfig       `mapstructure:"mcp"`
}

// GeneralConfig holds cross-cutting agent settings.
type GeneralConfig struct {
	Debug            bool          `mapstructure:"debug"`
	LogLevel         string        `mapstructure:"log_level"`
	TokenBudget      int           `mapstructure:"token_budget"`
	MaxBadAttempts   int           `mapstructure:"max_bad_attempts"`
	StepSleep        time.Duration `mapstructure:"step_sleep"`
	NoDirectAnswer   bool          `mapstructure:"no_direct_answer"`
	MaxReturnedURLs  int           `mapstructure:"max_returned_urls"`
	DebugSnapshotDir string        `mapstructure:"debug_snapshot_dir"`
}

// ServerConfig configures the HTTP chat-completions server.
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// LLMConfig selects and configures the language-model backend.
type LLMConfig struct {
	Backend  string `mapstructure:"backend"` // "openai" or "ollama"
	Endpoint string `mapstructure:"endpoint"`
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"api_key"`
}

// SearchConfig selects and configures search providers. Multiple
// providers fan out through search.Multi when more than one is enabled.
type SearchConfig struct {
	Providers  []string `mapstructure:"providers"` // subset of "brave","duckduckgo","tavily","serper"
	BraveKey   string   `mapstructure:"brave_key"`
	TavilyKey  string   `mapstructure:"tavily_key"`
	SerperKey  string   `mapstructure:"serper_key"`
}

// FetchConfig selects the page-fetching strategy.
type FetchConfig struct {
	UseBrowser     bool          `mapstructure:"use_browser"` // enable the chromedp slow tier
	BrowserTimeout time.Duration `mapstructure:"browser_timeout"`
}

// SandboxConfig configures the code-execution sandbox.
type SandboxConfig struct {
	Provider       string        `mapstructure:"provider"` // "docker" or "" to disable
	Image          string        `mapstructure:"image"`
	PolicyFile     string        `mapstructure:"policy_file"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
	DefaultCPU     float64       `mapstructure:"default_cpu"`
	DefaultMemory  string        `mapstructure:"default_memory"`
}

// Validate checks sandbox settings are internally consistent.
func (s SandboxConfig) Validate() error {
	if s.Provider == "" {
		return nil
	}
	if strings.TrimSpace(s.PolicyFile) == "" {
		return fmt.Errorf("sandbox.policy_file is required when sandbox.provider is set")
	}
	if s.DefaultCPU <= 0 {
		return fmt.Errorf("sandbox.default_cpu must be greater than zero")
	}
	if strings.TrimSpace(s.DefaultMemory) == "" {
		return fmt.Errorf("sandbox.default_memory is required")
	}
	return nil
}

// TelemetryConfig configures OpenTelemetry tracing and metrics export.
type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	ServiceName  string `mapstructure:"service_name"`
}

// MCPConfig configures the MCP tool server.
type MCPConfig struct {
	Address string `mapstructure:"address"`
}

// Load reads configuration from path (if non-empty) or the default
// search locations, overlaying DEEPR_-prefixed environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("deepr")
	v.SetConfigType("yaml")

	v.SetDefault("general.log_level", "info")
	v.SetDefault("general.token_budget", 500_000)
	v.SetDefault("general.max_bad_attempts", 1)
	v.SetDefault("general.max_returned_urls", 100)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("llm.backend", "openai")
	v.SetDefault("llm.endpoint", "https://api.openai.com")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("search.providers", []string{"duckduckgo"})
	v.SetDefault("sandbox.default_cpu", 1.0)
	v.SetDefault("sandbox.default_memory", "512m")
	v.SetDefault("sandbox.default_timeout", time.Minute)
	v.SetDefault("telemetry.service_name", "deepr")
	v.SetDefault("mcp.address", ":8090")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("DEEPR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && path != "" {
			return nil, fmt.Errorf("config: read %s: %w", filepath.Base(path), err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.Sandbox.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
