// Package sandbox runs LLM-authored code in a throwaway Docker container
// for the research agent's Coding dispatch.
package sandbox

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Policy constrains what a sandboxed run is allowed to do.
type Policy struct {
	Image   string  `yaml:"image"`
	CPU     float64 `yaml:"cpu"`
	Memory  string  `yaml:"memory"`
	Timeout string  `yaml:"timeout"`
	Network struct {
		Enabled   bool     `yaml:"enabled"`
		Allowlist []string `yaml:"allowlist"`
	} `yaml:"network"`
	EnvAllowlist []string `yaml:"env_allowlist"`
}

// LoadPolicy reads a sandbox policy from a YAML file shaped like:
//
//	sandbox:
//	  cpu: 1
//	  memory: 512m
//	  timeout: 30s
//	  network:
//	    enabled: false
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sandbox: read policy: %w", err)
	}
	var wrapper struct {
		Sandbox Policy `yaml:"sandbox"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("sandbox: parse policy: %w", err)
	}
	return DefaultPolicy().merge(&wrapper.Sandbox), nil
}

// DefaultPolicy returns a conservative baseline: no network, modest
// resources, short timeout.
func DefaultPolicy() *Policy {
	return &Policy{
		CPU:     1,
		Memory:  "512m",
		Timeout: "30s",
	}
}

func (p *Policy) merge(override *Policy) *Policy {
	out := *p
	if override.Image != "" {
		out.Image = override.Image
	}
	if override.CPU > 0 {
		out.CPU = override.CPU
	}
	if override.Memory != "" {
		out.Memory = override.Memory
	}
	if override.Timeout != "" {
		out.Timeout = override.Timeout
	}
	out.Network = override.Network
	if len(override.EnvAllowlist) > 0 {
		out.EnvAllowlist = override.EnvAllowlist
	}
	return &out
}

// TimeoutDuration parses Timeout, falling back to 30s on a bad value.
func (p *Policy) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(p.Timeout))
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}
