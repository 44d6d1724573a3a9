package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deepr.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func TestLoadAppliesDefaultsWhenFieldsOmitted(t *testing.T) {
	path := writeConfigFile(t, "llm:\n  model: gpt-test\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Model != "gpt-test" {
		t.Errorf("got model %q, want gpt-test", cfg.LLM.Model)
	}
	if cfg.General.TokenBudget != 500_000 {
		t.Errorf("got token budget %d, want default 500000", cfg.General.TokenBudget)
	}
	if cfg.Server.Address != ":8080" {
		t.Errorf("got server address %q, want default :8080", cfg.Server.Address)
	}
	if cfg.Sandbox.DefaultTimeout != time.Minute {
		t.Errorf("got sandbox timeout %v, want default 1m", cfg.Sandbox.DefaultTimeout)
	}
}

func TestLoadOverridesFromEnv(t *testing.T) {
	path := writeConfigFile(t, "llm:\n  model: gpt-test\n")
	t.Setenv("DEEPR_LLM_MODEL", "gpt-from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Model != "gpt-from-env" {
		t.Errorf("got model %q, want env override gpt-from-env", cfg.LLM.Model)
	}
}

func TestLoadRejectsSandboxWithoutPolicyFile(t *testing.T) {
	path := writeConfigFile(t, "sandbox:\n  provider: docker\n")

	if _, err := Load(path); err == nil {
		t.Error("expected error for sandbox.provider set without policy_file")
	}
}

func TestSandboxConfigValidateAllowsDisabledSandbox(t *testing.T) {
	var s SandboxConfig
	if err := s.Validate(); err != nil {
		t.Errorf("expected no error for disabled sandbox, got %v", err)
	}
}

func TestSandboxConfigValidateRequiresPositiveCPU(t *testing.T) {
	s := SandboxConfig{Provider: "docker", PolicyFile: "policy.yaml", DefaultMemory: "512m", DefaultCPU: 0}
	if err := s.Validate(); err == nil {
		t.Error("expected error for non-positive default_cpu")
	}
}
