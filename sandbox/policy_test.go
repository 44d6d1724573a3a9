package sandbox

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadPolicyMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	contents := `
sandbox:
  image: python:3.12-slim
  cpu: 2
  network:
    enabled: true
    allowlist:
      - pypi.org
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write policy: %v", err)
	}

	policy, err := LoadPolicy(path)
	if err != nil {
		t.Fatalf("LoadPolicy: %v", err)
	}

	if policy.Image != "python:3.12-slim" {
		t.Errorf("image = %q, want override", policy.Image)
	}
	if policy.CPU != 2 {
		t.Errorf("cpu = %v, want 2 (overridden)", policy.CPU)
	}
	if policy.Memory != "512m" {
		t.Errorf("memory = %q, want default preserved", policy.Memory)
	}
	if !policy.Network.Enabled || len(policy.Network.Allowlist) != 1 {
		t.Errorf("network = %+v, want enabled with one allowlist entry", policy.Network)
	}
}

func TestTimeoutDurationFallsBackOnBadValue(t *testing.T) {
	p := &Policy{Timeout: "not-a-duration"}
	if got := p.TimeoutDuration(); got != 30*time.Second {
		t.Errorf("TimeoutDuration() = %v, want 30s fallback", got)
	}

	p.Timeout = "5s"
	if got := p.TimeoutDuration(); got != 5*time.Second {
		t.Errorf("TimeoutDuration() = %v, want 5s", got)
	}
}
