package sandbox

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/deeprlabs/deepr"
)

// Docker implements deepr.Sandbox by asking an LLM to author a short
// script addressing the issue, then running it in a throwaway container
// built from Policy.Image (or a language-appropriate default).
type Docker struct {
	LLM    deepr.LLMProvider
	Policy *Policy
}

// NewDocker constructs a container-backed sandbox. policy may be nil, in
// which case DefaultPolicy applies.
func NewDocker(llm deepr.LLMProvider, policy *Policy) *Docker {
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &Docker{LLM: llm, Policy: policy}
}

type codeSchema struct {
	Language string `json:"language"` // "python" or "go"
	Code     string `json:"code"`
}

const codingSystemPrompt = `You write short, self-contained scripts to resolve a concrete question using
the research notes provided. Prefer Python unless the task is clearly
about Go-specific behavior. The script must print its final answer to
stdout and must not require network access or user input. Output
{language, code}.`

// Solve authors and executes a script, returning its source and captured
// stdout/stderr.
func (d *Docker) Solve(ctx context.Context, issue, knowledgeContext string) (deepr.SandboxResult, error) {
	if d.LLM == nil {
		return deepr.SandboxResult{}, fmt.Errorf("sandbox: no LLM configured to author code")
	}

	user := fmt.Sprintf("Issue to resolve:\n%s\n\nRelevant notes:\n%s", issue, knowledgeContext)
	var gen codeSchema
	if _, err := d.LLM.GenerateObject(ctx, codingSystemPrompt, user, codeSchema{}, &gen); err != nil {
		return deepr.SandboxResult{}, fmt.Errorf("sandbox: authoring code: %w", err)
	}
	if strings.TrimSpace(gen.Code) == "" {
		return deepr.SandboxResult{}, fmt.Errorf("sandbox: model returned no code")
	}

	output, err := d.run(ctx, gen.Language, gen.Code)
	if err != nil {
		return deepr.SandboxResult{Code: gen.Code}, err
	}
	return deepr.SandboxResult{Code: gen.Code, Output: output}, nil
}

func (d *Docker) run(ctx context.Context, language, code string) (string, error) {
	image, filename, runCmd := imageFor(language)
	encoded := base64.StdEncoding.EncodeToString([]byte(code))

	req := testcontainers.ContainerRequest{
		Image: pickImage(d.Policy, image),
		Cmd: []string{"sh", "-c", fmt.Sprintf(
			"echo %s | base64 -d > /tmp/%s && %s", encoded, filename, runCmd,
		)},
		WaitingFor: wait.ForExit(),
	}
	if !d.Policy.Network.Enabled {
		req.NetworkMode = "none"
	}

	ctx, cancel := context.WithTimeout(ctx, d.Policy.TimeoutDuration())
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", fmt.Errorf("sandbox: start container: %w", err)
	}
	defer container.Terminate(ctx)

	logsReader, err := container.Logs(ctx)
	if err != nil {
		return "", fmt.Errorf("sandbox: read logs: %w", err)
	}
	defer logsReader.Close()

	logs, err := io.ReadAll(logsReader)
	if err != nil {
		return "", fmt.Errorf("sandbox: drain logs: %w", err)
	}

	return strings.TrimSpace(string(logs)), nil
}

func imageFor(language string) (image, filename, runCmd string) {
	switch strings.ToLower(strings.TrimSpace(language)) {
	case "go", "golang":
		return "golang:1.22-alpine", "main.go", "cd /tmp && go run main.go"
	default:
		return "python:3.12-alpine", "main.py", "python3 /tmp/main.py"
	}
}

func pickImage(policy *Policy, languageDefault string) string {
	if policy != nil && strings.TrimSpace(policy.Image) != "" {
		return policy.Image
	}
	return languageDefault
}
