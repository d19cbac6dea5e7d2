package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// ClaudeCLICompleter runs the claude CLI in print mode, one subprocess per
// completion. This is the default provider: it needs no API key of its own
// and inherits the user's CLI login.
type ClaudeCLICompleter struct {
	binary string
}

type CLIOption func(*ClaudeCLICompleter)

// WithBinary overrides CLI binary discovery.
func WithBinary(path string) CLIOption {
	return func(c *ClaudeCLICompleter) { c.binary = path }
}

func NewClaudeCLICompleter(opts ...CLIOption) *ClaudeCLICompleter {
	c := &ClaudeCLICompleter{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// cliResult is the JSON object the CLI prints with --output-format json.
type cliResult struct {
	Type      string `json:"type"`
	Subtype   string `json:"subtype"`
	IsError   bool   `json:"is_error"`
	Result    string `json:"result"`
	SessionID string `json:"session_id"`
}

func (c *ClaudeCLICompleter) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	binary := c.binary
	if binary == "" {
		found, err := findCLI()
		if err != nil {
			return "", &ProviderError{Retryable: false, Err: err}
		}
		binary = found
	}

	args := []string{"--print", "--output-format", "json", "--max-turns", "1"}
	if opts.Model != "" {
		args = append(args, "--model", opts.Model)
	}

	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Env = append(os.Environ(), "CLAUDE_CODE_ENTRYPOINT=sdk-go")
	cmd.Stdin = bytes.NewReader([]byte(prompt))
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		// A dead or overloaded CLI may succeed on the next attempt.
		return "", &ProviderError{
			Retryable: true,
			Err:       fmt.Errorf("claude CLI failed: %w: %s", err, stderr.String()),
		}
	}

	var result cliResult
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		return "", &ProviderError{
			Retryable: false,
			Err:       fmt.Errorf("failed to parse claude CLI output: %w", err),
		}
	}
	if result.IsError {
		return "", &ProviderError{
			Retryable: false,
			Err:       fmt.Errorf("claude CLI returned error result: %s", result.Result),
		}
	}
	return result.Result, nil
}

// findCLI attempts to locate the claude CLI binary.
func findCLI() (string, error) {
	if path, err := exec.LookPath("claude"); err == nil {
		return path, nil
	}

	commonPaths := []string{
		filepath.Join(os.Getenv("HOME"), ".npm", "bin", "claude"),
		filepath.Join(os.Getenv("HOME"), "node_modules", ".bin", "claude"),
		"/usr/local/bin/claude",
		"/usr/bin/claude",
	}
	for _, path := range commonPaths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", errors.New("claude CLI not found in PATH")
}
