package gateway

import (
	"context"
	"errors"
	"fmt"

	claudeagent "github.com/kazz187/claude-agent-sdk-go"
)

// AgentCompleter runs completions through the Claude Agent SDK. Compared to
// the CLI provider it keeps session state and supports tool permissions, but
// model parameters are fixed by the agent environment.
type AgentCompleter struct {
	systemPrompt string
}

type AgentOption func(*AgentCompleter)

func WithSystemPrompt(prompt string) AgentOption {
	return func(c *AgentCompleter) { c.systemPrompt = prompt }
}

func NewAgentCompleter(opts ...AgentOption) *AgentCompleter {
	c := &AgentCompleter{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *AgentCompleter) Complete(ctx context.Context, prompt string, _ Options) (string, error) {
	maxTurns := 1
	agentOpts := &claudeagent.ClaudeAgentOptions{
		MaxTurns: &maxTurns,
	}
	if c.systemPrompt != "" {
		agentOpts.SystemPrompt = c.systemPrompt
	}

	result, err := claudeagent.RunQuerySync(ctx, prompt, agentOpts)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &ProviderError{
			Retryable: true,
			Err:       fmt.Errorf("agent query failed: %w", err),
		}
	}
	if result.Result == nil {
		return "", &ProviderError{
			Retryable: true,
			Err:       errors.New("agent query returned no result message"),
		}
	}
	if result.Result.IsError {
		return "", &ProviderError{
			Retryable: false,
			Err:       fmt.Errorf("agent query returned error result: %s", result.Result.Result),
		}
	}
	return result.Result.Result, nil
}
