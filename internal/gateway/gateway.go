// Package gateway is the single boundary through which the runtime talks to
// a language model. Everything above it consumes the Completer interface, so
// tests run against a scripted completer and never reach a provider.
package gateway

import (
	"context"
	"fmt"

	"github.com/kazz187/devguild/internal/config"
	"github.com/kazz187/devguild/pkg/cerr"
)

// Completer produces a completion for a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string, opts Options) (string, error)
}

// Options carries per-request model parameters. Providers honor the fields
// their transport exposes and ignore the rest.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// ProviderError wraps a provider failure. Retryable marks transient faults
// (timeouts, overload) that WithRetry may re-attempt.
type ProviderError struct {
	Retryable bool
	Err       error
}

func (e *ProviderError) Error() string {
	if e.Retryable {
		return fmt.Sprintf("provider error (retryable): %v", e.Err)
	}
	return fmt.Sprintf("provider error: %v", e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Code maps the provider failure into the shared error taxonomy.
func (e *ProviderError) Code() cerr.Code {
	if e.Retryable {
		return cerr.Unavailable
	}
	return cerr.Internal
}

// NewCompleter builds the configured provider wrapped with retry.
func NewCompleter(cfg *config.GatewayConfig) (Completer, error) {
	var c Completer
	switch cfg.Provider {
	case "", "claude":
		c = NewClaudeCLICompleter()
	case "agent":
		c = NewAgentCompleter()
	case "anthropic":
		a, err := NewAnthropicCompleterFromEnv()
		if err != nil {
			return nil, err
		}
		c = a
	default:
		return nil, fmt.Errorf("unknown gateway provider %q", cfg.Provider)
	}
	return WithRetry(c), nil
}
