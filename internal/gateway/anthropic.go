package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	anthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion = "2023-06-01"

	defaultAnthropicModel = "claude-sonnet-4-5"
	defaultMaxTokens      = 4096
)

// AnthropicCompleter talks to the Anthropic Messages API directly. It is the
// only provider that honors every Options field.
type AnthropicCompleter struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

type AnthropicOption func(*AnthropicCompleter)

func WithBaseURL(url string) AnthropicOption {
	return func(c *AnthropicCompleter) { c.baseURL = strings.TrimSuffix(url, "/") }
}

func WithHTTPClient(client *http.Client) AnthropicOption {
	return func(c *AnthropicCompleter) { c.httpClient = client }
}

func NewAnthropicCompleter(apiKey string, opts ...AnthropicOption) *AnthropicCompleter {
	c := &AnthropicCompleter{
		apiKey:  apiKey,
		baseURL: anthropicBaseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewAnthropicCompleterFromEnv reads the API key from ANTHROPIC_API_KEY.
func NewAnthropicCompleterFromEnv(opts ...AnthropicOption) (*AnthropicCompleter, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY is not set")
	}
	return NewAnthropicCompleter(apiKey, opts...), nil
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float64           `json:"temperature,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *AnthropicCompleter) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	model := opts.Model
	if model == "" {
		model = defaultAnthropicModel
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	reqBody := anthropicRequest{
		Model:     model,
		MaxTokens: maxTokens,
		Messages: []anthropicMessage{
			{Role: "user", Content: prompt},
		},
	}
	if opts.Temperature > 0 {
		reqBody.Temperature = &opts.Temperature
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", &ProviderError{Retryable: false, Err: fmt.Errorf("failed to encode request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return "", &ProviderError{Retryable: false, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &ProviderError{Retryable: true, Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ProviderError{Retryable: true, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return "", &ProviderError{
			Retryable: retryable,
			Err:       fmt.Errorf("anthropic API status %d: %s", resp.StatusCode, truncate(string(body), 200)),
		}
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &ProviderError{Retryable: false, Err: fmt.Errorf("failed to parse response: %w", err)}
	}
	if parsed.Error != nil {
		return "", &ProviderError{
			Retryable: false,
			Err:       fmt.Errorf("anthropic API error %s: %s", parsed.Error.Type, parsed.Error.Message),
		}
	}

	var sb strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", &ProviderError{Retryable: false, Err: errors.New("anthropic API returned no text content")}
	}
	return sb.String(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
