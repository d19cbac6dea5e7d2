// Package client is the HTTP client for the devguild API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/kazz187/devguild/internal/memory"
	"github.com/kazz187/devguild/internal/orchestrator"
	"github.com/kazz187/devguild/internal/pipeline"
	"github.com/kazz187/devguild/internal/server"
	"github.com/kazz187/devguild/internal/tool"
)

// Client talks to a running devguild server.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type Option func(*Client)

// WithAPIKey sets the X-API-Key header on every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// apiError is the JSON error body the server writes.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		var apiErr apiError
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Message != "" {
			return fmt.Errorf("%s %s: %s (%s)", method, path, apiErr.Message, apiErr.Code)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

// SubmitTask submits a task for background execution and returns its
// initial entry.
func (c *Client) SubmitTask(ctx context.Context, description string, taskContext map[string]any, mode orchestrator.Mode) (*server.Entry, error) {
	req := map[string]any{"description": description}
	if len(taskContext) > 0 {
		req["context"] = taskContext
	}
	if mode != "" && mode != orchestrator.ModeAuto {
		req["mode"] = string(mode)
	}
	var entry server.Entry
	if err := c.do(ctx, http.MethodPost, "/api/tasks", req, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// GetTask returns the current state of a task.
func (c *Client) GetTask(ctx context.Context, id string) (*server.Entry, error) {
	var entry server.Entry
	if err := c.do(ctx, http.MethodGet, "/api/tasks/"+url.PathEscape(id), nil, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListTasks returns all tracked tasks in submission order.
func (c *Client) ListTasks(ctx context.Context) ([]server.Entry, error) {
	var entries []server.Entry
	if err := c.do(ctx, http.MethodGet, "/api/tasks", nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// GetTranscript returns the transcript of a finished task.
func (c *Client) GetTranscript(ctx context.Context, id string) (*pipeline.Transcript, error) {
	var transcript pipeline.Transcript
	if err := c.do(ctx, http.MethodGet, "/api/tasks/"+url.PathEscape(id)+"/transcript", nil, &transcript); err != nil {
		return nil, err
	}
	return &transcript, nil
}

// ListTools returns the registry's tool descriptors.
func (c *Client) ListTools(ctx context.Context) ([]tool.Descriptor, error) {
	var descriptors []tool.Descriptor
	if err := c.do(ctx, http.MethodGet, "/api/tools", nil, &descriptors); err != nil {
		return nil, err
	}
	return descriptors, nil
}

// ExecuteTool runs one tool with the given parameters.
func (c *Client) ExecuteTool(ctx context.Context, name string, params map[string]any) (*tool.Result, error) {
	var result tool.Result
	if err := c.do(ctx, http.MethodPost, "/api/tools/"+url.PathEscape(name), map[string]any{"params": params}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SearchMemory searches long-term memory.
func (c *Client) SearchMemory(ctx context.Context, query string, limit int) ([]memory.SearchHit, error) {
	path := "/api/memory/search?q=" + url.QueryEscape(query)
	if limit > 0 {
		path += "&limit=" + strconv.Itoa(limit)
	}
	var hits []memory.SearchHit
	if err := c.do(ctx, http.MethodGet, path, nil, &hits); err != nil {
		return nil, err
	}
	return hits, nil
}
