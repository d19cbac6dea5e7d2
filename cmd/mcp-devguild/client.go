package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kazz187/devguild/internal/client"
	"github.com/kazz187/devguild/internal/orchestrator"
	"github.com/kazz187/devguild/internal/server"
)

const pollInterval = 500 * time.Millisecond

type DevGuildClient struct {
	client *client.Client
}

func NewDevGuildClient(cfg *Config) *DevGuildClient {
	var opts []client.Option
	if cfg.APIKey != "" {
		opts = append(opts, client.WithAPIKey(cfg.APIKey))
	}
	return &DevGuildClient{
		client: client.New(cfg.DevGuildAddr, opts...),
	}
}

func textResult(v any) *mcp.CallToolResultFor[any] {
	jsonData, _ := json.MarshalIndent(v, "", "  ")
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonData)},
		},
	}
}

func errorResult(format string, args ...any) *mcp.CallToolResultFor[any] {
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(format, args...)},
		},
	}
}

// RunTaskHandler submits a task and polls until it reaches a terminal
// state, then returns the full entry.
func (c *DevGuildClient) RunTaskHandler(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[RunTaskInput]) (*mcp.CallToolResultFor[any], error) {
	req := params.Arguments
	taskContext := map[string]any{}
	for k, v := range req.Context {
		taskContext[k] = v
	}

	entry, err := c.client.SubmitTask(ctx, req.Description, taskContext, orchestrator.Mode(req.Mode))
	if err != nil {
		return errorResult("Error submitting task: %v", err), nil
	}

	id := entry.Task.ID
	entry, err = c.waitForTask(ctx, id)
	if err != nil {
		return errorResult("Error waiting for task %s: %v", id, err), nil
	}
	return textResult(entryToMap(entry)), nil
}

func (c *DevGuildClient) waitForTask(ctx context.Context, id string) (*server.Entry, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		entry, err := c.client.GetTask(ctx, id)
		if err != nil {
			return nil, err
		}
		if !entry.Running {
			return entry, nil
		}
		select {
		case <-ctx.Done():
			return entry, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *DevGuildClient) GetTaskHandler(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[GetTaskInput]) (*mcp.CallToolResultFor[any], error) {
	entry, err := c.client.GetTask(ctx, params.Arguments.ID)
	if err != nil {
		return errorResult("Error getting task: %v", err), nil
	}
	return textResult(entryToMap(entry)), nil
}

func (c *DevGuildClient) ListToolsHandler(ctx context.Context, _ *mcp.ServerSession, _ *mcp.CallToolParamsFor[struct{}]) (*mcp.CallToolResultFor[any], error) {
	descriptors, err := c.client.ListTools(ctx)
	if err != nil {
		return errorResult("Error listing tools: %v", err), nil
	}
	return textResult(map[string]any{"tools": descriptors}), nil
}

func (c *DevGuildClient) ExecuteToolHandler(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[ExecuteToolInput]) (*mcp.CallToolResultFor[any], error) {
	result, err := c.client.ExecuteTool(ctx, params.Arguments.Name, params.Arguments.Params)
	if err != nil {
		return errorResult("Error executing tool: %v", err), nil
	}
	return textResult(result), nil
}

func (c *DevGuildClient) SearchMemoryHandler(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[SearchMemoryInput]) (*mcp.CallToolResultFor[any], error) {
	hits, err := c.client.SearchMemory(ctx, params.Arguments.Query, params.Arguments.Limit)
	if err != nil {
		return errorResult("Error searching memory: %v", err), nil
	}
	return textResult(map[string]any{"hits": hits}), nil
}

func entryToMap(entry *server.Entry) map[string]any {
	out := map[string]any{
		"id":          entry.Task.ID,
		"description": entry.Task.Description,
		"mode":        entry.Task.Mode,
		"score":       entry.Task.Score,
		"running":     entry.Running,
	}
	if entry.Error != "" {
		out["error"] = entry.Error
	}
	if entry.Result != nil {
		out["status"] = entry.Result.Status
		out["answer"] = entry.Result.Answer
		out["iterations"] = entry.Result.Iterations
	}
	return out
}
