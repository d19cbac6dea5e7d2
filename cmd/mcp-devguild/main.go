package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func main() {
	logger := slog.Default()
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := NewConfig()
	if err != nil {
		logger.ErrorContext(ctx, "failed to create config", "error", err)
		os.Exit(1)
	}

	client := NewDevGuildClient(cfg)

	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "mcp-devguild",
			Title:   "DevGuild MCP Server",
			Version: "v1.0.0",
		},
		&mcp.ServerOptions{
			Instructions: "MCP server for DevGuild task execution. Use devguild_run_task to execute a development task end to end (the orchestrator picks single or multi mode by complexity), devguild_get_task to inspect a submitted task, devguild_list_tools and devguild_execute_tool to work with the capability registry directly, and devguild_search_memory to look up archived results.",
		},
	)

	mcp.AddTool(
		server,
		&mcp.Tool{
			Name:        "devguild_run_task",
			Title:       "DevGuild: Run Task",
			Description: "Execute a development task and wait for its result. Simple tasks get a direct answer; complex tasks run through the researcher, planner, executor and critic roles.",
			InputSchema: RunTaskInputSchema,
		},
		client.RunTaskHandler,
	)

	mcp.AddTool(
		server,
		&mcp.Tool{
			Name:        "devguild_get_task",
			Title:       "DevGuild: Get Task",
			Description: "Get the current state of a submitted task including its mode, complexity score, status and answer.",
			InputSchema: GetTaskInputSchema,
		},
		client.GetTaskHandler,
	)

	mcp.AddTool(
		server,
		&mcp.Tool{
			Name:        "devguild_list_tools",
			Title:       "DevGuild: List Tools",
			Description: "List the registered development tools with their parameter schemas and capability tags.",
			InputSchema: ListToolsInputSchema,
		},
		client.ListToolsHandler,
	)

	mcp.AddTool(
		server,
		&mcp.Tool{
			Name:        "devguild_execute_tool",
			Title:       "DevGuild: Execute Tool",
			Description: "Execute one registered tool directly, bypassing the orchestrator. Parameters are validated against the tool's schema before dispatch.",
			InputSchema: ExecuteToolInputSchema,
		},
		client.ExecuteToolHandler,
	)

	mcp.AddTool(
		server,
		&mcp.Tool{
			Name:        "devguild_search_memory",
			Title:       "DevGuild: Search Memory",
			Description: "Search long-term memory for archived task results and notes.",
			InputSchema: SearchMemoryInputSchema,
		},
		client.SearchMemoryHandler,
	)

	if err := server.Run(ctx, mcp.NewStdioTransport()); err != nil {
		logger.ErrorContext(ctx, "failed to run server", "error", err)
		os.Exit(1)
	}
}
