package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kingpin/v2"

	"github.com/kazz187/devguild/internal/config"
	"github.com/kazz187/devguild/internal/daemon"
	"github.com/kazz187/devguild/internal/memory"
	"github.com/kazz187/devguild/internal/orchestrator"
	"github.com/kazz187/devguild/pkg/clog"
	"github.com/kazz187/devguild/pkg/color"
	"github.com/kazz187/devguild/pkg/sentinel"
)

var (
	app        = kingpin.New("devguild", "LLM development assistant with single and multi-role task execution")
	configPath = app.Flag("config", "Path to the config file").
			Default(filepath.Join(config.DefaultDir, config.DefaultFile)).String()

	serveCmd = app.Command("serve", "Start the HTTP server")

	sentinelCmd = app.Command("sentinel", "Supervise a serve child process and restart it on crash or binary update")

	runCmd     = app.Command("run", "Execute a task and print the result")
	runDesc    = runCmd.Arg("description", "Task description").Required().String()
	runMode    = runCmd.Flag("mode", "Execution mode (auto, single, multi)").Default("auto").Enum("auto", "single", "multi")
	runContext = runCmd.Flag("context", "Task context as key=value").StringMap()
	runVerbose = runCmd.Flag("verbose", "Print the full transcript").Short('v').Bool()

	toolsCmd        = app.Command("tools", "Tool registry commands")
	toolsListCmd    = toolsCmd.Command("list", "List registered tools")
	toolsExecCmd    = toolsCmd.Command("exec", "Execute a tool directly")
	toolsExecName   = toolsExecCmd.Arg("name", "Tool name").Required().String()
	toolsExecParams = toolsExecCmd.Flag("param", "Tool parameter as key=value").StringMap()

	memoryCmd           = app.Command("memory", "Memory store commands")
	memorySearchCmd     = memoryCmd.Command("search", "Search long-term memory")
	memorySearchQuery   = memorySearchCmd.Arg("query", "Search query").Required().String()
	memorySearchLimit   = memorySearchCmd.Flag("limit", "Maximum number of hits").Default("5").Int()
	memoryRememberCmd   = memoryCmd.Command("remember", "Store a value")
	memoryRememberKey   = memoryRememberCmd.Arg("key", "Memory key").Required().String()
	memoryRememberValue = memoryRememberCmd.Arg("value", "Memory value").Required().String()
	memoryRememberTier  = memoryRememberCmd.Flag("tier", "Memory tier (short, long)").Default("long").Enum("short", "long")
	memoryForgetCmd     = memoryCmd.Command("forget", "Remove a key from memory")
	memoryForgetKey     = memoryForgetCmd.Arg("key", "Memory key").Required().String()
	memoryForgetTier    = memoryForgetCmd.Flag("tier", "Memory tier (short, long, both)").Default("both").Enum("short", "long", "both")
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if command == sentinelCmd.FullCommand() {
		// The supervisor needs no config or daemon of its own; the child
		// serve process loads everything.
		sentinel.Run("--config", *configPath, "serve")
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(clog.NewAttributesHandler(
		clog.NewTextHandler(os.Stderr, clog.WithLevel(cfg.SlogLevel())),
	)))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := daemon.New(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	switch command {
	case serveCmd.FullCommand():
		handleServe(ctx, d)
	case runCmd.FullCommand():
		handleRun(ctx, d)
	case toolsListCmd.FullCommand():
		handleToolsList(d)
	case toolsExecCmd.FullCommand():
		handleToolsExec(ctx, d)
	case memorySearchCmd.FullCommand():
		handleMemorySearch(d)
	case memoryRememberCmd.FullCommand():
		handleMemoryRemember(ctx, d)
	case memoryForgetCmd.FullCommand():
		handleMemoryForget(ctx, d)
	}
}

func handleServe(ctx context.Context, d *daemon.Daemon) {
	if err := d.Start(ctx); err != nil {
		if ctx.Err() != nil {
			fmt.Println("\nShutting down...")
			return
		}
		fmt.Fprintf(os.Stderr, "Error running server: %v\n", err)
		os.Exit(1)
	}
}

func handleRun(ctx context.Context, d *daemon.Daemon) {
	d.StartBus(ctx)

	taskContext := map[string]any{}
	for k, v := range *runContext {
		taskContext[k] = v
	}

	result, err := d.Orchestrator().ExecuteTask(ctx, *runDesc, taskContext, orchestrator.Mode(*runMode))
	if result != nil && *runVerbose {
		printTranscript(result)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if result != nil && result.Answer != "" {
			fmt.Printf("\nBest partial answer:\n%s\n", result.Answer)
		}
		os.Exit(1)
	}

	fmt.Printf("%s task %s (%s mode, score %.1f, %d iteration(s))\n",
		color.Colorize("Completed", color.BrightGreen),
		result.TaskID, result.Mode, result.Score, result.Iterations)
	fmt.Println(result.Answer)
}

func printTranscript(result *orchestrator.Result) {
	if result.Transcript == nil {
		return
	}
	for _, msg := range result.Transcript.Messages {
		color.RolePrintln(string(msg.Role), msg.Content)
	}
	for _, inv := range result.Transcript.ToolInvocations {
		label := fmt.Sprintf("tool:%s", inv.Tool)
		if inv.Error != "" {
			color.RolePrintln(label, "error: "+inv.Error)
			continue
		}
		color.RolePrintln(label, inv.Output)
	}
}

func handleToolsList(d *daemon.Daemon) {
	for _, desc := range d.Registry().Discover() {
		fmt.Printf("%s  %s\n", color.Colorize(desc.Name, color.BrightCyan), desc.Description)
		if len(desc.Tags) > 0 {
			fmt.Printf("    tags: %s\n", strings.Join(desc.Tags, ", "))
		}
	}
}

func handleToolsExec(ctx context.Context, d *daemon.Daemon) {
	params := map[string]any{}
	for k, v := range *toolsExecParams {
		params[k] = v
	}
	result, err := d.Registry().Execute(ctx, *toolsExecName, params)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(result.Output)
}

func handleMemorySearch(d *daemon.Daemon) {
	hits := d.Memory().Search(*memorySearchQuery, *memorySearchLimit)
	if len(hits) == 0 {
		fmt.Println("No matches.")
		return
	}
	for _, hit := range hits {
		fmt.Printf("%s (%.3f)\n  %s\n", color.Colorize(hit.Key, color.BrightYellow), hit.Score, hit.Value)
	}
}

func handleMemoryRemember(ctx context.Context, d *daemon.Daemon) {
	if *memoryRememberTier == string(memory.TierShort) {
		d.Memory().RememberShort(*memoryRememberKey, *memoryRememberValue)
	} else {
		if err := d.Memory().RememberLong(ctx, *memoryRememberKey, *memoryRememberValue); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("Stored %s (%s)\n", *memoryRememberKey, *memoryRememberTier)
}

func handleMemoryForget(ctx context.Context, d *daemon.Daemon) {
	tier := memory.Tier(*memoryForgetTier)
	if *memoryForgetTier == "both" {
		tier = ""
	}
	had, err := d.Memory().Forget(ctx, *memoryForgetKey, tier)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if had {
		fmt.Printf("Removed %s\n", *memoryForgetKey)
	} else {
		fmt.Printf("Nothing stored under %s\n", *memoryForgetKey)
	}
}
