// Package orchestrator receives task descriptions, scores their
// complexity and routes them to either a single completion or the
// multi-role pipeline. Finished tasks are archived to long-term memory.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/kazz187/devguild/internal/event"
	"github.com/kazz187/devguild/internal/gateway"
	"github.com/kazz187/devguild/internal/memory"
	"github.com/kazz187/devguild/internal/pipeline"
	"github.com/kazz187/devguild/internal/planner"
	"github.com/kazz187/devguild/internal/tool"
	"github.com/kazz187/devguild/internal/tool/dev"
	"github.com/kazz187/devguild/pkg/cerr"
	"github.com/kazz187/devguild/pkg/clog"
)

// Mode selects how a task is executed.
type Mode string

const (
	// ModeAuto picks single or multi from the complexity score.
	ModeAuto   Mode = "auto"
	ModeSingle Mode = "single"
	ModeMulti  Mode = "multi"
)

// Status is the terminal state of a task.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Task is the unit of work the orchestrator tracks.
type Task struct {
	ID          string         `json:"id"`
	Description string         `json:"description"`
	Score       float64        `json:"score"`
	Mode        Mode           `json:"mode"`
	Status      Status         `json:"status"`
	Context     map[string]any `json:"context,omitempty"`
}

// Result is what ExecuteTask hands back. The transcript is populated
// even when the task failed or hit the iteration limit.
type Result struct {
	TaskID     string               `json:"task_id"`
	Answer     string               `json:"answer"`
	Mode       Mode                 `json:"mode"`
	Score      float64              `json:"score"`
	Status     Status               `json:"status"`
	Iterations int                  `json:"iterations"`
	Transcript *pipeline.Transcript `json:"transcript"`
}

// PlanCreator decomposes a task description into a role-annotated plan.
type PlanCreator interface {
	CreatePlan(ctx context.Context, description string, taskContext map[string]any) (*planner.Plan, error)
}

// Runner drives a plan through the role pipeline.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request, plan *planner.Plan) (*pipeline.Outcome, error)
}

// Orchestrator routes tasks. A single value is safe for concurrent
// ExecuteTask calls.
type Orchestrator struct {
	completer gateway.Completer
	planner   PlanCreator
	pipeline  Runner
	registry  *tool.Registry
	memory    *memory.Store
	events    pipeline.Publisher
	logger    *slog.Logger
	options   gateway.Options
	threshold float64
}

type Option func(*Orchestrator)

// WithThreshold overrides the complexity score at which tasks switch
// to multi mode.
func WithThreshold(t float64) Option {
	return func(o *Orchestrator) {
		if t > 0 {
			o.threshold = t
		}
	}
}

func WithMemory(store *memory.Store) Option {
	return func(o *Orchestrator) { o.memory = store }
}

func WithPublisher(pub pipeline.Publisher) Option {
	return func(o *Orchestrator) { o.events = pub }
}

func WithCompletionOptions(opts gateway.Options) Option {
	return func(o *Orchestrator) { o.options = opts }
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

func New(completer gateway.Completer, plans PlanCreator, runner Runner, registry *tool.Registry, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		completer: completer,
		planner:   plans,
		pipeline:  runner,
		registry:  registry,
		logger:    slog.Default(),
		threshold: 7.0,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

func newTaskID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return "T-" + ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// NewTask scores a description, assigns an id and resolves the mode
// without executing anything. The override forces a mode; ModeAuto
// (or "") defers to the complexity score.
func (o *Orchestrator) NewTask(description string, taskContext map[string]any, override Mode) *Task {
	task := &Task{
		ID:          newTaskID(),
		Description: description,
		Score:       AssessComplexity(description),
		Context:     taskContext,
	}
	switch override {
	case ModeSingle, ModeMulti:
		task.Mode = override
	default:
		if task.Score >= o.threshold {
			task.Mode = ModeMulti
		} else {
			task.Mode = ModeSingle
		}
	}
	return task
}

// ExecuteTask runs one task to a terminal state. In single mode the
// task planner is never consulted.
func (o *Orchestrator) ExecuteTask(ctx context.Context, description string, taskContext map[string]any, override Mode) (*Result, error) {
	return o.Execute(ctx, o.NewTask(description, taskContext, override))
}

// Execute runs a prepared task to a terminal state and archives it.
func (o *Orchestrator) Execute(ctx context.Context, task *Task) (*Result, error) {
	ctx = clog.ContextWithSlog(ctx)
	clog.AddTask(ctx, task.ID, string(task.Mode))

	o.publish(ctx, event.TaskCreatedData{TaskID: task.ID, Description: task.Description})
	o.publish(ctx, event.TaskModeSelectedData{TaskID: task.ID, Mode: string(task.Mode), Score: task.Score})
	o.logger.InfoContext(ctx, "task accepted", "score", task.Score)

	var (
		result *Result
		err    error
	)
	if task.Mode == ModeMulti {
		result, err = o.runMulti(ctx, task)
	} else {
		result, err = o.runSingle(ctx, task)
	}

	switch {
	case err == nil:
		task.Status = StatusCompleted
		o.publish(ctx, event.TaskCompletedData{TaskID: task.ID, Mode: string(task.Mode), Iterations: result.Iterations})
	case cerr.IsCode(err, cerr.Canceled):
		task.Status = StatusCancelled
		o.publish(ctx, event.TaskCancelledData{TaskID: task.ID})
	default:
		task.Status = StatusFailed
		o.publish(ctx, event.TaskFailedData{TaskID: task.ID, Reason: err.Error()})
	}
	result.Status = task.Status

	o.archive(task, result)
	return result, err
}

// runSingle answers the task with one completion, optionally primed by
// a direct tool invocation. It never touches the planner.
func (o *Orchestrator) runSingle(ctx context.Context, task *Task) (*Result, error) {
	result := &Result{
		TaskID:     task.ID,
		Mode:       ModeSingle,
		Score:      task.Score,
		Iterations: 1,
		Transcript: &pipeline.Transcript{},
	}
	if err := ctx.Err(); err != nil {
		return result, cerr.NewError(cerr.Canceled, "task cancelled", err)
	}

	toolOutput := ""
	if inv, ok := dev.DecideInvocation(task.Description); ok && o.registry != nil {
		record := pipeline.ToolInvocation{
			Tool:      inv.Tool,
			Params:    inv.Params,
			Iteration: 1,
			At:        time.Now(),
		}
		res, err := o.registry.Execute(ctx, inv.Tool, inv.Params)
		if err != nil {
			record.Error = err.Error()
			o.logger.WarnContext(ctx, "tool invocation failed",
				"tool", inv.Tool, "error", err)
		} else {
			record.Output = res.Output
			toolOutput = res.Output
		}
		result.Transcript.ToolInvocations = append(result.Transcript.ToolInvocations, record)
	}

	prompt := singlePrompt(task, toolOutput, o.recallContext(task.Description))
	answer, err := o.completer.Complete(ctx, prompt, o.options)
	if err != nil {
		return result, err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		answer = toolOutput
	}
	result.Answer = answer
	result.Transcript.Messages = append(result.Transcript.Messages, pipeline.Message{
		Role:      planner.RoleAssistant,
		Content:   answer,
		Iteration: 1,
		At:        time.Now(),
	})
	return result, nil
}

// runMulti plans the task and hands the plan to the role pipeline.
func (o *Orchestrator) runMulti(ctx context.Context, task *Task) (*Result, error) {
	result := &Result{
		TaskID:     task.ID,
		Mode:       ModeMulti,
		Score:      task.Score,
		Transcript: &pipeline.Transcript{},
	}
	plan, err := o.planner.CreatePlan(ctx, task.Description, task.Context)
	if err != nil {
		return result, err
	}
	plan.TaskID = task.ID
	o.publish(ctx, event.PlanCreatedData{TaskID: task.ID, Steps: len(plan.Steps)})

	outcome, err := o.pipeline.Run(ctx, pipeline.Request{
		TaskID:      task.ID,
		Description: task.Description,
		Context:     task.Context,
	}, plan)
	if outcome != nil {
		result.Answer = outcome.Answer
		result.Iterations = outcome.Iterations
		result.Transcript = outcome.Transcript
	}
	return result, err
}

func singlePrompt(task *Task, toolOutput string, recalled string) string {
	var b strings.Builder
	b.WriteString("Answer the following development task directly and concisely.\n")
	fmt.Fprintf(&b, "Task: %s\n", task.Description)
	if len(task.Context) > 0 {
		if data, err := json.Marshal(task.Context); err == nil {
			fmt.Fprintf(&b, "Context: %s\n", data)
		}
	}
	if recalled != "" {
		fmt.Fprintf(&b, "Relevant memory:\n%s", recalled)
	}
	if toolOutput != "" {
		fmt.Fprintf(&b, "Tool result: %s\n", toolOutput)
	}
	return b.String()
}

// recallContext surfaces the top long-term memories matching the task.
func (o *Orchestrator) recallContext(description string) string {
	if o.memory == nil {
		return ""
	}
	hits := o.memory.Search(description, 3)
	if len(hits) == 0 {
		return ""
	}
	var b strings.Builder
	for _, h := range hits {
		fmt.Fprintf(&b, "- %s: %s\n", h.Key, h.Value)
	}
	return b.String()
}

// archive writes the finished task to long-term memory under its id.
// Archival is best effort: a storage failure never changes the task
// outcome.
func (o *Orchestrator) archive(task *Task, result *Result) {
	if o.memory == nil {
		return
	}
	record := struct {
		Task   *Task  `json:"task"`
		Answer string `json:"answer"`
		Iters  int    `json:"iterations"`
	}{Task: task, Answer: result.Answer, Iters: result.Iterations}
	data, err := json.Marshal(record)
	if err != nil {
		o.logger.Warn("task archive marshal failed", "task_id", task.ID, "error", err)
		return
	}
	if err := o.memory.RememberLong(context.Background(), "task:"+task.ID, string(data)); err != nil {
		o.logger.Warn("task archive failed", "task_id", task.ID, "error", err)
	}
}

func (o *Orchestrator) publish(ctx context.Context, data any) {
	if o.events == nil {
		return
	}
	if err := o.events.Publish(ctx, "orchestrator", data); err != nil {
		o.logger.Warn("event publish failed", "error", err)
	}
}
