package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/kazz187/devguild/internal/event"
	"github.com/kazz187/devguild/internal/gateway"
	"github.com/kazz187/devguild/internal/memory"
	"github.com/kazz187/devguild/internal/planner"
	"github.com/kazz187/devguild/internal/tool"
	"github.com/kazz187/devguild/internal/tool/dev"
	"github.com/kazz187/devguild/pkg/cerr"
)

// State is the pipeline's position in its task state machine.
type State string

const (
	StateResearching State = "researching"
	StatePlanning    State = "planning"
	StateExecuting   State = "executing"
	StateCritiquing  State = "critiquing"
	StateRevising    State = "revising"
	StateCompleted   State = "completed"
	StateFailed      State = "failed"
	StateCancelled   State = "cancelled"
)

// approvalSignal is the explicit marker the critic must emit to close a
// task.
const approvalSignal = "APPROVED"

// Publisher receives pipeline lifecycle events. The event bus satisfies
// it; tests pass nil.
type Publisher interface {
	Publish(ctx context.Context, source string, data any) error
}

// Request identifies the task a pipeline run works on.
type Request struct {
	TaskID      string
	Description string
	Context     map[string]any
}

// Outcome is the terminal result of a run. The transcript is always
// populated, including on failure.
type Outcome struct {
	State      State
	Answer     string
	Iterations int
	Transcript *Transcript
}

// Pipeline executes a plan through the four roles. A single Pipeline
// value is safe for concurrent runs: all per-task state lives in the
// run itself.
type Pipeline struct {
	completer     gateway.Completer
	registry      *tool.Registry
	memory        *memory.Store
	events        Publisher
	logger        *slog.Logger
	options       gateway.Options
	maxIterations int
}

type Option func(*Pipeline)

func WithMaxIterations(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxIterations = n
		}
	}
}

func WithMemory(store *memory.Store) Option {
	return func(p *Pipeline) { p.memory = store }
}

func WithPublisher(pub Publisher) Option {
	return func(p *Pipeline) { p.events = pub }
}

func WithCompletionOptions(opts gateway.Options) Option {
	return func(p *Pipeline) { p.options = opts }
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

func New(completer gateway.Completer, registry *tool.Registry, opts ...Option) *Pipeline {
	p := &Pipeline{
		completer:     completer,
		registry:      registry,
		logger:        slog.Default(),
		maxIterations: 10,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// run carries the mutable state of one pipeline execution.
type run struct {
	req        Request
	plan       *planner.Plan
	transcript *Transcript
	context    map[string]any
	iteration  int
	prevAnswer string
}

// Run drives the state machine until the critic approves, the iteration
// budget is exhausted, the context is cancelled, or a role call fails
// permanently. The returned outcome always carries the transcript.
func (p *Pipeline) Run(ctx context.Context, req Request, plan *planner.Plan) (*Outcome, error) {
	if plan == nil || len(plan.Steps) == 0 {
		return nil, cerr.NewError(cerr.InvalidArgument, "plan has no steps", nil)
	}
	r := &run{
		req:        req,
		plan:       plan,
		transcript: &Transcript{},
		context:    map[string]any{},
	}
	for k, v := range req.Context {
		r.context[k] = v
	}

	for r.iteration = 1; r.iteration <= p.maxIterations; r.iteration++ {
		if err := ctx.Err(); err != nil {
			return p.cancelled(ctx, r)
		}
		findings, err := p.research(ctx, r)
		if err != nil {
			return p.failed(r, err)
		}

		if err := ctx.Err(); err != nil {
			return p.cancelled(ctx, r)
		}
		if err := p.sequence(ctx, r, findings); err != nil {
			return p.failed(r, err)
		}

		answer, execErr := p.execute(ctx, r, findings)
		if execErr != nil {
			if cerr.CodeOf(execErr) == cerr.Canceled {
				return p.cancelled(ctx, r)
			}
			return p.failed(r, execErr)
		}

		if err := ctx.Err(); err != nil {
			return p.cancelled(ctx, r)
		}
		approved, feedback, err := p.critique(ctx, r, answer)
		if err != nil {
			return p.failed(r, err)
		}
		if approved {
			if p.events != nil {
				_ = p.events.Publish(ctx, "pipeline", event.CriticApprovedData{TaskID: r.req.TaskID, Iteration: r.iteration})
			}
			return &Outcome{
				State:      StateCompleted,
				Answer:     answer,
				Iterations: r.iteration,
				Transcript: r.transcript,
			}, nil
		}

		p.revise(ctx, r, answer, feedback)
	}

	return &Outcome{
			State:      StateFailed,
			Answer:     r.prevAnswer,
			Iterations: p.maxIterations,
			Transcript: r.transcript,
		}, cerr.NewError(cerr.ResourceExhausted,
			fmt.Sprintf("critic did not approve within %d iterations", p.maxIterations), nil)
}

// research produces the researcher findings. An empty answer fails the
// completeness check and is retried once before proceeding with a
// placeholder.
func (p *Pipeline) research(ctx context.Context, r *run) (string, error) {
	prompt := p.researchPrompt(r)
	for attempt := 0; attempt < 2; attempt++ {
		answer, err := p.completer.Complete(ctx, prompt, p.options)
		if err != nil {
			return "", err
		}
		if findings := strings.TrimSpace(answer); findings != "" {
			r.transcript.addMessage(planner.RoleResearcher, findings, "", r.iteration)
			return findings, nil
		}
	}
	const placeholder = "No findings were produced for this task."
	r.transcript.addMessage(planner.RoleResearcher, placeholder, "", r.iteration)
	return placeholder, nil
}

func (p *Pipeline) researchPrompt(r *run) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are the researcher. Analyze and gather information for: %s\n", r.req.Description)
	if feedback, ok := r.context["critic_feedback"].(string); ok && feedback != "" {
		fmt.Fprintf(&sb, "\nPrevious attempt was rejected with feedback:\n%s\n", feedback)
	}
	if p.memory != nil {
		if hits := p.memory.Search(r.req.Description, 3); len(hits) > 0 {
			sb.WriteString("\nRelated past work:\n")
			for _, hit := range hits {
				fmt.Fprintf(&sb, "- %s: %s\n", hit.Key, hit.Value)
			}
		}
	}
	sb.WriteString("\nReport concrete findings.")
	return sb.String()
}

// sequence is the planning state: the planner role confirms the step
// ordering. The ordering itself comes from the validated plan, so the
// dependency graph, not the model, decides execution order.
func (p *Pipeline) sequence(ctx context.Context, r *run, findings string) error {
	var steps strings.Builder
	for _, step := range r.plan.Steps {
		fmt.Fprintf(&steps, "- %s (%s): %s", step.ID, step.Role, step.Description)
		if len(step.DependsOn) > 0 {
			fmt.Fprintf(&steps, " [after %s]", strings.Join(step.DependsOn, ", "))
		}
		steps.WriteString("\n")
	}
	prompt := fmt.Sprintf(
		"You are the planner. Task: %s\nResearch findings:\n%s\nExecution order:\n%s\nConfirm the strategy for executing these steps in order.",
		r.req.Description, findings, steps.String())

	answer, err := p.completer.Complete(ctx, prompt, p.options)
	if err != nil {
		return err
	}
	r.transcript.addMessage(planner.RolePlanner, strings.TrimSpace(answer), "", r.iteration)
	return nil
}

// execute runs steps in plan order until the first failure. A failed
// step does not abort the run: the remaining steps are not executed and
// the failure goes straight to the critic as evidence. Cancellation is
// honored between steps only.
func (p *Pipeline) execute(ctx context.Context, r *run, findings string) (string, error) {
	results := map[string]string{}
	answer := ""
	var failed *planner.Step

	for i := range r.plan.Steps {
		step := &r.plan.Steps[i]
		if err := ctx.Err(); err != nil {
			return "", cerr.NewError(cerr.Canceled, "task cancelled between steps", err)
		}

		if !p.depsCompleted(r.plan, step) {
			step.Status = planner.StepFailed
			step.Result = "skipped: unmet dependencies"
			failed = step
			break
		}

		step.Status = planner.StepRunning
		toolOutput := p.invokeTool(ctx, r, step)

		output, err := p.executeStep(ctx, r, step, findings, results, toolOutput)
		if err != nil {
			if cerr.CodeOf(err) == cerr.Canceled {
				return "", err
			}
			step.Status = planner.StepFailed
			step.Result = fmt.Sprintf("step failed: %v", err)
			r.transcript.addMessage(step.Role, step.Result, step.ID, r.iteration)
			if p.events != nil {
				_ = p.events.Publish(ctx, "pipeline", event.StepFailedData{TaskID: r.req.TaskID, StepID: step.ID, Reason: err.Error()})
			}
			failed = step
			break
		}

		step.Status = planner.StepCompleted
		step.Result = output
		results[step.ID] = output
		answer = output
		r.transcript.addMessage(step.Role, output, step.ID, r.iteration)
		if p.memory != nil {
			p.memory.RememberShort(fmt.Sprintf("task:%s:step:%s", r.req.TaskID, step.ID), output)
		}
		if p.events != nil {
			_ = p.events.Publish(ctx, "pipeline", event.StepCompletedData{TaskID: r.req.TaskID, StepID: step.ID, Role: string(step.Role)})
		}
	}

	if failed != nil {
		answer = fmt.Sprintf("%s\n\n(step %s failed: %s)", answer, failed.ID, failed.Result)
	}
	return answer, nil
}

func (p *Pipeline) depsCompleted(plan *planner.Plan, step *planner.Step) bool {
	for _, dep := range step.DependsOn {
		d := plan.Step(dep)
		if d == nil || d.Status != planner.StepCompleted {
			return false
		}
	}
	return true
}

// invokeTool runs a capability when the step description maps onto a
// registered tool. Tool errors never propagate: they are recorded in
// the transcript as critic evidence.
func (p *Pipeline) invokeTool(ctx context.Context, r *run, step *planner.Step) string {
	if p.registry == nil {
		return ""
	}
	inv, ok := dev.DecideInvocation(step.Description)
	if !ok {
		return ""
	}

	record := ToolInvocation{
		Tool:      inv.Tool,
		Params:    inv.Params,
		StepID:    step.ID,
		Iteration: r.iteration,
		At:        time.Now(),
	}
	result, err := p.registry.Execute(ctx, inv.Tool, inv.Params)
	if err != nil {
		record.Error = err.Error()
		p.logger.Warn("tool invocation failed",
			"task", r.req.TaskID, "step", step.ID, "tool", inv.Tool, "error", err)
	} else {
		record.Output = result.Output
	}
	r.transcript.ToolInvocations = append(r.transcript.ToolInvocations, record)
	return record.Output
}

func (p *Pipeline) executeStep(ctx context.Context, r *run, step *planner.Step, findings string, results map[string]string, toolOutput string) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are the %s. Task: %s\n", step.Role, r.req.Description)
	fmt.Fprintf(&sb, "Current step %s: %s\n", step.ID, step.Description)
	fmt.Fprintf(&sb, "Research findings:\n%s\n", findings)
	for _, dep := range step.DependsOn {
		if out, ok := results[dep]; ok {
			fmt.Fprintf(&sb, "Result of %s:\n%s\n", dep, out)
		}
	}
	if toolOutput != "" {
		fmt.Fprintf(&sb, "Tool output for this step:\n%s\n", toolOutput)
	}
	sb.WriteString("Produce the result of this step.")

	answer, err := p.completer.Complete(ctx, sb.String(), p.options)
	if err != nil {
		return "", err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" && toolOutput != "" {
		answer = toolOutput
	}
	return answer, nil
}

// critique asks the critic for an explicit verdict. Approval requires
// the approval signal at the start of the reply; anything else is a
// rejection whose text becomes revision feedback.
func (p *Pipeline) critique(ctx context.Context, r *run, answer string) (bool, string, error) {
	var evidence strings.Builder
	for _, inv := range r.transcript.ToolInvocations {
		if inv.Iteration == r.iteration && inv.Error != "" {
			fmt.Fprintf(&evidence, "- tool %s failed on step %s: %s\n", inv.Tool, inv.StepID, inv.Error)
		}
	}
	for _, step := range r.plan.Steps {
		if step.Status == planner.StepFailed {
			fmt.Fprintf(&evidence, "- step %s failed: %s\n", step.ID, step.Result)
		}
	}

	prompt := fmt.Sprintf(
		"You are the critic. Task: %s\nProposed result:\n%s\n%sReply with %q on the first line if the result fully solves the task, otherwise start with \"REJECTED:\" followed by concrete feedback.",
		r.req.Description, answer, evidenceBlock(evidence.String()), approvalSignal)

	reply, err := p.completer.Complete(ctx, prompt, p.options)
	if err != nil {
		return false, "", err
	}
	reply = strings.TrimSpace(reply)
	r.transcript.addMessage(planner.RoleCritic, reply, "", r.iteration)

	if strings.HasPrefix(strings.ToUpper(reply), approvalSignal) {
		return true, "", nil
	}
	feedback := strings.TrimSpace(strings.TrimPrefix(reply, "REJECTED:"))
	if feedback == "" {
		feedback = reply
	}
	return false, feedback, nil
}

func evidenceBlock(evidence string) string {
	if evidence == "" {
		return ""
	}
	return "Failures observed during execution:\n" + evidence
}

// revise records the rejection, diffs the answer against the previous
// iteration's, resets the plan, and feeds the critique into the next
// research pass.
func (p *Pipeline) revise(ctx context.Context, r *run, answer, feedback string) {
	diff := ""
	if r.prevAnswer != "" {
		diff, _ = difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(r.prevAnswer),
			B:        difflib.SplitLines(answer),
			FromFile: fmt.Sprintf("iteration-%d", r.iteration-1),
			ToFile:   fmt.Sprintf("iteration-%d", r.iteration),
			Context:  3,
		})
	}
	r.transcript.Revisions = append(r.transcript.Revisions, Revision{
		Iteration: r.iteration,
		Feedback:  feedback,
		Diff:      diff,
	})
	r.context["critic_feedback"] = feedback
	r.prevAnswer = answer

	for i := range r.plan.Steps {
		r.plan.Steps[i].Status = planner.StepPending
		r.plan.Steps[i].Result = ""
	}

	if p.events != nil {
		_ = p.events.Publish(ctx, "pipeline", event.CriticRejectedData{TaskID: r.req.TaskID, Iteration: r.iteration, Feedback: feedback})
	}
}

func (p *Pipeline) cancelled(ctx context.Context, r *run) (*Outcome, error) {
	outcome := &Outcome{
		State:      StateCancelled,
		Answer:     r.prevAnswer,
		Iterations: r.iteration,
		Transcript: r.transcript,
	}
	return outcome, cerr.NewError(cerr.Canceled, "task cancelled", ctx.Err())
}

func (p *Pipeline) failed(r *run, err error) (*Outcome, error) {
	outcome := &Outcome{
		State:      StateFailed,
		Answer:     r.prevAnswer,
		Iterations: r.iteration,
		Transcript: r.transcript,
	}
	return outcome, err
}
