package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kazz187/devguild/internal/config"
	"github.com/kazz187/devguild/internal/gateway"
	"github.com/kazz187/devguild/internal/memory"
	"github.com/kazz187/devguild/internal/planner"
	"github.com/kazz187/devguild/internal/tool"
	"github.com/kazz187/devguild/internal/tool/dev"
	"github.com/kazz187/devguild/pkg/cerr"
	"github.com/kazz187/devguild/pkg/storage"
)

func twoStepPlan() *planner.Plan {
	return &planner.Plan{Steps: []planner.Step{
		{ID: "step-1", Description: "Gather requirements for the endpoint", Role: planner.RoleResearcher, Status: planner.StepPending},
		{ID: "step-2", Description: "Write the endpoint handler", Role: planner.RoleExecutor, DependsOn: []string{"step-1"}, Status: planner.StepPending},
	}}
}

func newRegistry(t *testing.T) *tool.Registry {
	t.Helper()
	reg := tool.NewRegistry()
	if err := dev.RegisterAll(reg, nil); err != nil {
		t.Fatal(err)
	}
	return reg
}

func TestRunCompletesOnApproval(t *testing.T) {
	completer := gateway.Script(
		"Findings: the endpoint needs request validation.",
		"Strategy confirmed: execute steps in order.",
		"Requirements gathered.",
		"Handler implemented.",
		"APPROVED",
	)
	p := New(completer, newRegistry(t))

	outcome, err := p.Run(context.Background(), Request{TaskID: "T-1", Description: "Build an endpoint"}, twoStepPlan())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.State != StateCompleted {
		t.Errorf("State = %s", outcome.State)
	}
	if outcome.Answer != "Handler implemented." {
		t.Errorf("Answer = %q", outcome.Answer)
	}
	if outcome.Iterations != 1 {
		t.Errorf("Iterations = %d", outcome.Iterations)
	}

	// Researcher, Planner, Executor and Critic all speak, in that
	// relative order, within the first iteration.
	roles := []planner.Role{}
	for _, m := range outcome.Transcript.Messages {
		roles = append(roles, m.Role)
	}
	wantOrder := []planner.Role{planner.RoleResearcher, planner.RolePlanner, planner.RoleExecutor, planner.RoleCritic}
	idx := 0
	for _, r := range roles {
		if idx < len(wantOrder) && r == wantOrder[idx] {
			idx++
		}
	}
	if idx != len(wantOrder) {
		t.Errorf("role order %v does not contain %v in order", roles, wantOrder)
	}
}

func TestRunFailsAfterExactlyMaxIterations(t *testing.T) {
	completer := gateway.Script("REJECTED: not good enough")
	p := New(completer, newRegistry(t), WithMaxIterations(3))

	outcome, err := p.Run(context.Background(), Request{TaskID: "T-2", Description: "Impossible task"}, twoStepPlan())
	if !cerr.IsCode(err, cerr.ResourceExhausted) {
		t.Fatalf("err = %v, want resource_exhausted", err)
	}
	if outcome.State != StateFailed {
		t.Errorf("State = %s", outcome.State)
	}
	if outcome.Iterations != 3 {
		t.Errorf("Iterations = %d, want 3", outcome.Iterations)
	}

	criticMsgs := outcome.Transcript.MessagesByRole(planner.RoleCritic)
	if len(criticMsgs) != 3 {
		t.Errorf("critic spoke %d times, want 3", len(criticMsgs))
	}
	// research + sequence + 2 steps + critic per iteration.
	if completer.Calls() != 3*5 {
		t.Errorf("model calls = %d, want 15", completer.Calls())
	}
	if len(outcome.Transcript.Revisions) != 3 {
		t.Errorf("revisions = %d, want 3", len(outcome.Transcript.Revisions))
	}
	if outcome.Transcript.Revisions[0].Feedback != "not good enough" {
		t.Errorf("feedback = %q", outcome.Transcript.Revisions[0].Feedback)
	}
}

func TestRunRevisionDiffRecorded(t *testing.T) {
	completer := gateway.NewScriptedCompleter(
		// iteration 1
		gateway.ScriptedResponse{Text: "findings"},
		gateway.ScriptedResponse{Text: "strategy"},
		gateway.ScriptedResponse{Text: "first draft"},
		gateway.ScriptedResponse{Text: "REJECTED: too shallow"},
		// iteration 2
		gateway.ScriptedResponse{Text: "findings again"},
		gateway.ScriptedResponse{Text: "strategy again"},
		gateway.ScriptedResponse{Text: "second draft"},
		gateway.ScriptedResponse{Text: "REJECTED: still shallow"},
		// iteration 3
		gateway.ScriptedResponse{Text: "findings final"},
		gateway.ScriptedResponse{Text: "strategy final"},
		gateway.ScriptedResponse{Text: "final draft"},
		gateway.ScriptedResponse{Text: "APPROVED"},
	)
	plan := &planner.Plan{Steps: []planner.Step{
		{ID: "step-1", Description: "Write the summary", Role: planner.RoleExecutor, Status: planner.StepPending},
	}}
	p := New(completer, newRegistry(t), WithMaxIterations(5))

	outcome, err := p.Run(context.Background(), Request{TaskID: "T-3", Description: "Summarize"}, plan)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.State != StateCompleted || outcome.Iterations != 3 {
		t.Fatalf("outcome = %+v", outcome)
	}
	if len(outcome.Transcript.Revisions) != 2 {
		t.Fatalf("revisions = %d, want 2", len(outcome.Transcript.Revisions))
	}
	// First rejection has no prior answer to diff against.
	if outcome.Transcript.Revisions[0].Diff != "" {
		t.Errorf("first revision diff should be empty, got %q", outcome.Transcript.Revisions[0].Diff)
	}
	diff := outcome.Transcript.Revisions[1].Diff
	if !strings.Contains(diff, "-first draft") || !strings.Contains(diff, "+second draft") {
		t.Errorf("diff does not show the answer change:\n%s", diff)
	}
}

func TestRunRecordsToolInvocation(t *testing.T) {
	completer := gateway.Script(
		"findings",
		"strategy",
		"The result of the calculation is 42.",
		"APPROVED",
	)
	plan := &planner.Plan{Steps: []planner.Step{
		{ID: "step-1", Description: "Calculate 6 * 7", Role: planner.RoleExecutor, Status: planner.StepPending},
	}}
	p := New(completer, newRegistry(t))

	outcome, err := p.Run(context.Background(), Request{TaskID: "T-4", Description: "Calculate 6 * 7"}, plan)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(outcome.Transcript.ToolInvocations) != 1 {
		t.Fatalf("tool invocations = %d, want 1", len(outcome.Transcript.ToolInvocations))
	}
	inv := outcome.Transcript.ToolInvocations[0]
	if inv.Tool != "calculator" || inv.Output != "42" || inv.Error != "" {
		t.Errorf("invocation = %+v", inv)
	}
}

func TestRunToolErrorIsEvidenceNotFailure(t *testing.T) {
	completer := gateway.Script(
		"findings",
		"strategy",
		"Division by zero is undefined.",
		"APPROVED",
	)
	plan := &planner.Plan{Steps: []planner.Step{
		{ID: "step-1", Description: "Calculate 1 / 0", Role: planner.RoleExecutor, Status: planner.StepPending},
	}}
	p := New(completer, newRegistry(t))

	outcome, err := p.Run(context.Background(), Request{TaskID: "T-5", Description: "Calculate 1 / 0"}, plan)
	if err != nil {
		t.Fatalf("tool error must not fail the run: %v", err)
	}
	if len(outcome.Transcript.ToolInvocations) != 1 {
		t.Fatalf("tool invocations = %d, want 1", len(outcome.Transcript.ToolInvocations))
	}
	if outcome.Transcript.ToolInvocations[0].Error == "" {
		t.Error("expected tool error to be recorded")
	}
	if outcome.State != StateCompleted {
		t.Errorf("State = %s", outcome.State)
	}
}

func TestRunStopsExecutingAfterFailedStep(t *testing.T) {
	completer := gateway.NewScriptedCompleter(
		gateway.ScriptedResponse{Text: "findings"},
		gateway.ScriptedResponse{Text: "strategy"},
		gateway.ScriptedResponse{Err: &gateway.ProviderError{Retryable: false, Err: errors.New("model refused")}},
		gateway.ScriptedResponse{Text: "APPROVED"},
	)
	// step-2 does not depend on step-1, so only the failure transition
	// keeps it from running.
	plan := &planner.Plan{Steps: []planner.Step{
		{ID: "step-1", Description: "Gather requirements", Role: planner.RoleResearcher, Status: planner.StepPending},
		{ID: "step-2", Description: "Draft the module", Role: planner.RoleExecutor, Status: planner.StepPending},
		{ID: "step-3", Description: "Review the draft", Role: planner.RoleCritic, DependsOn: []string{"step-2"}, Status: planner.StepPending},
	}}
	p := New(completer, newRegistry(t))

	outcome, err := p.Run(context.Background(), Request{TaskID: "T-8", Description: "Build the module"}, plan)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if plan.Steps[0].Status != planner.StepFailed {
		t.Errorf("step-1 status = %s, want failed", plan.Steps[0].Status)
	}
	for _, s := range plan.Steps[1:] {
		if s.Status != planner.StepPending {
			t.Errorf("%s status = %s, steps after a failure must not run", s.ID, s.Status)
		}
	}
	// Research, planning, the failed step, then the critic: no
	// completions for the remaining steps.
	if got := completer.Calls(); got != 4 {
		t.Errorf("gateway calls = %d, want 4", got)
	}
	if !strings.Contains(outcome.Answer, "step-1 failed") {
		t.Errorf("Answer = %q, want the failure flagged", outcome.Answer)
	}
}

func TestRunRejectsEmptyPlan(t *testing.T) {
	p := New(gateway.Script("x"), newRegistry(t))

	if _, err := p.Run(context.Background(), Request{TaskID: "T-9", Description: "task"}, &planner.Plan{}); !cerr.IsCode(err, cerr.InvalidArgument) {
		t.Fatalf("empty plan: err = %v, want invalid argument", err)
	}
	if _, err := p.Run(context.Background(), Request{TaskID: "T-9", Description: "task"}, nil); !cerr.IsCode(err, cerr.InvalidArgument) {
		t.Fatalf("nil plan: err = %v, want invalid argument", err)
	}
}

func TestRunCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(gateway.Script("x"), newRegistry(t))
	outcome, err := p.Run(ctx, Request{TaskID: "T-6", Description: "whatever"}, twoStepPlan())
	if !cerr.IsCode(err, cerr.Canceled) {
		t.Fatalf("err = %v, want canceled", err)
	}
	if outcome.State != StateCancelled {
		t.Errorf("State = %s", outcome.State)
	}
}

func TestRunPermanentProviderErrorFailsTask(t *testing.T) {
	completer := gateway.NewScriptedCompleter(
		gateway.ScriptedResponse{Err: &gateway.ProviderError{Retryable: false, Err: context.DeadlineExceeded}},
	)
	p := New(completer, newRegistry(t))

	outcome, err := p.Run(context.Background(), Request{TaskID: "T-7", Description: "task"}, twoStepPlan())
	if err == nil {
		t.Fatal("expected error")
	}
	if outcome.State != StateFailed {
		t.Errorf("State = %s", outcome.State)
	}
	if outcome.Transcript == nil {
		t.Error("transcript must be attached on failure")
	}
}

func TestRunWritesStepResultsToMemory(t *testing.T) {
	st, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	store, err := memory.NewStore(context.Background(), config.MemoryConfig{ShortCapacity: 10, ShortTTLSeconds: 3600}, st)
	if err != nil {
		t.Fatal(err)
	}

	completer := gateway.Script("findings", "strategy", "done step one", "done step two", "APPROVED")
	p := New(completer, newRegistry(t), WithMemory(store))

	if _, err := p.Run(context.Background(), Request{TaskID: "T-8", Description: "two step task"}, twoStepPlan()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	item, err := store.Recall(context.Background(), "task:T-8:step:step-2", memory.TierShort)
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	if item.Value != "done step two" {
		t.Errorf("remembered value = %q", item.Value)
	}
}
