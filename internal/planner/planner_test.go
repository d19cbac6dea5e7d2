package planner

import (
	"context"
	"strings"
	"testing"

	"github.com/kazz187/devguild/internal/gateway"
	"github.com/kazz187/devguild/pkg/cerr"
)

const goodPlanJSON = `{
  "steps": [
    {"id": "step-1", "description": "Research authentication approaches", "domain": "research", "depends_on": []},
    {"id": "step-2", "description": "Design the endpoint contract", "domain": "design", "depends_on": ["step-1"]},
    {"id": "step-3", "description": "Implement the endpoint", "domain": "implementation", "depends_on": ["step-2"]},
    {"id": "step-4", "description": "Review the implementation", "domain": "review", "depends_on": ["step-3"]}
  ]
}`

func TestCreatePlan(t *testing.T) {
	completer := gateway.Script(goodPlanJSON)
	p := New(completer)

	plan, err := p.CreatePlan(context.Background(), "Build a user auth endpoint", nil)
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	if len(plan.Steps) != 4 {
		t.Fatalf("got %d steps", len(plan.Steps))
	}
	wantRoles := []Role{RoleResearcher, RolePlanner, RoleExecutor, RoleCritic}
	for i, want := range wantRoles {
		if plan.Steps[i].Role != want {
			t.Errorf("step %d role = %s, want %s", i+1, plan.Steps[i].Role, want)
		}
		if plan.Steps[i].Status != StepPending {
			t.Errorf("step %d status = %s", i+1, plan.Steps[i].Status)
		}
	}

	prompts := completer.Prompts()
	if len(prompts) != 1 || !strings.Contains(prompts[0], "Build a user auth endpoint") {
		t.Errorf("prompt = %v", prompts)
	}
}

func TestCreatePlanFencedOutput(t *testing.T) {
	answer := "Here is the plan:\n```json\n" + goodPlanJSON + "\n```\nDone."
	p := New(gateway.Script(answer))
	plan, err := p.CreatePlan(context.Background(), "task", nil)
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	if len(plan.Steps) != 4 {
		t.Errorf("got %d steps", len(plan.Steps))
	}
}

func TestCreatePlanFillsMissingIDs(t *testing.T) {
	answer := `{"steps": [
	  {"description": "Investigate the failure", "domain": "research", "depends_on": []},
	  {"description": "Fix and verify it", "domain": "implementation", "depends_on": ["step-1"]}
	]}`
	p := New(gateway.Script(answer))
	plan, err := p.CreatePlan(context.Background(), "task", nil)
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	if plan.Steps[0].ID != "step-1" || plan.Steps[1].ID != "step-2" {
		t.Errorf("ids = %s, %s", plan.Steps[0].ID, plan.Steps[1].ID)
	}
}

func TestCreatePlanRejectsBadOutput(t *testing.T) {
	tests := []struct {
		name   string
		answer string
	}{
		{"no json", "I cannot produce a plan."},
		{"invalid json", "{steps: broken"},
		{"empty steps", `{"steps": []}`},
		{"forward ref", `{"steps": [
			{"id": "a", "description": "x", "depends_on": ["b"]},
			{"id": "b", "description": "y", "depends_on": ["a"]}
		]}`},
		{"unknown dep", `{"steps": [
			{"id": "a", "description": "x", "depends_on": ["ghost"]}
		]}`},
		{"self dep", `{"steps": [
			{"id": "a", "description": "x", "depends_on": ["a"]}
		]}`},
		{"dangling step", `{"steps": [
			{"id": "a", "description": "x", "depends_on": []},
			{"id": "b", "description": "y", "depends_on": []},
			{"id": "c", "description": "z", "depends_on": ["a"]}
		]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(gateway.Script(tt.answer))
			_, err := p.CreatePlan(context.Background(), "task", nil)
			if !cerr.IsCode(err, cerr.FailedPrecondition) {
				t.Errorf("err = %v, want failed_precondition", err)
			}
		})
	}
}

func TestCreatePlanStepLimit(t *testing.T) {
	var sb strings.Builder
	sb.WriteString(`{"steps": [`)
	for i := 1; i <= 4; i++ {
		if i > 1 {
			sb.WriteString(",")
		}
		dep := "[]"
		if i > 1 {
			dep = `["step-` + string(rune('0'+i-1)) + `"]`
		}
		sb.WriteString(`{"id": "step-` + string(rune('0'+i)) + `", "description": "work", "depends_on": ` + dep + `}`)
	}
	sb.WriteString(`]}`)

	p := New(gateway.Script(sb.String()), WithMaxSteps(3))
	_, err := p.CreatePlan(context.Background(), "task", nil)
	if !cerr.IsCode(err, cerr.FailedPrecondition) {
		t.Errorf("err = %v, want failed_precondition", err)
	}
}

func TestValidateAcceptsDiamond(t *testing.T) {
	plan := &Plan{Steps: []Step{
		{ID: "a", Description: "root"},
		{ID: "b", Description: "left", DependsOn: []string{"a"}},
		{ID: "c", Description: "right", DependsOn: []string{"a"}},
		{ID: "d", Description: "join", DependsOn: []string{"b", "c"}},
	}}
	if err := Validate(plan, 15); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestAssignRoleFallsBackToDescription(t *testing.T) {
	tests := []struct {
		desc string
		want Role
	}{
		{"research existing solutions", RoleResearcher},
		{"design the schema layout", RolePlanner},
		{"write the handler code", RoleExecutor},
		{"verify the output is correct", RoleCritic},
	}
	for _, tt := range tests {
		if got := assignRole("", "", tt.desc); got != tt.want {
			t.Errorf("assignRole(%q) = %s, want %s", tt.desc, got, tt.want)
		}
	}
}
