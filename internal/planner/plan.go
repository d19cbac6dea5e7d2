// Package planner turns a task description into a validated, ordered
// plan of role-assigned steps. The language model proposes the steps;
// everything after that call is deterministic.
package planner

// Role is the pipeline role a step is assigned to.
type Role string

const (
	RoleResearcher Role = "researcher"
	RolePlanner    Role = "planner"
	RoleExecutor   Role = "executor"
	RoleCritic     Role = "critic"

	// RoleAssistant marks single-mode messages that belong to no
	// pipeline role.
	RoleAssistant Role = "assistant"
)

// StepStatus tracks a step through execution.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
)

// Step is one unit of a plan. DependsOn may only name earlier steps.
type Step struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	Role        Role       `json:"role"`
	DependsOn   []string   `json:"depends_on,omitempty"`
	Status      StepStatus `json:"status"`
	Result      string     `json:"result,omitempty"`
}

// Plan is an ordered sequence of steps forming a dependency DAG.
type Plan struct {
	TaskID string `json:"task_id,omitempty"`
	Steps  []Step `json:"steps"`
}

// Step returns the step with the given id, or nil.
func (p *Plan) Step(id string) *Step {
	for i := range p.Steps {
		if p.Steps[i].ID == id {
			return &p.Steps[i]
		}
	}
	return nil
}
