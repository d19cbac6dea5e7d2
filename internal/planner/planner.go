package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kazz187/devguild/internal/gateway"
	"github.com/kazz187/devguild/pkg/cerr"
)

// Planner asks the model for a step decomposition and structures the
// answer into a Plan. Given the same model output the result is fully
// deterministic.
type Planner struct {
	completer gateway.Completer
	options   gateway.Options
	maxSteps  int
}

type Option func(*Planner)

// WithOptions sets the completion options used for the planning call.
func WithOptions(opts gateway.Options) Option {
	return func(p *Planner) { p.options = opts }
}

// WithMaxSteps overrides the plan size bound.
func WithMaxSteps(n int) Option {
	return func(p *Planner) {
		if n > 0 {
			p.maxSteps = n
		}
	}
}

func New(completer gateway.Completer, opts ...Option) *Planner {
	p := &Planner{completer: completer, maxSteps: 15}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

const planPrompt = `Decompose the following development task into a numbered plan.

Task: %s
%s
Respond with only a JSON object in this shape:
{
  "steps": [
    {"id": "step-1", "description": "...", "domain": "research|design|implementation|review", "depends_on": []}
  ]
}

Rules:
- At most %d steps.
- depends_on may only reference earlier step ids.
- The final step must consume the results of the preceding work.`

// rawStep is the shape the model is asked for. Role assignment happens
// locally from the domain field.
type rawStep struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	Domain      string   `json:"domain"`
	Role        string   `json:"role"`
	DependsOn   []string `json:"depends_on"`
}

type rawPlan struct {
	Steps []rawStep `json:"steps"`
}

// CreatePlan produces a validated plan for the task description.
// Structural defects in the model output fail with FailedPrecondition.
func (p *Planner) CreatePlan(ctx context.Context, description string, taskContext map[string]any) (*Plan, error) {
	contextBlock := ""
	if len(taskContext) > 0 {
		if data, err := json.Marshal(taskContext); err == nil {
			contextBlock = fmt.Sprintf("Context: %s\n", data)
		}
	}
	prompt := fmt.Sprintf(planPrompt, description, contextBlock, p.maxSteps)

	answer, err := p.completer.Complete(ctx, prompt, p.options)
	if err != nil {
		return nil, err
	}

	raw, err := parseRawPlan(answer)
	if err != nil {
		return nil, err
	}
	plan := structure(raw)
	if err := Validate(plan, p.maxSteps); err != nil {
		return nil, err
	}
	return plan, nil
}

// parseRawPlan extracts the JSON object from the model answer, which
// may arrive inside a fenced code block or with surrounding prose.
func parseRawPlan(answer string) (*rawPlan, error) {
	payload := extractJSON(answer)
	if payload == "" {
		return nil, cerr.NewError(cerr.FailedPrecondition, "plan output contains no JSON object", nil)
	}
	var raw rawPlan
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, cerr.NewError(cerr.FailedPrecondition, "plan output is not valid JSON", err)
	}
	if len(raw.Steps) == 0 {
		return nil, cerr.NewError(cerr.FailedPrecondition, "plan contains no steps", nil)
	}
	return &raw, nil
}

func extractJSON(s string) string {
	if idx := strings.Index(s, "```json"); idx >= 0 {
		rest := s[idx+len("```json"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
	}
	if idx := strings.Index(s, "```"); idx >= 0 {
		rest := s[idx+3:]
		if end := strings.Index(rest, "```"); end >= 0 {
			candidate := strings.TrimSpace(rest[:end])
			if strings.HasPrefix(candidate, "{") {
				return candidate
			}
		}
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return ""
}

// structure normalizes the raw model output: missing ids are filled
// positionally and roles are derived from the declared domain, falling
// back to keywords in the description.
func structure(raw *rawPlan) *Plan {
	plan := &Plan{Steps: make([]Step, 0, len(raw.Steps))}
	for i, rs := range raw.Steps {
		id := strings.TrimSpace(rs.ID)
		if id == "" {
			id = fmt.Sprintf("step-%d", i+1)
		}
		deps := make([]string, 0, len(rs.DependsOn))
		for _, d := range rs.DependsOn {
			if d = strings.TrimSpace(d); d != "" {
				deps = append(deps, d)
			}
		}
		plan.Steps = append(plan.Steps, Step{
			ID:          id,
			Description: strings.TrimSpace(rs.Description),
			Role:        assignRole(rs.Domain, rs.Role, rs.Description),
			DependsOn:   deps,
			Status:      StepPending,
		})
	}
	return plan
}

// assignRole maps a domain label to a pipeline role. An explicit valid
// role wins; otherwise the domain, then description keywords, decide.
func assignRole(domain, role, description string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(role))) {
	case RoleResearcher, RolePlanner, RoleExecutor, RoleCritic:
		return Role(strings.ToLower(strings.TrimSpace(role)))
	}

	switch strings.ToLower(strings.TrimSpace(domain)) {
	case "research", "information", "analysis", "investigation":
		return RoleResearcher
	case "design", "planning", "strategy", "sequencing", "architecture":
		return RolePlanner
	case "implementation", "coding", "development", "build":
		return RoleExecutor
	case "review", "testing", "verification", "validation", "qa":
		return RoleCritic
	}

	lower := strings.ToLower(description)
	switch {
	case containsAny(lower, "research", "investigate", "gather", "analyze", "explore"):
		return RoleResearcher
	case containsAny(lower, "design", "plan ", "outline", "architect"):
		return RolePlanner
	case containsAny(lower, "review", "test", "verify", "validate", "check"):
		return RoleCritic
	default:
		return RoleExecutor
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
