package planner

import (
	"fmt"

	"github.com/kazz187/devguild/pkg/cerr"
)

// Validate checks the plan's structure: size bound, unique ids, and a
// dependency graph where every dependency points at an earlier step,
// no step depends on itself, no cycle exists, and every step except
// the final one feeds a later step.
func Validate(plan *Plan, maxSteps int) error {
	if len(plan.Steps) == 0 {
		return invalidPlan("plan contains no steps", nil)
	}
	if maxSteps > 0 && len(plan.Steps) > maxSteps {
		return invalidPlan(fmt.Sprintf("plan has %d steps, limit is %d", len(plan.Steps), maxSteps), nil)
	}

	position := map[string]int{}
	for i, step := range plan.Steps {
		if step.ID == "" {
			return invalidPlan(fmt.Sprintf("step %d has no id", i+1), nil)
		}
		if _, dup := position[step.ID]; dup {
			return invalidPlan(fmt.Sprintf("duplicate step id %q", step.ID), nil)
		}
		position[step.ID] = i
	}

	consumed := map[string]bool{}
	for i, step := range plan.Steps {
		for _, dep := range step.DependsOn {
			depPos, ok := position[dep]
			if !ok {
				return invalidPlan(fmt.Sprintf("step %q depends on unknown step %q", step.ID, dep), nil)
			}
			if dep == step.ID {
				return invalidPlan(fmt.Sprintf("step %q depends on itself", step.ID), nil)
			}
			if depPos >= i {
				return invalidPlan(fmt.Sprintf("step %q depends on later step %q", step.ID, dep), nil)
			}
			consumed[dep] = true
		}
	}

	if err := checkAcyclic(plan, position); err != nil {
		return err
	}

	// Every step but the last must feed some later step, otherwise its
	// result never reaches the plan's outcome.
	for i, step := range plan.Steps {
		if i == len(plan.Steps)-1 {
			continue
		}
		if !consumed[step.ID] {
			return invalidPlan(fmt.Sprintf("step %q has no consumer", step.ID), nil)
		}
	}
	return nil
}

// checkAcyclic runs a DFS over the dependency edges. Ordering already
// rules cycles out, but a plan built directly (not via structure) may
// carry arbitrary edges.
func checkAcyclic(plan *Plan, position map[string]int) error {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make([]int, len(plan.Steps))

	var visit func(i int) error
	visit = func(i int) error {
		switch state[i] {
		case done:
			return nil
		case visiting:
			return invalidPlan(fmt.Sprintf("dependency cycle through step %q", plan.Steps[i].ID), nil)
		}
		state[i] = visiting
		for _, dep := range plan.Steps[i].DependsOn {
			if j, ok := position[dep]; ok {
				if err := visit(j); err != nil {
					return err
				}
			}
		}
		state[i] = done
		return nil
	}

	for i := range plan.Steps {
		if err := visit(i); err != nil {
			return err
		}
	}
	return nil
}

func invalidPlan(msg string, err error) error {
	return cerr.NewError(cerr.FailedPrecondition, "invalid plan: "+msg, err)
}
