// Package pipeline drives the Researcher, Planner, Executor and Critic
// roles over a plan until the critic approves or the iteration budget
// runs out.
package pipeline

import (
	"time"

	"github.com/kazz187/devguild/internal/planner"
)

// Message is one role utterance. Messages are append-only.
type Message struct {
	Role      planner.Role `json:"role"`
	Content   string       `json:"content"`
	StepID    string       `json:"step_id,omitempty"`
	Iteration int          `json:"iteration"`
	At        time.Time    `json:"at"`
}

// ToolInvocation records one capability call made while executing a
// step, including failed ones: a tool error is critic evidence, not a
// task failure.
type ToolInvocation struct {
	Tool      string         `json:"tool"`
	Params    map[string]any `json:"params"`
	Output    string         `json:"output,omitempty"`
	Error     string         `json:"error,omitempty"`
	StepID    string         `json:"step_id"`
	Iteration int            `json:"iteration"`
	At        time.Time      `json:"at"`
}

// Revision records one critic rejection and the resulting answer delta.
type Revision struct {
	Iteration int    `json:"iteration"`
	Feedback  string `json:"feedback"`
	Diff      string `json:"diff,omitempty"`
}

// Transcript is the full audit record of a pipeline run.
type Transcript struct {
	Messages        []Message        `json:"messages"`
	ToolInvocations []ToolInvocation `json:"tool_invocations,omitempty"`
	Revisions       []Revision       `json:"revisions,omitempty"`
}

func (t *Transcript) addMessage(role planner.Role, content, stepID string, iteration int) {
	t.Messages = append(t.Messages, Message{
		Role:      role,
		Content:   content,
		StepID:    stepID,
		Iteration: iteration,
		At:        time.Now(),
	})
}

// MessagesByRole returns the messages a given role produced, in order.
func (t *Transcript) MessagesByRole(role planner.Role) []Message {
	var out []Message
	for _, m := range t.Messages {
		if m.Role == role {
			out = append(out, m)
		}
	}
	return out
}
