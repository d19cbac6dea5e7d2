// Package event provides the in-process event bus, the NDJSON event
// log, and shell hooks fired on task lifecycle events.
package event

import (
	"encoding/json"
	"math/rand"
	"reflect"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// EventType represents the type of event
type EventType string

const (
	// Task lifecycle events
	TaskCreated      EventType = "task.created"
	TaskModeSelected EventType = "task.mode_selected"
	TaskCompleted    EventType = "task.completed"
	TaskFailed       EventType = "task.failed"
	TaskCancelled    EventType = "task.cancelled"

	// Plan and step events
	PlanCreated   EventType = "plan.created"
	StepCompleted EventType = "step.completed"
	StepFailed    EventType = "step.failed"

	// Critic events
	CriticApproved EventType = "critic.approved"
	CriticRejected EventType = "critic.rejected"
)

// AllEventTypes lists every event type, used to fan handlers out over
// the whole stream.
func AllEventTypes() []EventType {
	return []EventType{
		TaskCreated, TaskModeSelected, TaskCompleted, TaskFailed, TaskCancelled,
		PlanCreated, StepCompleted, StepFailed,
		CriticApproved, CriticRejected,
	}
}

// Event represents a typed system event
type Event[T any] struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Data      T         `json:"data"`
}

// EventMessage represents a serialized event for transport
type EventMessage struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Source    string          `json:"source"`
	Data      json.RawMessage `json:"data"`
}

// NewEvent creates a new typed event
func NewEvent[T any](source string, data T) *Event[T] {
	return &Event[T]{
		ID:        generateEventID(),
		Timestamp: time.Now(),
		Source:    source,
		Data:      data,
	}
}

// ToMessage converts a typed event to a transport message
func (e *Event[T]) ToMessage() (*EventMessage, error) {
	rawData, err := json.Marshal(e.Data)
	if err != nil {
		return nil, err
	}

	return &EventMessage{
		ID:        e.ID,
		Type:      inferEventType(e.Data),
		Timestamp: e.Timestamp,
		Source:    e.Source,
		Data:      rawData,
	}, nil
}

// FromMessage converts a transport message to a typed event
func FromMessage[T any](msg *EventMessage) (*Event[T], error) {
	var data T
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		return nil, err
	}

	return &Event[T]{
		ID:        msg.ID,
		Timestamp: msg.Timestamp,
		Source:    msg.Source,
		Data:      data,
	}, nil
}

// inferEventType infers EventType from the payload's Go type.
func inferEventType(data any) EventType {
	dataType := reflect.TypeOf(data)
	if dataType == nil {
		return EventType("unknown")
	}
	if dataType.Kind() == reflect.Ptr {
		dataType = dataType.Elem()
	}

	switch dataType.Name() {
	case "TaskCreatedData":
		return TaskCreated
	case "TaskModeSelectedData":
		return TaskModeSelected
	case "TaskCompletedData":
		return TaskCompleted
	case "TaskFailedData":
		return TaskFailed
	case "TaskCancelledData":
		return TaskCancelled
	case "PlanCreatedData":
		return PlanCreated
	case "StepCompletedData":
		return StepCompleted
	case "StepFailedData":
		return StepFailed
	case "CriticApprovedData":
		return CriticApproved
	case "CriticRejectedData":
		return CriticRejected
	default:
		return EventType(camelToSnake(strings.TrimSuffix(dataType.Name(), "Data")))
	}
}

// camelToSnake converts CamelCase to dot.separated lowercase.
func camelToSnake(s string) string {
	var result strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result.WriteByte('.')
		}
		result.WriteRune(r)
	}
	return strings.ToLower(result.String())
}

var entropy = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)

// generateEventID generates a sortable unique event ID.
func generateEventID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// TaskCreatedData is published when a task enters the orchestrator.
type TaskCreatedData struct {
	TaskID      string `json:"task_id"`
	Description string `json:"description"`
}

// TaskModeSelectedData records the complexity decision.
type TaskModeSelectedData struct {
	TaskID string  `json:"task_id"`
	Mode   string  `json:"mode"`
	Score  float64 `json:"score"`
}

// TaskCompletedData is published on successful completion.
type TaskCompletedData struct {
	TaskID     string `json:"task_id"`
	Mode       string `json:"mode"`
	Iterations int    `json:"iterations"`
}

// TaskFailedData is published on terminal failure.
type TaskFailedData struct {
	TaskID string `json:"task_id"`
	Reason string `json:"reason"`
}

// TaskCancelledData is published when a task is cancelled between steps.
type TaskCancelledData struct {
	TaskID string `json:"task_id"`
}

// PlanCreatedData is published once the planner produces a valid plan.
type PlanCreatedData struct {
	TaskID string `json:"task_id"`
	Steps  int    `json:"steps"`
}

// StepCompletedData is published per completed plan step.
type StepCompletedData struct {
	TaskID string `json:"task_id"`
	StepID string `json:"step_id"`
	Role   string `json:"role"`
}

// StepFailedData is published when a step fails; the failure is critic
// evidence, not a task failure.
type StepFailedData struct {
	TaskID string `json:"task_id"`
	StepID string `json:"step_id"`
	Reason string `json:"reason"`
}

// CriticApprovedData closes an iteration with approval.
type CriticApprovedData struct {
	TaskID    string `json:"task_id"`
	Iteration int    `json:"iteration"`
}

// CriticRejectedData starts a revision cycle.
type CriticRejectedData struct {
	TaskID    string `json:"task_id"`
	Iteration int    `json:"iteration"`
	Feedback  string `json:"feedback"`
}
