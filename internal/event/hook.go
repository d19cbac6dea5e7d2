package event

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// Hook represents an event hook configuration
type Hook struct {
	Name    string    `yaml:"name"`
	Event   EventType `yaml:"event"`
	Command string    `yaml:"command"`
	Timeout int       `yaml:"timeout,omitempty"` // in seconds
}

// HookExecutor executes hooks in response to events
type HookExecutor struct {
	hooks []Hook
}

// NewHookExecutor creates a new hook executor
func NewHookExecutor(hooks []Hook) *HookExecutor {
	return &HookExecutor{
		hooks: hooks,
	}
}

// Execute runs all hooks that match the given event
func (he *HookExecutor) Execute(ctx context.Context, eventMsg *EventMessage) error {
	for _, hook := range he.hooks {
		if hook.Event != eventMsg.Type {
			continue
		}
		if err := he.executeHook(ctx, hook, eventMsg); err != nil {
			return fmt.Errorf("failed to execute hook %s: %w", hook.Name, err)
		}
	}
	return nil
}

// executeHook executes a single hook with the event exposed through
// DEVGUILD_EVENT_* environment variables.
func (he *HookExecutor) executeHook(ctx context.Context, hook Hook, eventMsg *EventMessage) error {
	env := []string{
		fmt.Sprintf("DEVGUILD_EVENT_TYPE=%s", eventMsg.Type),
		fmt.Sprintf("DEVGUILD_EVENT_ID=%s", eventMsg.ID),
		fmt.Sprintf("DEVGUILD_EVENT_SOURCE=%s", eventMsg.Source),
		fmt.Sprintf("DEVGUILD_EVENT_TIMESTAMP=%s", eventMsg.Timestamp.Format(time.RFC3339)),
		fmt.Sprintf("DEVGUILD_EVENT_DATA=%s", string(eventMsg.Data)),
	}

	timeout := 30 * time.Second
	if hook.Timeout > 0 {
		timeout = time.Duration(hook.Timeout) * time.Second
	}

	hookCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(hookCtx, "sh", "-c", hook.Command)
	cmd.Env = append(os.Environ(), env...)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("hook command failed: %w, output: %s", err, string(output))
	}
	return nil
}

// RegisterHooks registers hooks with the event bus
func RegisterHooks(eventBus *EventBus, executor *HookExecutor) {
	for _, eventType := range AllEventTypes() {
		_ = eventBus.SubscribeAsync(eventType, fmt.Sprintf("hook-%s", eventType), func(eventMsg *EventMessage) error {
			return executor.Execute(context.Background(), eventMsg)
		})
	}
}
