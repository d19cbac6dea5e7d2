package event

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startBus(t *testing.T) (*EventBus, context.Context) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	eb, err := NewEventBus()
	require.NoError(t, err)
	return eb, ctx
}

func runBus(t *testing.T, eb *EventBus, ctx context.Context) {
	t.Helper()
	go func() {
		_ = eb.Start(ctx)
	}()
	t.Cleanup(func() { _ = eb.Stop() })
	<-eb.Running()
}

func TestEventBus_PublishSubscribe(t *testing.T) {
	eb, ctx := startBus(t)

	handled := make(chan TaskCreatedData, 1)
	err := eb.SubscribeAsync(TaskCreated, "test_handler", func(msg *EventMessage) error {
		var data TaskCreatedData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return err
		}
		handled <- data
		return nil
	})
	require.NoError(t, err)

	runBus(t, eb, ctx)

	taskData := TaskCreatedData{
		TaskID:      "T-001",
		Description: "Add a health endpoint",
	}
	require.NoError(t, eb.Publish(ctx, "orchestrator", taskData))

	select {
	case received := <-handled:
		assert.Equal(t, "T-001", received.TaskID)
		assert.Equal(t, "Add a health endpoint", received.Description)
	case <-time.After(3 * time.Second):
		t.Fatal("event was not handled in time")
	}
}

func TestEventBus_SubscribeTyped(t *testing.T) {
	eb, ctx := startBus(t)

	received := make(chan *Event[CriticRejectedData], 1)
	err := SubscribeTyped(eb, CriticRejected, "typed_handler", func(_ context.Context, ev *Event[CriticRejectedData]) error {
		received <- ev
		return nil
	})
	require.NoError(t, err)

	runBus(t, eb, ctx)

	ev := NewEvent("pipeline", CriticRejectedData{
		TaskID:    "T-002",
		Iteration: 3,
		Feedback:  "missing error handling",
	})
	require.NoError(t, PublishTyped(eb, ctx, ev))

	select {
	case got := <-received:
		assert.Equal(t, "T-002", got.Data.TaskID)
		assert.Equal(t, 3, got.Data.Iteration)
		assert.Equal(t, "missing error handling", got.Data.Feedback)
	case <-time.After(3 * time.Second):
		t.Fatal("typed event was not handled in time")
	}
}

func TestEventBus_TypeIsolation(t *testing.T) {
	eb, ctx := startBus(t)

	stepEvents := make(chan *EventMessage, 2)
	err := eb.SubscribeAsync(StepCompleted, "step_handler", func(msg *EventMessage) error {
		stepEvents <- msg
		return nil
	})
	require.NoError(t, err)

	runBus(t, eb, ctx)

	require.NoError(t, eb.Publish(ctx, "pipeline", TaskFailedData{TaskID: "T-003", Reason: "boom"}))
	require.NoError(t, eb.Publish(ctx, "pipeline", StepCompletedData{TaskID: "T-003", StepID: "step-1", Role: "executor"}))

	select {
	case msg := <-stepEvents:
		assert.Equal(t, StepCompleted, msg.Type)
	case <-time.After(3 * time.Second):
		t.Fatal("step event was not handled in time")
	}
	select {
	case msg := <-stepEvents:
		t.Fatalf("handler received unrelated event %s", msg.Type)
	case <-time.After(200 * time.Millisecond):
	}
}
