package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kazz187/devguild/internal/event"
)

// Dispatcher turns task lifecycle events into push notifications.
type Dispatcher struct {
	sender *Sender
}

func NewDispatcher(sender *Sender) *Dispatcher {
	return &Dispatcher{sender: sender}
}

// Register subscribes the dispatcher to the terminal task events. It
// must be called before the bus starts.
func (d *Dispatcher) Register(bus *event.EventBus) error {
	for _, et := range []event.EventType{event.TaskCompleted, event.TaskFailed} {
		et := et
		err := bus.SubscribeAsync(et, "notify-"+string(et), func(msg *event.EventMessage) error {
			payload, err := taskPayload(msg)
			if err != nil {
				return err
			}
			d.sender.SendToAll(context.Background(), payload)
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// taskPayload builds the notification body for a terminal task event.
func taskPayload(msg *event.EventMessage) (*Payload, error) {
	switch msg.Type {
	case event.TaskCompleted:
		var d event.TaskCompletedData
		if err := json.Unmarshal(msg.Data, &d); err != nil {
			return nil, err
		}
		return &Payload{
			Title: "Task completed",
			Body:  fmt.Sprintf("Task %s finished in %s mode after %d iteration(s)", d.TaskID, d.Mode, d.Iterations),
			URL:   "/tasks/" + d.TaskID,
			Tag:   d.TaskID,
		}, nil
	case event.TaskFailed:
		var d event.TaskFailedData
		if err := json.Unmarshal(msg.Data, &d); err != nil {
			return nil, err
		}
		return &Payload{
			Title: "Task failed",
			Body:  fmt.Sprintf("Task %s failed: %s", d.TaskID, d.Reason),
			URL:   "/tasks/" + d.TaskID,
			Tag:   d.TaskID,
		}, nil
	default:
		return nil, fmt.Errorf("unexpected event type %q", msg.Type)
	}
}
