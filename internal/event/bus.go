package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type PubSub interface {
	message.Publisher
	message.Subscriber
}

// EventBus manages event publishing and subscription
type EventBus struct {
	pubSub PubSub
	router *message.Router
	logger watermill.LoggerAdapter
}

// EventHandler is a function that handles events
type EventHandler[T any] func(ctx context.Context, event *Event[T]) error

// NewEventBus creates a new event bus
func NewEventBus() (*EventBus, error) {
	logger := watermill.NewStdLogger(false, false)

	pubSub := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer: 256,
		},
		logger,
	)

	router, err := message.NewRouter(message.RouterConfig{}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create router: %w", err)
	}

	return &EventBus{
		pubSub: pubSub,
		router: router,
		logger: logger,
	}, nil
}

// Start runs the router until the context is cancelled. Subscriptions
// must be registered before Start.
func (eb *EventBus) Start(ctx context.Context) error {
	return eb.router.Run(ctx)
}

// Running returns a channel closed once the router is running.
func (eb *EventBus) Running() <-chan struct{} {
	return eb.router.Running()
}

// Stop stops the event bus
func (eb *EventBus) Stop() error {
	return eb.router.Close()
}

// Publish publishes an event, inferring its type from the data's Go type.
func (eb *EventBus) Publish(ctx context.Context, source string, data any) error {
	eventMsg := &EventMessage{
		ID:        generateEventID(),
		Type:      inferEventType(data),
		Timestamp: time.Now(),
		Source:    source,
	}

	rawData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}
	eventMsg.Data = rawData

	return eb.publishMessage(ctx, eventMsg)
}

func (eb *EventBus) publishMessage(ctx context.Context, eventMsg *EventMessage) error {
	payload, err := json.Marshal(eventMsg)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)

	if err := eb.pubSub.Publish(string(eventMsg.Type), msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// SubscribeAsync subscribes a handler to one event type via the router.
func (eb *EventBus) SubscribeAsync(eventType EventType, handlerName string, handler func(eventMsg *EventMessage) error) error {
	eb.router.AddNoPublisherHandler(
		handlerName,
		string(eventType),
		eb.pubSub,
		func(msg *message.Message) error {
			var eventMsg EventMessage
			if err := json.Unmarshal(msg.Payload, &eventMsg); err != nil {
				return fmt.Errorf("failed to unmarshal event message: %w", err)
			}
			return handler(&eventMsg)
		},
	)
	return nil
}

// PublishTyped publishes a typed event (helper function)
func PublishTyped[T any](eb *EventBus, ctx context.Context, event *Event[T]) error {
	eventMsg, err := event.ToMessage()
	if err != nil {
		return fmt.Errorf("failed to convert event to message: %w", err)
	}
	return eb.publishMessage(ctx, eventMsg)
}

// SubscribeTyped subscribes to typed events (helper function)
func SubscribeTyped[T any](eb *EventBus, eventType EventType, handlerName string, handler EventHandler[T]) error {
	return eb.SubscribeAsync(eventType, handlerName, func(eventMsg *EventMessage) error {
		event, err := FromMessage[T](eventMsg)
		if err != nil {
			return fmt.Errorf("failed to convert message to event: %w", err)
		}
		return handler(context.Background(), event)
	})
}
