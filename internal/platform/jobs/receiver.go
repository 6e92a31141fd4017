package jobs

import (
	"context"
	"encoding/json"
	"errors"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/feldhof/orders/internal/services"
)

// Subscription is the narrow slice of *pubsub.Subscription the receiver uses.
type Subscription interface {
	Receive(ctx context.Context, f func(ctx context.Context, m *pubsub.Message)) error
}

// EventReceiver pulls lifecycle events from a subscription and hands them to
// the dispatcher. A handler error nacks the message so Pub/Sub redelivers it;
// the dispatcher is written for exactly that at-least-once contract.
type EventReceiver struct {
	subscription Subscription
	handler      services.EventHandler
	logger       *zap.Logger
}

// NewEventReceiver constructs a receiver bound to the given subscription.
func NewEventReceiver(subscription Subscription, handler services.EventHandler, logger *zap.Logger) (*EventReceiver, error) {
	if subscription == nil {
		return nil, errors.New("event receiver: subscription is required")
	}
	if handler == nil {
		return nil, errors.New("event receiver: handler is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventReceiver{
		subscription: subscription,
		handler:      handler,
		logger:       logger,
	}, nil
}

// Run blocks consuming messages until ctx is cancelled.
func (r *EventReceiver) Run(ctx context.Context) error {
	return r.subscription.Receive(ctx, r.handleMessage)
}

func (r *EventReceiver) handleMessage(ctx context.Context, message *pubsub.Message) {
	var event services.Event
	if err := json.Unmarshal(message.Data, &event); err != nil {
		// Undecodable messages would redeliver forever; drop them.
		r.logger.Error("discarding undecodable event message",
			zap.String("messageId", message.ID),
			zap.Error(err),
		)
		message.Ack()
		return
	}

	if err := r.handler.HandleEvent(ctx, event); err != nil {
		r.logger.Warn("event handling failed, message will be redelivered",
			zap.String("messageId", message.ID),
			zap.String("event", event.ID),
			zap.String("kind", string(event.Kind)),
			zap.Error(err),
		)
		message.Nack()
		return
	}
	message.Ack()
}
