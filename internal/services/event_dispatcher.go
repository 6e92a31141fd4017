package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/feldhof/orders/internal/domain"
	"github.com/feldhof/orders/internal/platform/config"
	"github.com/feldhof/orders/internal/repositories"
)

// NotificationSettings supplies the admin recipient configuration. It is
// consulted on every event so configuration edits take effect without a
// worker restart.
type NotificationSettings func() config.NotificationConfig

// EventDispatcherDeps bundles collaborators for the reactive core.
type EventDispatcherDeps struct {
	Orders    repositories.OrderRepository
	Stock     repositories.StockRepository
	Allocator SequenceAllocator
	Composer  *Composer
	Mailer    Mailer
	Settings  NotificationSettings
	Logger    func(ctx context.Context, event string, fields map[string]any)
}

type eventDispatcher struct {
	orders    repositories.OrderRepository
	stock     repositories.StockRepository
	allocator SequenceAllocator
	composer  *Composer
	mailer    Mailer
	settings  NotificationSettings
	logger    func(context.Context, string, map[string]any)
}

// NewEventDispatcher wires the dispatcher reacting to lifecycle events.
func NewEventDispatcher(deps EventDispatcherDeps) (EventHandler, error) {
	if deps.Orders == nil {
		return nil, errors.New("event dispatcher: order repository is required")
	}
	if deps.Stock == nil {
		return nil, errors.New("event dispatcher: stock repository is required")
	}
	if deps.Allocator == nil {
		return nil, errors.New("event dispatcher: sequence allocator is required")
	}
	if deps.Composer == nil {
		return nil, errors.New("event dispatcher: composer is required")
	}
	if deps.Mailer == nil {
		return nil, errors.New("event dispatcher: mailer is required")
	}
	if deps.Settings == nil {
		return nil, errors.New("event dispatcher: notification settings are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &eventDispatcher{
		orders:    deps.Orders,
		stock:     deps.Stock,
		allocator: deps.Allocator,
		composer:  deps.Composer,
		mailer:    deps.Mailer,
		settings:  deps.Settings,
		logger:    logger,
	}, nil
}

// HandleEvent processes a single lifecycle event. The trigger transport
// delivers at least once: re-running a creation event short-circuits in the
// allocator, and a duplicate email is the accepted cost. Returned errors
// signal the transport to redeliver the whole event.
func (d *eventDispatcher) HandleEvent(ctx context.Context, event Event) error {
	switch event.Kind {
	case EventOrderCreated:
		return d.handleOrderCreated(ctx, event)
	case EventOrderUpdated:
		return d.handleOrderUpdated(ctx, event)
	case EventStockWritten:
		return d.handleStockWritten(ctx, event)
	default:
		d.logger(ctx, "dispatch.event.unknown", map[string]any{"kind": string(event.Kind), "event": event.ID})
		return nil
	}
}

func (d *eventDispatcher) handleOrderCreated(ctx context.Context, event Event) error {
	order, err := d.orders.Get(ctx, event.Stream, event.OrderID)
	if err != nil {
		return fmt.Errorf("order created %s/%s: %w", event.Stream, event.OrderID, err)
	}

	number, err := d.allocator.Allocate(ctx, event.Stream, order)
	if err != nil {
		return err
	}
	order.Number = number

	customer, admin := d.composer.OrderCreated(order)

	if email := strings.TrimSpace(order.Email); email != "" {
		customer.Recipients = []string{email}
		if err := d.send(ctx, event, customer); err != nil {
			return err
		}
	} else {
		d.logger(ctx, "dispatch.customer.skipped", map[string]any{
			"event": event.ID, "order": order.ID, "reason": "empty email",
		})
	}

	admin.Recipients = d.adminRecipients()
	return d.send(ctx, event, admin)
}

func (d *eventDispatcher) handleOrderUpdated(ctx context.Context, event Event) error {
	if event.PrevStatus == event.NewStatus {
		return nil
	}
	if StatusChangeSuppressed(event.NewStatus) {
		d.logger(ctx, "dispatch.status.suppressed", map[string]any{
			"event": event.ID, "order": event.OrderID, "status": string(event.NewStatus),
		})
		return nil
	}

	order, err := d.orders.Get(ctx, event.Stream, event.OrderID)
	if err != nil {
		return fmt.Errorf("order updated %s/%s: %w", event.Stream, event.OrderID, err)
	}

	customer, admin := d.composer.StatusChanged(order, event.PrevStatus)

	if email := strings.TrimSpace(order.Email); email != "" {
		customer.Recipients = []string{email}
		if err := d.send(ctx, event, customer); err != nil {
			return err
		}
	}

	admin.Recipients = d.adminRecipients()
	return d.send(ctx, event, admin)
}

func (d *eventDispatcher) handleStockWritten(ctx context.Context, event Event) error {
	item, err := d.stock.Get(ctx, event.ItemID)
	if err != nil {
		return fmt.Errorf("stock written %s: %w", event.ItemID, err)
	}

	var before *domain.StockItem
	if event.PrevQuantity != nil {
		prev := item
		prev.Quantity = *event.PrevQuantity
		if event.PrevThreshold != nil {
			prev.Threshold = *event.PrevThreshold
		}
		before = &prev
	}

	signal := CheckThresholdCrossing(before, item)
	if signal == nil {
		return nil
	}

	alert := d.composer.StockThresholdCrossed(*signal)
	alert.Recipients = d.adminRecipients()
	return d.send(ctx, event, alert)
}

func (d *eventDispatcher) adminRecipients() []string {
	cfg := d.settings()
	return ResolveRecipients(cfg.Admins, cfg.Excluded, cfg.Fallback)
}

func (d *eventDispatcher) send(ctx context.Context, event Event, notification Notification) error {
	deliveryID, err := d.mailer.Send(ctx, notification.Recipients, notification.Subject, notification.HTMLBody)
	if err != nil {
		return fmt.Errorf("send %s for event %s: %w", notification.Kind, event.ID, err)
	}
	d.logger(ctx, "dispatch.sent", map[string]any{
		"event":    event.ID,
		"kind":     string(notification.Kind),
		"delivery": deliveryID,
	})
	return nil
}
