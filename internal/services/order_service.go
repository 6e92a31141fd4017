package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/feldhof/orders/internal/domain"
	"github.com/feldhof/orders/internal/repositories"
)

// OrderServiceDeps bundles collaborators for the order write paths.
type OrderServiceDeps struct {
	Orders      repositories.OrderRepository
	Events      EventPublisher
	Poller      *NumberPoller
	Composer    *Composer
	Mailer      Mailer
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders   repositories.OrderRepository
	events   EventPublisher
	poller   *NumberPoller
	composer *Composer
	mailer   Mailer
	clock    func() time.Time
	newID    func() string
	logger   func(context.Context, string, map[string]any)
}

// NewOrderService wires dependencies into a concrete OrderService.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Events == nil {
		return nil, errors.New("order service: event publisher is required")
	}
	if deps.Composer == nil {
		return nil, errors.New("order service: composer is required")
	}
	if deps.Mailer == nil {
		return nil, errors.New("order service: mailer is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &orderService{
		orders:   deps.Orders,
		events:   deps.Events,
		poller:   deps.Poller,
		composer: deps.Composer,
		mailer:   deps.Mailer,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

// Submit persists a new order, publishes the creation event, and polls for
// the asynchronously allocated number. The returned result carries an empty
// number when the poller exhausted its budget; submission still succeeds.
func (s *orderService) Submit(ctx context.Context, cmd SubmitOrderCommand) (SubmitResult, error) {
	stream, ok := domain.ParseStream(string(cmd.Stream))
	if !ok {
		return SubmitResult{}, fmt.Errorf("%w: unknown stream %q", ErrInvalidInput, cmd.Stream)
	}
	if strings.TrimSpace(cmd.CustomerName) == "" {
		return SubmitResult{}, fmt.Errorf("%w: customer name is required", ErrInvalidInput)
	}
	if len(cmd.Items) == 0 {
		return SubmitResult{}, fmt.Errorf("%w: at least one item is required", ErrInvalidInput)
	}
	for _, item := range cmd.Items {
		if strings.TrimSpace(item.Label) == "" || item.Quantity <= 0 {
			return SubmitResult{}, fmt.Errorf("%w: item label and positive quantity are required", ErrInvalidInput)
		}
	}

	now := s.clock()
	order := domain.Order{
		ID:             s.newID(),
		Stream:         stream,
		Status:         domain.OrderStatusNew,
		CustomerName:   strings.TrimSpace(cmd.CustomerName),
		Email:          strings.TrimSpace(cmd.Email),
		Phone:          strings.TrimSpace(cmd.Phone),
		DeliveryOption: strings.TrimSpace(cmd.DeliveryOption),
		RequestedDate:  strings.TrimSpace(cmd.RequestedDate),
		Items:          cmd.Items,
		DeliveryCost:   cmd.DeliveryCost,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return SubmitResult{}, s.mapRepositoryError(err)
	}

	s.publishEvent(ctx, Event{
		ID:         s.newID(),
		Kind:       EventOrderCreated,
		Stream:     stream,
		OrderID:    order.ID,
		OccurredAt: now,
	})

	result := SubmitResult{Order: order}
	if s.poller != nil {
		if number, ok := s.poller.WaitForNumber(ctx, stream, order.ID); ok {
			result.Number = number
			result.Order.Number = number
		} else {
			s.logger(ctx, "order.number.pending", map[string]any{
				"stream": string(stream),
				"order":  order.ID,
			})
		}
	}
	return result, nil
}

// Get loads a single order.
func (s *orderService) Get(ctx context.Context, stream domain.Stream, orderID string) (domain.Order, error) {
	if strings.TrimSpace(orderID) == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrInvalidInput)
	}
	order, err := s.orders.Get(ctx, stream, orderID)
	if err != nil {
		return domain.Order{}, s.mapRepositoryError(err)
	}
	return order, nil
}

// UpdateStatus applies a back-office edit and publishes the update event
// carrying the previous status so the dispatcher can detect the transition.
func (s *orderService) UpdateStatus(ctx context.Context, cmd UpdateStatusCommand) (domain.Order, error) {
	stream, ok := domain.ParseStream(string(cmd.Stream))
	if !ok {
		return domain.Order{}, fmt.Errorf("%w: unknown stream %q", ErrInvalidInput, cmd.Stream)
	}
	status, ok := domain.ParseOrderStatus(string(cmd.Status))
	if !ok {
		return domain.Order{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, cmd.Status)
	}

	order, err := s.orders.Get(ctx, stream, cmd.OrderID)
	if err != nil {
		return domain.Order{}, s.mapRepositoryError(err)
	}

	previous := order.Status
	order.Status = status
	if trimmed := strings.TrimSpace(cmd.TrackingLink); trimmed != "" {
		order.TrackingLink = trimmed
	}
	order.UpdatedAt = s.clock()

	if err := s.orders.Update(ctx, order); err != nil {
		return domain.Order{}, s.mapRepositoryError(err)
	}

	if previous != status {
		s.publishEvent(ctx, Event{
			ID:         s.newID(),
			Kind:       EventOrderUpdated,
			Stream:     stream,
			OrderID:    order.ID,
			PrevStatus: previous,
			NewStatus:  status,
			OccurredAt: order.UpdatedAt,
		})
	}
	return order, nil
}

// RequestDispatchNotification sends the shipment-preparation email. It is an
// explicit back-office action, not trigger-driven, and rejects before any
// side effect when the order lacks a customer email or a requested date.
func (s *orderService) RequestDispatchNotification(ctx context.Context, stream domain.Stream, orderID string) (string, error) {
	order, err := s.orders.Get(ctx, stream, orderID)
	if err != nil {
		return "", s.mapRepositoryError(err)
	}

	if strings.TrimSpace(order.Email) == "" {
		return "", fmt.Errorf("%w: order %s has no customer email", ErrInvalidInput, orderID)
	}
	if strings.TrimSpace(order.RequestedDate) == "" {
		return "", fmt.Errorf("%w: order %s has no requested date", ErrInvalidInput, orderID)
	}

	notification := s.composer.DispatchRequested(order)
	deliveryID, err := s.mailer.Send(ctx, []string{order.Email}, notification.Subject, notification.HTMLBody)
	if err != nil {
		return "", fmt.Errorf("dispatch notification for %s/%s: %w", stream, orderID, err)
	}

	s.logger(ctx, "order.dispatch.notified", map[string]any{
		"stream":   string(stream),
		"order":    orderID,
		"delivery": deliveryID,
	})
	return deliveryID, nil
}

func (s *orderService) publishEvent(ctx context.Context, event Event) {
	messageID, err := s.events.PublishEvent(ctx, event)
	if err != nil {
		// The record is durable; a lost event means a missed notification,
		// surfaced here for operators rather than failing the write.
		s.logger(ctx, "order.event.publish.failed", map[string]any{
			"kind":  string(event.Kind),
			"order": event.OrderID,
			"error": err.Error(),
		})
		return
	}
	s.logger(ctx, "order.event.published", map[string]any{
		"kind":    string(event.Kind),
		"order":   event.OrderID,
		"message": messageID,
	})
}

func (s *orderService) mapRepositoryError(err error) error {
	var repoErr *repositories.Error
	if errors.As(err, &repoErr) {
		switch repoErr.Code {
		case repositories.ErrorCodeNotFound:
			return fmt.Errorf("%w: %s", ErrNotFound, repoErr.Message)
		case repositories.ErrorCodeInvalidInput:
			return fmt.Errorf("%w: %s", ErrInvalidInput, repoErr.Message)
		}
	}
	return err
}
