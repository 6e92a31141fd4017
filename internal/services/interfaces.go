package services

import (
	"context"
	"errors"
	"time"

	"github.com/feldhof/orders/internal/domain"
)

var (
	// ErrInvalidInput indicates a required field was missing or malformed.
	// It is always returned before any side effect takes place.
	ErrInvalidInput = errors.New("orders: invalid input")
	// ErrNotFound indicates the referenced record does not exist.
	ErrNotFound = errors.New("orders: not found")
	// ErrPermissionDenied indicates the caller lacks the required role.
	ErrPermissionDenied = errors.New("orders: permission denied")
)

// EventKind names the lifecycle events crossing the trigger boundary.
type EventKind string

const (
	// EventOrderCreated fires after a new order record is written.
	EventOrderCreated EventKind = "order.created"
	// EventOrderUpdated fires after a dashboard edit to an order record.
	EventOrderUpdated EventKind = "order.updated"
	// EventStockWritten fires after any write to a stock record.
	EventStockWritten EventKind = "stock.written"
)

// Event is the message delivered across the trigger boundary. Delivery is
// at least once: handlers must tolerate receiving the same event again.
type Event struct {
	ID         string             `json:"id"`
	Kind       EventKind          `json:"kind"`
	Stream     domain.Stream      `json:"stream,omitempty"`
	OrderID    string             `json:"orderId,omitempty"`
	ItemID     string             `json:"itemId,omitempty"`
	PrevStatus domain.OrderStatus `json:"prevStatus,omitempty"`
	NewStatus  domain.OrderStatus `json:"newStatus,omitempty"`
	// PrevQuantity and PrevThreshold carry the stock state before the write.
	// Nil marks the first write ever observed for the item.
	PrevQuantity  *float64  `json:"prevQuantity,omitempty"`
	PrevThreshold *float64  `json:"prevThreshold,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// EventPublisher hands lifecycle events to the trigger mechanism.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event Event) (string, error)
}

// EventHandler consumes lifecycle events. Returning an error signals the
// transport to redeliver.
type EventHandler interface {
	HandleEvent(ctx context.Context, event Event) error
}

// Mailer sends a composed notification through the external transport.
// An empty recipient list is a no-op returning an empty delivery id.
type Mailer interface {
	Send(ctx context.Context, recipients []string, subject, htmlBody string) (string, error)
}

// SequenceAllocator assigns the human-facing order number for a stream.
type SequenceAllocator interface {
	// Allocate returns the order's number, assigning the next free one for
	// the stream when the order does not carry a number yet. Re-invoking on
	// an already numbered order is a no-op returning the existing number.
	Allocate(ctx context.Context, stream domain.Stream, order domain.Order) (string, error)
}

// OrderService covers the order intake and back-office write paths.
type OrderService interface {
	Submit(ctx context.Context, cmd SubmitOrderCommand) (SubmitResult, error)
	Get(ctx context.Context, stream domain.Stream, orderID string) (domain.Order, error)
	UpdateStatus(ctx context.Context, cmd UpdateStatusCommand) (domain.Order, error)
	// RequestDispatchNotification sends the shipment-preparation email for an
	// order. Requires a customer email and a requested date on the record.
	RequestDispatchNotification(ctx context.Context, stream domain.Stream, orderID string) (string, error)
}

// SubmitOrderCommand carries a new order from the intake form.
type SubmitOrderCommand struct {
	Stream         domain.Stream
	CustomerName   string
	Email          string
	Phone          string
	DeliveryOption string
	RequestedDate  string
	Items          []domain.LineItem
	DeliveryCost   float64
}

// SubmitResult is returned to the submission caller. Number is empty when the
// allocation poller exhausted its attempt budget; the caller then shows a
// degraded confirmation and the number follows by email.
type SubmitResult struct {
	Order  domain.Order
	Number string
}

// UpdateStatusCommand carries a back-office status edit.
type UpdateStatusCommand struct {
	Stream       domain.Stream
	OrderID      string
	Status       domain.OrderStatus
	TrackingLink string
}

// StockService covers the inventory write path feeding the threshold watcher.
type StockService interface {
	Write(ctx context.Context, item domain.StockItem) (domain.StockItem, error)
}
