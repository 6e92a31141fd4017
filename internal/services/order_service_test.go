package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/feldhof/orders/internal/domain"
	"github.com/feldhof/orders/internal/repositories"
)

func newTestOrderService(t *testing.T, orders *stubOrderRepo, events *capturePublisher, mailer *captureMailer, poller *NumberPoller) OrderService {
	t.Helper()
	ids := 0
	svc, err := NewOrderService(OrderServiceDeps{
		Orders:   orders,
		Events:   events,
		Poller:   poller,
		Composer: NewComposer(),
		Mailer:   mailer,
		Clock: func() time.Time {
			return time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
		},
		IDGenerator: func() string {
			ids++
			return string(rune('a' + ids - 1))
		},
	})
	if err != nil {
		t.Fatalf("new order service: %v", err)
	}
	return svc
}

func TestSubmitCreatesOrderAndPublishesEvent(t *testing.T) {
	numbered := domain.Order{ID: "a", Number: "#0007"}
	orders := &stubOrderRepo{
		getFn: func(context.Context, domain.Stream, string) (domain.Order, error) {
			return numbered, nil
		},
	}
	events := &capturePublisher{}
	poller, err := NewNumberPoller(NumberPollerDeps{
		Orders:   orders,
		Attempts: 2,
		Interval: time.Millisecond,
		Sleep:    func(context.Context, time.Duration) {},
	})
	if err != nil {
		t.Fatalf("new number poller: %v", err)
	}
	svc := newTestOrderService(t, orders, events, &captureMailer{}, poller)

	result, err := svc.Submit(context.Background(), SubmitOrderCommand{
		Stream:       domain.StreamEggs,
		CustomerName: "  Marie Curie ",
		Email:        "marie@example.com",
		Items:        []domain.LineItem{{Label: "Eier L", UnitPrice: 0.5, Quantity: 10}},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if len(orders.created) != 1 {
		t.Fatalf("expected one create, got %d", len(orders.created))
	}
	created := orders.created[0]
	if created.Status != domain.OrderStatusNew {
		t.Fatalf("expected status new, got %s", created.Status)
	}
	if created.CustomerName != "Marie Curie" {
		t.Fatalf("expected trimmed name, got %q", created.CustomerName)
	}
	if created.Number != "" {
		t.Fatal("the record must be created without a number")
	}

	if len(events.events) != 1 {
		t.Fatalf("expected one event, got %d", len(events.events))
	}
	event := events.events[0]
	if event.Kind != EventOrderCreated || event.OrderID != created.ID || event.Stream != domain.StreamEggs {
		t.Fatalf("unexpected event %+v", event)
	}

	if result.Number != "#0007" {
		t.Fatalf("expected polled number #0007, got %q", result.Number)
	}
	if result.Order.Number != "#0007" {
		t.Fatal("result order must carry the polled number")
	}
}

func TestSubmitSucceedsWhenPollerExhausts(t *testing.T) {
	orders := &stubOrderRepo{
		getFn: func(context.Context, domain.Stream, string) (domain.Order, error) {
			return domain.Order{ID: "a"}, nil
		},
	}
	events := &capturePublisher{}
	poller, err := NewNumberPoller(NumberPollerDeps{
		Orders:   orders,
		Attempts: 2,
		Interval: time.Millisecond,
		Sleep:    func(context.Context, time.Duration) {},
	})
	if err != nil {
		t.Fatalf("new number poller: %v", err)
	}
	svc := newTestOrderService(t, orders, events, &captureMailer{}, poller)

	result, err := svc.Submit(context.Background(), SubmitOrderCommand{
		Stream:       domain.StreamEggs,
		CustomerName: "Marie",
		Items:        []domain.LineItem{{Label: "Eier L", UnitPrice: 0.5, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("submission must succeed without a number: %v", err)
	}
	if result.Number != "" {
		t.Fatalf("expected empty number, got %q", result.Number)
	}
}

func TestSubmitValidation(t *testing.T) {
	svc := newTestOrderService(t, &stubOrderRepo{}, &capturePublisher{}, &captureMailer{}, nil)

	cases := []SubmitOrderCommand{
		{Stream: "honey", CustomerName: "Marie", Items: []domain.LineItem{{Label: "x", Quantity: 1}}},
		{Stream: domain.StreamEggs, CustomerName: "   ", Items: []domain.LineItem{{Label: "x", Quantity: 1}}},
		{Stream: domain.StreamEggs, CustomerName: "Marie"},
		{Stream: domain.StreamEggs, CustomerName: "Marie", Items: []domain.LineItem{{Label: "", Quantity: 1}}},
		{Stream: domain.StreamEggs, CustomerName: "Marie", Items: []domain.LineItem{{Label: "x", Quantity: 0}}},
	}
	for i, cmd := range cases {
		if _, err := svc.Submit(context.Background(), cmd); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("case %d: expected ErrInvalidInput, got %v", i, err)
		}
	}
}

func TestSubmitPublishFailureDoesNotFailSubmission(t *testing.T) {
	orders := &stubOrderRepo{
		getFn: func(context.Context, domain.Stream, string) (domain.Order, error) {
			return domain.Order{ID: "a"}, nil
		},
	}
	events := &capturePublisher{err: errors.New("topic unavailable")}
	svc := newTestOrderService(t, orders, events, &captureMailer{}, nil)

	_, err := svc.Submit(context.Background(), SubmitOrderCommand{
		Stream:       domain.StreamEggs,
		CustomerName: "Marie",
		Items:        []domain.LineItem{{Label: "Eier L", UnitPrice: 0.5, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("lost event must not fail the durable write: %v", err)
	}
}

func TestUpdateStatusPublishesOnlyOnTransition(t *testing.T) {
	stored := domain.Order{ID: "order-1", Stream: domain.StreamEggs, Status: domain.OrderStatusPacked}
	orders := &stubOrderRepo{
		getFn: func(context.Context, domain.Stream, string) (domain.Order, error) {
			return stored, nil
		},
	}
	events := &capturePublisher{}
	svc := newTestOrderService(t, orders, events, &captureMailer{}, nil)

	// Same status: write goes through, no event.
	updated, err := svc.UpdateStatus(context.Background(), UpdateStatusCommand{
		Stream:  domain.StreamEggs,
		OrderID: "order-1",
		Status:  domain.OrderStatusPacked,
	})
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if len(events.events) != 0 {
		t.Fatalf("unchanged status must not publish, got %d events", len(events.events))
	}

	// Transition publishes with the previous status.
	updated, err = svc.UpdateStatus(context.Background(), UpdateStatusCommand{
		Stream:       domain.StreamEggs,
		OrderID:      "order-1",
		Status:       domain.OrderStatusDispatched,
		TrackingLink: "https://tracking.example/abc",
	})
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if updated.TrackingLink != "https://tracking.example/abc" {
		t.Fatalf("tracking link not applied: %q", updated.TrackingLink)
	}
	if len(events.events) != 1 {
		t.Fatalf("expected one event, got %d", len(events.events))
	}
	event := events.events[0]
	if event.Kind != EventOrderUpdated || event.PrevStatus != domain.OrderStatusPacked || event.NewStatus != domain.OrderStatusDispatched {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	svc := newTestOrderService(t, &stubOrderRepo{}, &capturePublisher{}, &captureMailer{}, nil)
	_, err := svc.UpdateStatus(context.Background(), UpdateStatusCommand{
		Stream:  domain.StreamEggs,
		OrderID: "order-1",
		Status:  domain.OrderStatus("teleported"),
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestUpdateStatusMapsNotFound(t *testing.T) {
	orders := &stubOrderRepo{
		getFn: func(context.Context, domain.Stream, string) (domain.Order, error) {
			return domain.Order{}, repositories.NewError(repositories.ErrorCodeNotFound, "order missing", nil)
		},
	}
	svc := newTestOrderService(t, orders, &capturePublisher{}, &captureMailer{}, nil)
	_, err := svc.UpdateStatus(context.Background(), UpdateStatusCommand{
		Stream:  domain.StreamEggs,
		OrderID: "order-1",
		Status:  domain.OrderStatusConfirmed,
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRequestDispatchNotificationSendsToCustomer(t *testing.T) {
	orders := &stubOrderRepo{
		getFn: func(context.Context, domain.Stream, string) (domain.Order, error) {
			return sampleOrder(), nil
		},
	}
	mailer := &captureMailer{}
	svc := newTestOrderService(t, orders, &capturePublisher{}, mailer, nil)

	deliveryID, err := svc.RequestDispatchNotification(context.Background(), domain.StreamEggs, "order-1")
	if err != nil {
		t.Fatalf("request dispatch notification: %v", err)
	}
	if deliveryID != "delivery-1" {
		t.Fatalf("unexpected delivery id %q", deliveryID)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("expected one mail, got %d", len(mailer.sent))
	}
	if mailer.sent[0].Recipients[0] != "marie@example.com" {
		t.Fatalf("unexpected recipients %v", mailer.sent[0].Recipients)
	}
}

func TestRequestDispatchNotificationPreconditions(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*domain.Order)
	}{
		{"missing email", func(o *domain.Order) { o.Email = "" }},
		{"missing requested date", func(o *domain.Order) { o.RequestedDate = "  " }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := sampleOrder()
			tc.mutate(&order)
			orders := &stubOrderRepo{
				getFn: func(context.Context, domain.Stream, string) (domain.Order, error) {
					return order, nil
				},
			}
			mailer := &captureMailer{}
			svc := newTestOrderService(t, orders, &capturePublisher{}, mailer, nil)

			_, err := svc.RequestDispatchNotification(context.Background(), domain.StreamEggs, order.ID)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
			if len(mailer.sent) != 0 {
				t.Fatal("a failed precondition must not send anything")
			}
		})
	}
}
