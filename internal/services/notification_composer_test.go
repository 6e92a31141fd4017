package services

import (
	"strings"
	"testing"

	"github.com/feldhof/orders/internal/domain"
)

func sampleOrder() domain.Order {
	return domain.Order{
		ID:             "01J0TESTORDER",
		Stream:         domain.StreamEggs,
		Number:         "#0042",
		Status:         domain.OrderStatusNew,
		CustomerName:   "Marie Curie",
		Email:          "marie@example.com",
		Phone:          "+49 170 0000000",
		DeliveryOption: "Abholung",
		RequestedDate:  "2026-09-04",
		Items: []domain.LineItem{
			{Label: "Eier Größe L", UnitPrice: 0.50, Quantity: 10},
			{Label: "Eier Größe M", UnitPrice: 0.40, SpecialPrice: 0.35, Quantity: 20},
		},
		DeliveryCost: 3.50,
	}
}

func TestOrderCreatedComposesCustomerAndAdminCopies(t *testing.T) {
	c := NewComposer()
	customer, admin := c.OrderCreated(sampleOrder())

	if customer.Subject != "Bestellung #0042 eingegangen" {
		t.Fatalf("unexpected customer subject %q", customer.Subject)
	}
	if admin.Subject != "Neue Bestellung #0042" {
		t.Fatalf("unexpected admin subject %q", admin.Subject)
	}
	if !strings.Contains(customer.HTMLBody, "Marie Curie") {
		t.Fatal("customer body must greet the customer")
	}
	if !strings.Contains(customer.HTMLBody, "Verwendungszweck") {
		t.Fatal("customer body must carry the payment reference line")
	}
	// The special price overrides the unit price: 10*0.50 + 20*0.35 + 3.50.
	if !strings.Contains(customer.HTMLBody, "€15.50") {
		t.Fatalf("expected grand total €15.50 in body: %s", customer.HTMLBody)
	}
	if !strings.Contains(customer.HTMLBody, "€0.35") {
		t.Fatal("expected special price €0.35 in item table")
	}
	if strings.Contains(customer.HTMLBody, "01J0TESTORDER") {
		t.Fatal("internal id must not leak into the customer copy")
	}
	if !strings.Contains(admin.HTMLBody, "01J0TESTORDER") {
		t.Fatal("admin copy must carry the internal id")
	}
	if !strings.Contains(admin.HTMLBody, "marie@example.com") {
		t.Fatal("admin copy must carry the contact details")
	}
}

func TestComposerEscapesCustomerText(t *testing.T) {
	c := NewComposer()
	order := sampleOrder()
	order.CustomerName = `<script>alert("x")</script>Mallory`
	order.Items[0].Label = `<img src=x onerror=alert(1)>Eier`

	customer, admin := c.OrderCreated(order)
	for _, body := range []string{customer.HTMLBody, admin.HTMLBody} {
		if strings.Contains(body, "<script>") || strings.Contains(body, "<img") {
			t.Fatalf("markup survived sanitization: %s", body)
		}
	}
	if !strings.Contains(customer.HTMLBody, "Mallory") {
		t.Fatal("text content must survive sanitization")
	}
}

func TestStatusChangedIncludesTrackingLinkWhenSet(t *testing.T) {
	c := NewComposer()
	order := sampleOrder()
	order.Status = domain.OrderStatusDispatched
	order.TrackingLink = "https://tracking.example/abc"

	customer, admin := c.StatusChanged(order, domain.OrderStatusPacked)
	if customer.Subject != "Bestellung #0042: Versendet" {
		t.Fatalf("unexpected subject %q", customer.Subject)
	}
	if !strings.Contains(customer.HTMLBody, "tracking.example/abc") {
		t.Fatal("expected tracking link in customer body")
	}
	if !strings.Contains(admin.HTMLBody, "Gepackt") {
		t.Fatal("admin copy must name the previous status")
	}

	order.TrackingLink = ""
	customer, _ = c.StatusChanged(order, domain.OrderStatusPacked)
	if strings.Contains(customer.HTMLBody, "Sendungsverfolgung") {
		t.Fatal("no tracking section expected without a link")
	}
}

func TestStatusChangeSuppressed(t *testing.T) {
	if !StatusChangeSuppressed(domain.OrderStatusCancelled) {
		t.Fatal("cancelled must be suppressed")
	}
	if !StatusChangeSuppressed(domain.OrderStatusArchived) {
		t.Fatal("archived must be suppressed")
	}
	for _, status := range []domain.OrderStatus{
		domain.OrderStatusNew,
		domain.OrderStatusConfirmed,
		domain.OrderStatusPacked,
		domain.OrderStatusDispatched,
		domain.OrderStatusDelivered,
	} {
		if StatusChangeSuppressed(status) {
			t.Fatalf("%s must not be suppressed", status)
		}
	}
}

func TestDispatchRequestedMentionsRequestedDate(t *testing.T) {
	c := NewComposer()
	n := c.DispatchRequested(sampleOrder())
	if n.Kind != NotificationDispatchRequested {
		t.Fatalf("unexpected kind %q", n.Kind)
	}
	if !strings.Contains(n.HTMLBody, "2026-09-04") {
		t.Fatal("expected requested date in body")
	}
}

func TestStockThresholdCrossedAlert(t *testing.T) {
	c := NewComposer()
	n := c.StockThresholdCrossed(ThresholdSignal{
		ItemID:    "eggs-l",
		Name:      "Eier <b>L</b>",
		Quantity:  4,
		Threshold: 5,
	})
	if n.Subject != "Bestandswarnung: Eier L" {
		t.Fatalf("unexpected subject %q", n.Subject)
	}
	if strings.Contains(n.HTMLBody, "<b>") {
		t.Fatal("markup in the item name must be stripped")
	}
	if !strings.Contains(n.HTMLBody, "Schwelle: 5") {
		t.Fatalf("expected threshold in body: %s", n.HTMLBody)
	}
}
