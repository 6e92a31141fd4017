package services

import (
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/feldhof/orders/internal/domain"
)

// NotificationKind names the composed notification variants.
type NotificationKind string

const (
	// NotificationOrderCreated confirms a new order to customer and admins.
	NotificationOrderCreated NotificationKind = "order-created"
	// NotificationOrderStatusChanged announces a status transition.
	NotificationOrderStatusChanged NotificationKind = "order-status-changed"
	// NotificationDispatchRequested confirms shipment preparation to the customer.
	NotificationDispatchRequested NotificationKind = "dispatch-requested"
	// NotificationStockThresholdCrossed alerts admins to low stock.
	NotificationStockThresholdCrossed NotificationKind = "stock-threshold-crossed"
)

// Notification is the ephemeral payload handed to the delivery client.
// Recipients are filled in by the dispatcher before sending.
type Notification struct {
	Kind       NotificationKind
	Subject    string
	Recipients []string
	HTMLBody   string
	TextBody   string
}

// suppressedStatuses lists transitions that never notify anyone.
var suppressedStatuses = map[domain.OrderStatus]struct{}{
	domain.OrderStatusCancelled: {},
	domain.OrderStatusArchived:  {},
}

// StatusChangeSuppressed reports whether transitions into status are silent.
func StatusChangeSuppressed(status domain.OrderStatus) bool {
	_, ok := suppressedStatuses[status]
	return ok
}

// Composer builds notification payloads. Every interpolated free-text value
// passes through the sanitizer before it reaches the HTML body; this is the
// injection barrier, not a formatting nicety.
type Composer struct {
	policy *bluemonday.Policy
}

// NewComposer constructs a Composer with a strict sanitization policy.
func NewComposer() *Composer {
	return &Composer{policy: bluemonday.StrictPolicy()}
}

// escape strips any markup from customer-supplied text.
func (c *Composer) escape(raw string) string {
	return c.policy.Sanitize(strings.TrimSpace(raw))
}

func formatMoney(value float64) string {
	return fmt.Sprintf("€%.2f", value)
}

// OrderCreated composes the customer confirmation and the admin copy for a
// freshly numbered order.
func (c *Composer) OrderCreated(order domain.Order) (customer Notification, admin Notification) {
	number := c.escape(order.Number)
	subject := fmt.Sprintf("Bestellung %s eingegangen", number)

	var body strings.Builder
	fmt.Fprintf(&body, "<p>Guten Tag %s,</p>", c.escape(order.CustomerName))
	body.WriteString("<p>vielen Dank für Ihre Bestellung. Hier die Übersicht:</p>")
	c.writeItemTable(&body, order)
	fmt.Fprintf(&body, "<p>Lieferart: %s<br>Wunschtermin: %s<br>Status: %s</p>",
		c.escape(order.DeliveryOption), c.escape(order.RequestedDate), c.escape(order.Status.Label()))
	fmt.Fprintf(&body, "<p>Bitte geben Sie bei der Zahlung die Bestellnummer %s als Verwendungszweck an.</p>", number)

	customer = Notification{
		Kind:     NotificationOrderCreated,
		Subject:  subject,
		HTMLBody: body.String(),
		TextBody: fmt.Sprintf("Bestellung %s eingegangen. Gesamtbetrag %s.", order.Number, formatMoney(order.GrandTotal())),
	}

	var adminBody strings.Builder
	fmt.Fprintf(&adminBody, "<p>Neue Bestellung %s (%s).</p>", number, c.escape(string(order.Stream)))
	c.writeItemTable(&adminBody, order)
	fmt.Fprintf(&adminBody, "<p>Kunde: %s<br>E-Mail: %s<br>Telefon: %s</p>",
		c.escape(order.CustomerName), c.escape(order.Email), c.escape(order.Phone))
	fmt.Fprintf(&adminBody, "<p>Interne ID: %s</p>", c.escape(order.ID))

	admin = Notification{
		Kind:     NotificationOrderCreated,
		Subject:  fmt.Sprintf("Neue Bestellung %s", number),
		HTMLBody: adminBody.String(),
		TextBody: fmt.Sprintf("Neue Bestellung %s, Gesamtbetrag %s.", order.Number, formatMoney(order.GrandTotal())),
	}
	return customer, admin
}

// StatusChanged composes the customer update and the admin copy for a status
// transition. Callers must check StatusChangeSuppressed first.
func (c *Composer) StatusChanged(order domain.Order, previous domain.OrderStatus) (customer Notification, admin Notification) {
	number := c.escape(order.Number)
	label := c.escape(order.Status.Label())

	var body strings.Builder
	fmt.Fprintf(&body, "<p>Guten Tag %s,</p>", c.escape(order.CustomerName))
	fmt.Fprintf(&body, "<p>Ihre Bestellung %s hat einen neuen Status: <strong>%s</strong>.</p>", number, label)
	if link := strings.TrimSpace(order.TrackingLink); link != "" {
		fmt.Fprintf(&body, "<p>Sendungsverfolgung: %s</p>", c.escape(link))
	}
	c.writeTotals(&body, order)

	customer = Notification{
		Kind:     NotificationOrderStatusChanged,
		Subject:  fmt.Sprintf("Bestellung %s: %s", number, label),
		HTMLBody: body.String(),
		TextBody: fmt.Sprintf("Bestellung %s ist jetzt: %s", order.Number, order.Status.Label()),
	}

	var adminBody strings.Builder
	fmt.Fprintf(&adminBody, "<p>Bestellung %s: %s → %s.</p>",
		number, c.escape(previous.Label()), label)
	fmt.Fprintf(&adminBody, "<p>Interne ID: %s</p>", c.escape(order.ID))

	admin = Notification{
		Kind:     NotificationOrderStatusChanged,
		Subject:  fmt.Sprintf("Statuswechsel %s: %s", number, label),
		HTMLBody: adminBody.String(),
		TextBody: fmt.Sprintf("Bestellung %s: %s -> %s", order.Number, previous.Label(), order.Status.Label()),
	}
	return customer, admin
}

// DispatchRequested composes the shipment-preparation confirmation. There is
// no admin counterpart for this kind.
func (c *Composer) DispatchRequested(order domain.Order) Notification {
	number := c.escape(order.Number)

	var body strings.Builder
	fmt.Fprintf(&body, "<p>Guten Tag %s,</p>", c.escape(order.CustomerName))
	fmt.Fprintf(&body, "<p>Ihre Bestellung %s wird für den Versand am %s vorbereitet.</p>",
		number, c.escape(order.RequestedDate))
	c.writeTotals(&body, order)

	return Notification{
		Kind:     NotificationDispatchRequested,
		Subject:  fmt.Sprintf("Bestellung %s wird versendet", number),
		HTMLBody: body.String(),
		TextBody: fmt.Sprintf("Bestellung %s wird für den Versand vorbereitet.", order.Number),
	}
}

// StockThresholdCrossed composes the admin-only low stock alert. There is no
// customer-facing counterpart for this kind.
func (c *Composer) StockThresholdCrossed(signal ThresholdSignal) Notification {
	name := c.escape(signal.Name)

	var body strings.Builder
	fmt.Fprintf(&body, "<p>Der Bestand von <strong>%s</strong> ist auf %.0f gefallen (Schwelle: %.0f).</p>",
		name, signal.Quantity, signal.Threshold)
	fmt.Fprintf(&body, "<p>Artikel-ID: %s</p>", c.escape(signal.ItemID))

	return Notification{
		Kind:     NotificationStockThresholdCrossed,
		Subject:  fmt.Sprintf("Bestandswarnung: %s", name),
		HTMLBody: body.String(),
		TextBody: fmt.Sprintf("Bestand %s: %.0f (Schwelle %.0f)", signal.Name, signal.Quantity, signal.Threshold),
	}
}

func (c *Composer) writeItemTable(body *strings.Builder, order domain.Order) {
	body.WriteString(`<table border="0" cellpadding="4"><tr><th align="left">Artikel</th><th align="right">Menge</th><th align="right">Einzelpreis</th><th align="right">Summe</th></tr>`)
	for _, item := range order.Items {
		fmt.Fprintf(body, `<tr><td>%s</td><td align="right">%d</td><td align="right">%s</td><td align="right">%s</td></tr>`,
			c.escape(item.Label), item.Quantity, formatMoney(item.EffectivePrice()), formatMoney(item.Total()))
	}
	body.WriteString("</table>")
	c.writeTotals(body, order)
}

func (c *Composer) writeTotals(body *strings.Builder, order domain.Order) {
	fmt.Fprintf(body, "<p>Zwischensumme: %s<br>Lieferkosten: %s<br><strong>Gesamtbetrag: %s</strong></p>",
		formatMoney(order.Subtotal()), formatMoney(order.DeliveryCost), formatMoney(order.GrandTotal()))
}
