package domain

import (
	"strings"
	"time"
)

// Stream identifies an independently numbered order sequence.
type Stream string

const (
	// StreamEggs carries weekly egg box orders.
	StreamEggs Stream = "eggs"
	// StreamLivestock carries live animal orders.
	StreamLivestock Stream = "livestock"
)

// Streams lists every known order stream.
var Streams = []Stream{StreamEggs, StreamLivestock}

// ParseStream validates a raw stream value.
func ParseStream(raw string) (Stream, bool) {
	candidate := Stream(strings.ToLower(strings.TrimSpace(raw)))
	for _, s := range Streams {
		if s == candidate {
			return s, true
		}
	}
	return "", false
}

// OrderStatus enumerates valid lifecycle states for orders.
type OrderStatus string

const (
	// OrderStatusNew is the state every submitted order starts in.
	OrderStatusNew OrderStatus = "new"
	// OrderStatusConfirmed indicates the order has been accepted by the shop.
	OrderStatusConfirmed OrderStatus = "confirmed"
	// OrderStatusPacked indicates the order is packed and awaiting handover.
	OrderStatusPacked OrderStatus = "packed"
	// OrderStatusDispatched indicates the order has left the farm.
	OrderStatusDispatched OrderStatus = "dispatched"
	// OrderStatusDelivered indicates the order reached the customer.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled indicates the order was cancelled by either side.
	OrderStatusCancelled OrderStatus = "cancelled"
	// OrderStatusArchived indicates the order was moved out of the active list.
	OrderStatusArchived OrderStatus = "archived"
)

var orderStatusLabels = map[OrderStatus]string{
	OrderStatusNew:        "Eingegangen",
	OrderStatusConfirmed:  "Bestätigt",
	OrderStatusPacked:     "Gepackt",
	OrderStatusDispatched: "Versendet",
	OrderStatusDelivered:  "Zugestellt",
	OrderStatusCancelled:  "Storniert",
	OrderStatusArchived:   "Archiviert",
}

// ParseOrderStatus validates a raw status value.
func ParseOrderStatus(raw string) (OrderStatus, bool) {
	candidate := OrderStatus(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := orderStatusLabels[candidate]
	return candidate, ok
}

// Label returns the human-facing label used in notification bodies.
func (s OrderStatus) Label() string {
	if label, ok := orderStatusLabels[s]; ok {
		return label
	}
	return string(s)
}

// LineItem is a single ordered position.
type LineItem struct {
	ID           string
	Label        string
	UnitPrice    float64
	SpecialPrice float64
	Quantity     int
}

// EffectivePrice returns the unit price after applying an optional special price.
// A zero special price means no special price is set.
func (l LineItem) EffectivePrice() float64 {
	if l.SpecialPrice > 0 {
		return l.SpecialPrice
	}
	return l.UnitPrice
}

// Total returns the line total at the effective price.
func (l LineItem) Total() float64 {
	return l.EffectivePrice() * float64(l.Quantity)
}

// Order is the record created by the intake form and mutated by the
// back office and the sequence allocator.
type Order struct {
	ID             string
	Stream         Stream
	Number         string
	Status         OrderStatus
	CustomerName   string
	Email          string
	Phone          string
	DeliveryOption string
	RequestedDate  string
	Items          []LineItem
	DeliveryCost   float64
	TrackingLink   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Subtotal sums all line totals without delivery.
func (o Order) Subtotal() float64 {
	var sum float64
	for _, item := range o.Items {
		sum += item.Total()
	}
	return sum
}

// GrandTotal is the subtotal plus delivery cost.
func (o Order) GrandTotal() float64 {
	return o.Subtotal() + o.DeliveryCost
}

// StockItem is an inventory record watched for threshold crossings.
// A threshold of zero or below disables alerting for the item.
type StockItem struct {
	ID        string
	Name      string
	Quantity  float64
	Threshold float64
	UpdatedAt time.Time
}
