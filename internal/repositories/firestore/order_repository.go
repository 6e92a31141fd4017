package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/feldhof/orders/internal/domain"
	pfirestore "github.com/feldhof/orders/internal/platform/firestore"
	"github.com/feldhof/orders/internal/repositories"
)

const ordersCollection = "orders"

type orderDocument struct {
	Stream         string             `firestore:"stream"`
	Number         string             `firestore:"orderNumber"`
	Status         string             `firestore:"status"`
	CustomerName   string             `firestore:"customerName"`
	Email          string             `firestore:"email"`
	Phone          string             `firestore:"phone,omitempty"`
	DeliveryOption string             `firestore:"deliveryOption,omitempty"`
	RequestedDate  string             `firestore:"requestedDate,omitempty"`
	Items          []lineItemDocument `firestore:"items"`
	DeliveryCost   float64            `firestore:"deliveryCost"`
	TrackingLink   string             `firestore:"trackingLink,omitempty"`
	CreatedAt      time.Time          `firestore:"createdAt"`
	UpdatedAt      time.Time          `firestore:"updatedAt"`
}

type lineItemDocument struct {
	ID           string  `firestore:"id"`
	Label        string  `firestore:"label"`
	UnitPrice    float64 `firestore:"unitPrice"`
	SpecialPrice float64 `firestore:"specialPrice,omitempty"`
	Quantity     int     `firestore:"qty"`
}

// OrderRepository implements repositories.OrderRepository backed by Firestore.
type OrderRepository struct {
	provider *pfirestore.Provider
	orders   *pfirestore.Collection[orderDocument]
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	return &OrderRepository{
		provider: provider,
		orders:   pfirestore.NewCollection[orderDocument](provider, ordersCollection),
	}, nil
}

// Create stores a new order record under its pre-assigned id.
func (r *OrderRepository) Create(ctx context.Context, order domain.Order) error {
	if r == nil || r.provider == nil {
		return errors.New("order repository not initialised")
	}
	id := strings.TrimSpace(order.ID)
	if id == "" {
		return repositories.NewError(repositories.ErrorCodeInvalidInput, "order id is required", nil)
	}
	if _, ok := domain.ParseStream(string(order.Stream)); !ok {
		return repositories.NewError(repositories.ErrorCodeInvalidInput, fmt.Sprintf("unknown stream %q", order.Stream), nil)
	}
	return wrapOrderError("orders.create", r.orders.Set(ctx, id, newOrderDocument(order)))
}

// Get loads a single order by id, verifying its stream.
func (r *OrderRepository) Get(ctx context.Context, stream domain.Stream, orderID string) (domain.Order, error) {
	if r == nil || r.orders == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, repositories.NewError(repositories.ErrorCodeInvalidInput, "order id is required", nil)
	}

	doc, err := r.orders.Get(ctx, orderID)
	if err != nil {
		if pfirestore.IsNotFoundError(err) {
			return domain.Order{}, repositories.NewError(repositories.ErrorCodeNotFound, fmt.Sprintf("order %s not found", orderID), err)
		}
		return domain.Order{}, wrapOrderError("orders.get", err)
	}
	if stream != "" && doc.Data.Stream != string(stream) {
		return domain.Order{}, repositories.NewError(repositories.ErrorCodeNotFound, fmt.Sprintf("order %s not found in stream %s", orderID, stream), nil)
	}
	return doc.Data.toDomain(doc.ID), nil
}

// Update overwrites the mutable dashboard fields of an existing order.
func (r *OrderRepository) Update(ctx context.Context, order domain.Order) error {
	if r == nil || r.orders == nil {
		return errors.New("order repository not initialised")
	}
	id := strings.TrimSpace(order.ID)
	if id == "" {
		return repositories.NewError(repositories.ErrorCodeInvalidInput, "order id is required", nil)
	}

	updates := []firestore.Update{
		{Path: "status", Value: string(order.Status)},
		{Path: "trackingLink", Value: strings.TrimSpace(order.TrackingLink)},
		{Path: "updatedAt", Value: order.UpdatedAt.UTC()},
	}
	err := r.orders.Update(ctx, id, updates)
	if pfirestore.IsNotFoundError(err) {
		return repositories.NewError(repositories.ErrorCodeNotFound, fmt.Sprintf("order %s not found", id), err)
	}
	return wrapOrderError("orders.update", err)
}

// SetNumber stamps the allocated number onto the order record.
func (r *OrderRepository) SetNumber(ctx context.Context, stream domain.Stream, orderID, number string) error {
	if r == nil || r.orders == nil {
		return errors.New("order repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	number = strings.TrimSpace(number)
	if orderID == "" || number == "" {
		return repositories.NewError(repositories.ErrorCodeInvalidInput, "order id and number are required", nil)
	}

	err := r.orders.Update(ctx, orderID, []firestore.Update{
		{Path: "orderNumber", Value: number},
		{Path: "updatedAt", Value: time.Now().UTC()},
	})
	if pfirestore.IsNotFoundError(err) {
		return repositories.NewError(repositories.ErrorCodeNotFound, fmt.Sprintf("order %s not found in stream %s", orderID, stream), err)
	}
	return wrapOrderError("orders.setNumber", err)
}

// AssignedNumbers lists already-stamped numbers for the stream, capped at limit.
func (r *OrderRepository) AssignedNumbers(ctx context.Context, stream domain.Stream, limit int) ([]string, error) {
	if r == nil || r.orders == nil {
		return nil, errors.New("order repository not initialised")
	}
	if limit <= 0 {
		limit = 500
	}

	docs, err := r.orders.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("stream", "==", string(stream)).Limit(limit)
	})
	if err != nil {
		return nil, wrapOrderError("orders.assignedNumbers", err)
	}

	var numbers []string
	for _, doc := range docs {
		if n := strings.TrimSpace(doc.Data.Number); n != "" {
			numbers = append(numbers, n)
		}
	}
	return numbers, nil
}

func newOrderDocument(order domain.Order) orderDocument {
	items := make([]lineItemDocument, len(order.Items))
	for i, item := range order.Items {
		items[i] = lineItemDocument{
			ID:           strings.TrimSpace(item.ID),
			Label:        strings.TrimSpace(item.Label),
			UnitPrice:    item.UnitPrice,
			SpecialPrice: item.SpecialPrice,
			Quantity:     item.Quantity,
		}
	}
	return orderDocument{
		Stream:         string(order.Stream),
		Number:         strings.TrimSpace(order.Number),
		Status:         string(order.Status),
		CustomerName:   strings.TrimSpace(order.CustomerName),
		Email:          strings.TrimSpace(order.Email),
		Phone:          strings.TrimSpace(order.Phone),
		DeliveryOption: strings.TrimSpace(order.DeliveryOption),
		RequestedDate:  strings.TrimSpace(order.RequestedDate),
		Items:          items,
		DeliveryCost:   order.DeliveryCost,
		TrackingLink:   strings.TrimSpace(order.TrackingLink),
		CreatedAt:      order.CreatedAt.UTC(),
		UpdatedAt:      order.UpdatedAt.UTC(),
	}
}

func (d orderDocument) toDomain(id string) domain.Order {
	items := make([]domain.LineItem, len(d.Items))
	for i, item := range d.Items {
		items[i] = domain.LineItem{
			ID:           item.ID,
			Label:        item.Label,
			UnitPrice:    item.UnitPrice,
			SpecialPrice: item.SpecialPrice,
			Quantity:     item.Quantity,
		}
	}
	return domain.Order{
		ID:             id,
		Stream:         domain.Stream(d.Stream),
		Number:         d.Number,
		Status:         domain.OrderStatus(d.Status),
		CustomerName:   d.CustomerName,
		Email:          d.Email,
		Phone:          d.Phone,
		DeliveryOption: d.DeliveryOption,
		RequestedDate:  d.RequestedDate,
		Items:          items,
		DeliveryCost:   d.DeliveryCost,
		TrackingLink:   d.TrackingLink,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

func wrapOrderError(op string, err error) error {
	if err == nil {
		return nil
	}
	var repoErr *repositories.Error
	if errors.As(err, &repoErr) {
		if repoErr.Op == "" {
			repoErr.Op = op
		}
		return repoErr
	}
	return pfirestore.WrapError(op, err)
}
